package datamodels

import "sort"

type FieldType string

const (
	FieldTypeFloat  FieldType = "float"
	FieldTypeString FieldType = "string"
	FieldTypeInt    FieldType = "int"
	FieldTypeTime   FieldType = "time"
)

// CsvSchema maps CSV columns onto named, typed fields. One column must be
// the timestamp.
type CsvSchema struct {
	TimestampFieldName string
	TimestampLayout    string // empty means unix seconds
	Columns            []CsvColumnConfig
}

// TimestampColumnIndex returns the column index of the timestamp field, or -1.
func (s *CsvSchema) TimestampColumnIndex() int {
	for _, c := range s.Columns {
		if c.FieldName == s.TimestampFieldName {
			return c.ColumnIndex
		}
	}
	return -1
}

// ColumnIndex returns the column index for a field name, or -1.
func (s *CsvSchema) ColumnIndex(fieldName string) int {
	for _, c := range s.Columns {
		if c.FieldName == fieldName {
			return c.ColumnIndex
		}
	}
	return -1
}

// ColumnsOrdered returns the columns sorted by column index.
func (s *CsvSchema) ColumnsOrdered() []CsvColumnConfig {
	ordered := make([]CsvColumnConfig, len(s.Columns))
	copy(ordered, s.Columns)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ColumnIndex < ordered[j].ColumnIndex
	})
	return ordered
}
