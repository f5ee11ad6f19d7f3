// Package series derives log-return series from price bars and aligns
// series across assets.
package series

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

// FromBars computes log returns log(P_t / P_{t-1}) from ordered price bars.
func FromBars(asset datamodels.Asset, bars []datamodels.PriceBar) (*datamodels.ReturnSeries, error) {
	if len(bars) < 2 {
		return nil, errors.Newf("need at least 2 bars for %s, got %d", asset, len(bars))
	}
	points := make([]datamodels.ReturnPoint, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i].Close <= 0 || bars[i-1].Close <= 0 {
			return nil, errors.Newf("non-positive close for %s at %s", asset, bars[i].Timestamp)
		}
		points = append(points, datamodels.ReturnPoint{
			Timestamp: bars[i].Timestamp,
			LogReturn: math.Log(bars[i].Close / bars[i-1].Close),
		})
	}
	return datamodels.NewReturnSeries(asset, points)
}

// AlignedPoint holds the returns of two assets on a common date.
type AlignedPoint struct {
	Timestamp time.Time
	Left      float64
	Right     float64
}

// Align inner-joins two series on their timestamps. Both inputs are ordered,
// so this is a two-pointer merge.
func Align(left, right *datamodels.ReturnSeries) ([]AlignedPoint, error) {
	if left == nil || right == nil {
		return nil, errors.New("cannot align nil series")
	}
	var out []AlignedPoint
	i, j := 0, 0
	for i < left.Len() && j < right.Len() {
		lt := left.Timestamp(i)
		rt := right.Timestamp(j)
		switch {
		case lt.Before(rt):
			i++
		case rt.Before(lt):
			j++
		default:
			out = append(out, AlignedPoint{
				Timestamp: lt,
				Left:      left.At(i).LogReturn,
				Right:     right.At(j).LogReturn,
			})
			i++
			j++
		}
	}
	return out, nil
}

// WriteCSV saves a return series as (date, log_ret) rows.
func WriteCSV(s *datamodels.ReturnSeries, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", filePath)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filePath)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"date", "log_ret"}); err != nil {
		return err
	}
	for _, p := range s.Points() {
		row := []string{
			p.Timestamp.Format("2006-01-02"),
			strconv.FormatFloat(p.LogReturn, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteAlignedCSV saves the joined returns of two assets.
func WriteAlignedCSV(points []AlignedPoint, leftName, rightName string, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", filePath)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filePath)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"date", leftName, rightName}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			p.Timestamp.Format("2006-01-02"),
			strconv.FormatFloat(p.Left, 'f', -1, 64),
			strconv.FormatFloat(p.Right, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
