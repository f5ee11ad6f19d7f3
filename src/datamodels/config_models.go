package datamodels

import (
	"time"

	"volbot/src/utils/errors"
)

type VolbotConfig struct {
	RunConfig      RunConfig      `mapstructure:"run"`
	Assets         []AssetConfig  `mapstructure:"assets"`
	Models         []string       `mapstructure:"models"`
	HmmConfig      HmmConfig      `mapstructure:"hmm"`
	EvalConfig     EvalConfig     `mapstructure:"eval"`
	DatabaseConfig PostgresConfig `mapstructure:"postgres"`
	ServerConfig   ServerConfig   `mapstructure:"server"`
}

type RunConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	ResultsDir string `mapstructure:"results_dir"`
	FiguresDir string `mapstructure:"figures_dir"`
}

type AssetConfig struct {
	Name      Asset          `mapstructure:"name"`
	Source    string         `mapstructure:"source"` // "csv" or "yahoo"
	Ticker    string         `mapstructure:"ticker"`
	StartTime string         `mapstructure:"start_time"`
	EndTime   string         `mapstructure:"end_time"`
	CsvConfig *CsvFeedConfig `mapstructure:"csv"`
}

type CsvColumnConfig struct {
	ColumnIndex int       `mapstructure:"column_index"`
	FieldName   string    `mapstructure:"field_name"`
	FieldType   FieldType `mapstructure:"field_type"`
}

type CsvFeedConfig struct {
	FilePath         string            `mapstructure:"file_path"`
	HasHeader        bool              `mapstructure:"has_header"`
	TimestampColName string            `mapstructure:"timestamp_col_name"`
	TimestampLayout  string            `mapstructure:"timestamp_layout"`
	Columns          []CsvColumnConfig `mapstructure:"columns"`
}

type HmmConfig struct {
	States  int   `mapstructure:"states"`
	MaxIter int   `mapstructure:"max_iter"`
	Seed    int64 `mapstructure:"seed"`
}

type EvalConfig struct {
	Window     int `mapstructure:"window"`
	RefitEvery int `mapstructure:"refit_every"`
	RvWindow   int `mapstructure:"rv_window"`
}

type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	URI      string `mapstructure:"uri"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

func (c *VolbotConfig) Validate() error {
	if len(c.Assets) == 0 {
		return errors.New("at least one asset is required")
	}
	for _, a := range c.Assets {
		if a.Name == "" {
			return errors.New("asset name is required")
		}
		switch a.Source {
		case "csv":
			if a.CsvConfig == nil || a.CsvConfig.FilePath == "" {
				return errors.Newf("asset %s: csv source requires a file path", a.Name)
			}
		case "yahoo":
			if a.Ticker == "" {
				return errors.Newf("asset %s: yahoo source requires a ticker", a.Name)
			}
		default:
			return errors.Newf("asset %s: unknown source %q", a.Name, a.Source)
		}
	}
	if len(c.Models) == 0 {
		return errors.New("at least one model is required")
	}
	if c.HmmConfig.States < 2 {
		return errors.Newf("hmm needs at least 2 states, got %d", c.HmmConfig.States)
	}
	if c.EvalConfig.Window < 20 {
		return errors.Newf("eval window %d is too short to fit a volatility model", c.EvalConfig.Window)
	}
	if c.EvalConfig.RefitEvery < 1 {
		return errors.Newf("refit cadence must be >= 1, got %d", c.EvalConfig.RefitEvery)
	}
	return nil
}

// ParseAssetTime parses a config timestamp, accepting a plain date or RFC3339.
func ParseAssetTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "cannot parse time %q", value)
	}
	return t, nil
}
