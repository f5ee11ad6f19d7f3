package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"volbot/src/datamodels"
)

// Load reads the pipeline config from CONFIG_PATH, falling back to
// config.yaml next to the working directory.
func Load() (*datamodels.VolbotConfig, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(cwd, "config.yaml")
	}

	return LoadFromFile(configPath)
}

func LoadFromFile(configPath string) (*datamodels.VolbotConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg datamodels.VolbotConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.data_dir", "data")
	v.SetDefault("run.results_dir", "results")
	v.SetDefault("run.figures_dir", "results/figures")
	v.SetDefault("models", []string{"garch", "egarch", "gjrgarch"})
	v.SetDefault("hmm.states", 2)
	v.SetDefault("hmm.max_iter", 200)
	v.SetDefault("hmm.seed", 42)
	v.SetDefault("eval.window", 250)
	v.SetDefault("eval.refit_every", 5)
	v.SetDefault("eval.rv_window", 5)
	v.SetDefault("server.port", ":8080")
}
