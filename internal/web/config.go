package web

import (
	"time"

	"github.com/spf13/viper"

	"github.com/petvision/petvision/describe"
	"github.com/petvision/petvision/ollama"
)

// Config holds web daemon settings.
type Config struct {
	Listen         string        `mapstructure:"listen"`
	ParamsFile     string        `mapstructure:"params_file"`
	MaxUploadMB    int64         `mapstructure:"max_upload_mb"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoadConfig reads configuration from file and environment. Every setting
// has a default; the search-path config file is optional, but a file named
// explicitly must load.
func LoadConfig(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("listen", ":5001")
	v.SetDefault("params_file", describe.DefaultParamsPath)
	v.SetDefault("max_upload_mb", 16)
	v.SetDefault("request_timeout", ollama.DefaultTimeout)

	v.SetConfigType("toml")
	v.SetEnvPrefix("PETVISION")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	} else {
		v.SetConfigName("petvision")
		v.AddConfigPath("/etc/petvision")
		v.AddConfigPath("$HOME/.config/petvision")
		v.AddConfigPath(".")
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
