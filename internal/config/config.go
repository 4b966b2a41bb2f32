// Package config loads layered settings: defaults, an optional YAML file,
// WORLDSTATS_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix             = "WORLDSTATS"
	DefaultConfigFileName = "worldstats"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig configures the data backend.
type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	Data      string  `mapstructure:"data"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

// DashboardConfig configures the dashboard shell.
type DashboardConfig struct {
	Addr       string `mapstructure:"addr"`
	BackendURL string `mapstructure:"backend_url"`
	Geo        string `mapstructure:"geo"`
	// Sequenced discards fetch responses that were superseded by a newer
	// request for the same dataset.
	Sequenced bool `mapstructure:"sequenced"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.data", "data.csv")
	v.SetDefault("server.rate_limit", 50.0)

	v.SetDefault("dashboard.addr", ":8080")
	v.SetDefault("dashboard.backend_url", "http://localhost:5000")
	v.SetDefault("dashboard.geo", "countries.geojson")
	v.SetDefault("dashboard.sequenced", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads cfgFile (or worldstats.yaml from the working directory when
// empty) on top of the defaults and returns the merged configuration.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Dashboard.BackendURL == "" {
		return fmt.Errorf("dashboard.backend_url is required")
	}
	return nil
}
