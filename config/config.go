package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// PROMEXTRACT_PROMETHEUS_URL.
const EnvPrefix = "PROMEXTRACT"

// Config holds every configurable value of the extractor.
type Config struct {
	// External services
	PrometheusURL string        `mapstructure:"prometheus_url"` // e.g. http://localhost:9090
	QueryTimeout  time.Duration `mapstructure:"query_timeout"`  // per instant query
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`  // health check

	// Logging
	LogLevel  string `mapstructure:"log_level"`  // debug|info|warn|error
	LogFormat string `mapstructure:"log_format"` // console|json
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"prometheus-url": "prometheus_url",
	"log-level":      "log_level",
}

// Load reads configuration from (in decreasing priority):
//  1. command-line flags in fs that were explicitly set
//  2. environment variables (PROMEXTRACT_PROMETHEUS_URL, ...)
//  3. a yaml file: path when given, else ./configs/config.yaml if it exists
//  4. defaults, which match a local docker-compose Prometheus.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("prometheus_url", "http://localhost:9090")
	v.SetDefault("query_timeout", 10*time.Second)
	v.SetDefault("probe_timeout", 5*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("cannot read config file: %w", err)
			}
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot coerce.
func (c *Config) Validate() error {
	if c.PrometheusURL == "" {
		return fmt.Errorf("prometheus_url must not be empty")
	}
	u, err := url.Parse(c.PrometheusURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("prometheus_url %q must be an absolute http(s) URL", c.PrometheusURL)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive, got %s", c.QueryTimeout)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive, got %s", c.ProbeTimeout)
	}
	c.PrometheusURL = strings.TrimRight(c.PrometheusURL, "/")
	return nil
}
