// Package config loads registryd's configuration from the environment:
// viper holds the defaults and decode hooks, mapstructure unmarshals into a
// typed struct.
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the full set of environment-tunable knobs: listen address,
// upstream registry, storage, cache freshness, and request/retry timeouts.
type Config struct {
	Host             string        `mapstructure:"HOST"`
	Port             int           `mapstructure:"PORT"`
	UpstreamRegistry string        `mapstructure:"UPSTREAM_REGISTRY"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	CacheDir         string        `mapstructure:"CACHE_DIR"`
	CacheEnabled     bool          `mapstructure:"CACHE_ENABLED"`
	CacheTTLHours    int           `mapstructure:"CACHE_TTL_HOURS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TokenTTL         time.Duration `mapstructure:"TOKEN_TTL"`
	UpstreamRetries  int           `mapstructure:"UPSTREAM_RETRIES"`
	ConnectTimeout   time.Duration `mapstructure:"UPSTREAM_CONNECT_TIMEOUT"`
	ReadTimeout      time.Duration `mapstructure:"UPSTREAM_READ_TIMEOUT"`
	TarballTimeout   time.Duration `mapstructure:"UPSTREAM_TARBALL_TIMEOUT"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	LogFilePath      string        `mapstructure:"LOG_FILE_PATH"`
}

// CacheTTL returns the metadata freshness window as a time.Duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// Load reads configuration from the process environment, falling back to
// the defaults set in setDefaults when a variable is unset.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	keys := []string{
		"HOST", "PORT", "UPSTREAM_REGISTRY", "DATABASE_URL", "CACHE_DIR",
		"CACHE_ENABLED", "CACHE_TTL_HOURS", "REQUEST_TIMEOUT", "TOKEN_TTL",
		"UPSTREAM_RETRIES", "UPSTREAM_CONNECT_TIMEOUT", "UPSTREAM_READ_TIMEOUT",
		"UPSTREAM_TARBALL_TIMEOUT", "LOG_LEVEL", "LOG_FILE_PATH",
	}
	settings := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		settings[k] = v.Get(k)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &cfg,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", 8000)
	v.SetDefault("UPSTREAM_REGISTRY", "https://registry.npmjs.org")
	v.SetDefault("DATABASE_URL", "./data/registry.db")
	v.SetDefault("CACHE_DIR", "./data")
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL_HOURS", 24)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("TOKEN_TTL", "0s")
	v.SetDefault("UPSTREAM_RETRIES", 3)
	v.SetDefault("UPSTREAM_CONNECT_TIMEOUT", "5s")
	v.SetDefault("UPSTREAM_READ_TIMEOUT", "30s")
	v.SetDefault("UPSTREAM_TARBALL_TIMEOUT", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE_PATH", "")
}
