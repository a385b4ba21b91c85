// Package config loads service settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid indicates a configuration value out of range.
var ErrInvalid = errors.New("invalid config")

// Config holds the settings of the marketplace binaries.
type Config struct {
	QueueSize       int
	HTTPAddr        string
	TLSCert         string
	TLSKey          string
	DatabaseURL     string
	RedisAddr       string
	SessionTTL      time.Duration
	SweepInterval   time.Duration
	OTelHost        string
	OTelProbability float64
	LogLevel        string
}

// Load reads configuration. file may be empty; a missing file is not an
// error, environment variables always take precedence.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetDefault("QUEUE_SIZE", 8)
	v.SetDefault("HTTP_ADDR", ":8443")
	v.SetDefault("SESSION_TTL", time.Hour)
	v.SetDefault("SWEEP_INTERVAL", time.Minute)
	v.SetDefault("OTEL_PROBABILITY", 1.0)
	v.SetDefault("LOG_LEVEL", "info")
	for _, key := range []string{"TLS_CERT", "TLS_KEY", "DATABASE_URL", "REDIS_ADDR", "OTEL_HOST"} {
		v.SetDefault(key, "")
	}
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", file, err)
			}
		}
	}

	cfg := Config{
		QueueSize:       v.GetInt("QUEUE_SIZE"),
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		TLSCert:         v.GetString("TLS_CERT"),
		TLSKey:          v.GetString("TLS_KEY"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		SessionTTL:      v.GetDuration("SESSION_TTL"),
		SweepInterval:   v.GetDuration("SWEEP_INTERVAL"),
		OTelHost:        v.GetString("OTEL_HOST"),
		OTelProbability: v.GetFloat64("OTEL_PROBABILITY"),
		LogLevel:        v.GetString("LOG_LEVEL"),
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: QUEUE_SIZE must be positive, got %d", ErrInvalid, c.QueueSize)
	}
	if c.OTelProbability < 0 || c.OTelProbability > 1 {
		return fmt.Errorf("%w: OTEL_PROBABILITY must be in [0,1], got %v", ErrInvalid, c.OTelProbability)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive, got %s", ErrInvalid, c.SessionTTL)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%w: SWEEP_INTERVAL must be positive, got %s", ErrInvalid, c.SweepInterval)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("%w: TLS_CERT and TLS_KEY must be set together", ErrInvalid)
	}
	return nil
}

// TLS reports whether the HTTP server should serve TLS.
func (c Config) TLS() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}
