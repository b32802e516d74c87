package main

import (
	"os"
	"strconv"
	"time"

	"github.com/eshaffer321/fxremit-go/pkg/remit"
	"github.com/eshaffer321/fxremit-go/pkg/session"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "fxremit.yaml"

// Config is the CLI configuration file
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	LogLevel  string        `yaml:"log_level"`
	SentryDSN string        `yaml:"sentry_dsn"`

	// RatePerSecond caps outbound requests; 0 disables limiting
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`

	// ConnectivityAddr is dialed before each request; empty skips the check
	ConnectivityAddr string `yaml:"connectivity_addr"`

	ReplayAfterRefresh bool               `yaml:"replay_after_refresh"`
	Retry              *remit.RetryConfig `yaml:"retry"`
	Session            session.Config     `yaml:"session"`
}

func defaultConfig() *Config {
	return &Config{
		BaseURL:       remit.DefaultBaseURL,
		Timeout:       remit.DefaultTimeout,
		LogLevel:      "warn",
		RatePerSecond: 5,
		Burst:         5,
		Session: session.Config{
			Backend: session.BackendFile,
			Path:    ".fxremit_session.json",
		},
	}
}

// loadConfig reads path over the defaults, then applies FXREMIT_* overrides.
// A missing file is only an error when the path was given explicitly.
func loadConfig(path string, explicit bool, getenv func(string) string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"FXREMIT_BASE_URL":          &cfg.BaseURL,
		"FXREMIT_API_KEY":           &cfg.APIKey,
		"FXREMIT_LOG_LEVEL":         &cfg.LogLevel,
		"FXREMIT_SENTRY_DSN":        &cfg.SentryDSN,
		"FXREMIT_CONNECTIVITY_ADDR": &cfg.ConnectivityAddr,
		"FXREMIT_SESSION_BACKEND":   &cfg.Session.Backend,
		"FXREMIT_SESSION_PATH":      &cfg.Session.Path,
		"FXREMIT_REDIS_URL":         &cfg.Session.RedisURL,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("FXREMIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "invalid FXREMIT_TIMEOUT")
		}
		cfg.Timeout = d
	}
	if v := getenv("FXREMIT_RATE_PER_SECOND"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "invalid FXREMIT_RATE_PER_SECOND")
		}
		cfg.RatePerSecond = r
	}
	return nil
}
