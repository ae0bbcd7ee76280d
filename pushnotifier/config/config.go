package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type ApnsConfig struct {
	// CertificatePath is the .p8 token signing key.
	CertificatePath string
	TeamID          string
	KeyID           string
	// Topic is the app bundle id.
	Topic       string
	Development bool
}

type FcmConfig struct {
	// CertificatePath is the Firebase service account JSON file.
	CertificatePath string
	ProjectID       string
}

type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retrying.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BreakerTimeout  time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// DefaultRetryConfig is used when no retry policy is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		BreakerTimeout:  time.Minute,
	}
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	// ProjectID is the Google Cloud project holding the device registry.
	ProjectID string

	Apns  ApnsConfig
	Fcm   FcmConfig
	Retry RetryConfig
	Redis RedisConfig
}

// LoadDotEnv loads variables from .env files into the process environment
// without overriding variables that are already set. With no arguments it
// reads ./.env. A missing default file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files %v: %w", files, err)
	}
	return nil
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	var errs []error
	override := func(key string, apply func(string) error) {
		if val := os.Getenv(key); val != "" {
			logger.Debug("Overriding config value", "key", key, "source", "env")
			if err := apply(val); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, val, err))
			}
		}
	}
	set := func(dst *string) func(string) error {
		return func(v string) error {
			*dst = v
			return nil
		}
	}

	override("PROJECT_ID", set(&cfg.ProjectID))

	// APNS Overrides
	override("APNS_CERTIFICATE_PATH", set(&cfg.Apns.CertificatePath))
	override("APNS_TEAM_ID", set(&cfg.Apns.TeamID))
	override("APNS_KEY_ID", set(&cfg.Apns.KeyID))
	override("APNS_TOPIC", set(&cfg.Apns.Topic))
	override("APNS_DEVELOPMENT", func(v string) (err error) {
		cfg.Apns.Development, err = strconv.ParseBool(v)
		return err
	})

	// FCM Overrides
	override("FCM_CERTIFICATE_PATH", set(&cfg.Fcm.CertificatePath))
	override("FCM_PROJECT_ID", set(&cfg.Fcm.ProjectID))

	override("PUSH_MAX_RETRIES", func(v string) (err error) {
		cfg.Retry.MaxRetries, err = strconv.ParseUint(v, 10, 64)
		return err
	})

	// Redis Overrides
	override("REDIS_ADDR", func(v string) error {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
		return nil
	})
	override("REDIS_PASSWORD", set(&cfg.Redis.Password))
	override("REDIS_DB", func(v string) (err error) {
		cfg.Redis.DB, err = strconv.Atoi(v)
		return err
	})
	override("REDIS_ENABLED", func(v string) (err error) {
		cfg.Redis.Enabled, err = strconv.ParseBool(v)
		return err
	})

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	// Final Validation
	if cfg.Apns.CertificatePath != "" && (cfg.Apns.TeamID == "" || cfg.Apns.KeyID == "") {
		return nil, fmt.Errorf("apns team_id and key_id are required with an apns certificate (set via YAML or APNS_TEAM_ID/APNS_KEY_ID env vars)")
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required when redis is enabled (set via YAML or REDIS_ADDR env var)")
	}
	if cfg.Fcm.ProjectID == "" {
		cfg.Fcm.ProjectID = cfg.ProjectID
	}
	// MaxRetries is taken verbatim; zero is a valid policy.
	defaults := DefaultRetryConfig()
	if cfg.Retry.InitialInterval <= 0 {
		cfg.Retry.InitialInterval = defaults.InitialInterval
	}
	if cfg.Retry.MaxInterval <= 0 {
		cfg.Retry.MaxInterval = defaults.MaxInterval
	}
	if cfg.Retry.BreakerTimeout <= 0 {
		cfg.Retry.BreakerTimeout = defaults.BreakerTimeout
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
