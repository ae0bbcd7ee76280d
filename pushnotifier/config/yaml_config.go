// Package config loads the push server configuration from YAML, .env files
// and environment variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"
)

type YamlApnsConfig struct {
	CertificatePath string `yaml:"certificate_path"`
	TeamID          string `yaml:"team_id"`
	KeyID           string `yaml:"key_id"`
	Topic           string `yaml:"topic"`
	Development     bool   `yaml:"development"`
}

type YamlFcmConfig struct {
	CertificatePath string `yaml:"certificate_path"`
	ProjectID       string `yaml:"project_id"`
}

type YamlRetryConfig struct {
	// MaxRetries is a pointer so an explicit 0 is kept apart from unset.
	MaxRetries      *uint64 `yaml:"max_retries"`
	InitialInterval string  `yaml:"initial_interval"`
	MaxInterval     string  `yaml:"max_interval"`
	BreakerTimeout  string  `yaml:"breaker_timeout"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
	TTL      string `yaml:"ttl"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID   string          `yaml:"project_id"`
	ApnsConfig  YamlApnsConfig  `yaml:"apns"`
	FcmConfig   YamlFcmConfig   `yaml:"fcm"`
	RetryConfig YamlRetryConfig `yaml:"retry"`
	RedisConfig YamlRedisConfig `yaml:"redis"`
}

// ParseYaml decodes raw YAML bytes.
func ParseYaml(data []byte) (*YamlConfig, error) {
	var yamlCfg YamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml config: %w", err)
	}
	return &yamlCfg, nil
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID: baseCfg.ProjectID,
		Apns: ApnsConfig{
			CertificatePath: baseCfg.ApnsConfig.CertificatePath,
			TeamID:          baseCfg.ApnsConfig.TeamID,
			KeyID:           baseCfg.ApnsConfig.KeyID,
			Topic:           baseCfg.ApnsConfig.Topic,
			Development:     baseCfg.ApnsConfig.Development,
		},
		Fcm: FcmConfig{
			CertificatePath: baseCfg.FcmConfig.CertificatePath,
			ProjectID:       baseCfg.FcmConfig.ProjectID,
		},
		Retry: RetryConfig{
			MaxRetries: DefaultRetryConfig().MaxRetries,
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
	}

	if baseCfg.RetryConfig.MaxRetries != nil {
		cfg.Retry.MaxRetries = *baseCfg.RetryConfig.MaxRetries
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"retry.initial_interval", baseCfg.RetryConfig.InitialInterval, &cfg.Retry.InitialInterval},
		{"retry.max_interval", baseCfg.RetryConfig.MaxInterval, &cfg.Retry.MaxInterval},
		{"retry.breaker_timeout", baseCfg.RetryConfig.BreakerTimeout, &cfg.Retry.BreakerTimeout},
		{"redis.ttl", baseCfg.RedisConfig.TTL, &cfg.Redis.TTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"apns_enabled", cfg.Apns.CertificatePath != "",
		"fcm_enabled", cfg.Fcm.CertificatePath != "",
	)

	return cfg, nil
}
