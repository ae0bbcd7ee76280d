package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-notifier/pushnotifier/config"
)

const sampleYaml = `
project_id: yaml-project
apns:
  certificate_path: /keys/AuthKey.p8
  team_id: TEAM123
  key_id: KEY123
  topic: com.example.app
  development: true
fcm:
  certificate_path: /keys/service-account.json
retry:
  max_retries: 5
  initial_interval: 100ms
  max_interval: 2s
redis:
  addr: localhost:6379
  enabled: true
  ttl: 1h
`

func TestNewConfigFromYaml(t *testing.T) {
	logger := newTestLogger()

	t.Run("Success - maps all fields correctly", func(t *testing.T) {
		yamlCfg, err := config.ParseYaml([]byte(sampleYaml))
		require.NoError(t, err)

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "yaml-project", cfg.ProjectID)
		assert.Equal(t, "/keys/AuthKey.p8", cfg.Apns.CertificatePath)
		assert.Equal(t, "TEAM123", cfg.Apns.TeamID)
		assert.Equal(t, "KEY123", cfg.Apns.KeyID)
		assert.Equal(t, "com.example.app", cfg.Apns.Topic)
		assert.True(t, cfg.Apns.Development)
		assert.Equal(t, "/keys/service-account.json", cfg.Fcm.CertificatePath)
		assert.Equal(t, uint64(5), cfg.Retry.MaxRetries)
		assert.Equal(t, 100*time.Millisecond, cfg.Retry.InitialInterval)
		assert.Equal(t, 2*time.Second, cfg.Retry.MaxInterval)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, time.Hour, cfg.Redis.TTL)
	})

	t.Run("Success - Handles missing optional fields gracefully", func(t *testing.T) {
		cfg, err := config.NewConfigFromYaml(&config.YamlConfig{ProjectID: "minimal-project"}, logger)

		require.NoError(t, err)
		assert.Equal(t, "minimal-project", cfg.ProjectID)
		assert.Empty(t, cfg.Apns.CertificatePath)
		assert.Zero(t, cfg.Retry.InitialInterval)
		assert.Equal(t, config.DefaultRetryConfig().MaxRetries, cfg.Retry.MaxRetries)
	})

	t.Run("Success - explicit zero retries disables retrying", func(t *testing.T) {
		yamlCfg, err := config.ParseYaml([]byte("retry:\n  max_retries: 0\n"))
		require.NoError(t, err)

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.NoError(t, err)
		assert.Equal(t, uint64(0), cfg.Retry.MaxRetries)
	})

	t.Run("Failure - bad duration", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{RetryConfig: config.YamlRetryConfig{MaxInterval: "soon"}}

		_, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "retry.max_interval")
	})

	t.Run("Failure - malformed yaml", func(t *testing.T) {
		_, err := config.ParseYaml([]byte("apns: [unterminated"))
		assert.Error(t, err)
	})
}
