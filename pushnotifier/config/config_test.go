package config_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-notifier/pushnotifier/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpdateConfigWithEnvOverrides(t *testing.T) {
	logger := newTestLogger()

	baseConfig := func() *config.Config {
		return &config.Config{
			ProjectID: "base-project",
			Apns: config.ApnsConfig{
				CertificatePath: "/keys/base.p8",
				TeamID:          "BASETEAM",
				KeyID:           "BASEKEY",
			},
			Fcm: config.FcmConfig{CertificatePath: "/keys/base.json"},
		}
	}

	t.Run("Success - All overrides applied", func(t *testing.T) {
		cfg := baseConfig()

		t.Setenv("PROJECT_ID", "env-project")
		t.Setenv("APNS_CERTIFICATE_PATH", "/keys/env.p8")
		t.Setenv("APNS_TEAM_ID", "ENVTEAM")
		t.Setenv("APNS_KEY_ID", "ENVKEY")
		t.Setenv("APNS_TOPIC", "com.env.app")
		t.Setenv("APNS_DEVELOPMENT", "true")
		t.Setenv("FCM_CERTIFICATE_PATH", "/keys/env.json")
		t.Setenv("FCM_PROJECT_ID", "env-fcm-project")
		t.Setenv("PUSH_MAX_RETRIES", "7")
		t.Setenv("REDIS_ADDR", "localhost:6379")

		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, "env-project", finalCfg.ProjectID)
		assert.Equal(t, "/keys/env.p8", finalCfg.Apns.CertificatePath)
		assert.Equal(t, "ENVTEAM", finalCfg.Apns.TeamID)
		assert.Equal(t, "ENVKEY", finalCfg.Apns.KeyID)
		assert.Equal(t, "com.env.app", finalCfg.Apns.Topic)
		assert.True(t, finalCfg.Apns.Development)
		assert.Equal(t, "/keys/env.json", finalCfg.Fcm.CertificatePath)
		assert.Equal(t, "env-fcm-project", finalCfg.Fcm.ProjectID)
		assert.Equal(t, uint64(7), finalCfg.Retry.MaxRetries)
		assert.True(t, finalCfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", finalCfg.Redis.Addr)
	})

	t.Run("Success - Defaults applied", func(t *testing.T) {
		finalCfg, err := config.UpdateConfigWithEnvOverrides(baseConfig(), logger)
		require.NoError(t, err)

		assert.Equal(t, "base-project", finalCfg.ProjectID)
		assert.Equal(t, "base-project", finalCfg.Fcm.ProjectID)
		assert.Equal(t, 200*time.Millisecond, finalCfg.Retry.InitialInterval)
		assert.Equal(t, 5*time.Second, finalCfg.Retry.MaxInterval)
		assert.Equal(t, 24*time.Hour, finalCfg.Redis.TTL)
		assert.False(t, finalCfg.Redis.Enabled)
	})

	t.Run("Success - Empty config is valid", func(t *testing.T) {
		_, err := config.UpdateConfigWithEnvOverrides(&config.Config{}, logger)
		assert.NoError(t, err)
	})

	t.Run("Success - zero retries is kept", func(t *testing.T) {
		t.Setenv("PUSH_MAX_RETRIES", "0")
		cfg := baseConfig()
		cfg.Retry.MaxRetries = 3

		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)

		require.NoError(t, err)
		assert.Equal(t, uint64(0), finalCfg.Retry.MaxRetries)
	})

	t.Run("Validation Failure - malformed values", func(t *testing.T) {
		cases := map[string]string{
			"REDIS_ENABLED":    "maybe",
			"APNS_DEVELOPMENT": "sandbox",
			"PUSH_MAX_RETRIES": "-1",
			"REDIS_DB":         "zero",
		}
		for key, value := range cases {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)

				_, err := config.UpdateConfigWithEnvOverrides(baseConfig(), logger)

				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
			})
		}
	})

	t.Run("Validation Failure - APNS certificate without key id", func(t *testing.T) {
		cfg := &config.Config{Apns: config.ApnsConfig{CertificatePath: "/keys/a.p8", TeamID: "TEAM"}}
		_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		assert.Error(t, err)
	})

	t.Run("Validation Failure - Redis enabled without addr", func(t *testing.T) {
		cfg := &config.Config{Redis: config.RedisConfig{Enabled: true}}
		_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		assert.Error(t, err)
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("Loads variables without overriding existing ones", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("APNS_TEAM_ID=FROMFILE\nAPNS_KEY_ID=FILEKEY\n"), 0o600))

		t.Setenv("APNS_KEY_ID", "FROMENV")
		// Registers cleanup for the variable the file sets.
		t.Setenv("APNS_TEAM_ID", "")
		require.NoError(t, os.Unsetenv("APNS_TEAM_ID"))

		require.NoError(t, config.LoadDotEnv(envFile))

		assert.Equal(t, "FROMFILE", os.Getenv("APNS_TEAM_ID"))
		assert.Equal(t, "FROMENV", os.Getenv("APNS_KEY_ID"))
	})

	t.Run("Explicit missing file is an error", func(t *testing.T) {
		err := config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})
}
