package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("LI_USER", "jane@example.com")
	t.Setenv("LINKEDIN_PASSWORD", "")

	path := writeConfig(t, `
linkedin:
  username: ${LI_USER}
  password: ${LI_PASS:fallback-secret}
timing:
  request_delay_seconds: 2
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", cfg.LinkedIn.Username)
	assert.Equal(t, "fallback-secret", cfg.LinkedIn.Password)
	assert.Equal(t, 2*time.Second, cfg.Timing.GetRequestDelay())
	assert.Equal(t, 20*time.Second, cfg.Timing.GetLoginFormTimeout())
	assert.Equal(t, 40*time.Second, cfg.Timing.GetLoginSuccessTimeout())
	assert.Equal(t, 10*time.Second, cfg.Timing.GetElementTimeout())
	assert.Equal(t, DefaultUserAgent, cfg.Browser.UserAgent)
	assert.True(t, cfg.Browser.Headless)
	assert.NoError(t, cfg.ValidateCredentials())
}

func TestLoadFallsBackToEnvCredentials(t *testing.T) {
	t.Setenv("LINKEDIN_USERNAME", "env-user")
	t.Setenv("LINKEDIN_PASSWORD", "env-pass")

	cfg, err := Load(writeConfig(t, "run:\n  default_limit: 3\n"))
	require.NoError(t, err)

	assert.Equal(t, "env-user", cfg.LinkedIn.Username)
	assert.Equal(t, "env-pass", cfg.LinkedIn.Password)
	assert.Equal(t, 3, cfg.Run.DefaultLimit)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"element timeout", func(c *Config) { c.Timing.ElementTimeoutSeconds = 0 }},
		{"negative delay", func(c *Config) { c.Timing.RequestDelaySeconds = -1 }},
		{"limit", func(c *Config) { c.Run.DefaultLimit = 0 }},
		{"typing", func(c *Config) { c.Browser.TypingDelayMs = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.ValidateCredentials(), ErrMissingCredentials)

	cfg.LinkedIn = LinkedInConfig{Username: "u", Password: "p"}
	assert.NoError(t, cfg.ValidateCredentials())
}
