package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 300*time.Millisecond, cfg.SessionLogoutDelay)
	assert.Equal(t, VerifierPlaceholder, cfg.AuthVerifier)
	assert.Equal(t, BackendMemory, cfg.UsersBackend)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.False(t, cfg.AuditEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_VERIFIER", " BCRYPT ")
	t.Setenv("USERS_BACKEND", "postgres")
	t.Setenv("SESSION_LOGOUT_DELAY", "1s")
	t.Setenv("AUDIT_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, VerifierBcrypt, cfg.AuthVerifier)
	assert.Equal(t, BackendPostgres, cfg.UsersBackend)
	assert.Equal(t, time.Second, cfg.SessionLogoutDelay)
	assert.True(t, cfg.AuditEnabled)
}

func TestLoadConfigRejectsUnknownValues(t *testing.T) {
	cases := map[string][2]string{
		"verifier":      {"AUTH_VERIFIER", "ldap"},
		"backend":       {"USERS_BACKEND", "sqlite"},
		"log level":     {"LOG_LEVEL", "verbose"},
		"negative rate": {"RATE_LIMIT_PER_MINUTE", "-1"},
		"bad duration":  {"SESSION_LOGOUT_DELAY", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestPostgresBackendNeedsDSN(t *testing.T) {
	t.Setenv("USERS_BACKEND", "postgres")
	t.Setenv("PG_DSN", " ")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "PG_DSN")
}

func TestLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"})

	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"k":"v"`)
}
