package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DLL_PASSWORD", "dll-secret")
	t.Setenv("JWT_SECRET", "jwt-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dll-secret", cfg.ServiceSecret)
	assert.Equal(t, "jwt-secret", cfg.TokenSecret)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, []string{"log"}, cfg.AuditSinks)
	assert.Equal(t, int64(100000), cfg.AuditRedisMaxLen)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "port: \"9090\"\nservice_secret: from-file\ntoken_secret: tok\naudit:\n  sinks: log, redis\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("DLL_PASSWORD", "")
	t.Setenv("AUDIT_SINKS", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "from-file", cfg.ServiceSecret)
	assert.Equal(t, []string{"log", "redis"}, cfg.AuditSinks)
}

func TestValidateMissingServiceSecret(t *testing.T) {
	cfg := &Config{TokenSecret: "x", DatabaseURL: "postgres://"}

	err := cfg.Validate()

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "DLL_PASSWORD", cfgErr.Key)
	assert.Equal(t, "DLL_PASSWORD not configured in environment", err.Error())
}

func TestValidateMissingTokenSecret(t *testing.T) {
	cfg := &Config{ServiceSecret: "x", DatabaseURL: "postgres://"}

	var cfgErr *ConfigurationError
	require.True(t, errors.As(cfg.Validate(), &cfgErr))
	assert.Equal(t, "JWT_SECRET", cfgErr.Key)
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	cfg := &Config{ServiceSecret: "x", TokenSecret: "y", DatabaseURL: "postgres://", AuditSinks: []string{"kafka"}}

	var cfgErr *ConfigurationError
	require.True(t, errors.As(cfg.Validate(), &cfgErr))
	assert.Equal(t, "KAFKA_BROKERS", cfgErr.Key)
}

func TestValidateUnknownSink(t *testing.T) {
	cfg := &Config{ServiceSecret: "x", TokenSecret: "y", DatabaseURL: "postgres://", AuditSinks: []string{"syslog"}}
	assert.Error(t, cfg.Validate())
}
