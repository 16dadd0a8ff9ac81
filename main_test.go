package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoppingmart/internal/audit"
	"shoppingmart/internal/config"
)

func TestBuildAuditSinkFromConfig(t *testing.T) {
	cfg := &config.Config{
		AuditSinks:      []string{"log", "kafka"},
		KafkaBrokers:    []string{"localhost:9092"},
		AuditKafkaTopic: "shoppingmart.audit",
	}

	sink, closeAll, err := buildAuditSink(context.Background(), cfg)
	require.NoError(t, err)
	defer closeAll()

	multi, ok := sink.(audit.Multi)
	require.True(t, ok)
	require.Len(t, multi, 2)
	assert.IsType(t, audit.LogSink{}, multi[0])
	assert.IsType(t, &audit.KafkaSink{}, multi[1])
}

func TestBuildAuditSinkNoneConfigured(t *testing.T) {
	sink, closeAll, err := buildAuditSink(context.Background(), &config.Config{})
	require.NoError(t, err)
	closeAll()

	assert.Equal(t, audit.Discard{}, sink)
}

func TestBuildAuditSinkRejectsUnknown(t *testing.T) {
	_, _, err := buildAuditSink(context.Background(), &config.Config{AuditSinks: []string{"carrier-pigeon"}})
	assert.EqualError(t, err, "unknown audit sink carrier-pigeon")
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("DLL_PASSWORD", "")
	t.Setenv("JWT_SECRET", "jwt-secret")

	_, err := loadConfig("")

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "DLL_PASSWORD", cfgErr.Key)
}
