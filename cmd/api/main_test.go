package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voicewms/dispatch-service/pkg/logging"
)

func TestGetEnv(t *testing.T) {
	key := "DISPATCH_SERVICE_TEST_ENV"
	require.NoError(t, os.Setenv(key, "value"))
	defer os.Unsetenv(key)

	require.Equal(t, "value", getEnv(key, "default"))
	require.Equal(t, "fallback", getEnv("DISPATCH_SERVICE_MISSING", "fallback"))
}

func TestLoadConfig(t *testing.T) {
	require.NoError(t, os.Setenv("SERVER_ADDR", ":9999"))
	require.NoError(t, os.Setenv("MONGODB_URI", "mongodb://example:27017"))
	require.NoError(t, os.Setenv("MONGODB_DATABASE", "dispatch_test"))
	require.NoError(t, os.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092"))
	require.NoError(t, os.Setenv("LAYOUT_FILE", "/etc/wms/layout.yaml"))
	defer os.Unsetenv("SERVER_ADDR")
	defer os.Unsetenv("MONGODB_URI")
	defer os.Unsetenv("MONGODB_DATABASE")
	defer os.Unsetenv("KAFKA_BROKERS")
	defer os.Unsetenv("LAYOUT_FILE")

	cfg := loadConfig()
	require.Equal(t, ":9999", cfg.ServerAddr)
	require.Equal(t, "/etc/wms/layout.yaml", cfg.LayoutFile)
	require.Equal(t, "mongodb://example:27017", cfg.MongoDB.URI)
	require.Equal(t, "dispatch_test", cfg.MongoDB.Database)
	require.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
}

func TestBootstrapLayoutMissingFile(t *testing.T) {
	logger := logging.New(logging.DefaultConfig(serviceName))
	err := bootstrapLayout(context.Background(), "/nonexistent/layout.yaml", nil, logger)
	require.Error(t, err)
}

func TestBootstrapLayoutMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unterminated"), 0o644))

	logger := logging.New(logging.DefaultConfig(serviceName))
	err := bootstrapLayout(context.Background(), path, nil, logger)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse layout file")
}
