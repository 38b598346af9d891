package bootstrap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-trayectoria/trayectoria/config"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence/memory"
)

func memoryConfig() *config.Config {
	return &config.Config{
		App:           config.AppConfig{Version: "test"},
		Store:         config.StoreConfig{Backend: config.StoreMemory, Namespace: "escolar_db_v1"},
		Interpreter:   config.InterpreterConfig{APIKey: "k", Model: "gemini-2.0-flash", MaxRetries: 1, CircuitBreakerThreshold: 2, CircuitBreakerTimeout: time.Second},
		Features:      config.LoadFeatureFlags(),
		Observability: config.ObservabilityConfig{LogLevel: "error", LogFormat: "json"},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenMemoryBackend(t *testing.T) {
	cfg := memoryConfig()
	rt, err := Open(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer rt.Close()

	assert.IsType(t, &memory.Store{}, rt.Store)
	assert.Nil(t, rt.Interpreter)
	assert.Nil(t, rt.Database())
	assert.Equal(t, 1, rt.Archive.Snapshot().Len(), "seed student")

	status := rt.HealthChecker().Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Empty(t, status.Checks)
}

func TestOpenWithInterpreter(t *testing.T) {
	cfg := memoryConfig()
	require.NoError(t, cfg.Features.EnableFeature(config.FeatureInterpreter))
	require.NoError(t, cfg.Features.DisableFeature(config.FeatureSeedStudent))

	rt, err := Open(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Interpreter)
	assert.True(t, rt.Interpreter.Healthy())
	assert.Equal(t, 0, rt.Archive.Snapshot().Len())

	status := rt.HealthChecker().Check(context.Background())
	assert.Contains(t, status.Checks, "interpreter")
	assert.False(t, status.Checks["interpreter"].Critical)
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Backend = "sqlite"

	_, err := Open(context.Background(), cfg, discard())
	assert.ErrorContains(t, err, `unknown store backend "sqlite"`)
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(config.ObservabilityConfig{LogLevel: "warn", LogFormat: "text"}, &buf).Info("hidden")
	assert.Empty(t, buf.String())

	NewLogger(config.ObservabilityConfig{LogLevel: "debug", LogFormat: "json"}, &buf).Debug("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
