package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runixer/trendstudio/internal/config"
	"github.com/runixer/trendstudio/internal/storage"
)

// TestLogger returns a discarding logger for tests.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestConfig returns a config with sensible test defaults.
// The output directory is left empty; tests needing files set it to t.TempDir().
func TestConfig() *config.Config {
	cfg := &config.Config{
		Playground: config.PlaygroundConfig{
			Enabled:      true,
			Model:        "test-image-model",
			AspectRatio:  "1:1",
			ImageSize:    "1K",
			OutputFormat: "png",
			LogExchanges: true,
		},
		Maintenance: config.MaintenanceConfig{
			Interval:           "1h",
			PlaygroundLogsKeep: 100,
			AuditLogsKeep:      100,
			TempFileTTL:        "24h",
		},
		Cache: config.CacheConfig{
			TrendTTL: "1m",
			MaxItems: 100,
		},
	}
	cfg.Server.ListenPort = "0"
	cfg.Server.BodyLimit = 1 << 20
	cfg.OpenRouter.APIKey = "test-key"
	return cfg
}

// TestStore returns an initialized in-memory store closed at test end.
func TestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(TestLogger(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store
}

// Ptr returns a pointer to the given value. Useful for optional fields.
func Ptr[T any](v T) *T {
	return &v
}
