package app

import (
	"fmt"
	"log/slog"

	"github.com/runixer/trendstudio/internal/audit"
	"github.com/runixer/trendstudio/internal/config"
	"github.com/runixer/trendstudio/internal/openrouter"
	"github.com/runixer/trendstudio/internal/playground"
	"github.com/runixer/trendstudio/internal/runlog"
	"github.com/runixer/trendstudio/internal/storage"
	"github.com/runixer/trendstudio/internal/trend"
)

// Services holds the services shared by the server and the CLI.
type Services struct {
	Recorder  *audit.Recorder
	Trends    *trend.Service
	RunLogger *runlog.Logger
	Files     *playground.FileStore
	Runner    *playground.Runner

	// Generator is nil when the playground is disabled.
	Generator openrouter.Client
}

// SetupServices wires the services over an initialized store. When
// generator is nil and the playground is enabled, an OpenRouter client is
// created from the config.
//
// The caller is responsible for closing the store.
func SetupServices(logger *slog.Logger, cfg *config.Config, store storage.Storage, generator openrouter.Client) (*Services, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	services := &Services{Generator: generator}

	if cfg.Playground.Enabled && services.Generator == nil {
		baseURL := cfg.OpenRouter.BaseURL
		if baseURL == "" {
			baseURL = openrouter.DefaultBaseURL
		}
		client, err := openrouter.NewClientWithBaseURL(logger, cfg.OpenRouter.APIKey, cfg.OpenRouter.ProxyURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create openrouter client: %w", err)
		}
		services.Generator = client
	}

	services.Recorder = audit.NewRecorder(store, logger)
	services.Trends = trend.NewService(store, services.Recorder, logger)
	services.RunLogger = runlog.NewLogger(store, logger, cfg.Playground.LogExchanges)
	if cfg.Playground.OutputDir != "" {
		services.Files = playground.NewFileStore(cfg.Playground.OutputDir)
	}

	// gen must stay a nil interface when there is no client.
	var gen playground.Generator
	if services.Generator != nil {
		gen = services.Generator
	}
	services.Runner = playground.NewRunner(cfg.Playground, gen, store, services.Trends, services.RunLogger, services.Files, logger)

	logger.Info("Services initialized",
		"playground_enabled", cfg.Playground.Enabled,
		"exchange_logging", cfg.Playground.LogExchanges,
	)
	return services, nil
}
