package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hcdonia/planner-app/internal/assistant"
	"github.com/hcdonia/planner-app/internal/availability"
	"github.com/hcdonia/planner-app/internal/calendar"
	"github.com/hcdonia/planner-app/internal/config"
	"github.com/hcdonia/planner-app/internal/google"
	"github.com/hcdonia/planner-app/internal/instrumentation"
	"github.com/hcdonia/planner-app/internal/llm"
	"github.com/hcdonia/planner-app/internal/logging"
	"github.com/hcdonia/planner-app/internal/store"
	"github.com/hcdonia/planner-app/internal/tools"
)

// app bundles the wired application components shared by the chat and serve
// commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *store.DB
	calendar calendar.Service
	registry *tools.Registry
	provider *instrumentation.Provider
}

// buildApp loads configuration and wires the store, calendar client, tool
// registry and instrumentation. The calendar client is optional: without a
// Google token the calendar tools return errors but everything else works.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
	if err != nil {
		logger.Warn("failed to initialize instrumentation", logging.Err(err))
	}

	var metrics *instrumentation.Metrics
	if provider != nil {
		metrics = provider.Metrics()
	}

	var calSvc calendar.Service
	if google.HasToken(cfg.GoogleTokenPath, cfg.GoogleTokenJSON) {
		client, err := calendar.NewClientFromConfig(ctx, cfg.GoogleTokenPath, cfg.GoogleTokenJSON, cfg.Location(), metrics)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create calendar client: %w", err)
		}
		calSvc = client
	} else {
		logger.Warn("no Google token configured, calendar features disabled")
	}

	registry := tools.NewRegistry(&tools.Deps{
		Store:    db,
		Calendar: calSvc,
		Engine:   availability.New(engineConfig(cfg)),
		Config:   cfg,
		Now:      time.Now,
		Logger:   logger,
		Metrics:  metrics,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		calendar: calSvc,
		registry: registry,
		provider: provider,
	}, nil
}

// engineConfig derives the availability engine configuration from the
// application configuration, keeping the standard weekday restriction and
// extended outside-hours window.
func engineConfig(cfg *config.Config) availability.Config {
	ec := availability.DefaultConfig(cfg.Location())
	ec.WorkStartHour = cfg.WorkStartHour
	ec.WorkEndHour = cfg.WorkEndHour
	return ec
}

// orchestrator wires the conversational loop on top of the app components.
func (a *app) orchestrator() *assistant.Orchestrator {
	var metrics *instrumentation.Metrics
	if a.provider != nil {
		metrics = a.provider.Metrics()
	}
	builder := assistant.NewContextBuilder(a.db, a.calendar, a.cfg, a.logger)
	streamer := llm.NewClient(a.cfg.OpenAIBaseURL, a.cfg.OpenAIAPIKey, a.cfg.Model, a.logger)
	return assistant.New(a.db, streamer, a.registry, builder, a.cfg.Model, a.logger, metrics)
}

// close releases the app resources.
func (a *app) close() {
	if a.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.provider.Shutdown(ctx); err != nil {
			a.logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("database close failed", logging.Err(err))
	}
}
