package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yourusername/linkedin-connector/internal/auth"
	"github.com/yourusername/linkedin-connector/internal/batch"
	"github.com/yourusername/linkedin-connector/internal/browser"
	"github.com/yourusername/linkedin-connector/internal/config"
	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/metrics"
	"github.com/yourusername/linkedin-connector/internal/storage"
)

// app holds what every command needs: config, logger, journal, metrics
type app struct {
	cfg      *config.Config
	store    *storage.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.MustNew(a.registry)

	if cfg.Database.Path != "" {
		logger.Info("Opening run journal", "path", cfg.Database.Path)
		a.store, err = storage.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open run journal: %w", err)
		}
	}

	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("Failed to close run journal", "error", err)
		}
	}
	_ = logger.Sync()
}

// runner builds the batch runner. Credentials are checked here so a missing
// secret fails before Chromium is started.
func (a *app) runner() (*batch.Runner, error) {
	if err := a.cfg.ValidateCredentials(); err != nil {
		return nil, err
	}

	open := func(ctx context.Context) (batch.Session, error) {
		s, err := browser.Launch(ctx, a.cfg.Browser, a.cfg.Timing)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	r := batch.NewRunner(open, auth.FromConfig(a.cfg.LinkedIn), a.cfg.Timing).WithMetrics(a.metrics)
	if a.store != nil {
		r.WithRecorder(a.store)
	}
	return r, nil
}
