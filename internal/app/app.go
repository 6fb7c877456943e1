// Package app wires configuration into the store, services and pipeline
// shared by the daemon and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/country"
	"github.com/joseph-ayodele/cardscan/internal/export"
	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/ingest"
	"github.com/joseph-ayodele/cardscan/internal/repository"
	"github.com/joseph-ayodele/cardscan/internal/server"
	"github.com/joseph-ayodele/cardscan/internal/services/cards"
	"github.com/joseph-ayodele/cardscan/internal/services/labels"
)

const resolverCacheSize = 512

// App holds every wired component. Callers must Close it.
type App struct {
	Config    *common.Config
	DB        *repository.DB
	Extractor extract.Extractor
	Cards     *cards.Service
	Labels    *labels.Service
	Pipeline  *ingest.Pipeline
	Exports   *export.Service

	logger       *slog.Logger
	closeExtract func() error
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	extractor extract.Extractor
}

// WithExtractor replaces the configured extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(o *buildOptions) { o.extractor = e }
}

// Build opens the store, applies migrations and runs the startup probe. A
// store that refuses the probe write is fatal.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := repository.MigrateUp(db); err != nil {
		repository.Close(db, logger)
		return nil, errors.Join(common.ErrStoreUnavailable, fmt.Errorf("migrating store: %w", err))
	}
	if err := repository.Probe(ctx, db, logger); err != nil {
		repository.Close(db, logger)
		return nil, fmt.Errorf("store probe: %w", err)
	}

	a := &App{Config: cfg, DB: db, logger: logger, closeExtract: func() error { return nil }}

	if o.extractor != nil {
		a.Extractor = o.extractor
	} else {
		ex, closeFn, err := extract.New(ctx, cfg, logger)
		if err != nil {
			repository.Close(db, logger)
			return nil, fmt.Errorf("building extractor: %w", err)
		}
		a.Extractor, a.closeExtract = ex, closeFn
	}

	resolver, err := country.NewCachedResolver(resolverCacheSize)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	scratch, err := ingest.NewScratch(cfg.Extract.ScratchDir)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("scratch dir: %w", err)
	}

	ids := repository.NewIDGenerator()
	cardRepo := repository.NewCardRepository(db, logger)
	labelRepo := repository.NewLabelRepository(db, logger)

	a.Labels = labels.NewService(labelRepo, cardRepo, logger)
	a.Cards = cards.NewService(cardRepo, a.Labels, resolver, ids, logger)
	a.Pipeline = ingest.NewPipeline(a.Extractor, cardRepo, resolver, ids, scratch, logger,
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithItemTimeout(cfg.Ingest.ItemTimeout),
		ingest.WithSkipDuplicates(cfg.Ingest.SkipDuplicates),
	)
	a.Exports = export.NewService(cardRepo, export.XLSXSink{}, cfg.Export.TopCompanies, logger)

	logger.Info("app.ready",
		"driver", cfg.Database.Driver,
		"extractor", cfg.Extract.Strategy,
		"workers", cfg.Ingest.Workers,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return a, nil
}

// Server builds the HTTP API over the wired services.
func (a *App) Server() *server.Server {
	return server.NewServer(server.Deps{
		Cards:    a.Cards,
		Labels:   a.Labels,
		Pipeline: a.Pipeline,
		Exports:  a.Exports,
		Health:   a.Health,
	}, a.Config.Server.MaxUploadBytes, a.logger)
}

// Health pings the store.
func (a *App) Health(ctx context.Context) error {
	return repository.HealthCheck(ctx, a.DB, 2*time.Second, a.logger)
}

// Close releases the extractor and the store.
func (a *App) Close() error {
	var err error
	if a.closeExtract != nil {
		err = a.closeExtract()
	}
	repository.Close(a.DB, a.logger)
	return err
}
