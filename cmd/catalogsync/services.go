package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"catalogsync/internal/cache"
	"catalogsync/internal/config"
	"catalogsync/internal/crawler"
	"catalogsync/internal/db"
	"catalogsync/internal/logger"
	"catalogsync/internal/normalizer"
	"catalogsync/internal/reconcile"
	"catalogsync/internal/repository"
)

// services holds what the commands share once configuration is resolved.
type services struct {
	cfg     *config.Config
	log     *slog.Logger
	service *reconcile.Service
	runs    *repository.RunRepository
	closers []func()
}

func (rt *services) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// loadConfig resolves the configuration and the logger. Catalog settings
// are validated when validate is set.
func loadConfig(c *cli.Context, validate bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	log.Debug("configuration loaded", "config", cfg.String())
	return cfg, log, nil
}

func newFetcher(cfg *config.Config, src config.Source, log *slog.Logger) *crawler.Fetcher {
	client := crawler.NewClient(src, cfg.RequestTimeout, cfg.UserAgent)

	return crawler.NewFetcher(client, crawler.Options{
		PageSize:             cfg.PageSize,
		MaxPages:             cfg.MaxPages,
		MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		RetryDelay:           cfg.RetryDelay,
		RequestDelay:         src.RequestDelay,
	}, log)
}

// newServices wires the reconciliation service with its cache and, when a
// database is configured, the run history.
func newServices(c *cli.Context) (*services, error) {
	cfg, log, err := loadConfig(c, true)
	if err != nil {
		return nil, err
	}

	rt := &services{cfg: cfg, log: log}
	rt.service = &reconcile.Service{
		Source:     newFetcher(cfg, cfg.Source, log),
		Reference:  newFetcher(cfg, cfg.Reference, log),
		Normalizer: normalizer.New(cfg.DiscountPercentage, log),
		CacheTTL:   cfg.CacheTTL,
		Progress:   progress,
		Log:        log,
	}

	if cfg.RedisURL != "" {
		store, err := cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rt.service.Cache = store
		rt.closers = append(rt.closers, func() { store.Close() })
	} else {
		rt.service.Cache = cache.NewMemoryStore()
	}

	if cfg.DatabaseURL != "" {
		if err := rt.openHistory(c.Context); err != nil {
			rt.Close()
			return nil, err
		}
	}

	return rt, nil
}

func (rt *services) openHistory(ctx context.Context) error {
	conn, err := db.New(ctx, rt.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, func() { conn.Close() })

	pool, err := db.NewPool(ctx, rt.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, pool.Close)

	rt.runs = &repository.RunRepository{DB: conn}
	rt.service.Recorder = &repository.Recorder{
		Runs:    rt.runs,
		Novelty: &repository.NoveltyRepository{DB: pool},
		Log:     rt.log,
	}

	return nil
}

func progress(catalog string, page, total, pageCount int) {
	fmt.Fprintf(os.Stderr, "%s: page %d, %d products (%d total)\n", catalog, page, pageCount, total)
}
