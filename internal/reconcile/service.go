package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"catalogsync/internal/cache"
	"catalogsync/internal/crawler"
	"catalogsync/internal/model"
	"catalogsync/internal/normalizer"
	"catalogsync/internal/observability"
)

// ErrUnknownCatalog is returned by Catalog for names it cannot resolve.
var ErrUnknownCatalog = errors.New("unknown catalog")

// CatalogFetcher drains one catalog. crawler.Fetcher implements it.
type CatalogFetcher interface {
	Name() string
	FetchAll(ctx context.Context, progress crawler.ProgressFunc) (crawler.FetchResult, error)
}

// Recorder persists finished reports.
type Recorder interface {
	Record(ctx context.Context, r *model.Report) error
}

// Service runs the fetch, normalize and reconcile pipeline and memoizes its
// report. Cache and Recorder are optional.
type Service struct {
	Source     CatalogFetcher
	Reference  CatalogFetcher
	Normalizer *normalizer.Normalizer
	Cache      cache.Store
	CacheTTL   time.Duration
	Recorder   Recorder
	Progress   crawler.ProgressFunc
	Log        *slog.Logger

	mu sync.Mutex
}

// Run returns the cached report while it is fresh and runs the pipeline
// otherwise.
func (s *Service) Run(ctx context.Context) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.cached(ctx); ok {
		return r, nil
	}

	return s.refresh(ctx)
}

// Refresh runs the pipeline regardless of the cache and stores the result.
func (s *Service) Refresh(ctx context.Context) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refresh(ctx)
}

// Invalidate drops the cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.caching() {
		return nil
	}
	return s.Cache.Clear(ctx)
}

// Cached returns the cached report without fetching anything.
func (s *Service) Cached(ctx context.Context) (*model.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cached(ctx)
}

func (s *Service) cached(ctx context.Context) (*model.Report, bool) {
	if !s.caching() {
		return nil, false
	}

	r, ok, err := s.Cache.Load(ctx)
	if err != nil {
		s.log().Warn("report cache unavailable", "error", err)
		observability.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	if !ok {
		observability.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	observability.CacheLookups.WithLabelValues("hit").Inc()
	s.log().Debug("serving cached report", "run_id", r.RunID)
	return r, true
}

func (s *Service) refresh(ctx context.Context) (*model.Report, error) {
	report := &model.Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := s.log().With("run_id", report.RunID)
	log.Info("reconciliation started")

	source, status, err := s.snapshot(ctx, s.Source)
	if err != nil {
		return nil, err
	}
	report.Source = source
	report.Statuses = append(report.Statuses, status)

	reference, status, err := s.snapshot(ctx, s.Reference)
	if err != nil {
		return nil, err
	}
	report.Reference = reference
	report.Statuses = append(report.Statuses, status)

	report.Novelty = Reconcile(source, reference)
	report.FinishedAt = time.Now()

	observability.NoveltyProducts.Set(float64(report.Novelty.Len()))
	observability.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	log.Info("reconciliation finished",
		"source_products", source.Len(),
		"reference_products", reference.Len(),
		"candidates", report.Novelty.Candidates,
		"known", report.Novelty.Known,
		"new", report.Novelty.Len(),
		"partial", report.Partial(),
	)

	if s.caching() {
		if err := s.Cache.Save(ctx, report, s.CacheTTL); err != nil {
			log.Warn("failed to cache report", "error", err)
		}
	}

	if s.Recorder != nil {
		if err := s.Recorder.Record(ctx, report); err != nil {
			log.Error("failed to record report", "error", err)
		}
	}

	return report, nil
}

func (s *Service) snapshot(ctx context.Context, f CatalogFetcher) (model.Snapshot, model.SourceStatus, error) {
	res, err := f.FetchAll(ctx, s.Progress)
	if err != nil {
		return model.Snapshot{}, model.SourceStatus{}, fmt.Errorf("fetch %s catalog: %w", f.Name(), err)
	}

	products, failed := s.Normalizer.NormalizeAll(f.Name(), res.Items)
	observability.ProductsNormalized.WithLabelValues(f.Name(), "ok").Add(float64(len(products) - failed))
	observability.ProductsNormalized.WithLabelValues(f.Name(), "failed").Add(float64(failed))
	observability.CatalogSize.WithLabelValues(f.Name()).Set(float64(len(products)))

	status := model.SourceStatus{
		Catalog:        f.Name(),
		Items:          len(products),
		Pages:          res.Pages,
		Stop:           string(res.Stop),
		PageFailures:   res.Failures,
		FailedRecords:  failed,
		OK:             !res.Partial(),
		ElapsedSeconds: res.Elapsed.Seconds(),
	}
	if !status.OK {
		s.log().Warn("catalog is partial", "catalog", f.Name(), "items", status.Items, "stop", status.Stop)
	}

	return model.NewSnapshot(f.Name(), time.Now(), products), status, nil
}

func (s *Service) caching() bool {
	return s.Cache != nil && s.CacheTTL > 0
}

func (s *Service) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// Catalog picks a snapshot of r by name: "source", "reference" or the
// configured catalog names.
func Catalog(r *model.Report, name string) (model.Snapshot, error) {
	switch name {
	case "source", r.Source.Catalog:
		return r.Source, nil
	case "reference", r.Reference.Catalog:
		return r.Reference, nil
	case "novelty", "new":
		return model.NewSnapshot("novelty", r.FinishedAt, r.Novelty.Products), nil
	}

	return model.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownCatalog, name)
}
