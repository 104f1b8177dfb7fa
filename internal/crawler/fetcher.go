package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"catalogsync/internal/model"
	"catalogsync/internal/observability"
)

// PageSource serves one page of a catalog. Client is the production
// implementation.
type PageSource interface {
	Name() string
	FetchPage(ctx context.Context, page, perPage int) ([]model.RawItem, error)
}

// ProgressFunc observes every successful page.
type ProgressFunc func(catalog string, page, total, pageCount int)

// StopReason tells why pagination ended.
type StopReason string

const (
	StopEmptyPage     StopReason = "empty_page"
	StopShortPage     StopReason = "short_page"
	StopMaxPages      StopReason = "max_pages"
	StopTooManyErrors StopReason = "too_many_errors"
	StopCanceled      StopReason = "canceled"
)

type fetchState int

const (
	stateFetching fetchState = iota
	stateBackoff
	stateExhausted
	stateAborted
)

// Options bound a paginated fetch.
type Options struct {
	PageSize int
	// MaxPages caps the number of pages requested; 0 means no cap.
	MaxPages             int
	MaxConsecutiveErrors int
	// RetryDelay is multiplied by the consecutive error count before a retry.
	RetryDelay time.Duration
	// RequestDelay is the minimum spacing between two requests.
	RequestDelay time.Duration
}

// FetchResult is what a fetch accumulated, complete or not.
type FetchResult struct {
	Catalog  string
	Items    []model.RawItem
	Pages    int
	Stop     StopReason
	Failures int
	Elapsed  time.Duration
}

// Partial reports whether pagination was cut short by errors or
// cancellation, leaving later pages unread.
func (r FetchResult) Partial() bool {
	return r.Stop == StopTooManyErrors || r.Stop == StopCanceled
}

// Fetcher drains a catalog page by page.
type Fetcher struct {
	src     PageSource
	opts    Options
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	log     *slog.Logger
}

// NewFetcher creates a fetcher over src.
func NewFetcher(src PageSource, opts Options, log *slog.Logger) *Fetcher {
	if opts.PageSize < 1 {
		opts.PageSize = 100
	}
	if opts.MaxConsecutiveErrors < 1 {
		opts.MaxConsecutiveErrors = 3
	}
	if log == nil {
		log = slog.Default()
	}

	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}

	return &Fetcher{
		src:     src,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepContext,
		log:     log.With("catalog", src.Name()),
	}
}

// Name returns the catalog name.
func (f *Fetcher) Name() string {
	return f.src.Name()
}

// FetchAll requests pages 1, 2, ... until one of the stop conditions holds.
// Fetch failures never surface as errors: after MaxConsecutiveErrors failures
// on the same page the items gathered so far are returned. The error is
// non-nil only when ctx is done, and the partial items come with it.
func (f *Fetcher) FetchAll(ctx context.Context, progress ProgressFunc) (FetchResult, error) {
	start := time.Now()
	res := FetchResult{Catalog: f.src.Name()}

	page := 1
	consecutive := 0
	state := stateFetching

	for {
		switch state {
		case stateFetching:
			if err := f.limiter.Wait(ctx); err != nil {
				return f.canceled(ctx, res, start, err)
			}

			items, err := f.src.FetchPage(ctx, page, f.opts.PageSize)
			if err != nil {
				if ctx.Err() != nil {
					return f.canceled(ctx, res, start, ctx.Err())
				}

				consecutive++
				res.Failures++
				observability.PageFailures.WithLabelValues(res.Catalog).Inc()
				f.log.Warn("page request failed", "page", page, "attempt", consecutive, "error", err)

				if consecutive >= f.opts.MaxConsecutiveErrors {
					res.Stop = StopTooManyErrors
					state = stateAborted
				} else {
					state = stateBackoff
				}
				continue
			}

			consecutive = 0
			if len(items) == 0 {
				res.Stop = StopEmptyPage
				state = stateExhausted
				continue
			}

			res.Items = append(res.Items, items...)
			res.Pages = page
			observability.PagesFetched.WithLabelValues(res.Catalog).Inc()
			f.log.Debug("page fetched", "page", page, "items", len(items), "total", len(res.Items))
			if progress != nil {
				progress(res.Catalog, page, len(res.Items), len(items))
			}

			if len(items) < f.opts.PageSize {
				res.Stop = StopShortPage
				state = stateExhausted
				continue
			}

			page++
			if f.opts.MaxPages > 0 && page > f.opts.MaxPages {
				res.Stop = StopMaxPages
				state = stateExhausted
			}

		case stateBackoff:
			if err := f.sleep(ctx, time.Duration(consecutive)*f.opts.RetryDelay); err != nil {
				return f.canceled(ctx, res, start, err)
			}
			state = stateFetching

		case stateExhausted:
			res.Elapsed = time.Since(start)
			f.log.Info("catalog fetched", "items", len(res.Items), "pages", res.Pages, "stop", res.Stop)
			return res, nil

		case stateAborted:
			res.Elapsed = time.Since(start)
			f.log.Error("too many consecutive errors, keeping partial catalog",
				"items", len(res.Items), "pages", res.Pages, "failed_page", page)
			return res, nil
		}
	}
}

func (f *Fetcher) canceled(ctx context.Context, res FetchResult, start time.Time, err error) (FetchResult, error) {
	res.Stop = StopCanceled
	res.Elapsed = time.Since(start)
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	f.log.Warn("fetch canceled", "items", len(res.Items), "pages", res.Pages, "error", err)
	return res, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
