package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogsync/internal/logger"
	"catalogsync/internal/model"
)

var errNetwork = errors.New("connection reset by peer")

// scriptedSource serves pages from fixed sizes and fails the pages listed
// in failures the given number of times.
type scriptedSource struct {
	pageSizes []int
	failures  map[int]int
	requests  []int
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) FetchPage(_ context.Context, page, _ int) ([]model.RawItem, error) {
	s.requests = append(s.requests, page)

	if s.failures[page] > 0 {
		s.failures[page]--
		return nil, errNetwork
	}

	if page > len(s.pageSizes) {
		return nil, nil
	}

	items := make([]model.RawItem, s.pageSizes[page-1])
	for i := range items {
		items[i] = model.RawItem{"sku": fmt.Sprintf("P%d-%d", page, i)}
	}
	return items, nil
}

// endlessSource always returns a full page.
type endlessSource struct {
	requests int
}

func (s *endlessSource) Name() string { return "endless" }

func (s *endlessSource) FetchPage(_ context.Context, page, perPage int) ([]model.RawItem, error) {
	s.requests++
	items := make([]model.RawItem, perPage)
	for i := range items {
		items[i] = model.RawItem{"sku": fmt.Sprintf("E%d-%d", page, i)}
	}
	return items, nil
}

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestFetcher(src PageSource, opts Options) (*Fetcher, *recordedSleep) {
	f := NewFetcher(src, opts, logger.Discard())
	rec := &recordedSleep{}
	f.sleep = rec.sleep
	return f, rec
}

func TestFetchAll_StopsOnEmptyPage(t *testing.T) {
	src := &scriptedSource{pageSizes: []int{100}}
	f, _ := newTestFetcher(src, Options{PageSize: 100})

	res, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, res.Items, 100)
	assert.Equal(t, StopEmptyPage, res.Stop)
	assert.Equal(t, []int{1, 2}, src.requests)
	assert.Equal(t, 1, res.Pages)
	assert.False(t, res.Partial())
}

func TestFetchAll_StopsOnShortPage(t *testing.T) {
	src := &scriptedSource{pageSizes: []int{10, 10, 4, 10}}
	f, _ := newTestFetcher(src, Options{PageSize: 10})

	res, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, res.Items, 24)
	assert.Equal(t, StopShortPage, res.Stop)
	assert.Equal(t, []int{1, 2, 3}, src.requests)
}

func TestFetchAll_RespectsMaxPages(t *testing.T) {
	src := &endlessSource{}
	f, _ := newTestFetcher(src, Options{PageSize: 5, MaxPages: 4})

	res, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, src.requests)
	assert.Len(t, res.Items, 20)
	assert.Equal(t, StopMaxPages, res.Stop)
}

func TestFetchAll_PartialResultAfterConsecutiveFailures(t *testing.T) {
	src := &scriptedSource{
		pageSizes: []int{10, 10, 10, 10, 3},
		failures:  map[int]int{3: 3},
	}
	f, sleeps := newTestFetcher(src, Options{PageSize: 10, MaxConsecutiveErrors: 3, RetryDelay: 2 * time.Second})

	res, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, res.Items, 20)
	assert.Equal(t, "P2-9", res.Items[19]["sku"])
	assert.Equal(t, StopTooManyErrors, res.Stop)
	assert.Equal(t, 3, res.Failures)
	assert.True(t, res.Partial())
	assert.Equal(t, []int{1, 2, 3, 3, 3}, src.requests)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps.delays, "linear backoff")
}

func TestFetchAll_RecoversAndResetsErrorCounter(t *testing.T) {
	src := &scriptedSource{
		pageSizes: []int{10, 10, 2},
		failures:  map[int]int{2: 2, 3: 2},
	}
	f, sleeps := newTestFetcher(src, Options{PageSize: 10, MaxConsecutiveErrors: 3, RetryDelay: time.Second})

	res, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, res.Items, 22)
	assert.Equal(t, StopShortPage, res.Stop)
	assert.Equal(t, 4, res.Failures)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, time.Second, 2 * time.Second}, sleeps.delays)
}

func TestFetchAll_FirstPageFailsThreeTimes(t *testing.T) {
	src := &scriptedSource{pageSizes: []int{10}, failures: map[int]int{1: 5}}
	f, _ := newTestFetcher(src, Options{PageSize: 10})

	res, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.Equal(t, StopTooManyErrors, res.Stop)
	assert.Len(t, src.requests, 3)
}

func TestFetchAll_FullPageThenNetworkFailures(t *testing.T) {
	src := &scriptedSource{pageSizes: []int{100, 100}, failures: map[int]int{2: 3}}
	f, _ := newTestFetcher(src, Options{PageSize: 100})

	res, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, res.Items, 100)
	assert.Equal(t, "P1-0", res.Items[0]["sku"])
}

func TestFetchAll_ReportsProgress(t *testing.T) {
	src := &scriptedSource{pageSizes: []int{3, 3, 1}}
	f, _ := newTestFetcher(src, Options{PageSize: 3})

	type call struct {
		catalog                string
		page, total, pageCount int
	}
	var calls []call

	_, err := f.FetchAll(context.Background(), func(catalog string, page, total, pageCount int) {
		calls = append(calls, call{catalog, page, total, pageCount})
	})
	require.NoError(t, err)

	assert.Equal(t, []call{
		{"scripted", 1, 3, 3},
		{"scripted", 2, 6, 3},
		{"scripted", 3, 7, 1},
	}, calls)
}

func TestFetchAll_CanceledDuringBackoff(t *testing.T) {
	src := &scriptedSource{pageSizes: []int{5, 5}, failures: map[int]int{2: 3}}
	f := NewFetcher(src, Options{PageSize: 5, RetryDelay: time.Hour}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	f.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res, err := f.FetchAll(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCanceled, res.Stop)
	assert.Len(t, res.Items, 5)
	assert.True(t, res.Partial())
}

// timedSource records when each page was requested.
type timedSource struct {
	scriptedSource
	at []time.Time
}

func (s *timedSource) FetchPage(ctx context.Context, page, perPage int) ([]model.RawItem, error) {
	s.at = append(s.at, time.Now())
	return s.scriptedSource.FetchPage(ctx, page, perPage)
}

func TestFetchAll_SpacesRequests(t *testing.T) {
	const delay = 20 * time.Millisecond
	src := &timedSource{scriptedSource: scriptedSource{pageSizes: []int{2, 2, 1}}}
	f, _ := newTestFetcher(src, Options{PageSize: 2, RequestDelay: delay})

	start := time.Now()
	res, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, res.Items, 5)

	require.Len(t, src.at, 3)
	assert.Less(t, src.at[0].Sub(start), delay, "first request must not wait")
	assert.GreaterOrEqual(t, src.at[2].Sub(start), 2*delay)
	assert.GreaterOrEqual(t, res.Elapsed, 2*delay)
}

func TestFetchAll_NoDelayWhenUnset(t *testing.T) {
	src := &timedSource{scriptedSource: scriptedSource{pageSizes: []int{2, 2, 1}}}
	f, _ := newTestFetcher(src, Options{PageSize: 2})

	start := time.Now()
	_, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
