package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockfolio/internal/domain"
)

func TestPartition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, size     int
		wantBatches int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{12, 5, 3},
		{25, 5, 5},
	}
	for _, tt := range tests {
		symbols := make([]string, tt.n)
		for i := range symbols {
			symbols[i] = fmt.Sprintf("S%02d", i)
		}
		batches := partition(symbols, tt.size)
		require.Len(t, batches, tt.wantBatches, "n=%d size=%d", tt.n, tt.size)

		var total int
		for _, b := range batches {
			require.LessOrEqual(t, len(b), tt.size)
			total += len(b)
		}
		require.Equal(t, tt.n, total)
	}
}

func seedCache(t *testing.T, cache *fakeCache, fetcher *fakeFetcher, n int) []string {
	t.Helper()
	symbols := make([]string, n)
	for i := range symbols {
		sym := fmt.Sprintf("S%02d", i)
		symbols[i] = sym
		q := domain.Quote{
			Symbol: sym, CurrentPrice: float64(100 + i),
			ObservedAt: time.Now().UTC().Add(-time.Hour),
		}
		require.NoError(t, cache.Upsert(context.Background(), q))
		live := q
		live.CurrentPrice += 1
		live.ObservedAt = time.Now().UTC()
		live.Source = domain.QuoteSourceLive
		fetcher.quotes[sym] = live
	}
	return symbols
}

func TestRefresher_CycleBatchAccounting(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	cache := newFakeCache()
	seedCache(t, cache, fetcher, 12)
	pub := &fakePublisher{}

	delay := 30 * time.Millisecond
	r := NewRefresher(fetcher, cache, pub, nil, RefresherConfig{
		Interval:   time.Hour,
		BatchSize:  5,
		BatchDelay: delay,
	}, discardLogger())

	start := time.Now()
	refreshed, failed := r.RunCycle(context.Background())
	elapsed := time.Since(start)

	require.Equal(t, 12, refreshed)
	require.Equal(t, 0, failed)
	require.Equal(t, 12, fetcher.fetchCount())
	require.Equal(t, 12, pub.count())

	// 12 symbols at batch size 5 is ceil(12/5)=3 batches with exactly two
	// inter-batch delays: no pause before the first or after the last.
	require.GreaterOrEqual(t, elapsed, 2*delay)
	require.Less(t, elapsed, 3*delay)
}

func TestRefresher_PerSymbolFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	cache := newFakeCache()
	symbols := seedCache(t, cache, fetcher, 6)
	fetcher.errs[symbols[2]] = domain.ErrQuoteUnavailable
	pub := &fakePublisher{}

	r := NewRefresher(fetcher, cache, pub, nil, RefresherConfig{
		Interval:   time.Hour,
		BatchSize:  5,
		BatchDelay: time.Millisecond,
	}, discardLogger())

	refreshed, failed := r.RunCycle(context.Background())
	require.Equal(t, 5, refreshed)
	require.Equal(t, 1, failed)
	require.Equal(t, 5, pub.count())

	// The failed symbol keeps its previous cache entry.
	q, err := cache.Get(context.Background(), symbols[2])
	require.NoError(t, err)
	require.Equal(t, 102.0, q.CurrentPrice)
}

func TestRefresher_EnumerationErrorAbortsCycleOnly(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	cache := newFakeCache()
	cache.listErr = errors.New("store down")
	pub := &fakePublisher{}

	r := NewRefresher(fetcher, cache, pub, nil, RefresherConfig{}, discardLogger())

	refreshed, failed := r.RunCycle(context.Background())
	require.Equal(t, 0, refreshed)
	require.Equal(t, 0, failed)
	require.Equal(t, 0, fetcher.fetchCount())
}

func TestRefresher_StopsBetweenBatches(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	cache := newFakeCache()
	seedCache(t, cache, fetcher, 10)
	pub := &fakePublisher{}

	r := NewRefresher(fetcher, cache, pub, nil, RefresherConfig{
		Interval:   time.Hour,
		BatchSize:  5,
		BatchDelay: 200 * time.Millisecond,
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Cancel during the inter-batch delay; the first batch has already
		// completed in full.
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	refreshed, _ := r.RunCycle(ctx)
	require.Equal(t, 5, refreshed, "the in-flight batch finishes, the next never starts")
}

func TestRefresher_RunHonorsCancellation(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	cache := newFakeCache()
	seedCache(t, cache, fetcher, 2)

	r := NewRefresher(fetcher, cache, &fakePublisher{}, nil, RefresherConfig{
		Interval:   50 * time.Millisecond,
		BatchSize:  5,
		BatchDelay: time.Millisecond,
	}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, fetcher.fetchCount(), 4, "at least two cycles ran")
}

type recordingAlerter struct {
	events []string
	msgs   []string
}

func (a *recordingAlerter) Notify(ctx context.Context, event, title, message string) error {
	a.events = append(a.events, event)
	a.msgs = append(a.msgs, message)
	return nil
}

func TestRefresher_AlertsOnFailures(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	cache := newFakeCache()
	symbols := seedCache(t, cache, fetcher, 3)
	fetcher.errs[symbols[0]] = domain.ErrQuoteUnavailable

	alerter := &recordingAlerter{}
	r := NewRefresher(fetcher, cache, &fakePublisher{}, alerter, RefresherConfig{
		Interval: time.Hour, BatchSize: 5, BatchDelay: time.Millisecond,
	}, discardLogger())

	r.RunCycle(context.Background())
	require.Equal(t, []string{"refresh_failed"}, alerter.events)
	require.Contains(t, alerter.msgs[0], symbols[0])
}
