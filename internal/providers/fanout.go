package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lossmine/internal/domain"
)

// Fan-out defaults.
const (
	DefaultFanoutWorkers     = 8
	DefaultRequestsPerSecond = 20
)

// EventFetcher pulls per-wallet activity from an ActivitySource with
// bounded concurrency and a shared rate limit, so a large holder set
// does not hammer the indexer.
type EventFetcher struct {
	source  ActivitySource
	limiter *rate.Limiter
	workers int
}

// FetcherOption configures EventFetcher.
type FetcherOption func(*EventFetcher)

// WithWorkers sets the number of concurrent fetch workers.
func WithWorkers(n int) FetcherOption {
	return func(f *EventFetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithRateLimit sets the shared requests-per-second limit.
func WithRateLimit(rps float64, burst int) FetcherOption {
	return func(f *EventFetcher) {
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewEventFetcher creates a fetcher over source.
func NewEventFetcher(source ActivitySource, opts ...FetcherOption) *EventFetcher {
	f := &EventFetcher{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		workers: DefaultFanoutWorkers,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// walletSince pairs a wallet with the lower bound of its event window.
type walletSince struct {
	wallet string
	since  time.Time
}

// FetchAll fetches events for every wallet in sinceByWallet and returns
// them keyed by wallet. The first fetch error cancels the remaining
// work and is returned.
func (f *EventFetcher) FetchAll(ctx context.Context, sinceByWallet map[string]time.Time) (map[string][]domain.AcquisitionEvent, error) {
	if len(sinceByWallet) == 0 {
		return map[string][]domain.AcquisitionEvent{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan walletSince)

	var mu sync.Mutex
	results := make(map[string][]domain.AcquisitionEvent, len(sinceByWallet))
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := f.limiter.Wait(ctx); err != nil {
					fail(err)
					return
				}

				events, err := f.source.WalletEvents(ctx, job.wallet, job.since)
				if err != nil {
					fail(fmt.Errorf("fetch events for %s: %w", job.wallet, err))
					return
				}

				mu.Lock()
				results[job.wallet] = events
				mu.Unlock()
			}
		}()
	}

	for wallet, since := range sinceByWallet {
		select {
		case jobs <- walletSince{wallet: wallet, since: since}:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
