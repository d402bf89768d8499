package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-swing-alerts/internal/alerting"
	"price-swing-alerts/internal/config"
	"price-swing-alerts/internal/fetcher"
	"price-swing-alerts/internal/metrics"
	"price-swing-alerts/internal/monitor"
	"price-swing-alerts/internal/scheduler"
)

// Service orchestrates fetching, observation, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	engine    *monitor.Engine
	fetcher   fetcher.PriceFetcher
	bulk      fetcher.BulkPriceFetcher
	notifier  alerting.Notifier
	recorder  *metrics.Recorder
	logger    zerolog.Logger

	emit         monitor.EmitFunc
	fetchTimeout time.Duration
	workers      int
}

// New constructs the monitoring service. The bulk fetch path is used when
// the fetcher supports it, with per-symbol requests as fallback.
func New(cfg *config.Config, sched *scheduler.Scheduler, engine *monitor.Engine, priceFetcher fetcher.PriceFetcher, notifier alerting.Notifier, recorder *metrics.Recorder, logger zerolog.Logger) *Service {
	fetchTimeout := cfg.Monitor.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	workers := cfg.Monitor.MaxConcurrentFetches
	if workers <= 0 {
		workers = 4
	}

	var bulk fetcher.BulkPriceFetcher
	if b, ok := priceFetcher.(fetcher.BulkPriceFetcher); ok {
		bulk = b
	}

	s := &Service{
		scheduler:    sched,
		engine:       engine,
		fetcher:      priceFetcher,
		bulk:         bulk,
		notifier:     notifier,
		recorder:     recorder,
		logger:       logger.With().Str("component", "service").Logger(),
		fetchTimeout: fetchTimeout,
		workers:      workers,
	}

	if cfg.Alerting.Enabled && notifier != nil {
		s.emit = func(ctx context.Context, event monitor.AlertEvent) error {
			return notifier.Send(ctx, event)
		}
	}

	return s
}

// Run begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.RunCycle)
}

type cycleTally struct {
	fetchErrors atomic.Int64
	rejected    atomic.Int64
	alerted     atomic.Int64
}

// RunCycle 执行一轮完整的轮询。单个 symbol 的失败只影响它自己。
func (s *Service) RunCycle(ctx context.Context, firedAt time.Time) error {
	symbols := s.engine.Symbols()
	s.recorder.SetWatched(len(symbols))
	if len(symbols) == 0 {
		s.logger.Debug().Time("tick", firedAt).Msg("watch set empty, nothing to poll")
		return nil
	}

	start := time.Now()
	prefetched := s.prefetch(ctx, symbols)

	var tally cycleTally
	jobs := make(chan string)
	workers := s.workers
	if workers > len(symbols) {
		workers = len(symbols)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				s.pollSymbol(ctx, symbol, prefetched, &tally)
			}
		}()
	}
	for _, symbol := range symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	s.recorder.ObserveCycle(elapsed.Seconds())
	s.logger.Info().
		Time("tick", firedAt).
		Int("symbols", len(symbols)).
		Int64("fetch_errors", tally.fetchErrors.Load()).
		Int64("rejected", tally.rejected.Load()).
		Int64("alerted", tally.alerted.Load()).
		Dur("elapsed", elapsed).
		Msg("poll cycle finished")

	return nil
}

func (s *Service) prefetch(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	if s.bulk == nil || len(symbols) < 2 {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	prices, err := s.bulk.GetPrices(fetchCtx, symbols)
	if err != nil {
		s.logger.Warn().Err(err).Msg("bulk price fetch failed, falling back to per-symbol requests")
		return nil
	}
	return prices
}

func (s *Service) pollSymbol(ctx context.Context, symbol string, prefetched map[string]decimal.Decimal, tally *cycleTally) {
	price, ok := prefetched[symbol]
	if !ok {
		fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		fetched, err := s.fetcher.GetPrice(fetchCtx, symbol)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("price fetch failed, keeping history for next tick")
			s.recorder.FetchError(symbol)
			tally.fetchErrors.Add(1)
			return
		}
		price = fetched
	}

	outcome, err := s.engine.Observe(ctx, symbol, price, time.Now().UTC(), s.emit)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("sample rejected")
		tally.rejected.Add(1)
	} else {
		s.recorder.SampleAccepted(symbol)
		s.recorder.SetLastPrice(symbol, price.InexactFloat64())
	}

	s.recorder.AlertOutcome(symbol, outcome.String())
	if outcome == monitor.OutcomeAlerted {
		tally.alerted.Add(1)
	}
}
