package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every poll interval.
type TickFunc func(ctx context.Context, firedAt time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	// Interval is the fixed spacing between tick starts.
	Interval time.Duration
	// TickTimeout bounds a single tick. Zero means no per-tick deadline.
	TickTimeout time.Duration
	// StartupDelay postpones the first tick. Zero fires it immediately.
	StartupDelay time.Duration
}

// Scheduler drives fixed-interval execution of polling jobs.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function on every interval until ctx is
// cancelled. The first tick fires as soon as any startup delay has passed,
// and a failed tick is logged rather than stopping the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	next := time.Now().UTC()
	for {
		if delay := time.Until(next); delay > 0 {
			timer := time.NewTimer(delay)
			s.logger.Debug().Time("next_tick", next).Msg("waiting for next tick")

			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
				timer.Stop()
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		firedAt := time.Now().UTC()
		s.logger.Info().Time("tick", firedAt).Msg("executing scheduled tick")
		s.runTick(ctx, tick, firedAt)

		next = next.Add(s.opts.Interval)
		if time.Until(next) < 0 {
			// A slow tick consumed the whole interval; skip the missed slots
			// instead of firing a burst to catch up.
			next = time.Now().UTC().Add(s.opts.Interval)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context, tick TickFunc, firedAt time.Time) {
	tickCtx := ctx
	if s.opts.TickTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, s.opts.TickTimeout)
		defer cancel()
	}

	if err := tick(tickCtx, firedAt); err != nil {
		s.logger.Error().Err(err).Time("tick", firedAt).Msg("tick execution failed")
	}
}
