package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// EmitFunc delivers an alert event. A nil return records the cooldown.
type EmitFunc func(ctx context.Context, event AlertEvent) error

// Outcome classifies what Observe did with a sample.
type Outcome int

const (
	// OutcomeSkipped means the symbol was not watched when the sample arrived.
	OutcomeSkipped Outcome = iota
	// OutcomeRecorded means the sample was stored and no alert condition held.
	OutcomeRecorded
	// OutcomeDetected means a move crossed the threshold with no emitter
	// configured; nothing was sent and the cooldown stayed untouched.
	OutcomeDetected
	// OutcomeSuppressed means a move crossed the threshold inside the
	// cooldown interval.
	OutcomeSuppressed
	// OutcomeDeliveryFailed means the notifier rejected the alert; the
	// cooldown stays open so the condition can re-fire next cycle.
	OutcomeDeliveryFailed
	// OutcomeAlerted means the alert was delivered and the cooldown recorded.
	OutcomeAlerted
)

// String renders the outcome for logs and metrics labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDetected:
		return "detected"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeDeliveryFailed:
		return "delivery_failed"
	case OutcomeAlerted:
		return "alerted"
	default:
		return "unknown"
	}
}

// Options parameterise the engine.
type Options struct {
	Lookback     time.Duration
	ThresholdPct float64
	Cooldown     time.Duration
}

// Engine owns the per-symbol monitoring state: the watch registry, the
// pruned price store, and the cooldown gate. All methods are safe for
// concurrent use; Observe serialises per symbol so the gate check and the
// cooldown record cannot interleave across overlapping callers.
type Engine struct {
	store    *Store
	registry *Registry
	cooldown *Cooldown
	detector *Detector
	logger   zerolog.Logger

	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// NewEngine builds an engine from the monitoring options.
func NewEngine(opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    NewStore(opts.Lookback),
		registry: NewRegistry(),
		cooldown: NewCooldown(opts.Cooldown),
		detector: NewDetector(opts.ThresholdPct),
		logger:   logger.With().Str("component", "engine").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Watch adds the symbol to the watch set, reporting false when it was
// already present. History accumulates from the next observed sample.
func (e *Engine) Watch(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.Add(symbol) {
		return false
	}
	e.locks[symbol] = &sync.Mutex{}
	return true
}

// Unwatch removes the symbol and discards its history and cooldown record
// as one unit. An in-flight observe for the symbol completes before the
// teardown runs, so a later Watch starts from a clean slate.
func (e *Engine) Unwatch(symbol string) bool {
	e.mu.Lock()
	lock := e.locks[symbol]
	if !e.registry.Remove(symbol) {
		e.mu.Unlock()
		return false
	}
	delete(e.locks, symbol)
	e.mu.Unlock()

	// Holding the symbol lock through the teardown lets an observe already
	// past its liveness check finish first; one still waiting re-checks and
	// skips. No sample or cooldown record survives the removal either way.
	if lock != nil {
		lock.Lock()
		defer lock.Unlock()
	}
	e.store.Drop(symbol)
	e.cooldown.Clear(symbol)
	return true
}

// Watched reports whether the symbol is currently under watch.
func (e *Engine) Watched(symbol string) bool {
	return e.registry.Contains(symbol)
}

// Symbols returns a snapshot of the watch set in insertion order.
func (e *Engine) Symbols() []string {
	return e.registry.List()
}

// Count reports the number of watched symbols.
func (e *Engine) Count() int {
	return e.registry.Len()
}

// Observe runs one sample through the detection pipeline: validate, store,
// evaluate, gate, emit. The cooldown is recorded only after emit returns
// nil, so a failed delivery re-fires on the next cycle. Samples for
// unwatched symbols are dropped. With a nil emit, detections are logged
// without consulting the gate.
func (e *Engine) Observe(ctx context.Context, symbol string, price decimal.Decimal, observedAt time.Time, emit EmitFunc) (Outcome, error) {
	e.mu.RLock()
	lock := e.locks[symbol]
	e.mu.RUnlock()
	if lock == nil {
		return OutcomeSkipped, nil
	}

	lock.Lock()
	defer lock.Unlock()

	// The symbol may have been unwatched, or removed and re-added, while we
	// waited. Only the holder of the live lock may touch its state.
	e.mu.RLock()
	live := e.locks[symbol] == lock
	e.mu.RUnlock()
	if !live {
		return OutcomeSkipped, nil
	}

	if price.Sign() <= 0 {
		return OutcomeSkipped, fmt.Errorf("%w: %s priced %s", ErrInvalidSample, symbol, price)
	}

	if inOrder := e.store.Append(symbol, price, observedAt); !inOrder {
		e.logger.Warn().Str("symbol", symbol).Time("observed_at", observedAt).
			Msg("sample timestamp regressed, inserted out of order")
	}

	window := e.store.Window(symbol, observedAt)
	result, triggered := e.detector.Evaluate(window)
	if !triggered {
		return OutcomeRecorded, nil
	}

	if emit == nil {
		e.logger.Info().Str("symbol", symbol).
			Str("percent_change", result.PercentChange.StringFixed(2)).
			Msg("move crossed threshold, no emitter configured")
		return OutcomeDetected, nil
	}

	if !e.cooldown.Allow(symbol, observedAt) {
		e.logger.Debug().Str("symbol", symbol).
			Str("percent_change", result.PercentChange.StringFixed(2)).
			Msg("alert suppressed by cooldown")
		return OutcomeSuppressed, nil
	}

	event := AlertEvent{
		ID:            uuid.New().String(),
		Symbol:        symbol,
		OldPrice:      result.ReferencePrice,
		NewPrice:      result.CurrentPrice,
		PercentChange: result.PercentChange,
		Window:        result.Window(),
		TriggeredAt:   observedAt,
	}

	if err := emit(ctx, event); err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Str("event_id", event.ID).
			Msg("alert delivery failed, cooldown not consumed")
		return OutcomeDeliveryFailed, nil
	}

	// An unwatch racing this observe tears the state down as soon as the
	// lock is released; skip the record so nothing is written ahead of it.
	if e.registry.Contains(symbol) {
		e.cooldown.Record(symbol, observedAt)
	}

	e.logger.Info().Str("symbol", symbol).Str("event_id", event.ID).
		Str("percent_change", result.PercentChange.StringFixed(2)).
		Str("old_price", result.ReferencePrice.String()).
		Str("new_price", result.CurrentPrice.String()).
		Msg("alert emitted")
	return OutcomeAlerted, nil
}

// Window returns the retained samples for a symbol as of now.
func (e *Engine) Window(symbol string, now time.Time) []PriceSample {
	return e.store.Window(symbol, now)
}

// Latest returns the newest retained sample for a symbol.
func (e *Engine) Latest(symbol string) (PriceSample, bool) {
	return e.store.Latest(symbol)
}

// Peek evaluates the symbol's window without touching the cooldown gate.
func (e *Engine) Peek(symbol string, now time.Time) (ChangeResult, bool) {
	return e.detector.Evaluate(e.store.Window(symbol, now))
}

// LastAlert reports when the symbol last alerted.
func (e *Engine) LastAlert(symbol string) (time.Time, bool) {
	return e.cooldown.LastAlert(symbol)
}
