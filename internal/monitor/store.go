package monitor

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// history holds the retained samples for one symbol, ordered by ObservedAt.
type history struct {
	samples []PriceSample
}

// insert places the sample in timestamp order. It returns false when the
// timestamp regressed behind the current tail and the sample had to be
// placed further back.
func (h *history) insert(sample PriceSample) bool {
	n := len(h.samples)
	if n == 0 || !h.samples[n-1].ObservedAt.After(sample.ObservedAt) {
		h.samples = append(h.samples, sample)
		return true
	}

	idx := n
	for idx > 0 && h.samples[idx-1].ObservedAt.After(sample.ObservedAt) {
		idx--
	}
	h.samples = append(h.samples, PriceSample{})
	copy(h.samples[idx+1:], h.samples[idx:])
	h.samples[idx] = sample
	return false
}

// prune drops samples strictly older than the cutoff.
func (h *history) prune(cutoff time.Time) {
	drop := 0
	for drop < len(h.samples) && h.samples[drop].ObservedAt.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		h.samples = append(h.samples[:0], h.samples[drop:]...)
	}
}

// Store keeps per-symbol price histories pruned to a lookback horizon, so
// memory stays bounded by lookback over poll interval samples per symbol.
type Store struct {
	mu       sync.RWMutex
	lookback time.Duration
	bySymbol map[string]*history
}

// NewStore builds an empty store with the given lookback horizon.
func NewStore(lookback time.Duration) *Store {
	return &Store{
		lookback: lookback,
		bySymbol: make(map[string]*history),
	}
}

// Append records a sample for the symbol and lazily prunes entries older
// than observedAt minus the lookback. Histories are created on first use.
// The returned flag is false when the timestamp regressed behind the newest
// retained sample; the sample is still kept, in timestamp order.
func (s *Store) Append(symbol string, price decimal.Decimal, observedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.bySymbol[symbol]
	if h == nil {
		h = &history{}
		s.bySymbol[symbol] = h
	}

	inOrder := h.insert(PriceSample{Symbol: symbol, Price: price, ObservedAt: observedAt})
	h.prune(observedAt.Add(-s.lookback))
	return inOrder
}

// Window returns the retained samples for the symbol that are no older than
// now minus the lookback and no newer than now, in timestamp order.
func (s *Store) Window(symbol string, now time.Time) []PriceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.bySymbol[symbol]
	if h == nil {
		return nil
	}

	cutoff := now.Add(-s.lookback)
	out := make([]PriceSample, 0, len(h.samples))
	for _, sample := range h.samples {
		if sample.ObservedAt.Before(cutoff) || sample.ObservedAt.After(now) {
			continue
		}
		out = append(out, sample)
	}
	return out
}

// Latest returns the newest retained sample for the symbol.
func (s *Store) Latest(symbol string) (PriceSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.bySymbol[symbol]
	if h == nil || len(h.samples) == 0 {
		return PriceSample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// Size reports how many samples are retained for the symbol.
func (s *Store) Size(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.bySymbol[symbol]
	if h == nil {
		return 0
	}
	return len(h.samples)
}

// Drop discards the symbol's history.
func (s *Store) Drop(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bySymbol, symbol)
}
