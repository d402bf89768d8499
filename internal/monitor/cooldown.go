package monitor

import (
	"sync"
	"time"
)

// Cooldown suppresses repeat alerts per symbol inside a fixed interval.
type Cooldown struct {
	mu        sync.Mutex
	interval  time.Duration
	lastAlert map[string]time.Time
}

// NewCooldown builds a gate with the given suppression interval.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{
		interval:  interval,
		lastAlert: make(map[string]time.Time),
	}
}

// Allow reports whether the symbol may alert at the given time. Symbols
// that never alerted are always eligible.
func (c *Cooldown) Allow(symbol string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.lastAlert[symbol]
	if !ok {
		return true
	}
	return now.Sub(last) >= c.interval
}

// Record stores the emission time for the symbol. It must be called only
// after the notifier accepted the alert, so a failed delivery leaves the
// gate open for the next cycle.
func (c *Cooldown) Record(symbol string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAlert[symbol] = now
}

// Clear forgets the symbol's last alert.
func (c *Cooldown) Clear(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lastAlert, symbol)
}

// LastAlert returns the recorded emission time for the symbol.
func (c *Cooldown) LastAlert(symbol string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.lastAlert[symbol]
	return last, ok
}
