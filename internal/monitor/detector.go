package monitor

import "github.com/shopspring/decimal"

var dec100 = decimal.NewFromInt(100)

// Detector finds the strongest percentage move inside a sample window.
type Detector struct {
	threshold decimal.Decimal
}

// NewDetector builds a detector with the alert threshold in percent.
func NewDetector(thresholdPct float64) *Detector {
	return &Detector{threshold: decimal.NewFromFloat(thresholdPct)}
}

// Evaluate compares the newest sample in the window against every earlier
// one and returns the move with the largest magnitude, preferring the
// earliest reference on ties. The flag is false when the window holds fewer
// than two samples or no pair moved by at least the threshold. Scanning the
// whole window catches moves that reverse and re-cross inside the lookback,
// which an endpoint-only comparison would miss.
func (d *Detector) Evaluate(window []PriceSample) (ChangeResult, bool) {
	if len(window) < 2 {
		return ChangeResult{}, false
	}

	current := window[len(window)-1]

	var (
		best    ChangeResult
		bestAbs decimal.Decimal
		found   bool
	)
	for _, ref := range window[:len(window)-1] {
		if ref.ObservedAt.After(current.ObservedAt) || ref.Price.IsZero() {
			continue
		}
		pct := current.Price.Sub(ref.Price).Div(ref.Price).Mul(dec100)
		abs := pct.Abs()
		if !found || abs.GreaterThan(bestAbs) {
			best = ChangeResult{
				PercentChange:  pct,
				ReferencePrice: ref.Price,
				CurrentPrice:   current.Price,
				ReferenceAt:    ref.ObservedAt,
				CurrentAt:      current.ObservedAt,
			}
			bestAbs = abs
			found = true
		}
	}

	if !found || bestAbs.LessThan(d.threshold) {
		return ChangeResult{}, false
	}
	return best, true
}
