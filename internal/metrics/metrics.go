package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the watcher's operational metrics via Prometheus.
// All methods are nil-safe so components can run without metrics in tests.
type Recorder struct {
	lastPrice     *prometheus.GaugeVec
	fetchErrors   *prometheus.CounterVec
	samples       *prometheus.CounterVec
	alertOutcomes *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	watchedTotal  prometheus.Gauge
}

// New creates a recorder registered on the default Prometheus registry.
// Call it once per process.
func New() *Recorder {
	return &Recorder{
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swingwatcher_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		fetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swingwatcher_fetch_errors_total",
				Help: "Total number of failed price fetches",
			},
			[]string{"symbol"},
		),
		samples: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swingwatcher_samples_total",
				Help: "Total number of samples accepted into history",
			},
			[]string{"symbol"},
		),
		alertOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swingwatcher_alert_outcomes_total",
				Help: "Observe pipeline outcomes by kind",
			},
			[]string{"symbol", "outcome"},
		),
		cycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swingwatcher_cycle_duration_seconds",
				Help:    "Duration of poll cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		watchedTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swingwatcher_watched_symbols",
				Help: "Number of symbols currently under watch",
			},
		),
	}
}

// SetLastPrice records the latest observed price for a symbol.
func (r *Recorder) SetLastPrice(symbol string, price float64) {
	if r == nil {
		return
	}
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// FetchError counts a failed fetch for a symbol.
func (r *Recorder) FetchError(symbol string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(symbol).Inc()
}

// SampleAccepted counts a sample stored into history.
func (r *Recorder) SampleAccepted(symbol string) {
	if r == nil {
		return
	}
	r.samples.WithLabelValues(symbol).Inc()
}

// AlertOutcome counts one observe outcome for a symbol.
func (r *Recorder) AlertOutcome(symbol, outcome string) {
	if r == nil {
		return
	}
	r.alertOutcomes.WithLabelValues(symbol, outcome).Inc()
}

// ObserveCycle records the duration of one poll cycle.
func (r *Recorder) ObserveCycle(seconds float64) {
	if r == nil {
		return
	}
	r.cycleDuration.Observe(seconds)
}

// SetWatched records the current watch set size.
func (r *Recorder) SetWatched(n int) {
	if r == nil {
		return
	}
	r.watchedTotal.Set(float64(n))
}
