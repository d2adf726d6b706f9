package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Quote request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeMissing     = "missing"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Cycle results.
const (
	CycleSuccess = "success"
	CyclePartial = "partial"
	CycleFailure = "failure"
	CycleSkipped = "skipped"
)

var (
	QuoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_quote_requests_total",
			Help: "Total number of provider requests per provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_cycles_total",
			Help: "Total number of fetch cycles per result",
		},
		[]string{"result"},
	)

	CycleDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricewatch_cycle_duration_seconds",
			Help:    "Wall time of a fetch cycle, including throttle and backoff waits",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	WatchedCoins = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricewatch_watched_coins",
			Help: "Number of coins in the watch-list",
		},
	)

	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricewatch_last_success_timestamp",
			Help: "Unix timestamp of the last cycle that priced at least one coin",
		},
	)
)

func RecordQuote(provider, outcome string) {
	QuoteRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

func RecordCycle(result string, startedAt time.Time) {
	CyclesTotal.WithLabelValues(result).Inc()
	if result == CycleSkipped {
		return
	}
	CycleDurationSeconds.Observe(time.Since(startedAt).Seconds())
	if result == CycleSuccess || result == CyclePartial {
		LastSuccessTimestamp.Set(float64(time.Now().Unix()))
	}
}

// WriteTextfile dumps the default registry in node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
