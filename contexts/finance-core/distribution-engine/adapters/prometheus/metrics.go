package prometheusadapter

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"profitshare/contexts/finance-core/distribution-engine/ports"
)

type Metrics struct {
	credits        *prometheus.CounterVec
	creditedAmount *prometheus.CounterVec
	runDuration    prometheus.Histogram
	runSubjects    *prometheus.GaugeVec
	runsCancelled  prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsRegistry *Metrics
)

// Default returns the process-wide collectors, registered on first use.
func Default() *Metrics {
	metricsOnce.Do(func() {
		metricsRegistry = &Metrics{
			credits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "profitshare",
				Subsystem: "distribution",
				Name:      "credits_total",
				Help:      "Credit attempts segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			creditedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "profitshare",
				Subsystem: "distribution",
				Name:      "credited_amount_total",
				Help:      "Sum of credited amounts segmented by kind.",
			}, []string{"kind"}),
			runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "profitshare",
				Subsystem: "distribution",
				Name:      "run_duration_seconds",
				Help:      "Wall time of distribution runs.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
			}),
			runSubjects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "profitshare",
				Subsystem: "distribution",
				Name:      "last_run_subjects",
				Help:      "Subjects of the most recent run segmented by outcome.",
			}, []string{"outcome"}),
			runsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "profitshare",
				Subsystem: "distribution",
				Name:      "runs_cancelled_total",
				Help:      "Runs stopped by cancellation before every subject was visited.",
			}),
		}
		prometheus.MustRegister(
			metricsRegistry.credits,
			metricsRegistry.creditedAmount,
			metricsRegistry.runDuration,
			metricsRegistry.runSubjects,
			metricsRegistry.runsCancelled,
		)
	})
	return metricsRegistry
}

func (m *Metrics) ObserveCredit(kind ports.CreditKind, outcome ports.CreditOutcome, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.credits.WithLabelValues(string(kind), string(outcome)).Inc()
	if outcome == ports.OutcomeCredited && amount.IsPositive() {
		value, _ := amount.Float64()
		m.creditedAmount.WithLabelValues(string(kind)).Add(value)
	}
}

func (m *Metrics) ObserveRun(duration time.Duration, summary ports.RunSummary) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
	m.runSubjects.WithLabelValues(string(ports.OutcomeCredited)).Set(float64(summary.Processed))
	m.runSubjects.WithLabelValues(string(ports.OutcomeSkipped)).Set(float64(summary.Skipped))
	m.runSubjects.WithLabelValues(string(ports.OutcomeAlreadyCredited)).Set(float64(summary.AlreadyCredited))
	m.runSubjects.WithLabelValues(string(ports.OutcomeFailed)).Set(float64(summary.Failed))
	if summary.Cancelled {
		m.runsCancelled.Inc()
	}
}
