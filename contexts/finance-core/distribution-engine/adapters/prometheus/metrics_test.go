package prometheusadapter

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"profitshare/contexts/finance-core/distribution-engine/ports"
)

func TestMetricsRecordCreditsAndRuns(t *testing.T) {
	metrics := Default()
	require.Same(t, metrics, Default())

	credited := testutil.ToFloat64(metrics.credits.WithLabelValues(string(ports.CreditKindProfit), string(ports.OutcomeCredited)))
	amount := testutil.ToFloat64(metrics.creditedAmount.WithLabelValues(string(ports.CreditKindProfit)))
	cancelled := testutil.ToFloat64(metrics.runsCancelled)

	metrics.ObserveCredit(ports.CreditKindProfit, ports.OutcomeCredited, decimal.RequireFromString("10.00"))
	metrics.ObserveCredit(ports.CreditKindProfit, ports.OutcomeAlreadyCredited, decimal.RequireFromString("10.00"))
	metrics.ObserveRun(2*time.Second, ports.RunSummary{Processed: 3, Skipped: 1, Failed: 2, Cancelled: true})

	require.Equal(t, credited+1, testutil.ToFloat64(metrics.credits.WithLabelValues(string(ports.CreditKindProfit), string(ports.OutcomeCredited))))
	require.Equal(t, amount+10, testutil.ToFloat64(metrics.creditedAmount.WithLabelValues(string(ports.CreditKindProfit))))
	require.Equal(t, cancelled+1, testutil.ToFloat64(metrics.runsCancelled))
	require.Equal(t, float64(3), testutil.ToFloat64(metrics.runSubjects.WithLabelValues(string(ports.OutcomeCredited))))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.runSubjects.WithLabelValues(string(ports.OutcomeFailed))))
}

func TestNilMetricsIgnoreObservations(t *testing.T) {
	var metrics *Metrics
	require.NotPanics(t, func() {
		metrics.ObserveCredit(ports.CreditKindReferral, ports.OutcomeCredited, decimal.NewFromInt(5))
		metrics.ObserveRun(time.Second, ports.RunSummary{})
	})
}
