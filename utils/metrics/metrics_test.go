package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLedgerMetrics(t *testing.T) {
	m := NewLedgerMetrics("test_ledger", prometheus.NewRegistry())

	m.Deposits.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Deposits))

	m.Errors.WithLabelValues("paused").Inc()
	m.Errors.WithLabelValues("paused").Inc()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Errors.WithLabelValues("paused")))

	m.OpLatency.Observe(0.1)
	assert.NotNil(t, m.OpLatency)
}

func TestLendingMetrics(t *testing.T) {
	m := NewLendingMetrics("test_lending", prometheus.NewRegistry())

	m.PoolBlocked.WithLabelValues("frozen").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PoolBlocked.WithLabelValues("frozen")))

	m.PoolLatency.Observe(0.005)
	assert.NotNil(t, m.PoolLatency)
}

func TestArbitrageSuccessRate(t *testing.T) {
	m := NewArbitrageMetrics("test_arbitrage", prometheus.NewRegistry())

	// No attempts yet.
	assert.Equal(t, float64(1), m.SuccessRate())

	m.Attempts.Inc()
	m.Attempts.Inc()
	m.Successes.Inc()
	m.Failures.Inc()
	assert.Equal(t, 0.5, m.SuccessRate())
}
