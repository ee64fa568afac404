package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// LedgerMetrics instruments the account balance ledger.
type LedgerMetrics struct {
	Deposits        prometheus.Counter
	Withdrawals     prometheus.Counter
	Swaps           prometheus.Counter
	BatchOps        prometheus.Counter
	EmergencyDrains prometheus.Counter
	Errors          *prometheus.CounterVec
	OpLatency       prometheus.Histogram
}

func NewLedgerMetrics(namespace string, reg prometheus.Registerer) *LedgerMetrics {
	factory := promauto.With(reg)
	return &LedgerMetrics{
		Deposits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposits_total",
			Help:      "Total number of deposits processed",
		}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "Total number of withdrawals processed",
		}),
		Swaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_total",
			Help:      "Total number of swaps processed",
		}),
		BatchOps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_operations_total",
			Help:      "Total number of batch deposit/withdraw calls",
		}),
		EmergencyDrains: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergency_withdrawals_total",
			Help:      "Total number of emergency withdrawals",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Ledger errors by type",
		}, []string{"error_type"}),
		OpLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of ledger operations",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// LendingMetrics instruments the lending pool integration.
type LendingMetrics struct {
	Supplies    prometheus.Counter
	Borrows     prometheus.Counter
	Withdrawals prometheus.Counter
	Repayments  prometheus.Counter
	PoolBlocked *prometheus.CounterVec
	Errors      prometheus.Counter
	PoolLatency prometheus.Histogram
}

func NewLendingMetrics(namespace string, reg prometheus.Registerer) *LendingMetrics {
	factory := promauto.With(reg)
	return &LendingMetrics{
		Supplies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supplies_total",
			Help:      "Total number of collateral supplies",
		}),
		Borrows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "borrows_total",
			Help:      "Total number of borrows",
		}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "Total number of collateral withdrawals",
		}),
		Repayments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repayments_total",
			Help:      "Total number of debt repayments",
		}),
		PoolBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_blocked_total",
			Help:      "Operations rejected by pool status, by status",
		}, []string{"status"}),
		Errors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of lending integration errors",
		}),
		PoolLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pool_call_latency_seconds",
			Help:      "Latency of lending pool calls",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}
}

// ArbitrageMetrics instruments the flash-loan orchestrator.
type ArbitrageMetrics struct {
	Attempts    prometheus.Counter
	Successes   prometheus.Counter
	Failures    prometheus.Counter
	ProfitTotal prometheus.Counter
	FeesTotal   prometheus.Counter
	Latency     prometheus.Histogram
}

func NewArbitrageMetrics(namespace string, reg prometheus.Registerer) *ArbitrageMetrics {
	factory := promauto.With(reg)
	return &ArbitrageMetrics{
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of flash-loan arbitrage attempts",
		}),
		Successes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "successes_total",
			Help:      "Total number of successful arbitrage executions",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Total number of failed arbitrage executions",
		}),
		ProfitTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_profit_total",
			Help:      "Cumulative net profit in base token units",
		}),
		FeesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_total",
			Help:      "Cumulative protocol fees taken from gross profit",
		}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_latency_seconds",
			Help:      "Latency of flash-loan arbitrage execution",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// counterValue reads the current value of a counter.
func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil || m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}

// SuccessRate returns successes/attempts, or 1 before the first attempt.
func (m *ArbitrageMetrics) SuccessRate() float64 {
	attempts := counterValue(m.Attempts)
	if attempts == 0 {
		return 1
	}
	return counterValue(m.Successes) / attempts
}
