package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement counters and histograms, partitioned by network symbol.

var (
	// Scheduler
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "scheduler",
		Name:      "runs_total",
		Help:      "Total per-network runs started",
	}, []string{"network"})

	RunErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "scheduler",
		Name:      "run_errors_total",
		Help:      "Total per-network runs that ended with an error",
	}, []string{"network"})

	RunLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "settlement",
		Subsystem: "scheduler",
		Name:      "run_duration_seconds",
		Help:      "Duration of one per-network run",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"network"})

	RunLockContended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "scheduler",
		Name:      "run_lock_contended_total",
		Help:      "Ticks skipped because another run held the network lock",
	}, []string{"network"})

	// History builder
	ChainHead = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "settlement",
		Subsystem: "history",
		Name:      "chain_head",
		Help:      "Latest block number reported by the chain",
	}, []string{"network"})

	LedgerHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "settlement",
		Subsystem: "history",
		Name:      "ledger_height",
		Help:      "Highest block number recorded in the block ledger",
	}, []string{"network"})

	BlocksAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "history",
		Name:      "blocks_appended_total",
		Help:      "Blocks appended to the block ledger, by fulfill mode",
	}, []string{"network", "mode"})

	ReorgsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "history",
		Name:      "reorgs_total",
		Help:      "Forks detected and rolled back",
	}, []string{"network"})

	ReorgDepth = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "settlement",
		Subsystem: "history",
		Name:      "reorg_depth_blocks",
		Help:      "Number of ledger blocks removed per rollback",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50, 100},
	}, []string{"network"})

	// Transfers
	TransfersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "transfers",
		Name:      "created_total",
		Help:      "Pending deposit transfers created",
	}, []string{"network", "asset"})

	TransfersReverted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "transfers",
		Name:      "reverted_total",
		Help:      "Transfers marked reverted by a rollback",
	}, []string{"network"})

	TransfersConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "transfers",
		Name:      "confirmed_total",
		Help:      "Transfers promoted to done",
	}, []string{"network", "direction"})

	TransfersCanceled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "transfers",
		Name:      "canceled_total",
		Help:      "Transfers canceled by the confirmer",
	}, []string{"network", "direction"})

	BlockInfoPopulated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "transfers",
		Name:      "block_info_populated_total",
		Help:      "Withdrawals linked to their block after broadcast",
	}, []string{"network"})

	// Withdrawals
	WithdrawalsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "withdraw",
		Name:      "broadcast_total",
		Help:      "Withdrawal transactions accepted by the network",
	}, []string{"network", "asset"})

	WithdrawalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "withdraw",
		Name:      "failures_total",
		Help:      "Withdrawal attempts that failed, by stage",
	}, []string{"network", "stage"})

	FeeTopUps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "withdraw",
		Name:      "fee_topups_total",
		Help:      "Fee transfers sent from the fee wallet to the hot wallet",
	}, []string{"network"})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "RPC calls by method and outcome",
	}, []string{"network", "method", "status"})

	RPCCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "settlement",
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "RPC call latency per attempt",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"network", "method"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Calls delayed by an endpoint rate limiter",
	}, []string{"network"})

	RPCEndpointState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "settlement",
		Subsystem: "rpc",
		Name:      "endpoint_circuit_state",
		Help:      "Circuit state per endpoint (0=closed, 1=half-open, 2=open)",
	}, []string{"network", "endpoint"})

	// Database pool
	DBPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "settlement",
		Subsystem: "postgres",
		Name:      "db_pool_open",
		Help:      "Current number of open PostgreSQL connections in the pool",
	})

	DBPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "settlement",
		Subsystem: "postgres",
		Name:      "db_pool_in_use",
		Help:      "Current number of in-use PostgreSQL connections in the pool",
	})

	DBPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "settlement",
		Subsystem: "postgres",
		Name:      "db_pool_idle",
		Help:      "Current number of idle PostgreSQL connections in the pool",
	})

	DBPoolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "settlement",
		Subsystem: "postgres",
		Name:      "db_pool_wait_count",
		Help:      "Cumulative count of waits for PostgreSQL connections from pool",
	})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Alerts delivered, by channel and type",
	}, []string{"channel", "type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Alerts suppressed by the per-network cooldown",
	}, []string{"channel", "type"})
)
