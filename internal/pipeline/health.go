package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
)

// HealthStatus represents the health state of one network's pipeline.
type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"

	// DefaultUnhealthyThreshold is the number of consecutive failed runs
	// before a network is considered unhealthy.
	DefaultUnhealthyThreshold = 5

	// DefaultDegradedLatencyThreshold is the p95 run duration above which a
	// network is considered degraded.
	DefaultDegradedLatencyThreshold = 30 * time.Second

	latencyWindowSize = 10
)

// NetworkHealth tracks run outcomes for one network.
type NetworkHealth struct {
	mu                       sync.RWMutex
	network                  string
	status                   HealthStatus
	consecutiveFailures      int
	lastSuccessAt            *time.Time
	lastFailureAt            *time.Time
	lastError                string
	head                     int64
	mode                     string
	unhealthyThreshold       int
	recentLatencies          []time.Duration
	degradedLatencyThreshold time.Duration
}

func NewNetworkHealth(network string, unhealthyThreshold int) *NetworkHealth {
	if unhealthyThreshold <= 0 {
		unhealthyThreshold = DefaultUnhealthyThreshold
	}
	return &NetworkHealth{
		network:                  network,
		status:                   HealthStatusUnknown,
		unhealthyThreshold:       unhealthyThreshold,
		recentLatencies:          make([]time.Duration, 0, latencyWindowSize),
		degradedLatencyThreshold: DefaultDegradedLatencyThreshold,
	}
}

// RecordSuccess records a finished run and reports whether it ended an
// unhealthy streak.
func (h *NetworkHealth) RecordSuccess(head int64, mode string, took time.Duration) (recovered bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	recovered = h.status == HealthStatusUnhealthy
	h.consecutiveFailures = 0
	h.lastSuccessAt = &now
	h.lastError = ""
	h.head = head
	h.mode = mode
	h.recordLatency(took)
	if h.isLatencyDegraded() {
		h.status = HealthStatusDegraded
	} else {
		h.status = HealthStatusHealthy
	}
	return recovered
}

// RecordFailure records a failed run. It returns true if the network became
// unhealthy on this call.
func (h *NetworkHealth) RecordFailure(err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	h.consecutiveFailures++
	h.lastFailureAt = &now
	if err != nil {
		h.lastError = err.Error()
	}
	if h.consecutiveFailures >= h.unhealthyThreshold && h.status != HealthStatusUnhealthy {
		h.status = HealthStatusUnhealthy
		return true
	}
	return false
}

// Must be called with mu held.
func (h *NetworkHealth) recordLatency(d time.Duration) {
	if len(h.recentLatencies) >= latencyWindowSize {
		h.recentLatencies = h.recentLatencies[1:]
	}
	h.recentLatencies = append(h.recentLatencies, d)
}

// Must be called with mu held.
func (h *NetworkHealth) isLatencyDegraded() bool {
	if len(h.recentLatencies) < 2 {
		return false
	}
	return h.percentileLatency(95) > h.degradedLatencyThreshold
}

// percentileLatency is the nearest-rank percentile of the recent window.
// Must be called with mu held.
func (h *NetworkHealth) percentileLatency(pct int) time.Duration {
	n := len(h.recentLatencies)
	if n == 0 {
		return 0
	}
	sorted := make([]time.Duration, n)
	copy(sorted, h.recentLatencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	// ceil(pct*n/100) - 1
	idx := (pct*n - 1) / 100
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func (h *NetworkHealth) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthSnapshot{
		Network:             h.network,
		Status:              string(h.status),
		ConsecutiveFailures: h.consecutiveFailures,
		LastSuccessAt:       h.lastSuccessAt,
		LastFailureAt:       h.lastFailureAt,
		LastError:           h.lastError,
		ChainHead:           h.head,
		LastMode:            h.mode,
	}
}

// HealthSnapshot is a point-in-time view of a network (JSON-safe).
type HealthSnapshot struct {
	Network             string                   `json:"network"`
	Status              string                   `json:"status"`
	ConsecutiveFailures int                      `json:"consecutive_failures"`
	LastSuccessAt       *time.Time               `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time               `json:"last_failure_at,omitempty"`
	LastError           string                   `json:"last_error,omitempty"`
	ChainHead           int64                    `json:"chain_head"`
	LastMode            string                   `json:"last_mode,omitempty"`
	Endpoints           []rpcpool.EndpointHealth `json:"endpoints,omitempty"`
}
