package nftkit

import (
	"errors"
	"sync"
	"time"
)

// MutationMetrics provides mutation throughput and failure statistics.
type MutationMetrics struct {
	TotalMutations      int64         `json:"total_mutations"`
	SuccessfulMutations int64         `json:"successful_mutations"`
	FailedMutations     int64         `json:"failed_mutations"`
	DeniedMutations     int64         `json:"denied_mutations"`
	RejectedMutations   int64         `json:"rejected_mutations"`
	TokensMinted        int64         `json:"tokens_minted"`
	AverageDuration     time.Duration `json:"average_duration"`
	MaxDuration         time.Duration `json:"max_duration"`
	MinDuration         time.Duration `json:"min_duration"`
	LastReset           time.Time     `json:"last_reset"`
}

// Monitor records the outcome of every mutating call.
// A single Monitor may be shared by a RoleRegistry and its TokenLedger.
type Monitor struct {
	mu            sync.Mutex
	totalCount    int64
	successCount  int64
	failureCount  int64
	deniedCount   int64
	rejectCount   int64
	minted        int64
	totalDuration time.Duration
	maxDuration   time.Duration
	minDuration   time.Duration
	lastReset     time.Time
}

// NewMonitor creates a new mutation monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		minDuration: time.Hour,
		lastReset:   time.Now(),
	}
}

// record registers a completed mutation with its duration and outcome.
// Calls refused for lack of a role count as denied, calls refused for bad
// input (no caller, zero recipient, unknown role) count as rejected. Only the
// remaining errors count as failures.
func (m *Monitor) record(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCount++
	m.totalDuration += duration
	switch {
	case err == nil:
		m.successCount++
	case IsUnauthorized(err):
		m.deniedCount++
	case isRejection(err):
		m.rejectCount++
	default:
		m.failureCount++
	}

	if duration > m.maxDuration {
		m.maxDuration = duration
	}
	if duration < m.minDuration {
		m.minDuration = duration
	}
}

func isRejection(err error) bool {
	return errors.Is(err, ErrNoCaller) || IsInvalidRecipient(err) || IsInvalidRole(err)
}

func (m *Monitor) recordMinted(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.minted += int64(n)
	m.mu.Unlock()
}

// Metrics returns a snapshot of the current metrics.
func (m *Monitor) Metrics() MutationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg time.Duration
	if m.totalCount > 0 {
		avg = m.totalDuration / time.Duration(m.totalCount)
	}
	minDur := m.minDuration
	if m.totalCount == 0 {
		minDur = 0
	}

	return MutationMetrics{
		TotalMutations:      m.totalCount,
		SuccessfulMutations: m.successCount,
		FailedMutations:     m.failureCount,
		DeniedMutations:     m.deniedCount,
		RejectedMutations:   m.rejectCount,
		TokensMinted:        m.minted,
		AverageDuration:     avg,
		MaxDuration:         m.maxDuration,
		MinDuration:         minDur,
		LastReset:           m.lastReset,
	}
}

// Reset clears all metrics.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCount = 0
	m.successCount = 0
	m.failureCount = 0
	m.deniedCount = 0
	m.rejectCount = 0
	m.minted = 0
	m.totalDuration = 0
	m.maxDuration = 0
	m.minDuration = time.Hour
	m.lastReset = time.Now()
}

// IsHealthy reports whether the failure rate is below 5%. Denied and rejected
// calls are the caller's fault and never make the ledger unhealthy.
func (m *Monitor) IsHealthy() bool {
	metrics := m.Metrics()

	// If we have very few mutations, consider it healthy
	if metrics.TotalMutations < 10 {
		return true
	}

	return float64(metrics.FailedMutations)/float64(metrics.TotalMutations) <= 0.05
}
