package nftkit

import (
	"context"
	"sync"
	"time"
)

// MemoryAuditLog keeps audit entries in process memory.
// It is the default sink and is safe for concurrent use.
type MemoryAuditLog struct {
	mu      sync.RWMutex
	entries []AuditEntry
	now     func() time.Time
}

// NewMemoryAuditLog creates an empty in-memory audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{now: time.Now}
}

// Record appends a copy of the entry.
func (l *MemoryAuditLog) Record(ctx context.Context, entry *AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := *entry
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	e.TokenIDs = append([]TokenID(nil), entry.TokenIDs...)
	e.Recipients = append([]Address(nil), entry.Recipients...)

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return nil
}

// Entries returns matching entries, newest first.
func (l *MemoryAuditLog) Entries(ctx context.Context, filter AuditLogFilter) ([]AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}

	var out []AuditEntry
	skipped := 0
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := &l.entries[i]
		if !filter.Matches(e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

// Len returns the number of recorded entries.
func (l *MemoryAuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
