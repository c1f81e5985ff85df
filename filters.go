package nftkit

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AuditLogFilter provides options for filtering audit log queries.
// Zero-valued fields are ignored.
type AuditLogFilter struct {
	// Filter by collection name
	Collection string

	// Filter by the address that performed the mutation
	Caller common.Address

	// Filter by the grantee, revokee or recipient
	Account common.Address

	// Filter by action type
	Action AuditAction

	// Filter by role
	Role *Role

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: 100,
	}
}

// WithCollection sets the collection filter.
func (f AuditLogFilter) WithCollection(name string) AuditLogFilter {
	f.Collection = name
	return f
}

// WithCaller sets the caller filter.
func (f AuditLogFilter) WithCaller(caller common.Address) AuditLogFilter {
	f.Caller = caller
	return f
}

// WithAccount sets the target account filter.
func (f AuditLogFilter) WithAccount(account common.Address) AuditLogFilter {
	f.Account = account
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action AuditAction) AuditLogFilter {
	f.Action = action
	return f
}

// WithRole sets the role filter.
func (f AuditLogFilter) WithRole(role Role) AuditLogFilter {
	f.Role = &role
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// Matches reports whether an entry satisfies every set field of the filter.
// Limit and Offset are not considered.
func (f AuditLogFilter) Matches(e *AuditEntry) bool {
	if f.Collection != "" && e.Collection != f.Collection {
		return false
	}
	if f.Caller != (common.Address{}) && e.Caller != f.Caller {
		return false
	}
	if f.Account != (common.Address{}) && e.Account != f.Account {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Role != nil && (e.Role == nil || *e.Role != *f.Role) {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}
