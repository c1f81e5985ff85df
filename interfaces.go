package nftkit

import (
	"context"
)

// AuditLogger receives one entry per successful mutation.
//
// Record is called while the mutation is staged but not yet applied. If it
// returns an error the mutation is abandoned, so a sink never sees an entry
// for a change that did not happen.
type AuditLogger interface {
	Record(ctx context.Context, entry *AuditEntry) error
}

// Authorizer answers the role lookups a Checker is built on.
type Authorizer interface {
	HasRole(role Role, account Address) bool
	RoleAdmin(role Role) Role
}
