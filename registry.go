package nftkit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// RoleRegistry holds the role assignments of one ledger instance and answers
// authorization queries against them.
//
// The default admin role administers every role, including itself. Checks
// always read the current assignments, so a grant or revoke takes effect on
// the very next call.
type RoleRegistry struct {
	mu         sync.RWMutex
	members    map[Role]map[Address]bool
	collection string

	audit   AuditLogger
	monitor *Monitor
	logger  *slog.Logger
}

// NewRoleRegistry creates a registry and grants the default admin role to the
// caller found in ctx.
//
// Example:
//
//	ctx := nftkit.WithCaller(context.Background(), deployer)
//	roles, err := nftkit.NewRoleRegistry(ctx)
func NewRoleRegistry(ctx context.Context, opts ...Option) (*RoleRegistry, error) {
	o := buildOptions(opts)

	deployer := GetCaller(ctx)
	if deployer == (Address{}) {
		return nil, NewError(ErrNoCaller, "deployer required to create a role registry")
	}

	r := &RoleRegistry{
		members:    make(map[Role]map[Address]bool),
		collection: o.collection,
		audit:      o.audit,
		monitor:    o.monitor,
		logger:     o.logger,
	}

	entry := r.roleEntry(ctx, AuditActionRoleGranted, DefaultAdminRole, deployer)
	if err := r.audit.Record(ctx, entry); err != nil {
		return nil, auditError(err)
	}
	r.set(DefaultAdminRole, deployer, true)

	r.logger.Info("role registry created",
		slog.String("collection", r.collection),
		slog.String("admin", deployer.Hex()))

	return r, nil
}

// HasRole reports whether account currently holds role.
func (r *RoleRegistry) HasRole(role Role, account Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has(role, account)
}

// RoleAdmin returns the role whose holders may grant and revoke role.
// This registry uses a single administrator for every role.
func (r *RoleRegistry) RoleAdmin(role Role) Role {
	return DefaultAdminRole
}

// Members returns the current holders of role, ordered by address.
func (r *RoleRegistry) Members(role Role) []Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Address, 0, len(r.members[role]))
	for account, held := range r.members[role] {
		if held {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// CheckRole returns an authorization error unless the caller in ctx holds role.
// It runs the same check as the mutating operations, with a generic message.
func (r *RoleRegistry) CheckRole(ctx context.Context, role Role) error {
	caller := GetCaller(ctx)
	return r.authorize(caller, role, fmt.Sprintf("account %s is missing role %s", caller.Hex(), role.Hex()))
}

// authorize is the capability check run at the top of every mutating call of
// the registry and the ledger. message is the text of the ErrUnauthorized error.
func (r *RoleRegistry) authorize(caller Address, role Role, message string) error {
	if caller == (Address{}) {
		return NewError(ErrNoCaller, "caller required").WithRole(role)
	}
	if !r.HasRole(role, caller) {
		return NewError(ErrUnauthorized, message).WithRole(role).WithCaller(caller)
	}
	return nil
}

// GrantRole gives role to account. The caller must hold the role's admin role.
// Granting a role the account already holds succeeds without recording anything.
//
// Example:
//
//	err := roles.GrantRole(ctx, nftkit.MinterRole, minter)
func (r *RoleRegistry) GrantRole(ctx context.Context, role Role, account Address) error {
	return r.update(ctx, AuditActionRoleGranted, role, account, true, false)
}

// RevokeRole removes role from account. The caller must hold the role's admin role.
// Revoking a role the account doesn't hold succeeds without recording anything.
func (r *RoleRegistry) RevokeRole(ctx context.Context, role Role, account Address) error {
	return r.update(ctx, AuditActionRoleRevoked, role, account, false, false)
}

// RenounceRole lets the caller drop one of its own roles without admin rights.
// account must equal the caller.
func (r *RoleRegistry) RenounceRole(ctx context.Context, role Role, account Address) error {
	return r.update(ctx, AuditActionRoleRevoked, role, account, false, true)
}

func (r *RoleRegistry) update(ctx context.Context, action AuditAction, role Role, account Address, held, self bool) (err error) {
	start := time.Now()
	defer func() { r.monitor.record(time.Since(start), err) }()

	caller := GetCaller(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case caller == (Address{}):
		err = NewError(ErrNoCaller, "caller required to change roles").WithRole(role).WithAccount(account)
	case self && caller != account:
		err = NewError(ErrUnauthorized, "can only renounce roles for self").
			WithRole(role).WithAccount(account).WithCaller(caller)
	case !self && !r.has(r.RoleAdmin(role), caller):
		err = NewError(ErrUnauthorized, fmt.Sprintf("account %s is missing role %s", caller.Hex(), r.RoleAdmin(role).Hex())).
			WithRole(role).WithAccount(account).WithCaller(caller)
	}
	if err != nil {
		r.logger.Warn("role change denied",
			slog.String("action", string(action)),
			slog.String("role", RoleName(role)),
			slog.String("account", account.Hex()),
			slog.String("caller", caller.Hex()),
			slog.Any("error", err))
		return err
	}

	if r.has(role, account) == held {
		return nil
	}

	if err = r.audit.Record(ctx, r.roleEntry(ctx, action, role, account)); err != nil {
		err = auditError(err)
		r.logger.Error("role change not recorded", slog.String("role", RoleName(role)), slog.Any("error", err))
		return err
	}
	r.set(role, account, held)

	r.logger.Info("role changed",
		slog.String("action", string(action)),
		slog.String("role", RoleName(role)),
		slog.String("account", account.Hex()),
		slog.String("caller", caller.Hex()))
	return nil
}

func (r *RoleRegistry) has(role Role, account Address) bool {
	return r.members[role][account]
}

func (r *RoleRegistry) set(role Role, account Address, held bool) {
	m, ok := r.members[role]
	if !ok {
		m = make(map[Address]bool)
		r.members[role] = m
	}
	m[account] = held
}

func (r *RoleRegistry) roleEntry(ctx context.Context, action AuditAction, role Role, account Address) *AuditEntry {
	entry := newAuditEntry(ctx, action)
	entry.Collection = r.collection
	entry.Account = account
	entry.Role = &role
	return entry
}

func auditError(err error) error {
	return NewError(ErrAuditFailed, err.Error())
}
