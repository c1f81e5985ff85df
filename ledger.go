package nftkit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TokenLedger owns the token id counter, the id → owner mapping and the base
// URI of one collection. Every mutating call is authorized against its
// RoleRegistry first and then applied as a single all-or-nothing unit.
type TokenLedger struct {
	name   string
	symbol string
	roles  *RoleRegistry

	mu       sync.RWMutex
	nextID   TokenID
	owners   map[TokenID]Address
	balances map[Address]uint64
	baseURI  string

	audit   AuditLogger
	monitor *Monitor
	logger  *slog.Logger
}

// NewTokenLedger creates a collection. The caller in ctx becomes the holder of
// the default admin role unless WithRoleRegistry supplies an existing registry.
//
// Example:
//
//	ctx := nftkit.WithCaller(context.Background(), deployer)
//	warrior, err := nftkit.NewTokenLedger(ctx, "Warrior", "WARRIOR", "warrior/")
func NewTokenLedger(ctx context.Context, name, symbol, baseURI string, opts ...Option) (*TokenLedger, error) {
	o := buildOptions(opts)

	deployer := GetCaller(ctx)
	if deployer == (Address{}) {
		return nil, NewError(ErrNoCaller, "deployer required to create a ledger")
	}

	roles := o.registry
	if roles == nil {
		var err error
		roles, err = NewRoleRegistry(ctx, WithLogger(o.logger), WithAuditLogger(o.audit),
			WithMonitor(o.monitor), withCollection(name))
		if err != nil {
			return nil, err
		}
	}

	l := &TokenLedger{
		name:     name,
		symbol:   symbol,
		roles:    roles,
		nextID:   1,
		owners:   make(map[TokenID]Address),
		balances: make(map[Address]uint64),
		baseURI:  baseURI,
		audit:    o.audit,
		monitor:  o.monitor,
		logger:   o.logger.With(slog.String("collection", name)),
	}

	entry := l.entry(ctx, AuditActionDeployed)
	entry.NewBaseURI = baseURI
	if err := l.audit.Record(ctx, entry); err != nil {
		return nil, auditError(err)
	}

	l.logger.Info("ledger deployed",
		slog.String("symbol", symbol),
		slog.String("base_uri", baseURI),
		slog.String("deployer", deployer.Hex()))

	return l, nil
}

// Name returns the collection name.
func (l *TokenLedger) Name() string {
	return l.name
}

// Symbol returns the collection symbol.
func (l *TokenLedger) Symbol() string {
	return l.symbol
}

// Roles returns the registry this ledger authorizes against.
func (l *TokenLedger) Roles() *RoleRegistry {
	return l.roles
}

// Monitor returns the mutation monitor.
func (l *TokenLedger) Monitor() *Monitor {
	return l.monitor
}

// Mint assigns the next token id to to. The caller must hold MinterRole.
//
// Example:
//
//	id, err := ledger.Mint(nftkit.WithCaller(ctx, minter), alice)
func (l *TokenLedger) Mint(ctx context.Context, to Address) (TokenID, error) {
	ids, err := l.mint(ctx, []Address{to})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// MintByBatch mints one token per recipient, in order, with consecutive ids.
// The batch is validated as a whole: if any recipient is the zero address
// nothing is minted. The same address may appear more than once.
func (l *TokenLedger) MintByBatch(ctx context.Context, recipients []Address) ([]TokenID, error) {
	return l.mint(ctx, recipients)
}

func (l *TokenLedger) mint(ctx context.Context, recipients []Address) (ids []TokenID, err error) {
	start := time.Now()
	defer func() { l.monitor.record(time.Since(start), err) }()

	caller := GetCaller(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.roles.authorize(caller, MinterRole, "must have minter role to mint"); err != nil {
		l.logger.Warn("mint denied", slog.String("caller", caller.Hex()), slog.Any("error", err))
		return nil, err
	}

	stage, err := l.stageMint(recipients)
	if err != nil {
		l.logger.Warn("mint rejected", slog.String("caller", caller.Hex()), slog.Any("error", err))
		return nil, err
	}
	if stage.empty() {
		return []TokenID{}, nil
	}

	entry := l.entry(ctx, AuditActionMinted)
	entry.TokenIDs = stage.ids()
	entry.Recipients = stage.recipients
	if len(recipients) == 1 {
		entry.Account = recipients[0]
	}
	if err = l.audit.Record(ctx, entry); err != nil {
		err = auditError(err)
		l.logger.Error("mint not recorded", slog.Any("error", err))
		return nil, err
	}

	l.commitMint(stage)
	l.monitor.recordMinted(len(stage.recipients))

	l.logger.Info("tokens minted",
		slog.String("caller", caller.Hex()),
		slog.Int("count", len(stage.recipients)),
		slog.Uint64("first_id", uint64(stage.first)))

	return entry.TokenIDs, nil
}

// OwnerOf returns the owner of a minted token.
func (l *TokenLedger) OwnerOf(id TokenID) (Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	owner, ok := l.owners[id]
	if !ok || owner == (Address{}) {
		return Address{}, NewError(ErrNotFound, "owner query for nonexistent token").WithToken(id)
	}
	return owner, nil
}

// BalanceOf returns how many tokens account owns. Unknown accounts own zero.
func (l *TokenLedger) BalanceOf(account Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// Exists reports whether id has been minted.
func (l *TokenLedger) Exists(id TokenID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.owners[id]
	return ok
}

// TotalSupply returns the number of tokens minted so far.
func (l *TokenLedger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(l.nextID - 1)
}

// BaseURI returns the current metadata prefix.
func (l *TokenLedger) BaseURI() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.baseURI
}

// SetBaseURI replaces the metadata prefix of every token, including already
// minted ones. The caller must hold DefaultAdminRole; MinterRole is not enough.
// An empty prefix is accepted.
func (l *TokenLedger) SetBaseURI(ctx context.Context, baseURI string) (err error) {
	start := time.Now()
	defer func() { l.monitor.record(time.Since(start), err) }()

	caller := GetCaller(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.roles.authorize(caller, DefaultAdminRole, "must have admin role to set base uri"); err != nil {
		l.logger.Warn("set base uri denied", slog.String("caller", caller.Hex()), slog.Any("error", err))
		return err
	}

	entry := l.entry(ctx, AuditActionBaseURISet)
	entry.PreviousBaseURI = l.baseURI
	entry.NewBaseURI = baseURI
	if err = l.audit.Record(ctx, entry); err != nil {
		err = auditError(err)
		l.logger.Error("base uri change not recorded", slog.Any("error", err))
		return err
	}

	l.baseURI = baseURI

	l.logger.Info("base uri set",
		slog.String("caller", caller.Hex()),
		slog.String("previous", entry.PreviousBaseURI),
		slog.String("base_uri", baseURI))
	return nil
}

// TokenURI returns the base URI followed by the decimal token id, e.g.
// "warrior/3". The result always reflects the current base URI.
func (l *TokenLedger) TokenURI(id TokenID) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.owners[id]; !ok {
		return "", NewError(ErrNotFound, "URI query for nonexistent token").WithToken(id)
	}
	return l.baseURI + id.String(), nil
}

// HasRole reports whether account holds role on this ledger.
func (l *TokenLedger) HasRole(role Role, account Address) bool {
	return l.roles.HasRole(role, account)
}

// GrantRole gives role to account. See RoleRegistry.GrantRole.
func (l *TokenLedger) GrantRole(ctx context.Context, role Role, account Address) error {
	return l.roles.GrantRole(ctx, role, account)
}

// RevokeRole removes role from account. See RoleRegistry.RevokeRole.
func (l *TokenLedger) RevokeRole(ctx context.Context, role Role, account Address) error {
	return l.roles.RevokeRole(ctx, role, account)
}

// RenounceRole drops one of the caller's own roles. See RoleRegistry.RenounceRole.
func (l *TokenLedger) RenounceRole(ctx context.Context, role Role, account Address) error {
	return l.roles.RenounceRole(ctx, role, account)
}

func (l *TokenLedger) entry(ctx context.Context, action AuditAction) *AuditEntry {
	entry := newAuditEntry(ctx, action)
	entry.Collection = l.name
	return entry
}
