// Package nftkit provides a minimal non-fungible token registry: a collection
// of sequentially numbered tokens, each owned by one account, guarded by
// role-based access control.
//
// A TokenLedger is created with a name, a symbol and a base URI. The account
// that creates it (the caller found in the context) receives the default admin
// role. Admins grant and revoke roles; holders of MinterRole mint tokens.
//
// # Core Concepts
//
// Address: a 20-byte account identifier (go-ethereum's common.Address). The
// zero address never owns a token and never calls an operation.
//
// Role: a 32-byte identifier. DefaultAdminRole is all zero bytes and
// administers every role. MinterRole is keccak256("MINTER_ROLE").
//
// TokenID: a positive integer. Ids start at 1, increase by one per mint and
// are never reused. Zero means "no such token".
//
// # Key Features
//
//   - Caller-based authorization: every mutation checks the caller's role first
//   - All-or-nothing batches: one bad recipient rejects the whole batch
//   - Token URIs always reflect the current base URI
//   - Audit logging: exactly one entry per successful mutation
//   - Pluggable audit sinks: memory, PostgreSQL (dbkit) and Redis streams
//   - Prometheus collector and HTTP middleware
//
// # Basic Usage
//
//	ctx := nftkit.WithCaller(context.Background(), deployer)
//
//	// 1. Deploy the collection
//	warrior, err := nftkit.NewTokenLedger(ctx, "Warrior", "WARRIOR", "warrior/")
//
//	// 2. Allow an account to mint
//	err = warrior.GrantRole(ctx, nftkit.MinterRole, minter)
//
//	// 3. Mint
//	minterCtx := nftkit.WithCaller(ctx, minter)
//	id, err := warrior.Mint(minterCtx, alice)
//	ids, err := warrior.MintByBatch(minterCtx, []nftkit.Address{alice, bob})
//
//	// 4. Query
//	owner, err := warrior.OwnerOf(id)
//	uri, err := warrior.TokenURI(id) // "warrior/1"
//
// # Audit Log
//
// Every successful mutation is recorded with:
//   - Caller (who made the change)
//   - Action (deployed, role_granted, role_revoked, minted, base_uri_set)
//   - Affected account, role, token ids or base URIs
//   - Timestamp
//   - Request metadata (IP, user agent, request ID)
//
// The entry is recorded before the change is applied. If the sink returns an
// error the mutation is abandoned and ErrAuditFailed is returned.
//
// # Middleware Usage
//
// Over HTTP the caller is the address recovered from the request signature
// (see SignRequest and SignatureVerifier). Middleware reads the caller from
// the context only.
//
//	verifier := nftkit.NewSignatureVerifier()
//	mw := nftkit.NewMiddleware(ledger.Roles())
//	router.Use(verifier.Authenticate(nil), mw.InjectAuditContext())
//	router.With(mw.RequireRole(nftkit.MinterRole)).Post("/tokens", mintHandler)
package nftkit
