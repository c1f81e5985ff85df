package nftkit

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Context keys for nftkit values.
type contextKey string

const (
	contextKeyCaller    contextKey = "nftkit:caller"
	contextKeyIPAddress contextKey = "nftkit:ip_address"
	contextKeyUserAgent contextKey = "nftkit:user_agent"
	contextKeyRequestID contextKey = "nftkit:request_id"
	contextKeyChecker   contextKey = "nftkit:checker"
)

// WithCaller adds the calling address to the context.
// Every mutating operation authorizes against this address.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, contextKeyCaller, caller)
}

// GetCaller retrieves the caller from context.
// Returns the zero address if not set.
func GetCaller(ctx context.Context) common.Address {
	if v := ctx.Value(contextKeyCaller); v != nil {
		if a, ok := v.(common.Address); ok {
			return a
		}
	}
	return common.Address{}
}

// MustGetCaller retrieves the caller from context.
// Panics if not set.
func MustGetCaller(ctx context.Context) common.Address {
	caller := GetCaller(ctx)
	if caller == (common.Address{}) {
		panic("nftkit: caller not in context")
	}
	return caller
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	if v := ctx.Value(contextKeyIPAddress); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithChecker adds a Checker to the context.
// This is set by middleware and can be retrieved in handlers.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker retrieves the Checker from context.
// Returns nil if not set.
func GetChecker(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	return nil
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	Caller    common.Address
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		Caller:    GetCaller(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.Caller != (common.Address{}) {
		ctx = WithCaller(ctx, ac.Caller)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}

// newAuditEntry fills the request metadata of an entry from context.
func newAuditEntry(ctx context.Context, action AuditAction) *AuditEntry {
	ac := GetAuditContext(ctx)
	return &AuditEntry{
		Action:    action,
		Caller:    ac.Caller,
		IPAddress: ac.IPAddress,
		UserAgent: ac.UserAgent,
		RequestID: ac.RequestID,
	}
}
