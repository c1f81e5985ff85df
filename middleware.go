package nftkit

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Middleware provides HTTP middleware for caller extraction and role checking.
type Middleware struct {
	roles        *RoleRegistry
	getCaller    func(*http.Request) (Address, error)
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := nftkit.NewMiddleware(ledger.Roles(),
//	    nftkit.WithCallerExtractor(func(r *http.Request) (common.Address, error) {
//	        return addressFromSession(r)
//	    }),
//	)
func NewMiddleware(roles *RoleRegistry, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		roles:        roles,
		getCaller:    defaultGetCaller,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithCallerExtractor sets a custom function to extract the caller from request.
func WithCallerExtractor(fn func(*http.Request) (Address, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.getCaller = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

// defaultGetCaller reads the caller placed in the request context by an
// authenticating middleware such as SignatureVerifier.Authenticate.
func defaultGetCaller(r *http.Request) (Address, error) {
	if caller := GetCaller(r.Context()); caller != (Address{}) {
		return caller, nil
	}
	return Address{}, ErrNoCaller
}

// HeaderCaller reads the caller from CallerHeader without any proof that the
// client controls that address. Use it with WithCallerExtractor only behind a
// proxy that authenticates clients and sets the header itself.
func HeaderCaller(r *http.Request) (Address, error) {
	h := r.Header.Get(CallerHeader)
	if h == "" {
		return Address{}, ErrNoCaller
	}
	if !common.IsHexAddress(h) {
		return Address{}, NewError(ErrNoCaller, "malformed caller address")
	}
	caller := common.HexToAddress(h)
	if caller == (Address{}) {
		return Address{}, NewError(ErrNoCaller, "zero caller address")
	}
	return caller, nil
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	http.Error(w, http.StatusText(status), status)
}

// StatusCode maps nftkit errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoCaller), errors.Is(err, ErrInvalidSignature):
		return http.StatusUnauthorized
	case IsUnauthorized(err):
		return http.StatusForbidden
	case IsInvalidRecipient(err), IsInvalidRole(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RequireRole creates middleware that requires the caller to hold role.
// The check is advisory: ledger operations authorize again on their own.
//
// Example:
//
//	router.With(mw.RequireRole(nftkit.MinterRole)).Post("/tokens", mintHandler)
func (m *Middleware) RequireRole(role Role) func(http.Handler) http.Handler {
	return m.RequireAnyRole(role)
}

// RequireAnyRole creates middleware that requires any of the specified roles.
func (m *Middleware) RequireAnyRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := m.getCaller(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			checker := NewChecker(caller, m.roles)
			if !checker.HasAnyRole(roles...) {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing required role").WithCaller(caller))
				return
			}

			ctx := WithChecker(WithCaller(r.Context(), caller), checker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadChecker creates middleware that loads the caller's Checker into context.
// Requests without a caller continue without one.
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := m.getCaller(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithChecker(WithCaller(r.Context(), caller), NewChecker(caller, m.roles))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context for the audit log. The IP is
// r.RemoteAddr; forwarding headers are left to middleware such as chi's
// RealIP. A request ID is generated when the client doesn't send one.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ctx = WithIPAddress(ctx, r.RemoteAddr)
			ctx = WithUserAgent(ctx, r.UserAgent())

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx = WithRequestID(ctx, requestID)
			w.Header().Set("X-Request-ID", requestID)

			if caller, err := m.getCaller(r); err == nil {
				ctx = WithCaller(ctx, caller)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
