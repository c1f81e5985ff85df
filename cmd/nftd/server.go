package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"

	"github.com/fernandezvara/nftkit"
	"github.com/fernandezvara/nftkit/httpapi"
)

// NewRouter assembles the middleware chain, the ledger routes, health and metrics.
// Callers are authenticated by request signature unless cfg.TrustCallerHeader
// is set. A nil backend means the in-memory audit log.
func NewRouter(cfg *Config, logger *slog.Logger, ledger *nftkit.TokenLedger, b *backend) http.Handler {
	if b == nil {
		b = &backend{}
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(nftkit.NewCollector(ledger))

	handler := httpapi.NewHandler(ledger, logger)

	var mwOpts []nftkit.MiddlewareOption
	authn := []func(http.Handler) http.Handler{}
	if cfg.TrustCallerHeader {
		logger.Warn("trusting caller header without signature verification")
		mwOpts = append(mwOpts, nftkit.WithCallerExtractor(nftkit.HeaderCaller))
	} else {
		verifierOpts := []nftkit.VerifierOption{nftkit.WithSignatureMaxAge(cfg.SignatureMaxAge)}
		if b.nonces != nil {
			verifierOpts = append(verifierOpts, nftkit.WithNonceStore(b.nonces))
		}
		authn = append(authn, nftkit.NewSignatureVerifier(verifierOpts...).Authenticate(handler.WriteError))
	}
	mw := nftkit.NewMiddleware(ledger.Roles(), mwOpts...)

	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(cfg.RequestTimeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ledger.Monitor().IsHealthy() || (b.health != nil && !b.health(r)) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(cfg.RateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Use(authn...)
		r.Use(mw.InjectAuditContext())
		handler.Mount(r)
	})

	return r
}
