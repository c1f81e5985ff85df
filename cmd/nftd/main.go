// Command nftd serves a single NFT collection over HTTP.
//
// Configuration comes from NFTD_* environment variables; see Config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fernandezvara/dbkit"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fernandezvara/nftkit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("nftd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	deployer := common.HexToAddress(cfg.Deployer)
	deployCtx := nftkit.WithCaller(ctx, deployer)

	ledger, err := nftkit.NewTokenLedger(deployCtx, cfg.Name, cfg.Symbol, cfg.BaseURI,
		nftkit.WithLogger(logger), nftkit.WithAuditLogger(b.audit))
	if err != nil {
		return fmt.Errorf("deploy ledger: %w", err)
	}

	for _, m := range cfg.Minters {
		if err := ledger.GrantRole(deployCtx, nftkit.MinterRole, common.HexToAddress(m)); err != nil {
			return fmt.Errorf("grant minter %s: %w", m, err)
		}
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewRouter(cfg, logger, ledger, b),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// backend is the storage nftd runs against. health is nil for backends without
// an external dependency; nonces is nil when used nonces stay in memory.
type backend struct {
	audit  nftkit.AuditLogger
	nonces nftkit.NonceStore
	health func(*http.Request) bool
	close  func()
}

// openBackend connects the configured audit backend. The Redis backend also
// keeps used request nonces, so replicas reject each other's replays.
func openBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*backend, error) {
	switch cfg.AuditBackend {
	case "postgres":
		db, err := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		audit := nftkit.NewDatabaseAuditLog(db)
		result, err := db.Migrate(ctx, audit.Migrations())
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		for _, m := range result.Applied {
			logger.Info("applied migration", slog.String("id", m.ID))
		}
		return &backend{
			audit:  audit,
			health: func(r *http.Request) bool { return audit.IsHealthy(r.Context()) },
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("postgres close", slog.Any("error", err))
				}
			},
		}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return &backend{
			audit:  nftkit.NewRedisAuditLog(client, cfg.RedisStream, cfg.RedisStreamMax),
			nonces: nftkit.NewRedisNonceStore(client, ""),
			health: func(r *http.Request) bool { return client.Ping(r.Context()).Err() == nil },
			close: func() {
				if err := client.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			},
		}, nil

	default:
		return &backend{audit: nftkit.NewMemoryAuditLog(), close: func() {}}, nil
	}
}
