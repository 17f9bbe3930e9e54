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

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/expense"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/reconcile"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logging.Configure(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage == "memory" {
		slog.Warn("Using in-memory storage; data is lost on restart")
		return memory.New(), nil
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Storage initialized", "database", cfg.DBPath)
	return store, nil
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	policy, err := settlement.ParsePolicy(cfg.OverpaymentPolicy)
	if err != nil {
		return err
	}

	l := ledger.New(store, ledger.WithVerification(cfg.VerifyWrites))
	recorder := expense.NewRecorder(l, store, store)
	processor := settlement.NewProcessor(l, store, store, policy)
	reconciler := reconcile.New(l, cfg.ReconcileConcurrency)
	svc := service.NewLedgerService(l, recorder, processor, reconciler, store)

	// Auth runs first so the logging interceptor sees the user ID.
	var interceptors []connect.Interceptor
	switch {
	case cfg.AuthEnabled() && cfg.AuthOptional:
		interceptors = append(interceptors, middleware.OptionalAuth(auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)))
	case cfg.AuthEnabled():
		interceptors = append(interceptors, middleware.RequireAuth(auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)))
	default:
		slog.Warn("JWT_SECRET not set; RPCs are unauthenticated")
	}
	interceptors = append(interceptors, middleware.LoggingInterceptor())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(newRouter(svc, cfg.CORSOrigins, interceptors...), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Connect server starting",
			"address", server.Addr,
			"overpayment_policy", processor.Policy(),
			"verify_writes", cfg.VerifyWrites,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.ReconcileInterval > 0 {
		g.Go(func() error {
			if err := reconciler.Run(ctx, cfg.ReconcileInterval); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("reconciler: %w", err)
			}
			return nil
		})
	}

	if cfg.AMQPEnabled() {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			events.WithRetry(cfg.AMQPMaxAttempts, cfg.AMQPRetryDelay))
		if err != nil {
			stop()
			g.Wait()
			return fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		defer client.Close()

		dispatcher := events.NewDispatcher(recorder, processor)
		g.Go(func() error {
			slog.Info("Event consumer started", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue,
				"max_attempts", cfg.AMQPMaxAttempts, "retry_delay", cfg.AMQPRetryDelay)
			if err := client.Run(ctx, dispatcher.Handle); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event consumer: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
