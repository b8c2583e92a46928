package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/fjod/storefront-checkout/internal/config"
	h "github.com/fjod/storefront-checkout/internal/http"
	"github.com/fjod/storefront-checkout/internal/location"
	"github.com/fjod/storefront-checkout/internal/logger"
	"github.com/fjod/storefront-checkout/internal/metrics"
	"github.com/fjod/storefront-checkout/internal/navstate"
	"github.com/fjod/storefront-checkout/internal/payment"
	"github.com/fjod/storefront-checkout/internal/publisher"
	"github.com/fjod/storefront-checkout/internal/repository"
	"github.com/fjod/storefront-checkout/internal/service"
	"github.com/fjod/storefront-checkout/internal/storage"
	"github.com/fjod/storefront-checkout/internal/storefront"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(lg)
	lg.Info("storefront checkout starting", "environment", cfg.Environment.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis: session keys and page state
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal(lg, "failed to connect to redis", err)
	}

	// MongoDB: guest carts
	mongoDB, err := storage.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.DBName)
	if err != nil {
		fatal(lg, "failed to connect to mongodb", err)
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			lg.Error("mongodb disconnect failed", "error", err)
		}
	}()
	localStore := storage.NewMongoLocalStore(mongoDB)
	if err := localStore.CreateIndexes(ctx); err != nil {
		fatal(lg, "failed to create guest cart indexes", err)
	}

	// Postgres: checkout ledger and outbox
	creds := &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.Name,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		fatal(lg, "failed to connect to database", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(creds); err != nil {
		fatal(lg, "failed to run migrations", err)
	}
	lg.Info("database migrations completed")

	m := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	api := storefront.NewClient(cfg.Storefront.BaseURL, cfg.Storefront.RequestTimeout, storefront.WithMetrics(m))
	confirmer := payment.NewStripeConfirmer(cfg.Stripe.SecretKey)

	checkoutService := service.NewCheckoutService(service.Dependencies{
		Repo:       repo,
		Session:    storage.NewRedisSessionStore(rdb, cfg.Redis.SessionTTL),
		Local:      localStore,
		Storefront: service.NewStorefrontHandler(api, cfg.Storefront.RequestTimeout),
		Payment:    service.NewPaymentHandler(confirmer, cfg.Stripe.RequestTimeout),
		Locations:  location.NewLoader(api, lg),
		Metrics:    m,
		Logger:     lg,
	})

	poller := publisher.NewOutboxPoller(publisher.Config{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		Timeout:      cfg.Storefront.RequestTimeout,
		EventTick:    cfg.Reconcile.EventTick,
		RecoveryTick: cfg.Reconcile.RecoveryTick,
		StuckAfter:   cfg.Reconcile.StuckAfter,
		MaxAttempts:  cfg.Reconcile.MaxAttempts,
		BatchSize:    cfg.Reconcile.BatchSize,
	}, repo, api, m, lg)
	defer poller.Close()
	go poller.Run(ctx)

	router := h.NewRouter(h.RouterConfig{
		Checkout:           h.NewCheckoutHandler(checkoutService, cfg.HTTP.RequestTimeout),
		PageState:          h.NewPageStateHandler(navstate.NewStore(rdb, cfg.Redis.PageStateTTL), cfg.HTTP.RequestTimeout),
		Metrics:            metrics.Handler(),
		JWTSecret:          cfg.Auth.JWTSecret,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxBodyBytes,
		ReadyChecks: map[string]func(context.Context) error{
			"postgres": repo.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"mongodb":  func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) },
		},
		Logger: lg,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(lg, "http server error", err)
		}
	}()

	// gRPC: health and reflection for orchestration checks
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPC.Port))
	if err != nil {
		fatal(lg, "failed to listen", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		lg.Info("grpc server listening", "port", cfg.GRPC.Port)
		if err := grpcServer.Serve(lis); err != nil {
			fatal(lg, "grpc server error", err)
		}
	}()

	<-ctx.Done()

	lg.Info("shutting down storefront checkout")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	lg.Info("storefront checkout stopped")
}

func fatal(lg *slog.Logger, msg string, err error) {
	lg.Error(msg, "error", err)
	os.Exit(1)
}
