package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/josh-kwaku/bank-ledger/api"
	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/config"
	"github.com/josh-kwaku/bank-ledger/internal/events"
	"github.com/josh-kwaku/bank-ledger/internal/handler"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/middleware"
	"github.com/josh-kwaku/bank-ledger/internal/ratelimit"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
	"github.com/josh-kwaku/bank-ledger/internal/service"
	"github.com/josh-kwaku/bank-ledger/internal/service/directory"
	"github.com/josh-kwaku/bank-ledger/internal/service/history"
	"github.com/josh-kwaku/bank-ledger/internal/service/ledger"
	"github.com/josh-kwaku/bank-ledger/internal/worker"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

const apiPrefix = "/api/v1"

type publisher interface {
	Publish(ctx context.Context, e events.Event) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("bank-ledger", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		ConnectAttempts:  cfg.DBConnectAttempts,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pub, err := newPublisher(cfg)
	if err != nil {
		logger.Error("failed to connect to message broker", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		logger.Error("failed to configure redis", "error", err)
		os.Exit(1)
	}

	var limiterClient redis.UniversalClient
	checks := []handler.Check{{Name: "postgres", Ping: db.PingContext}}
	if redisClient != nil {
		defer redisClient.Close()
		limiterClient = redisClient
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	limiter := ratelimit.New(limiterClient, "ledger:rate_limit", cfg.RateLimitPerMinute, time.Minute)
	if !limiter.Enabled() {
		logger.Info("rate limiting disabled")
	}

	accountRepo := repository.NewAccountRepository(db)
	userRepo := repository.NewUserRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	boletoRepo := repository.NewBoletoRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	passwords := auth.NewBcryptVerifier(cfg.BcryptCost)

	ledgerService := ledger.NewService(accountRepo, transferRepo, boletoRepo, userRepo, passwords, pub, db)
	historyService := history.NewService(accountRepo, transferRepo)
	directoryService := directory.NewService(accountRepo)
	userService := service.NewUserService(userRepo, accountRepo, passwords, db, service.TokenConfig{
		Secret: cfg.JWTSecret,
		Expiry: cfg.JWTExpiry,
	})

	routes := routes{
		transactions: handler.NewTransactionHandler(ledgerService, historyService),
		boletos:      handler.NewBoletoHandler(ledgerService),
		accounts:     handler.NewAccountHandler(directoryService),
		users:        handler.NewUserHandler(userService),
		login:        handler.NewAuthHandler(userService),
		health:       handler.NewHealthHandler(version, checks...),
		requireAuth:  middleware.Auth(cfg.JWTSecret),
		idempotent:   middleware.Idempotency(idempotencyRepo, cfg.IdempotencyTTL),
		limiter:      limiter,
	}

	var h http.Handler = routes.mux()
	h = middleware.CORS(cfg.CORSAllowedOrigins)(h)
	h = middleware.Recovery(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Tracing(h)
	h = otelhttp.NewHandler(h, "bank-ledger")

	scheduler := worker.NewScheduler(logger)
	cleanup := worker.NewIdempotencyCleanup(idempotencyRepo, logger)
	if err := scheduler.Add("idempotency-cleanup", cfg.CleanupSchedule, cleanup.Run); err != nil {
		logger.Error("failed to schedule idempotency cleanup", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled jobs still running at shutdown")
	}
	logger.Info("server stopped")
}

func newPublisher(cfg *config.Config) (publisher, error) {
	if cfg.AMQPURL == "" {
		return events.Noop{}, nil
	}
	return events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
}

// newRedisClient returns nil when REDIS_URL is unset.
func newRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("newRedisClient: %w", err)
	}
	return redis.NewClient(opts), nil
}

type routes struct {
	transactions *handler.TransactionHandler
	boletos      *handler.BoletoHandler
	accounts     *handler.AccountHandler
	users        *handler.UserHandler
	login        *handler.AuthHandler
	health       *handler.HealthHandler

	requireAuth func(http.Handler) http.Handler
	idempotent  func(http.Handler) http.Handler
	limiter     *ratelimit.Limiter
}

func (rt routes) mux() http.Handler {
	v1 := http.NewServeMux()

	public := func(pattern string, h http.HandlerFunc) {
		v1.Handle(pattern, h)
	}
	protected := func(pattern string, h http.HandlerFunc) {
		v1.Handle(pattern, rt.requireAuth(h))
	}
	// Mutations that carry an account credential: authenticated, rate
	// limited per route and replayable under an Idempotency-Key.
	credentialed := func(pattern, scope string, h http.HandlerFunc) {
		v1.Handle(pattern, rt.requireAuth(middleware.RateLimit(rt.limiter, scope)(rt.idempotent(h))))
	}

	public("GET /health/live", rt.health.Liveness)
	public("GET /health/ready", rt.health.Readiness)
	public("GET /docs", handler.ServeDocs(apiPrefix+"/docs/openapi.yaml"))
	public("GET /docs/openapi.yaml", handler.ServeSpec(api.Spec))

	v1.Handle("POST /auth/login", middleware.RateLimit(rt.limiter, "login")(http.HandlerFunc(rt.login.Login)))
	public("POST /users", rt.users.Create)

	protected("GET /users/{id}", rt.users.Get)
	protected("PATCH /users/{id}", rt.users.Update)
	protected("DELETE /users/{id}", rt.users.Delete)
	protected("GET /users/{id}/account", rt.users.GetAccount)

	protected("GET /accounts", rt.accounts.List)

	credentialed("POST /transactions/deposit", "deposit", rt.transactions.Deposit)
	credentialed("POST /transactions/withdraw", "withdraw", rt.transactions.Withdraw)
	credentialed("POST /transactions/transfer", "transfer", rt.transactions.Transfer)
	v1.Handle("POST /transactions/balance",
		rt.requireAuth(middleware.RateLimit(rt.limiter, "balance")(http.HandlerFunc(rt.transactions.Balance))))
	protected("GET /transactions/{accountNumber}/transfers", rt.transactions.TransferHistory)
	protected("GET /transactions/{accountNumber}/transfers/last", rt.transactions.LastTransfer)

	v1.Handle("POST /boletos", rt.requireAuth(rt.idempotent(http.HandlerFunc(rt.boletos.Create))))
	v1.Handle("POST /boletos/{documentNumber}/pay", rt.requireAuth(rt.idempotent(http.HandlerFunc(rt.boletos.Pay))))

	root := http.NewServeMux()
	root.Handle(apiPrefix+"/", http.StripPrefix(apiPrefix, v1))
	return root
}
