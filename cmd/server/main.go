package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/revenue-share-service/internal/adapters/database"
	"github.com/kevin07696/revenue-share-service/internal/adapters/gateway"
	"github.com/kevin07696/revenue-share-service/internal/adapters/postgres"
	"github.com/kevin07696/revenue-share-service/internal/adapters/secrets"
	"github.com/kevin07696/revenue-share-service/internal/config"
	"github.com/kevin07696/revenue-share-service/internal/handlers"
	balanceHandler "github.com/kevin07696/revenue-share-service/internal/handlers/balance"
	cronHandler "github.com/kevin07696/revenue-share-service/internal/handlers/cron"
	webhookHandler "github.com/kevin07696/revenue-share-service/internal/handlers/webhook"
	balanceService "github.com/kevin07696/revenue-share-service/internal/services/balance"
	ingestionService "github.com/kevin07696/revenue-share-service/internal/services/ingestion"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/internal/services/revenueshare"
	settlementService "github.com/kevin07696/revenue-share-service/internal/services/settlement"
	pkghttp "github.com/kevin07696/revenue-share-service/pkg/http"
	"github.com/kevin07696/revenue-share-service/pkg/logging"
	"github.com/kevin07696/revenue-share-service/pkg/middleware"
	"github.com/kevin07696/revenue-share-service/pkg/observability"
	"github.com/kevin07696/revenue-share-service/pkg/resilience"
	"github.com/kevin07696/revenue-share-service/pkg/shutdown"
)

const webhookPathPrefix = "/webhooks/gateway/"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.MustNew(logging.Options{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
		File:        cfg.Logger.File,
		MaxSizeMB:   cfg.Logger.MaxSizeMB,
		MaxBackups:  cfg.Logger.MaxBackups,
		MaxAgeDays:  cfg.Logger.MaxAgeDays,
	})
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting revenue share service",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("sync_enabled", cfg.Sync.Enabled),
		zap.String("secrets_backend", cfg.Secrets.Backend),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownManager := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)

	// Database
	dbConfig := database.DefaultPostgreSQLConfig(cfg.Database.URL())
	dbConfig.MaxConns = cfg.Database.MaxConns
	dbConfig.MinConns = cfg.Database.MinConns
	dbAdapter, err := database.NewPostgreSQLAdapter(ctx, dbConfig, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	shutdownManager.RegisterFunc("database", dbAdapter.Close)
	dbAdapter.StartPoolMonitoring(ctx, 30*time.Second)

	// Repositories
	agreements := postgres.NewAgreementRepository(dbAdapter)
	transactions := postgres.NewTransactionRepository(dbAdapter)
	links := postgres.NewSplitLinkRepository(dbAdapter)
	settlements := postgres.NewSettlementRepository(dbAdapter)
	payouts := postgres.NewPayoutRepository(dbAdapter)
	endpoints := postgres.NewWebhookEndpointRepository(dbAdapter)
	cursors := postgres.NewSyncCursorRepository(dbAdapter)

	// Webhook signing keys
	secretManager, err := secrets.New(ctx, secretsConfig(cfg.Secrets), logger)
	if err != nil {
		return fmt.Errorf("initialize secrets backend: %w", err)
	}

	// Gateway event feed
	timeouts := resilience.DefaultTimeoutConfig()
	timeouts.GatewayRequest = cfg.Gateway.Timeout

	gatewayConfig := gateway.DefaultClientConfig(cfg.Gateway.BaseURL, cfg.Gateway.APIKey)
	gatewayConfig.PageLimit = cfg.Sync.PageLimit
	gatewayConfig.MaxAttempts = cfg.Gateway.MaxAttempts
	gatewayConfig.Timeouts = timeouts
	gatewayClient := gateway.NewClient(
		gatewayConfig,
		pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(cfg.Sync.Concurrency), cfg.Gateway.Timeout),
		logging.NewZapLogger(logger).Named("gateway"),
	)

	// Services
	settlementSvc := settlementService.NewService(
		dbAdapter, dbAdapter, agreements, links, settlements,
		logging.NewZapLogger(logger).Named("settlement"),
	)
	revenueShare := revenueshare.NewService(
		dbAdapter, dbAdapter, agreements, transactions, links, settlementSvc,
		logging.NewZapLogger(logger).Named("revenue_share"),
	)
	balanceSvc := balanceService.NewService(
		dbAdapter, dbAdapter, links, payouts,
		logging.NewZapLogger(logger).Named("balance"),
	)
	ingestionSvc := ingestionService.NewService(
		dbAdapter, transactions, payouts, endpoints, cursors, gatewayClient, revenueShare,
		ingestionService.Config{
			PageLimit:      cfg.Sync.PageLimit,
			MaxPagesPerRun: cfg.Sync.MaxPagesPerRun,
			Concurrency:    cfg.Sync.Concurrency,
		},
		logging.NewZapLogger(logger).Named("ingestion"),
	)

	// HTTP
	webhookLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, webhookRateKey, logger)
	shutdownManager.RegisterFunc("webhook-rate-limiter", webhookLimiter.Shutdown)

	inFlight := shutdown.NewInFlightTracker("http", logger)

	router := handlers.NewRouter(handlers.RouterDeps{
		Webhook:        webhookHandler.NewHandler(endpoints, secretManager, ingestionSvc, timeouts, logger),
		Cron:           cronHandler.NewHandler(settlementSvc, ingestionSvc, revenueShare, timeouts, logger, cfg.Cron.Secret),
		Balance:        balanceHandler.NewHandler(balanceSvc, logger),
		WebhookLimiter: webhookLimiter,
		InFlight:       inFlight.Middleware,
		Logger:         logger,
	})

	healthChecker := observability.NewHealthChecker(map[string]observability.Pinger{"database": dbAdapter})
	metricsServer := observability.StartMetricsServer(
		fmt.Sprintf("%d", cfg.Server.MetricsPort),
		healthChecker,
		logger,
	)
	shutdownManager.Register("metrics-server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})

	if cfg.Server.GRPCHealthPort > 0 {
		grpcHealth, err := observability.StartGRPCHealthServer(
			fmt.Sprintf("%d", cfg.Server.GRPCHealthPort), healthChecker, 10*time.Second, logger,
		)
		if err != nil {
			return fmt.Errorf("start gRPC health server: %w", err)
		}
		shutdownManager.Register("grpc-health", grpcHealth.Shutdown)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Cron runs are long; their own contexts bound them
		WriteTimeout: timeouts.CronJob + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	shutdownManager.RegisterHTTPServer("http-server", server)
	shutdownManager.Register("http-in-flight", inFlight.Shutdown)

	// Periodic polling complements webhooks; a zero interval leaves sync to the cron endpoint
	if cfg.Sync.Enabled && cfg.Sync.Interval > 0 {
		syncWorker := shutdown.NewPeriodicWorker("gateway-sync", cfg.Sync.Interval, logger)
		syncWorker.Start(ctx, func(ctx context.Context) {
			runSync(ctx, ingestionSvc, timeouts, logger)
		})
		shutdownManager.Register("gateway-sync", syncWorker.Shutdown)
	}

	waitCtx, stopWaiting := context.WithCancel(ctx)
	defer stopWaiting()
	go func() {
		select {
		case err := <-serverErr:
			logger.Error("HTTP server failed", zap.Error(err))
			stopWaiting()
		case <-waitCtx.Done():
		}
	}()

	errs := shutdownManager.WaitForShutdown(waitCtx)
	if len(errs) > 0 {
		return fmt.Errorf("%d components failed to shut down", len(errs))
	}
	return nil
}

func runSync(ctx context.Context, svc serviceports.IngestionService, timeouts *resilience.TimeoutConfig, logger *zap.Logger) {
	ctx, cancel := timeouts.CronContext(ctx)
	defer cancel()

	result, err := svc.SyncAll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Scheduled gateway sync failed", zap.Error(err))
		}
		return
	}
	logger.Info("Scheduled gateway sync completed",
		zap.Int("merchants", result.Merchants),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
}

// webhookRateKey buckets webhook traffic by endpoint so one noisy merchant cannot starve others
func webhookRateKey(r *http.Request) string {
	if id := strings.TrimPrefix(r.URL.Path, webhookPathPrefix); id != r.URL.Path && id != "" {
		return "endpoint:" + id
	}
	return middleware.ClientIP(r)
}

func secretsConfig(cfg config.SecretsConfig) secrets.Config {
	out := secrets.Config{
		Backend:   cfg.Backend,
		LocalPath: cfg.LocalPath,
	}

	switch cfg.Backend {
	case secrets.BackendAWS:
		aws := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		aws.Profile = cfg.AWSProfile
		aws.Endpoint = cfg.AWSEndpoint
		aws.CacheTTL = cfg.CacheTTL
		out.AWS = aws
	case secrets.BackendVault:
		vault := secrets.DefaultVaultConfig(cfg.VaultAddress)
		vault.AuthMethod = cfg.VaultAuthMethod
		vault.Token = cfg.VaultToken
		vault.RoleID = cfg.VaultRoleID
		vault.SecretID = cfg.VaultSecretID
		vault.MountPath = cfg.VaultMountPath
		vault.CacheTTL = cfg.CacheTTL
		out.Vault = vault
	}
	return out
}
