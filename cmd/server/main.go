package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	_ "github.com/marketplace/backend/docs"
	cartapp "github.com/marketplace/backend/internal/application/cart"
	catalogapp "github.com/marketplace/backend/internal/application/catalog"
	identityapp "github.com/marketplace/backend/internal/application/identity"
	reportapp "github.com/marketplace/backend/internal/application/report"
	tradeapp "github.com/marketplace/backend/internal/application/trade"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/cache"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/event"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/infrastructure/migration"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"github.com/marketplace/backend/internal/infrastructure/printing"
	"github.com/marketplace/backend/internal/infrastructure/storage"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"github.com/marketplace/backend/internal/interfaces/http/router"
	"github.com/marketplace/backend/migrations"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Marketplace API
//	@version		1.0
//	@description	Two-sided marketplace: sellers list products, clients fill a cart and check out.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- telemetry ----

	otelProviders, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Traces:         cfg.Telemetry.Enabled,
		SamplingRatio:  cfg.Telemetry.SamplingRatio,
		Metrics:        cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		ExportInterval: cfg.Telemetry.MetricsInterval,
		Logs:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = otelProviders.Tee(log, zapcore.InfoLevel)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPass,
		MutexProfileRate:  cfg.Profiling.MutexProfileRate,
		BlockProfileRate:  cfg.Profiling.BlockProfileRate,
	}, log)
	if err != nil {
		log.Warn("Profiler unavailable", zap.Error(err))
	}
	if profiler != nil && profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		otelProviders.EnableSpanProfiles()
	}

	log.Info("Starting marketplace backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// ---- storage ----

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	dbOpts := []persistence.Option{persistence.WithLogger(gormLog)}
	if !cfg.Database.PreparedStmts {
		dbOpts = append(dbOpts, persistence.WithoutPreparedStatements())
	}
	db, err := persistence.Open(ctx, &cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}

	meter := otelProviders.Meter("marketplace")
	dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Warn("Database metrics disabled", zap.Error(err))
	} else {
		if err := dbMetrics.Instrument(db.DB); err != nil {
			log.Warn("Failed to instrument database", zap.Error(err))
		}
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	stores := cache.NewStoreFactory(redisClient, cache.WithLogger(log))

	var tokenBlacklist auth.TokenBlacklist
	if redisClient != nil {
		tokenBlacklist = auth.NewRedisTokenBlacklist(redisClient)
	} else {
		log.Warn("Redis disabled, token revocation is local to this instance")
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	}

	imageStorage := newImageStorage(ctx, cfg, log)

	// ---- events ----

	eventCodec := event.NewMarketplaceCodec()
	outboxPublisher := event.NewOutboxPublisher(eventCodec)
	outboxRepo := event.NewGormOutboxRepository(db.DB).WithClaimLease(cfg.Outbox.ClaimLease)
	eventBus := event.NewInMemoryEventBus(log)

	// ---- repositories and services ----

	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	sellerReportRepo := persistence.NewGormSellerReportRepository(db.DB)

	jwtService := auth.NewJWTService(cfg.JWT)

	authService := identityapp.NewAuthService(userRepo, jwtService, tokenBlacklist, log)
	authService.SetEventPublisher(eventBus)
	accountService := identityapp.NewAccountService(
		persistence.NewGormAccountTransactionScope(db.DB, outboxPublisher),
		tokenBlacklist,
		cfg.JWT.RefreshTokenExpiration,
		log,
	)

	productService := catalogapp.NewProductService(productRepo,
		catalogapp.WithProductCache(stores.ProductCache(5*time.Minute)),
		catalogapp.WithImageStorage(imageStorage, cfg.Storage.MaxImageSize),
		catalogapp.WithImportLimits(cfg.Import.MaxRows, cfg.Import.MaxErrors),
	)
	productService.SetEventPublisher(eventBus)

	cartService := cartapp.NewCartService(cartRepo, productRepo)

	checkoutService := tradeapp.NewCheckoutService(
		persistence.NewGormCheckoutTransactionScope(db.DB, outboxPublisher),
		tradeapp.WithIdempotencyStore(stores.IdempotencyStore("checkout:"), cfg.Checkout.IdempotencyTTL),
	)
	orderService := tradeapp.NewOrderService(orderRepo, productRepo)
	receipts := printing.NewReceiptRenderer(newPrinter(cfg, log), log)
	defer func() {
		if err := receipts.Close(); err != nil {
			log.Error("Error closing receipt printer", zap.Error(err))
		}
	}()
	receiptService := tradeapp.NewReceiptService(orderRepo, productRepo, userRepo, receipts, log)

	dashboardService := reportapp.NewDashboardService(sellerReportRepo, productRepo, log)

	// ---- event handlers ----

	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:           meter,
		Logger:          log,
		CatalogProvider: telemetry.NewGormCatalogMetricsProvider(db.DB),
	})
	if err != nil {
		log.Warn("Business metrics disabled", zap.Error(err))
	} else {
		businessMetrics.StartPeriodicCollection(ctx)
		defer businessMetrics.Stop()
	}

	handlers := []shared.EventHandler{
		catalogapp.NewSellerDeactivatedHandler(productService, log),
		tradeapp.NewOrderPlacedLogHandler(log),
	}
	if businessMetrics != nil {
		handlers = append(handlers, tradeapp.NewOrderPlacedMetricsHandler(businessMetrics, log))
	}
	for _, h := range event.WrapHandlersWithIdempotency(handlers, stores.IdempotencyStore("events:"), log) {
		eventBus.Subscribe(h)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Outbox.ProcessorEnabled {
		outboxCfg := event.DefaultOutboxProcessorConfig()
		if cfg.Outbox.BatchSize > 0 {
			outboxCfg.BatchSize = cfg.Outbox.BatchSize
		}
		if cfg.Outbox.PollInterval > 0 {
			outboxCfg.PollInterval = cfg.Outbox.PollInterval
		}
		if cfg.Outbox.MaxAttempts > 0 {
			outboxCfg.MaxAttempts = cfg.Outbox.MaxAttempts
		}
		outboxCfg.CleanupEnabled = cfg.Outbox.CleanupEnabled
		if cfg.Outbox.CleanupRetention > 0 {
			outboxCfg.CleanupRetention = cfg.Outbox.CleanupRetention
		}
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, eventCodec, outboxCfg, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started", zap.Duration("poll_interval", outboxCfg.PollInterval))
	}

	// ---- HTTP ----

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	healthChecks := map[string]handler.HealthCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	server := router.NewServer(router.ServerOptions{
		HTTP:             cfg.HTTP,
		ServiceName:      cfg.Telemetry.ServiceName,
		SwaggerEnabled:   cfg.Swagger.Enabled,
		TracingEnabled:   otelProviders.Tracing(),
		ProfilingEnabled: profiler != nil && profiler.IsEnabled(),
		Meter:            meter,
		Logger:           log,
		Health:           handler.NewHealthHandler(version, healthChecks),
		Images:           imageHandler(imageStorage),
		Handlers: router.Handlers{
			Auth:      handler.NewAuthHandler(authService, accountService),
			Product:   handler.NewProductHandler(productService),
			Cart:      handler.NewCartHandler(cartService),
			Order:     handler.NewOrderHandler(checkoutService, orderService, receiptService),
			Dashboard: handler.NewDashboardHandler(dashboardService),
		},
		Authenticate: middleware.JWTAuth(middleware.JWTMiddlewareConfig{
			JWTService:     jwtService,
			Principals:     userRepo,
			TokenBlacklist: tokenBlacklist,
			Logger:         log,
		}),
	})
	defer server.Close()
	log.Info("Routes registered", zap.Int("count", len(server.Routes())))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        server.Engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Outbox processor stop failed", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus stop failed", zap.Error(err))
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			log.Error("Profiler stop failed", zap.Error(err))
		}
	}
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// applyMigrations runs on its own connection; the migrator closes it when done
func applyMigrations(dbCfg config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migration.Source{FS: migrations.FS, Dir: dbCfg.MigrationsDir}, log.Named("migrate"))
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

// newImageStorage returns S3 storage when configured, otherwise an in-process
// stub so uploads still work in development
func newImageStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) catalogapp.ImageStorage {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, product images are kept in memory")
		return storage.NewMemoryImages("http://localhost:" + cfg.App.Port + "/images")
	}
	s3, err := storage.NewS3Images(ctx, cfg.Storage, log.Named("storage"))
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		log.Fatal("Object storage bucket unavailable", zap.Error(err))
	}
	return s3
}

func imageHandler(images catalogapp.ImageStorage) http.Handler {
	if m, ok := images.(*storage.MemoryImages); ok {
		return m
	}
	return nil
}

// newPrinter returns nil when no Chrome is available; receipts then
// answer 503 for PDF and still render as HTML
func newPrinter(cfg *config.Config, log *zap.Logger) printing.Printer {
	chrome, err := printing.NewChrome(printing.ChromeConfig{
		Timeout:   cfg.Printing.Timeout,
		ExecPath:  cfg.Printing.ChromePath,
		RemoteURL: cfg.Printing.RemoteURL,
		NoSandbox: cfg.Printing.NoSandbox,
	}, log.Named("printing"))
	if err != nil {
		log.Warn("PDF receipts disabled", zap.Error(err))
		return nil
	}
	return chrome
}
