package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	contractapp "github.com/finadmin/backend/internal/application/contract"
	financeapp "github.com/finadmin/backend/internal/application/finance"
	fxapp "github.com/finadmin/backend/internal/application/fx"
	"github.com/finadmin/backend/internal/domain/finance"
	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/infrastructure/cache"
	"github.com/finadmin/backend/internal/infrastructure/config"
	"github.com/finadmin/backend/internal/infrastructure/event"
	"github.com/finadmin/backend/internal/infrastructure/exchangerate"
	"github.com/finadmin/backend/internal/infrastructure/logger"
	"github.com/finadmin/backend/internal/infrastructure/persistence"
	"github.com/finadmin/backend/internal/infrastructure/scheduler"
	"github.com/finadmin/backend/internal/infrastructure/storage"
	"github.com/finadmin/backend/internal/infrastructure/telemetry"
	"github.com/finadmin/backend/internal/interfaces/http/handler"
	"github.com/finadmin/backend/internal/interfaces/http/middleware"
	"github.com/finadmin/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			AP/AR Core API
//	@version		1.0
//	@description	Multi-currency payables, receivables and recurring contracts with USD normalization
//	@BasePath		/api/v1

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// OpenTelemetry providers
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	// Application logger also ships records to the collector when telemetry is on
	log, err := logger.New(logCfg, logger.WithCore(loggerProvider.ZapCore(logger.ParseLevel(cfg.Log.Level))))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting AP/AR core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbCfg := telemetry.DefaultDBConfig()
	dbCfg.TracingEnabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbCfg.DBName = cfg.Database.DBName
	if err := telemetry.InstrumentDB(db.DB, dbCfg, meterProvider, log); err != nil {
		log.Warn("Failed to instrument database", zap.Error(err))
	}

	// Repositories
	rateRepo := persistence.NewGormFxRateRepository(db.DB)
	entryRepo := persistence.NewGormLedgerEntryRepository(db.DB)
	settlementRepo := persistence.NewGormSettlementRecordRepository(db.DB)
	contractRepo := persistence.NewGormContractRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Rate cache: Redis when configured, in-memory otherwise
	rateCache, err := cache.NewRateCacheFactory(cfg.FX, cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to create rate cache", zap.Error(err))
	}
	defer func() {
		if err := rateCache.Close(); err != nil {
			log.Error("Error closing rate cache", zap.Error(err))
		}
	}()

	// Upstream exchange-rate API
	feedCfg := exchangerate.NewConfig(cfg.FX.APIURL, cfg.FX.APIKey)
	if cfg.FX.ProviderName != "" {
		feedCfg.ProviderName = cfg.FX.ProviderName
	}
	if cfg.FX.HTTPTimeout > 0 {
		feedCfg.Timeout = cfg.FX.HTTPTimeout
	}
	feed, err := exchangerate.NewClient(feedCfg, log)
	if err != nil {
		log.Fatal("Failed to create exchange-rate client", zap.Error(err))
	}

	// Raw snapshot archive
	var archiver fx.SnapshotArchiver = storage.NoopArchiver{}
	if cfg.FX.ArchiveRaw && cfg.Storage.Enabled() {
		s3Archiver, err := storage.NewS3SnapshotArchiver(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create snapshot archiver", zap.Error(err))
		}
		archiver = s3Archiver
		log.Info("Raw rate snapshots archived to object storage", zap.String("bucket", cfg.Storage.Bucket))
	}

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewLogHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Business metrics
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:    meterProvider.Meter("finadmin/business"),
		Logger:   log,
		Provider: telemetry.NewGormLedgerMetricsProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	businessMetrics.StartPeriodicCollection(metricsCtx, time.Minute)

	// Application services
	rateProvider := fxapp.NewRateProvider(rateRepo, feed, rateCache,
		fxapp.WithArchiver(archiver),
		fxapp.WithMetrics(businessMetrics),
		fxapp.WithLogger(log),
		fxapp.WithFallbackTable(fx.FallbackTable),
	)
	conversionService := fxapp.NewConversionService(rateProvider, cfg.FX.RateScale)
	refreshService := fxapp.NewRefreshService(rateRepo, feed, rateCache,
		fxapp.WithRefreshArchiver(archiver),
		fxapp.WithRefreshPublisher(eventBus),
		fxapp.WithRefreshLogger(log),
	)
	ledgerService := financeapp.NewLedgerService(entryRepo, settlementRepo, txScope, conversionService,
		financeapp.WithLedgerPublisher(eventBus),
		financeapp.WithLedgerLogger(log),
	)
	settlementService := financeapp.NewSettlementService(entryRepo, settlementRepo, txScope, conversionService,
		financeapp.WithSettlementPublisher(eventBus),
		financeapp.WithSettlementMetrics(businessMetrics),
		financeapp.WithSettlementLogger(log),
	)
	contractService := contractapp.NewContractService(contractRepo, txScope, conversionService,
		contractapp.WithPublisher(eventBus),
		contractapp.WithBillingDueDays(cfg.Scheduler.BillingDueDays),
		contractapp.WithLogger(log),
	)

	// Background jobs: daily rate refresh, reconciliation and contract billing
	var jobScheduler *scheduler.Scheduler
	var cronTrigger *scheduler.CronTrigger
	if cfg.Scheduler.Enabled {
		dispatcher := scheduler.NewDefaultDispatcher(refreshService, settlementService, contractService, log)
		jobScheduler = scheduler.NewScheduler(scheduler.ConfigFrom(cfg.Scheduler), dispatcher, log)
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		cronTrigger = scheduler.NewCronTrigger(
			scheduler.DailySchedules(cfg.Scheduler, entryRepo, contractRepo),
			jobScheduler, time.Minute, log,
		)
		if err := cronTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		log.Info("Scheduler started",
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	// HTTP handlers
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if pinger, ok := rateCache.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = pinger.Ping
	}
	handlers := router.Handlers{
		FX:          handler.NewFXHandler(rateProvider, conversionService, refreshService),
		Payables:    handler.NewLedgerHandler(finance.EntryKindPayable, ledgerService, settlementService),
		Receivables: handler.NewLedgerHandler(finance.EntryKindReceivable, ledgerService, settlementService),
		Settlements: handler.NewSettlementHandler(settlementService),
		Contracts:   handler.NewContractHandler(contractService),
		System:      handler.NewSystemHandler(version, checks),
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Server spans
	// 5. Metrics - Request count and latency
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Logger:        log,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		go cleanupRateLimiter(metricsCtx, rateLimiter, cfg.HTTP.RateLimitWindow)
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.Tenant(), middleware.TracingAttributeInjector(), middleware.SpanErrorMarker())
	router.RegisterAPI(r, handlers)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if cronTrigger != nil {
		if err := cronTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping cron trigger", zap.Error(err))
		}
	}
	if jobScheduler != nil {
		if err := jobScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	businessMetrics.Stop()

	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logger": loggerProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry provider", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// cleanupRateLimiter drops idle buckets once per window until ctx ends
func cleanupRateLimiter(ctx context.Context, rl *middleware.RateLimiter, window time.Duration) {
	if window <= 0 {
		window = time.Minute
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}
