package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/billforge/backend/internal/application/billing"
	docapp "github.com/billforge/backend/internal/application/document"
	identityapp "github.com/billforge/backend/internal/application/identity"
	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/infrastructure/auth"
	"github.com/billforge/backend/internal/infrastructure/cache"
	"github.com/billforge/backend/internal/infrastructure/config"
	"github.com/billforge/backend/internal/infrastructure/event"
	identityinfra "github.com/billforge/backend/internal/infrastructure/identity"
	"github.com/billforge/backend/internal/infrastructure/logger"
	"github.com/billforge/backend/internal/infrastructure/payment"
	"github.com/billforge/backend/internal/infrastructure/persistence"
	"github.com/billforge/backend/internal/infrastructure/telemetry"
	"github.com/billforge/backend/internal/interfaces/http/handler"
	"github.com/billforge/backend/internal/interfaces/http/middleware"
	"github.com/billforge/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/billforge/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const version = "1.0.0"

//	@title			Billing API
//	@version		1.0
//	@description	Plans, entitlements, payment orders and metered documents
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/billforge/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@securityDefinitions.apikey	APIKeyAuth
//	@in							header
//	@name						X-API-Key

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.ConfigFromApp(cfg.Telemetry)

	// Log bridge first so every later entry is exported
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log, err := logger.New(logCfg, logProvider.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting billing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfigFromApp(cfg.Telemetry), log)
	if err != nil {
		log.Warn("Continuous profiling disabled", zap.Error(err))
	} else if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link spans to profiles", zap.Error(err))
		}
	}

	// Database with tracing and metrics plugins
	dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("billing/db"), telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Fatal("Failed to initialize database metrics", zap.Error(err))
	}
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPlugins(
			telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFromApp(cfg.Telemetry), log),
			telemetry.NewDBMetricsPlugin(dbMetrics, log),
		),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if sqlDB, err := db.DB.DB(); err == nil {
		dbMetrics.SetSQLDB(sqlDB)
		dbMetrics.StartPoolStatsCollection(ctx)
	}
	defer dbMetrics.Stop()
	log.Info("Database connected successfully")

	// Redis is optional; every consumer has an in-process fallback
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			if cfg.App.IsProduction() {
				log.Fatal("Failed to connect to Redis", zap.Error(err))
			}
			log.Warn("Redis unavailable, using in-memory fallbacks", zap.Error(err))
			redisClient = nil
		} else {
			defer func() {
				_ = redisClient.Close()
			}()
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	billingMetrics := newBillingMetrics(meterProvider, log)

	// Repositories
	planRepo := newPlanStore(ctx, db.DB, redisClient, cfg.Cache, log)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	orderRepo := persistence.NewGormPaymentOrderRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	apiKeyRepo := persistence.NewGormAPIKeyRepository(db.DB)

	// External collaborators
	httpProvider, err := identityinfra.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.APIKey, cfg.Identity.Timeout,
		identityinfra.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to configure identity provider", zap.Error(err))
	}
	identityProvider := identityinfra.NewCachedProvider(httpProvider, cfg.Identity.CacheSize, cfg.Identity.CacheTTL)

	gateway, err := payment.NewRazorpayAdapter(payment.ConfigFromApp(cfg.Payment), payment.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to configure payment gateway", zap.Error(err))
	}
	log.Info("Payment gateway configured", zap.String("key_id", gateway.PublicKeyID()))

	// Token revocation
	var blacklist auth.TokenBlacklist
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient, cfg.Cache.KeyPrefix+"jwt:")
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}
	jwtService := auth.NewJWTService(cfg.JWT)

	// Event bus and identity event handlers
	eventBus := event.NewInMemoryEventBus(log)
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(redisClient,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix+"idem:"),
		cache.WithLocalLimits(cfg.Cache.LocalSize, cfg.Cache.IdempotencyTTL),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	identityHandlers := []*event.IdempotentHandler{
		event.NewIdempotentHandler("session-changed",
			identityapp.NewSessionChangedHandler(identityProvider, log), idempotencyStore, log),
		event.NewIdempotentHandler("sign-out",
			identityapp.NewSignOutHandler(auth.NewUserTokenRevoker(blacklist, cfg.JWT.AccessTokenExpiration), log),
			idempotencyStore, log),
	}
	for _, h := range identityHandlers {
		eventBus.Subscribe(h, h.EventTypes()...)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	planCatalog := billingapp.NewPlanCatalogService(planRepo, cfg.Billing.DefaultPlanID, log)
	subscriptions := billingapp.NewSubscriptionService(subscriptionRepo, identityProvider, cfg.Billing.DefaultPlanID, log)
	usageMeter := billingapp.NewUsageMeterService(documentRepo, log)
	entitlements := billingapp.NewEntitlementResolver(billingapp.EntitlementResolverConfig{
		Plans:         planRepo,
		Usage:         usageMeter,
		Assignments:   subscriptions,
		DefaultPlanID: cfg.Billing.DefaultPlanID,
		Logger:        log,
	})
	paymentOrders := billingapp.NewPaymentOrderService(billingapp.PaymentOrderServiceConfig{
		Plans:     planRepo,
		Orders:    orderRepo,
		Gateway:   gateway,
		KeySecret: cfg.Payment.KeySecret,
		Metrics:   billingMetrics,
		Logger:    log,
	})
	transitions := billingapp.NewPlanTransitionCoordinator(billingapp.PlanTransitionCoordinatorConfig{
		Plans:     planRepo,
		Subs:      subscriptionRepo,
		Provider:  identityProvider,
		Publisher: eventBus,
		Metrics:   billingMetrics,
		Logger:    log,
	})
	documents := docapp.NewDocumentService(docapp.DocumentServiceConfig{
		Repo:         documentRepo,
		Entitlements: entitlements,
		Publisher:    eventBus,
		Quota:        billingMetrics,
		Logger:       log,
	})
	apiKeys := identityapp.NewAPIKeyService(apiKeyRepo, log)
	sessionWebhook := identityapp.NewSessionWebhookService(cfg.Identity.WebhookSecret, eventBus, log)

	// Handlers
	healthChecks := map[string]handler.HealthCheck{"database": db.Ping}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	handlers := router.Handlers{
		System:   handler.NewSystemHandler(cfg.App.Name, version, healthChecks),
		Plan:     handler.NewPlanHandler(planCatalog),
		Billing:  handler.NewBillingHandler(entitlements, paymentOrders, transitions),
		Document: handler.NewDocumentHandler(documents),
		APIKey:   handler.NewAPIKeyHandler(apiKeys),
		Webhook:  handler.NewIdentityWebhookHandler(sessionWebhook),
	}

	authenticate := middleware.Authenticate(middleware.AuthConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		APIKeys:        apiKeys,
		Logger:         log,
	})
	guards := router.Guards{
		Authenticate:    authenticate,
		RequireAdmin:    middleware.RequireAdmin(log),
		AdvancedReports: middleware.RequireFeature(entitlements, billing.FeatureAdvancedReports, log),
		APIAccess:       middleware.RequireFeature(entitlements, billing.FeatureAPIAccess, log),
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. RequestID so every later layer can log and tag it
	// 2. Logger and Recovery
	// 3. Tracing, span enrichment, error marking
	// 4. HTTP metrics and profiling labels
	// 5. CORS, security headers, body limit, rate limit
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, "/health"))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.Enabled,
		Logger:        log,
	}))
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.ProfilingWithConfig(middleware.DefaultProfilingConfig()))
	}
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine.GET("/health", handlers.System.Health)

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:     cfg.Swagger.Enabled,
				RequireAuth: cfg.Swagger.RequireAuth,
				AllowedIPs:  cfg.Swagger.AllowedIPs,
			}, authenticate),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	for _, group := range router.BillingGroups(handlers, guards) {
		r.Register(group)
	}
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
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	cancel()

	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus stop failed", zap.Error(err))
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			log.Warn("Profiler stop failed", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		bootLog.Warn("Log exporter shutdown failed", zap.Error(err))
	}
}

// newPlanStore wraps the plan table in the tiered cache. Without Redis the
// cache is process-local and invalidation stays in-process.
func newPlanStore(ctx context.Context, db *gorm.DB, client *redis.Client, cfg config.CacheConfig, log *zap.Logger) *cache.TieredPlanCache {
	opts := []cache.TieredPlanCacheOption{
		cache.WithPlanCacheConfig(cache.PlanCacheConfig{
			LocalSize: cfg.LocalSize,
			LocalTTL:  cfg.LocalTTL,
			RemoteTTL: cfg.PlanTTL,
			KeyPrefix: cfg.KeyPrefix + "plans:",
		}),
		cache.WithPlanCacheLogger(log),
	}
	if client != nil {
		opts = append(opts,
			cache.WithRemote(client),
			cache.WithInvalidator(cache.NewPlanCacheInvalidator(client, cache.WithInvalidatorLogger(log))),
		)
	}

	plans := cache.NewTieredPlanCache(persistence.NewGormPlanRepository(db), opts...)
	if client != nil {
		if err := plans.StartInvalidationSubscription(ctx); err != nil {
			log.Warn("Plan cache invalidation subscription failed", zap.Error(err))
		}
	}
	return plans
}

// newBillingMetrics returns nil when the instruments cannot be registered so
// services fall back to their no-op recorder.
func newBillingMetrics(mp *telemetry.MeterProvider, log *zap.Logger) billingapp.MetricsRecorder {
	m, err := telemetry.NewBillingMetrics(mp.Meter("billing"), log)
	if err != nil {
		log.Warn("Billing metrics disabled", zap.Error(err))
		return nil
	}
	return m
}
