package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/app"
	"github.com/pedalacom/catalog-api/internal/config"
	"github.com/pedalacom/catalog-api/internal/database"
	"github.com/pedalacom/catalog-api/internal/health"
	"github.com/pedalacom/catalog-api/internal/http/handler"
	"github.com/pedalacom/catalog-api/internal/http/middleware"
	"github.com/pedalacom/catalog-api/internal/http/router"
	"github.com/pedalacom/catalog-api/internal/observability"
	"github.com/pedalacom/catalog-api/internal/repository"
	"github.com/pedalacom/catalog-api/internal/security"
	"github.com/pedalacom/catalog-api/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideMinIOThumbnailStore,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewProductRepository,
	repository.NewCategoryRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	wire.Bind(new(middleware.AccessTokenParser), new(*security.JWTManager)),
)

var ServiceSet = wire.NewSet(
	service.NewRBACService,
	provideSearchCacheStore,
	provideThumbnailStore,
	provideProductService,
	wire.Bind(new(service.ProductService), new(*service.ProductServiceImpl)),
	wire.Bind(new(service.RBACAuthorizer), new(*service.RBACService)),
)

var HTTPSet = wire.NewSet(
	handler.NewProductHandler,
	handler.NewCategoryHandler,
	provideGlobalRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) Run() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	if m.cfg.SeedSampleData {
		if err := database.Seed(m.db); err != nil {
			return err
		}
	}
	fmt.Println("migration complete")
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if cfg.SeedSampleData {
		if err := database.Seed(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func redisRequired(cfg *config.Config) bool {
	return cfg.RateLimitRedisEnabled || (cfg.SearchCacheEnabled && cfg.SearchCacheBackend == "redis")
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !redisRequired(cfg) {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, map[string]string{
		service.DefaultSearchCacheRedisPrefix: "search_cache",
		cfg.RateLimitRedisPrefix + ":":        "rate_limit",
	}, logger)
	return client
}

func provideMinIOThumbnailStore(cfg *config.Config) (*service.MinIOThumbnailStore, error) {
	if !cfg.ThumbnailStorageEnabled {
		return nil, nil
	}
	return service.NewMinIOThumbnailStore(
		cfg.MinIOEndpoint,
		cfg.MinIOAccessKey,
		cfg.MinIOSecretKey,
		cfg.MinIOBucket,
		cfg.MinIOUseSSL,
		cfg.ThumbnailPresignTTL,
	)
}

func provideThumbnailStore(store *service.MinIOThumbnailStore) service.ThumbnailStore {
	if store == nil {
		return nil
	}
	return store
}

func provideSearchCacheStore(cfg *config.Config, redisClient redis.UniversalClient) service.SearchCacheStore {
	if !cfg.SearchCacheEnabled {
		return service.NewNoopSearchCacheStore()
	}
	if cfg.SearchCacheBackend == "redis" && redisClient != nil {
		return service.NewRedisSearchCacheStore(redisClient, service.DefaultSearchCacheRedisPrefix)
	}
	return service.NewInMemorySearchCacheStore()
}

func provideProductService(
	cfg *config.Config,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	cache service.SearchCacheStore,
	thumbnails service.ThumbnailStore,
	logger *slog.Logger,
) *service.ProductServiceImpl {
	return service.NewProductService(products, categories, cache, cfg.SearchCacheTTL, thumbnails, logger)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient, parser middleware.AccessTokenParser) router.GlobalRateLimiterFunc {
	var keyFunc middleware.KeyFunc = middleware.IPKeyFunc
	if cfg.AuthEnabled {
		keyFunc = middleware.SubjectOrIPKeyFunc(parser)
	}
	var limiter middleware.Limiter = middleware.NewLocalFixedWindowLimiter()
	mode := middleware.FailClosed
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		limiter = middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api")
		mode = middleware.FailOpen
	}
	return middleware.NewDistributedRateLimiterWithKey(
		limiter,
		cfg.APIRateLimitPerMin,
		time.Minute,
		mode,
		"api",
		keyFunc,
	).Middleware()
}

func provideRouterDependencies(
	productHandler *handler.ProductHandler,
	categoryHandler *handler.CategoryHandler,
	parser middleware.AccessTokenParser,
	rbac service.RBACAuthorizer,
	globalRateLimiter router.GlobalRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		ProductHandler:    productHandler,
		CategoryHandler:   categoryHandler,
		TokenParser:       parser,
		RBACService:       rbac,
		AuthEnabled:       cfg.AuthEnabled,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		MaxBodyBytes:      cfg.MaxRequestBodyBytes,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: globalRateLimiter,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(
	cfg *config.Config,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	thumbnails *service.MinIOThumbnailStore,
) *health.ProbeRunner {
	checkers := []health.Checker{
		health.NewDBChecker(db),
		health.NewCatalogSchemaChecker(db),
		health.NewRedisChecker(redisClient),
	}
	if thumbnails != nil {
		checkers = append(checkers, health.Optional(health.NewMinIOChecker(thumbnails.Client(), thumbnails.BucketName())))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness)
}
