package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseDriver string
	DatabaseURL    string
	SeedSampleData bool

	CORSAllowedOrigins  []string
	MaxRequestBodyBytes int64

	AuthEnabled     bool
	JWTIssuer       string
	JWTAudience     string
	JWTAccessSecret string

	APIRateLimitPerMin    int
	RateLimitRedisEnabled bool
	RateLimitRedisPrefix  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SearchCacheEnabled bool
	SearchCacheBackend string
	SearchCacheTTL     time.Duration

	ThumbnailStorageEnabled bool
	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOBucket             string
	MinIOUseSSL             bool
	ThumbnailPresignTTL     time.Duration

	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string

	ToolTelemetryEnabled bool
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Env:                     env,
		HTTPPort:                getEnv("HTTP_PORT", "8080"),
		DatabaseDriver:          strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		SeedSampleData:          getEnvBool("SEED_SAMPLE_DATA", isLocalLikeEnv(env)),
		CORSAllowedOrigins:      splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		MaxRequestBodyBytes:     int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 2<<20)),
		AuthEnabled:             getEnvBool("AUTH_ENABLED", false),
		JWTIssuer:               getEnv("JWT_ISSUER", "catalog-api"),
		JWTAudience:             getEnv("JWT_AUDIENCE", "catalog-api-clients"),
		JWTAccessSecret:         os.Getenv("JWT_ACCESS_SECRET"),
		APIRateLimitPerMin:      getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisEnabled:   getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitRedisPrefix:    getEnv("RATE_LIMIT_REDIS_PREFIX", "rl"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		SearchCacheEnabled:      getEnvBool("SEARCH_CACHE_ENABLED", true),
		SearchCacheBackend:      strings.ToLower(getEnv("SEARCH_CACHE_BACKEND", "memory")),
		ThumbnailStorageEnabled: getEnvBool("THUMBNAIL_STORAGE_ENABLED", false),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:          os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:          os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:             getEnv("MINIO_BUCKET", "product-thumbnails"),
		MinIOUseSSL:             getEnvBool("MINIO_USE_SSL", false),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "catalog-api"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
		ToolTelemetryEnabled:     getEnvBool("TOOL_TELEMETRY_ENABLED", false),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SEARCH_CACHE_TTL", "30s", &cfg.SearchCacheTTL},
		{"THUMBNAIL_PRESIGN_TTL", "15m", &cfg.ThumbnailPresignTTL},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "2s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, "DATABASE_DRIVER must be one of postgres, sqlite")
	}
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.MaxRequestBodyBytes <= 0 {
		errs = append(errs, "MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.AuthEnabled && len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars when AUTH_ENABLED=true")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RateLimitRedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when RATE_LIMIT_REDIS_ENABLED=true")
	}
	if c.SearchCacheEnabled {
		switch c.SearchCacheBackend {
		case "memory":
		case "redis":
			if c.RedisAddr == "" {
				errs = append(errs, "REDIS_ADDR is required when SEARCH_CACHE_BACKEND=redis")
			}
		default:
			errs = append(errs, "SEARCH_CACHE_BACKEND must be one of memory, redis")
		}
		if c.SearchCacheTTL <= 0 {
			errs = append(errs, "SEARCH_CACHE_TTL must be > 0")
		}
	}
	if c.ThumbnailStorageEnabled {
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" {
			errs = append(errs, "MINIO_ENDPOINT and MINIO_BUCKET are required when THUMBNAIL_STORAGE_ENABLED=true")
		}
		if c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			errs = append(errs, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when THUMBNAIL_STORAGE_ENABLED=true")
		}
		if c.ThumbnailPresignTTL <= 0 || c.ThumbnailPresignTTL > 7*24*time.Hour {
			errs = append(errs, "THUMBNAIL_PRESIGN_TTL must be between 1s and 7d")
		}
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ServerStartGracePeriod < 0 {
		errs = append(errs, "SERVER_START_GRACE_PERIOD must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if c.ShutdownObservabilityTimeout <= 0 || c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_OBSERVABILITY_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if !isLocalLikeEnv(c.Env) {
		if c.DatabaseDriver == "sqlite" {
			errs = append(errs, "DATABASE_DRIVER=sqlite is only allowed in local environments")
		}
		if c.SeedSampleData {
			errs = append(errs, "SEED_SAMPLE_DATA must be false outside local environments")
		}
		for _, origin := range c.CORSAllowedOrigins {
			if origin == "*" {
				errs = append(errs, "CORS_ALLOWED_ORIGINS must not contain * outside local environments")
				break
			}
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
