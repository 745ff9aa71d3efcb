package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pedalacom/catalog-api/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

const meterName = "catalog-api"

type AppMetrics struct {
	productOperationCounter      metric.Int64Counter
	productOperationDuration     metric.Float64Histogram
	searchResultSize             metric.Float64Histogram
	searchCacheCounter           metric.Int64Counter
	thumbnailStorageCounter      metric.Int64Counter
	repositoryOpsCounter         metric.Int64Counter
	accessTokenValidationCounter metric.Int64Counter
	rateLimitDecisionCounter     metric.Int64Counter
	rateLimitRetryAfter          metric.Float64Histogram
	httpMiddlewareValidation     metric.Int64Counter
	healthCheckResultCounter     metric.Int64Counter
	healthCheckDuration          metric.Float64Histogram
	databaseStartupCounter       metric.Int64Counter
	databaseStartupDuration      metric.Float64Histogram
	toolCommandRuns              metric.Int64Counter
	toolCommandDuration          metric.Float64Histogram
	loadgenRequestsCounter       metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newServiceResource(ctx, cfg, "metric")
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "product.operation.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
				},
			},
		)),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "product.search.result_size"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0, 1, 2, 4, 6, 8, 12},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m    AppMetrics
		errs []error
	)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			errs = append(errs, fmt.Errorf("create counter %s: %w", name, err))
		}
		return c
	}
	hist := func(name, unit, desc string) metric.Float64Histogram {
		opts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
		if unit != "" {
			opts = append(opts, metric.WithUnit(unit))
		}
		h, err := meter.Float64Histogram(name, opts...)
		if err != nil {
			errs = append(errs, fmt.Errorf("create histogram %s: %w", name, err))
		}
		return h
	}

	m.productOperationCounter = counter("product.operation.events", "Product service operations by outcome")
	m.productOperationDuration = hist("product.operation.duration", "s", "Duration of product service operations in seconds")
	m.searchResultSize = hist("product.search.result_size", "", "Number of items returned per search page")
	m.searchCacheCounter = counter("product.search.cache.events", "Search result cache lookups and invalidations")
	m.thumbnailStorageCounter = counter("product.thumbnail.storage.events", "Thumbnail object storage operations")
	m.repositoryOpsCounter = counter("repository.operations", "Repository operations by outcome")
	m.accessTokenValidationCounter = counter("auth.access_token.validation.events", "Access token validation results")
	m.rateLimitDecisionCounter = counter("http.rate_limit.decisions", "Rate limiter decisions")
	m.rateLimitRetryAfter = hist("http.rate_limit.retry_after", "s", "Retry-after duration in seconds for throttled requests")
	m.httpMiddlewareValidation = counter("http.middleware.validation.events", "Request validation results per middleware")
	m.healthCheckResultCounter = counter("health.check.results", "Health dependency check results")
	m.healthCheckDuration = hist("health.check.duration", "s", "Duration of health dependency checks in seconds")
	m.databaseStartupCounter = counter("database.startup.events", "Database startup stage results")
	m.databaseStartupDuration = hist("database.startup.duration", "s", "Duration of database startup stages in seconds")
	m.toolCommandRuns = counter("tool.command.runs", "CLI tool command runs")
	m.toolCommandDuration = hist("tool.command.duration", "s", "Duration of CLI tool commands in seconds")
	m.loadgenRequestsCounter = counter("loadgen.requests", "Requests issued by the load generator")

	if len(errs) > 0 {
		return nil, errs[0]
	}
	return &m, nil
}

func loadMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordProductOperation(ctx context.Context, operation, outcome string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.productOperationCounter.Add(ctx, 1, attrs)
	m.productOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

func RecordSearchResultSize(ctx context.Context, endpoint string, size int) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.searchResultSize.Record(ctx, float64(size), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

func RecordSearchCacheEvent(ctx context.Context, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.searchCacheCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func RecordThumbnailStorageEvent(ctx context.Context, action, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.thumbnailStorageCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordRepositoryOperation(ctx context.Context, repo, operation, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.repositoryOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repo),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.accessTokenValidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode, keyType string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
		attribute.String("key_type", keyType),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope, reason string, retryAfter time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("reason", reason),
	))
}

func RecordMiddlewareValidationEvent(ctx context.Context, middleware, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.httpMiddlewareValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("middleware", middleware),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("check", check),
	))
}

func RecordDatabaseStartupEvent(ctx context.Context, stage, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.databaseStartupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, stage string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.databaseStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
	))
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

func RecordToolCommandDuration(ctx context.Context, tool, command, outcome string, duration time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.toolCommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

func RecordLoadgenRequest(ctx context.Context, statusClass, profile string) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.loadgenRequestsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status_class", statusClass),
		attribute.String("profile", profile),
	))
}
