package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pedalacom/catalog-api/internal/config"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func recordEveryHelper(ctx context.Context) {
	RecordProductOperation(ctx, "search", "success", 10*time.Millisecond)
	RecordSearchResultSize(ctx, "info", 6)
	RecordSearchCacheEvent(ctx, "hit")
	RecordThumbnailStorageEvent(ctx, "upload", "success")
	RecordRepositoryOperation(ctx, "product", "count_filtered", "success")
	RecordAccessTokenValidation(ctx, "ok", "header")
	RecordRateLimitDecision(ctx, "api", "allow", "distributed", "ip")
	RecordRateLimitRetryAfter(ctx, "api", "window", time.Second)
	RecordMiddlewareValidationEvent(ctx, "body_limit", "pass")
	RecordHealthCheckResult(ctx, "db", "ready")
	RecordHealthCheckDuration(ctx, "db", 5*time.Millisecond)
	RecordDatabaseStartupEvent(ctx, "connect", "success")
	RecordDatabaseStartupDuration(ctx, "migrate", 15*time.Millisecond)
	RecordToolCommandRun(ctx, "migrate", "up", "success")
	RecordToolCommandDuration(ctx, "seed", "run", "success", 30*time.Millisecond)
	RecordLoadgenRequest(ctx, "2xx", "search")
}

func TestRecordMetricHelpersNoPanicWhenUninitialized(t *testing.T) {
	metricsMu.Lock()
	appMetrics = nil
	metricsMu.Unlock()

	recordEveryHelper(context.Background())
}

func TestRecordMetricHelpersEmitExpectedLabelCardinality(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	m, err := newAppMetrics(provider.Meter("observability-test"))
	if err != nil {
		t.Fatalf("create app metrics: %v", err)
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	defer func() {
		metricsMu.Lock()
		appMetrics = nil
		metricsMu.Unlock()
	}()

	recordEveryHelper(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	expected := map[string]int{
		"product.operation.events":            2,
		"product.operation.duration":          2,
		"product.search.result_size":          1,
		"product.search.cache.events":         1,
		"product.thumbnail.storage.events":    2,
		"repository.operations":               3,
		"auth.access_token.validation.events": 2,
		"http.rate_limit.decisions":           4,
		"http.rate_limit.retry_after":         2,
		"http.middleware.validation.events":   2,
		"health.check.results":                2,
		"health.check.duration":               1,
		"database.startup.events":             2,
		"database.startup.duration":           1,
		"tool.command.runs":                   3,
		"tool.command.duration":               3,
		"loadgen.requests":                    2,
	}

	observed := collectLabelCardinality(t, rm)
	for metricName, want := range expected {
		got, ok := observed[metricName]
		if !ok {
			t.Fatalf("missing metric datapoint for %s", metricName)
		}
		if got != want {
			t.Fatalf("metric %s label cardinality mismatch: got=%d want=%d", metricName, got, want)
		}
	}
}

func TestInitMetricsDisabledReturnsProvider(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{OTELMetricsEnabled: false}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("init metrics disabled: %v", err)
	}
	if mp == nil {
		t.Fatal("expected non-nil meter provider")
	}
	_ = mp.Shutdown(ctx)
}

func collectLabelCardinality(t *testing.T, rm metricdata.ResourceMetrics) map[string]int {
	t.Helper()
	out := map[string]int{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Sum[float64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Histogram[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Histogram[float64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			}
		}
	}
	return out
}
