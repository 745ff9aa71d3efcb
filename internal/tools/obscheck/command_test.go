package obscheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

func newGrafanaStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/datasources/proxy/1/api/v1/query_exemplars":
			if r.URL.Query().Get("query") != "product_operation_duration_seconds_bucket" {
				_, _ = w.Write([]byte(`{"data":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":[{"exemplars":[{"labels":{"trace_id":"short"}},{"labels":{"trace_id":"` + traceID + `"}}]}]}`))
		case r.URL.Path == "/api/datasources/proxy/1/api/v1/query":
			if !strings.Contains(r.URL.Query().Get("query"), "product_search_cache_events_total") {
				_, _ = w.Write([]byte(`{"status":"success","data":{"result":[]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"success","data":{"result":[{"metric":{"outcome":"miss"}},{"metric":{"outcome":"hit"}}]}}`))
		case r.URL.Path == "/api/datasources/proxy/3/api/traces/"+traceID:
			_, _ = w.Write([]byte(`{"batches":[{"scopeSpans":[{"spans":[{"name":"http.server"},{"name":"product.search"}]}]}]}`))
		case r.URL.Path == "/api/datasources/proxy/2/loki/api/v1/query_range":
			if !strings.Contains(r.URL.Query().Get("query"), `service_name="catalog-api"`) {
				_, _ = w.Write([]byte(`{"data":{"result":[]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"result":[{}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(url string) options {
	return options{
		grafanaURL:      url,
		grafanaUser:     "admin",
		grafanaPassword: "secret",
		serviceName:     "catalog-api",
		metric:          "product_operation_duration_seconds_bucket",
		cacheMetric:     "product_search_cache_events_total",
		spanName:        "product.search",
		datasources:     datasourceIDs{prometheus: 1, loki: 2, tempo: 3},
		window:          time.Minute,
	}
}

func TestVerifyWalksExemplarTraceLogsAndCache(t *testing.T) {
	opts := testOptions(newGrafanaStub(t).URL)

	details, err := verify(context.Background(), newGrafanaClient(opts), opts)
	if err != nil {
		t.Fatalf("verify: %v (details=%v)", err, details)
	}
	if len(details) != 4 {
		t.Fatalf("expected 4 detail lines, got %v", details)
	}
	if details[0] != "exemplar trace_id="+traceID {
		t.Fatalf("unexpected exemplar detail %q", details[0])
	}
	if details[3] != "search cache outcomes: hit,miss" {
		t.Fatalf("unexpected cache detail %q", details[3])
	}
}

func TestVerifyFailsWhenSearchSpanMissing(t *testing.T) {
	opts := testOptions(newGrafanaStub(t).URL)
	opts.spanName = "product.replace"

	if _, err := verify(context.Background(), newGrafanaClient(opts), opts); err == nil || !strings.Contains(err.Error(), "product.replace") {
		t.Fatalf("expected missing span error, got %v", err)
	}
}

func TestTraceIDFromExemplarFailsForUnknownMetric(t *testing.T) {
	opts := testOptions(newGrafanaStub(t).URL)

	if _, err := newGrafanaClient(opts).traceIDFromExemplar(context.Background(), "unknown_metric_bucket", time.Minute); err == nil {
		t.Fatal("expected missing exemplar error")
	}
}

func TestCounterOutcomesFailsWithoutSeries(t *testing.T) {
	opts := testOptions(newGrafanaStub(t).URL)

	if _, err := newGrafanaClient(opts).counterOutcomes(context.Background(), "other_total"); err == nil {
		t.Fatal("expected missing series error")
	}
}

func TestGrafanaClientRejectsBadCredentials(t *testing.T) {
	opts := testOptions(newGrafanaStub(t).URL)
	opts.grafanaPassword = "wrong"

	var out map[string]any
	if err := newGrafanaClient(opts).get(context.Background(), "/api/health", nil, &out); err == nil {
		t.Fatal("expected unauthorized error")
	}
}
