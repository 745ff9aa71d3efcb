package obscheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

type datasourceIDs struct {
	prometheus int
	loki       int
	tempo      int
}

type grafanaClient struct {
	baseURL  string
	user     string
	password string
	ds       datasourceIDs
	http     *http.Client
}

func newGrafanaClient(opts options) *grafanaClient {
	return &grafanaClient{
		baseURL:  opts.grafanaURL,
		user:     opts.grafanaUser,
		password: opts.grafanaPassword,
		ds:       opts.datasources,
		http:     &http.Client{Timeout: 20 * time.Second},
	}
}

type exemplarResponse struct {
	Data []struct {
		Exemplars []struct {
			Labels map[string]string `json:"labels"`
		} `json:"exemplars"`
	} `json:"data"`
}

type tempoSpan struct {
	Name string `json:"name"`
}

type tempoScope struct {
	Spans []tempoSpan `json:"spans"`
}

type tempoTrace struct {
	Batches []struct {
		ScopeSpans                  []tempoScope `json:"scopeSpans"`
		InstrumentationLibrarySpans []tempoScope `json:"instrumentationLibrarySpans"`
	} `json:"batches"`
}

type lokiResponse struct {
	Data struct {
		Result []json.RawMessage `json:"result"`
	} `json:"data"`
}

type promVectorResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Metric map[string]string `json:"metric"`
		} `json:"result"`
	} `json:"data"`
}

func (g *grafanaClient) get(ctx context.Context, path string, query url.Values, dst any) error {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return err
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.user, g.password)
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("grafana request %s failed: %s", path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode grafana response %s: %w", path, err)
	}
	return nil
}

func (g *grafanaClient) proxyPath(id int, rest string) string {
	return fmt.Sprintf("/api/datasources/proxy/%d%s", id, rest)
}

func (g *grafanaClient) traceIDFromExemplar(ctx context.Context, metric string, window time.Duration) (string, error) {
	now := time.Now()
	q := url.Values{}
	q.Set("query", metric)
	q.Set("start", fmt.Sprint(now.Add(-window).Unix()))
	q.Set("end", fmt.Sprint(now.Unix()))
	var payload exemplarResponse
	if err := g.get(ctx, g.proxyPath(g.ds.prometheus, "/api/v1/query_exemplars"), q, &payload); err != nil {
		return "", err
	}
	for _, series := range payload.Data {
		for _, e := range series.Exemplars {
			if tid := e.Labels["trace_id"]; len(tid) == 32 {
				return tid, nil
			}
		}
	}
	return "", fmt.Errorf("no trace_id exemplar found for %s", metric)
}

func (g *grafanaClient) traceSpanNames(ctx context.Context, traceID string) ([]string, error) {
	var payload tempoTrace
	if err := g.get(ctx, g.proxyPath(g.ds.tempo, "/api/traces/"+traceID), nil, &payload); err != nil {
		return nil, err
	}
	if len(payload.Batches) == 0 {
		return nil, fmt.Errorf("tempo trace has no batches")
	}
	var names []string
	for _, b := range payload.Batches {
		for _, scope := range append(b.ScopeSpans, b.InstrumentationLibrarySpans...) {
			for _, span := range scope.Spans {
				names = append(names, span.Name)
			}
		}
	}
	return names, nil
}

func (g *grafanaClient) verifyTraceLogs(ctx context.Context, serviceName, traceID string) error {
	now := time.Now()
	q := url.Values{}
	q.Set("query", fmt.Sprintf("{service_name=%q} |= %q", serviceName, traceID))
	q.Set("start", fmt.Sprint(now.Add(-30*time.Minute).UnixNano()))
	q.Set("end", fmt.Sprint(now.UnixNano()))
	q.Set("limit", "1")
	q.Set("direction", "backward")
	var payload lokiResponse
	if err := g.get(ctx, g.proxyPath(g.ds.loki, "/loki/api/v1/query_range"), q, &payload); err != nil {
		return err
	}
	if len(payload.Data.Result) == 0 {
		return fmt.Errorf("no correlated loki logs found for trace_id %s", traceID)
	}
	return nil
}

// counterOutcomes returns the distinct outcome labels reported for a counter.
func (g *grafanaClient) counterOutcomes(ctx context.Context, metric string) ([]string, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("sum by (outcome) (%s)", metric))
	var payload promVectorResponse
	if err := g.get(ctx, g.proxyPath(g.ds.prometheus, "/api/v1/query"), q, &payload); err != nil {
		return nil, err
	}
	var outcomes []string
	for _, r := range payload.Data.Result {
		if o := r.Metric["outcome"]; o != "" {
			outcomes = append(outcomes, o)
		}
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("no %s series reported", metric)
	}
	sort.Strings(outcomes)
	return outcomes, nil
}
