package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pedalacom/catalog-api/internal/observability"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	// BearerToken is sent on every request so guarded routes can be exercised.
	BearerToken string
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

type request struct {
	method string
	path   string
	body   string
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	profile := strings.ToLower(cfg.Profile)
	if profile == "" {
		profile = "mixed"
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	requests := requestsForProfile(profile)
	if len(requests) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx int64
	jobs := make(chan request, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				var body io.Reader
				if job.body != "" {
					body = bytes.NewBufferString(job.body)
				}
				req, err := http.NewRequestWithContext(ctx, job.method, cfg.BaseURL+job.path, body)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				if job.body != "" {
					req.Header.Set("Content-Type", "application/json")
				}
				if cfg.BearerToken != "" {
					req.Header.Set("Authorization", "Bearer "+cfg.BearerToken)
				}
				resp, err := client.Do(req)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					observability.RecordLoadgenRequest(ctx, "error", profile)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				atomic.AddInt64(&total, 1)
				class := statusClass(resp.StatusCode)
				observability.RecordLoadgenRequest(ctx, class, profile)
				switch class {
				case "2xx", "3xx":
					atomic.AddInt64(&s2xx, 1)
				case "4xx":
					atomic.AddInt64(&s4xx, 1)
				case "5xx":
					atomic.AddInt64(&s5xx, 1)
				}
			}
		}()
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed>>1)))
	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Result{
				TotalRequests: atomic.LoadInt64(&total),
				Failures:      atomic.LoadInt64(&failures),
				Status2xx:     atomic.LoadInt64(&s2xx),
				Status4xx:     atomic.LoadInt64(&s4xx),
				Status5xx:     atomic.LoadInt64(&s5xx),
			}, nil
		case <-ticker.C:
			select {
			case jobs <- requests[rng.IntN(len(requests))]:
			case <-ctx.Done():
			}
		}
	}
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}

var (
	browseRequests = []request{
		{method: http.MethodGet, path: "/api/v1/products"},
		{method: http.MethodGet, path: "/api/v1/categories"},
		{method: http.MethodGet, path: "/api/v1/products/1"},
		{method: http.MethodGet, path: "/api/v1/products/2"},
		{method: http.MethodGet, path: "/api/v1/products/1/thumbnail"},
	}
	searchRequests = []request{
		{method: http.MethodGet, path: "/api/v1/products/search?searchData=Mountain"},
		{method: http.MethodGet, path: "/api/v1/products/search?searchData=Road&pageNumber=1"},
		{method: http.MethodPost, path: "/api/v1/products/search", body: `{"categories":["Mountain Bikes","Road Bikes"],"search_data":"","page_number":1}`},
		{method: http.MethodPost, path: "/api/v1/products/search", body: `{"categories":["Helmets"],"search_data":"Sport","page_number":1}`},
	}
	errorRequests = []request{
		{method: http.MethodGet, path: "/api/v1/products/999999"},
		{method: http.MethodGet, path: "/api/v1/products/search?searchData=Mountain&pageNumber=99"},
		{method: http.MethodGet, path: "/api/v1/products/search?pageNumber=abc"},
		{method: http.MethodPost, path: "/api/v1/products/search", body: `{"page_number":0}`},
	}
)

func requestsForProfile(profile string) []request {
	switch profile {
	case "browse":
		return browseRequests
	case "search":
		return searchRequests
	case "mixed":
		out := make([]request, 0, len(browseRequests)+len(searchRequests)+1)
		out = append(out, browseRequests...)
		out = append(out, searchRequests...)
		return append(out, errorRequests[0])
	case "error-heavy":
		return append(append([]request{}, errorRequests...), browseRequests[0])
	default:
		return nil
	}
}
