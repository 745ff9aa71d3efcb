package obscheck

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pedalacom/catalog-api/internal/tools/common"
	"github.com/pedalacom/catalog-api/internal/tools/loadgen"
	"github.com/pedalacom/catalog-api/internal/tools/ui"
)

type options struct {
	grafanaURL      string
	grafanaUser     string
	grafanaPassword string
	serviceName     string
	window          time.Duration
	ci              bool
	baseURL         string
	metric          string
	cacheMetric     string
	spanName        string
	datasources     datasourceIDs
	settle          time.Duration
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "obscheck", Short: "Verify catalog metrics, traces and logs correlation"}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.grafanaURL, "grafana-url", "http://localhost:3000", "Grafana base URL")
	f.StringVar(&opts.grafanaUser, "grafana-user", "admin", "Grafana username")
	f.StringVar(&opts.grafanaPassword, "grafana-password", "admin", "Grafana password")
	f.StringVar(&opts.serviceName, "service-name", "catalog-api", "OTel service name")
	f.DurationVar(&opts.window, "window", 20*time.Minute, "query lookback window")
	f.BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	f.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL for traffic")
	f.StringVar(&opts.metric, "metric", "product_operation_duration_seconds_bucket", "histogram queried for trace exemplars")
	f.StringVar(&opts.cacheMetric, "cache-metric", "product_search_cache_events_total", "counter that must report search cache outcomes")
	f.StringVar(&opts.spanName, "span", "product.search", "span name expected in the exemplar trace")
	f.IntVar(&opts.datasources.prometheus, "prometheus-ds", 1, "Grafana datasource id for Prometheus")
	f.IntVar(&opts.datasources.loki, "loki-ds", 2, "Grafana datasource id for Loki")
	f.IntVar(&opts.datasources.tempo, "tempo-ds", 3, "Grafana datasource id for Tempo")
	f.DurationVar(&opts.settle, "settle", 8*time.Second, "wait between traffic and queries for export to flush")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate search traffic and validate exemplar->trace->log path",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "obscheck run", func(ctx context.Context) ([]string, error) {
				lgRes, err := loadgen.Run(ctx, loadgen.Config{
					BaseURL:     opts.baseURL,
					Profile:     "search",
					Duration:    6 * time.Second,
					RPS:         20,
					Concurrency: 6,
					Seed:        42,
				})
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("traffic generated total=%d failures=%d", lgRes.TotalRequests, lgRes.Failures)}
				select {
				case <-ctx.Done():
					return details, ctx.Err()
				case <-time.After(opts.settle):
				}

				more, err := verify(ctx, newGrafanaClient(*opts), *opts)
				return append(details, more...), err
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "obscheck run", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

// verify walks metric exemplar -> Tempo trace -> Loki logs, then checks the
// search cache counter is being exported.
func verify(ctx context.Context, g *grafanaClient, opts options) ([]string, error) {
	var details []string
	traceID, err := g.traceIDFromExemplar(ctx, opts.metric, opts.window)
	if err != nil {
		return details, err
	}
	details = append(details, "exemplar trace_id="+traceID)

	spans, err := g.traceSpanNames(ctx, traceID)
	if err != nil {
		return details, err
	}
	if opts.spanName != "" && !containsString(spans, opts.spanName) {
		return details, fmt.Errorf("trace %s has no %q span (got %s)", traceID, opts.spanName, strings.Join(spans, ","))
	}
	details = append(details, fmt.Sprintf("tempo trace lookup: ok spans=%d", len(spans)))

	if err := g.verifyTraceLogs(ctx, opts.serviceName, traceID); err != nil {
		return details, err
	}
	details = append(details, "loki trace correlation: ok")

	outcomes, err := g.counterOutcomes(ctx, opts.cacheMetric)
	if err != nil {
		return details, err
	}
	details = append(details, "search cache outcomes: "+strings.Join(outcomes, ","))
	return details, nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	defer common.StartTelemetry(".env", "obscheck")()
	fn = common.Track("obscheck", "run", fn)
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
