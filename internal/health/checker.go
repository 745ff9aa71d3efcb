package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pedalacom/catalog-api/internal/observability"
)

type CheckResult struct {
	Name      string  `json:"name"`
	Healthy   bool    `json:"healthy"`
	Optional  bool    `json:"optional,omitempty"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

type optionalChecker struct {
	next Checker
}

// Optional reports a dependency without letting it flip readiness. Used for
// best-effort stores such as the thumbnail mirror.
func Optional(c Checker) Checker {
	if c == nil {
		return nil
	}
	return optionalChecker{next: c}
}

func (o optionalChecker) Check(ctx context.Context) CheckResult {
	res := o.next.Check(ctx)
	res.Optional = true
	return res
}

type ProbeRunner struct {
	checkers    []Checker
	timeout     time.Duration
	gracePeriod time.Duration
	startedAt   time.Time
}

// NewProbeRunner drops nil checkers so optional dependencies can be passed unconditionally.
func NewProbeRunner(timeout, gracePeriod time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	active := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			active = append(active, c)
		}
	}
	return &ProbeRunner{
		checkers:    active,
		timeout:     timeout,
		gracePeriod: gracePeriod,
		startedAt:   time.Now(),
	}
}

// Ready runs every checker concurrently, each under its own timeout. Results
// keep checker order.
func (r *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if r == nil {
		return true, nil
	}
	if r.gracePeriod > 0 && time.Since(r.startedAt) < r.gracePeriod {
		return false, []CheckResult{{Name: "startup_grace", Healthy: false, Error: "startup grace period active"}}
	}

	results := make([]CheckResult, len(r.checkers))
	var g errgroup.Group
	for i, c := range r.checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			start := time.Now()
			res := c.Check(checkCtx)
			elapsed := time.Since(start)
			res.LatencyMS = float64(elapsed.Microseconds()) / 1000.0

			outcome := "healthy"
			switch {
			case !res.Healthy && res.Optional:
				outcome = "degraded"
			case !res.Healthy:
				outcome = "unhealthy"
			}
			observability.RecordHealthCheckResult(ctx, res.Name, outcome)
			observability.RecordHealthCheckDuration(ctx, res.Name, elapsed)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, res := range results {
		if !res.Healthy && !res.Optional {
			ready = false
		}
	}
	return ready, results
}
