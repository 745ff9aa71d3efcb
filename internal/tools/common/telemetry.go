package common

import (
	"context"
	"time"

	"github.com/pedalacom/catalog-api/internal/config"
	"github.com/pedalacom/catalog-api/internal/observability"
)

const telemetryFlushTimeout = 5 * time.Second

// StartTelemetry exports a tool's metrics and traces under "<service>-<tool>"
// when TOOL_TELEMETRY_ENABLED is set. The returned func flushes and must be
// called before the process exits. Any setup failure leaves telemetry off.
func StartTelemetry(envFile, tool string) func() {
	noop := func() {}
	if err := LoadEnvFile(envFile); err != nil {
		return noop
	}
	cfg, err := config.Load()
	if err != nil || !cfg.ToolTelemetryEnabled {
		return noop
	}
	cfg.OTELServiceName = cfg.OTELServiceName + "-" + tool
	cfg.OTELLogsEnabled = false

	logger := observability.NewBootstrapLogger(cfg)
	rt, err := observability.InitRuntime(context.Background(), cfg, logger)
	if err != nil {
		logger.Warn("tool telemetry disabled", "tool", tool, "error", err)
		return noop
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := rt.Shutdown(ctx); err != nil {
			logger.Warn("tool telemetry flush failed", "tool", tool, "error", err)
		}
	}
}
