package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient installs command metrics on the shared client once per process.
func InstrumentRedisClient(client redis.UniversalClient, keyspaces map[string]string, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisMetricsHook(otel.Meter(meterName), keyspaces)
		if err != nil {
			logger.Warn("redis observability instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis observability instrumentation enabled", "keyspaces", len(keyspaces))
	})
}

type redisMetricsHook struct {
	cmdTotal   metric.Int64Counter
	cmdLatency metric.Float64Histogram
	lookups    metric.Int64Counter
	// keyspaces maps a key prefix to the feature that owns it.
	keyspaces map[string]string
}

func newRedisMetricsHook(meter metric.Meter, keyspaces map[string]string) (*redisMetricsHook, error) {
	cmdTotal, err := meter.Int64Counter(
		"redis.command.total",
		metric.WithDescription("Total number of Redis commands executed"),
	)
	if err != nil {
		return nil, err
	}
	cmdLatency, err := meter.Float64Histogram(
		"redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency in seconds"),
	)
	if err != nil {
		return nil, err
	}
	lookups, err := meter.Int64Counter(
		"redis.keyspace.lookups",
		metric.WithDescription("Redis read lookups by owning feature and result"),
	)
	if err != nil {
		return nil, err
	}
	return &redisMetricsHook{
		cmdTotal:   cmdTotal,
		cmdLatency: cmdLatency,
		lookups:    lookups,
		keyspaces:  keyspaces,
	}, nil
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, cmd, time.Since(start))
		return err
	}
}

func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(start)
		for _, cmd := range cmds {
			h.observe(ctx, cmd, elapsed)
		}
		return err
	}
}

func (h *redisMetricsHook) observe(ctx context.Context, cmd redis.Cmder, elapsed time.Duration) {
	command := strings.ToLower(cmd.Name())
	feature := h.featureFor(cmd)
	status := redisCommandStatus(cmd.Err())
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("feature", feature),
		attribute.String("status", status),
	)
	h.cmdTotal.Add(ctx, 1, attrs)
	h.cmdLatency.Record(ctx, elapsed.Seconds(), attrs)

	if result, ok := classifyLookup(cmd); ok {
		h.lookups.Add(ctx, 1, metric.WithAttributes(
			attribute.String("feature", feature),
			attribute.String("result", result),
		))
	}
}

func (h *redisMetricsHook) featureFor(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return "other"
	}
	key, ok := args[1].(string)
	if !ok {
		return "other"
	}
	for prefix, feature := range h.keyspaces {
		if strings.HasPrefix(key, prefix) {
			return feature
		}
	}
	return "other"
}

func redisCommandStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	default:
		return "error"
	}
}

func classifyLookup(cmd redis.Cmder) (string, bool) {
	switch strings.ToLower(cmd.Name()) {
	case "get", "hget":
		err := cmd.Err()
		if errors.Is(err, redis.Nil) {
			return "miss", true
		}
		if err != nil {
			return "", false
		}
		return "hit", true
	default:
		return "", false
	}
}
