package observability

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RedisMetricsHook counts redis commands and keyspace hits/misses.
// Register with client.AddHook.
type RedisMetricsHook struct {
	once     sync.Once
	commands metric.Int64Counter
	errorsC  metric.Int64Counter

	hits   atomic.Int64
	misses atomic.Int64
}

func NewRedisMetricsHook() *RedisMetricsHook {
	return &RedisMetricsHook{}
}

func (h *RedisMetricsHook) init() {
	meter := otel.Meter(instrumentationName)
	h.commands, _ = meter.Int64Counter(
		"redis_commands_total",
		metric.WithDescription("Redis commands by name and outcome"),
	)
	h.errorsC, _ = meter.Int64Counter(
		"redis_errors_total",
		metric.WithDescription("Redis command errors by class"),
	)
	hitRatio, err := meter.Float64ObservableGauge(
		"redis_keyspace_hit_ratio",
		metric.WithDescription("Observed GET/MGET hit ratio since process start"),
	)
	if err != nil {
		return
	}
	_, _ = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		hits := float64(h.hits.Load())
		total := hits + float64(h.misses.Load())
		if total > 0 {
			o.ObserveFloat64(hitRatio, clampRatio(hits/total))
		}
		return nil
	}, hitRatio)
}

func (h *RedisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *RedisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		h.record(ctx, cmd)
		return err
	}
}

func (h *RedisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			h.record(ctx, cmd)
		}
		return err
	}
}

func (h *RedisMetricsHook) record(ctx context.Context, cmd redis.Cmder) {
	h.once.Do(h.init)

	outcome := "success"
	if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
		outcome = "error"
		if h.errorsC != nil {
			h.errorsC.Add(ctx, 1, metric.WithAttributes(
				attribute.String("class", classifyRedisError(err)),
			))
		}
	}
	if h.commands != nil {
		h.commands.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", strings.ToLower(cmd.Name())),
			attribute.String("outcome", outcome),
		))
	}
	if hits, misses, ok := classifyKeyspaceOutcome(cmd); ok {
		h.hits.Add(hits)
		h.misses.Add(misses)
	}
}

func classifyKeyspaceOutcome(cmd redis.Cmder) (hits, misses int64, ok bool) {
	switch strings.ToLower(cmd.Name()) {
	case "get":
		if errors.Is(cmd.Err(), redis.Nil) {
			return 0, 1, true
		}
		if cmd.Err() == nil {
			return 1, 0, true
		}
		return 0, 0, false
	case "mget":
		slice, isSlice := cmd.(*redis.SliceCmd)
		if !isSlice || slice.Err() != nil {
			return 0, 0, false
		}
		for _, v := range slice.Val() {
			if v == nil {
				misses++
			} else {
				hits++
			}
		}
		return hits, misses, true
	}
	return 0, 0, false
}

func classifyRedisError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "refused") || strings.Contains(msg, "broken pipe"):
		return "connection"
	default:
		return "other"
	}
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
