package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/DavidFlautero/felxeasy"

var (
	metricsOnce   sync.Once
	repositoryOps metric.Int64Counter
	relayOps      metric.Int64Counter
)

func initInstruments() {
	meter := otel.Meter(instrumentationName)
	repositoryOps, _ = meter.Int64Counter(
		"repository_operations_total",
		metric.WithDescription("Repository operations by entity, operation and outcome"),
	)
	relayOps, _ = meter.Int64Counter(
		"relay_operations_total",
		metric.WithDescription("Relay core operations by operation and outcome"),
	)
}

// RecordRepositoryOperation counts one persistence-layer operation.
// Outcome is success, not_found or error.
func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	metricsOnce.Do(initInstruments)
	if repositoryOps == nil {
		return
	}
	repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordRelayOperation counts one relay operation (register, report_status,
// enqueue, drain, record_blocks).
func RecordRelayOperation(ctx context.Context, operation, outcome string) {
	metricsOnce.Do(initInstruments)
	if relayOps == nil {
		return
	}
	relayOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
