package telemetry

import (
	"context"
	"time"

	"todoapi/internal/core/domain"
	"todoapi/internal/core/port"
)

// Operation measures one repository call and reports it through the probe.
type Operation struct {
	probe     port.Telemetry
	ctx       context.Context
	span      port.Span
	startTime time.Time
	operation string
	entity    string
}

// StartOperation opens a repository span and starts the clock.
func StartOperation(ctx context.Context, probe port.Telemetry, operation, entity string, attrs map[string]interface{}) (context.Context, *Operation) {
	ctx, span := probe.StartRepositorySpan(ctx, operation, entity, attrs)

	return ctx, &Operation{
		probe:     probe,
		ctx:       ctx,
		span:      span,
		startTime: time.Now(),
		operation: operation,
		entity:    entity,
	}
}

func (op *Operation) Span() port.Span {
	return op.span
}

// End records duration and outcome, closes the span and hands err back.
func (op *Operation) End(err error) error {
	duration := time.Since(op.startTime)

	op.span.SetAttributes(map[string]interface{}{
		"operation.duration_ns": duration.Nanoseconds(),
	})

	switch {
	case err == nil:
		op.span.SetStatus("ok", "")
	case domain.IsNotFound(err):
		op.span.SetAttributes(map[string]interface{}{"error.kind": string(domain.KindNotFound)})
	default:
		op.span.SetStatus("error", err.Error())
		op.span.RecordError(err)
	}

	op.probe.RecordRepositoryOperation(op.ctx, op.operation, op.entity, duration, err)
	op.span.End()

	return err
}
