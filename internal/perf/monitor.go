package perf

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StageTiming records how long one named stage of a run took.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Monitor times the stages of a single top-level call and emits one OTel
// span per stage. One Monitor is constructed per call and owned by it; there
// is no process-wide instance. A nil Monitor is valid and does nothing.
type Monitor struct {
	tracer trace.Tracer
	logger *slog.Logger
	start  time.Time
	stages []StageTiming
}

// NewMonitor creates a monitor for one run. The name becomes the tracer
// scope, e.g. "nestkit/engine".
func NewMonitor(name string, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		tracer: otel.Tracer(name),
		logger: logger,
		start:  time.Now(),
	}
}

// StartStage opens a named stage. The returned function closes it, records
// the timing and ends the span.
func (m *Monitor) StartStage(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func()) {
	if m == nil {
		return ctx, func() {}
	}
	ctx, span := m.tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	begin := time.Now()
	return ctx, func() {
		d := time.Since(begin)
		m.stages = append(m.stages, StageTiming{Name: name, Duration: d})
		span.SetAttributes(attribute.Int64("stage.duration_ms", d.Milliseconds()))
		span.End()
	}
}

// Elapsed returns the wall-clock time since the monitor was created.
func (m *Monitor) Elapsed() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.start)
}

// Stages returns the completed stage timings in completion order.
func (m *Monitor) Stages() []StageTiming {
	if m == nil {
		return nil
	}
	return m.stages
}

// Debug logs through the monitor's logger; safe on a nil monitor.
func (m *Monitor) Debug(msg string, args ...any) {
	if m == nil {
		return
	}
	m.logger.Debug(msg, args...)
}
