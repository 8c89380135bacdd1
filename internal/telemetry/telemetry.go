// Package telemetry records render pass metrics and spans with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/dlovans/formrt/pkg/formrt"
)

const instrumentationName = "github.com/dlovans/formrt"

// Metrics provides metrics collection for render passes.
type Metrics struct {
	evaluationsCounter  metric.Int64Counter
	diagnosticsCounter  metric.Int64Counter
	durationHistogram   metric.Float64Histogram
	layoutCacheCounter  metric.Int64Counter
	formulaCheckCounter metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWith(otel.GetMeterProvider())
}

// NewMetricsWith creates the instruments on a given meter provider.
func NewMetricsWith(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(instrumentationName)

	evaluationsCounter, err := meter.Int64Counter(
		"formrt.evaluations",
		metric.WithDescription("Total number of render passes"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, err
	}

	diagnosticsCounter, err := meter.Int64Counter(
		"formrt.diagnostics",
		metric.WithDescription("Definition problems degraded during render passes"),
		metric.WithUnit("{diagnostic}"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		"formrt.evaluation.duration",
		metric.WithDescription("Duration of a render pass in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	layoutCacheCounter, err := meter.Int64Counter(
		"formrt.layout_cache.lookups",
		metric.WithDescription("Layout cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	formulaCheckCounter, err := meter.Int64Counter(
		"formrt.formula_checks",
		metric.WithDescription("Authoring-time formula validations by result"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		evaluationsCounter:  evaluationsCounter,
		diagnosticsCounter:  diagnosticsCounter,
		durationHistogram:   durationHistogram,
		layoutCacheCounter:  layoutCacheCounter,
		formulaCheckCounter: formulaCheckCounter,
	}, nil
}

// RecordEvaluation records a finished render pass.
func (m *Metrics) RecordEvaluation(ctx context.Context, source string, result *formrt.RenderResult, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", string(result.Status)),
	)
	m.evaluationsCounter.Add(ctx, 1, attrs)
	m.durationHistogram.Record(ctx, duration.Seconds(), attrs)

	for _, d := range result.Diagnostics {
		m.diagnosticsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("kind", string(d.Kind)),
		))
	}
}

// RecordFormulaCheck records one authoring-time formula validation.
func (m *Metrics) RecordFormulaCheck(ctx context.Context, err error) {
	result := "valid"
	if err != nil {
		result = "invalid"
	}
	m.formulaCheckCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) recordLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.layoutCacheCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// CountingCache wraps a layout cache and counts its hits and misses.
type CountingCache struct {
	ctx     context.Context
	next    formrt.LayoutCache
	metrics *Metrics
}

// Counting wraps next; lookups are recorded against ctx.
func (m *Metrics) Counting(ctx context.Context, next formrt.LayoutCache) *CountingCache {
	return &CountingCache{ctx: ctx, next: next, metrics: m}
}

func (c *CountingCache) Get(key string) (formrt.Layout, bool) {
	layout, ok := c.next.Get(key)
	c.metrics.recordLookup(c.ctx, ok)
	return layout, ok
}

func (c *CountingCache) Put(key string, layout formrt.Layout) {
	c.next.Put(key, layout)
}

func (c *CountingCache) Reset() {
	c.next.Reset()
}

// Tracer returns the tracer for render spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartEvaluation opens a span for one render pass.
func StartEvaluation(ctx context.Context, formID string, fields int) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, "formrt.evaluate")
	span.SetAttributes(
		attribute.String("form.id", formID),
		attribute.Int("form.fields", fields),
	)
	return ctx, span
}

// EndEvaluation annotates and closes a render span.
func EndEvaluation(span trace.Span, result *formrt.RenderResult) {
	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Int("fields.visible", len(result.Visible)),
		attribute.Int("fields.hidden", len(result.Hidden)),
		attribute.Int("diagnostics", len(result.Diagnostics)),
	)
	span.End()
}

// InitTracer installs a stdout span exporter as the global tracer provider
// and returns its shutdown function.
func InitTracer(w io.Writer) (func(context.Context) error, error) {
	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if w != nil {
		opts = append(opts, stdouttrace.WithWriter(w))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
