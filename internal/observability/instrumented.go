package observability

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"webcore/internal/counter"
	"webcore/internal/models"
	"webcore/internal/registry"
)

// instruments records one span, one latency sample and, on failure, one
// error count per adapter call.
type instruments struct {
	component string
	tracer    trace.Tracer
	duration  metric.Float64Histogram
	errors    metric.Int64Counter
}

func newInstruments(component string) (*instruments, error) {
	meter := otel.Meter("webcore/" + component)

	duration, err := meter.Float64Histogram(
		component+".operation.duration",
		metric.WithDescription("Duration of "+component+" operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		component+".operation.errors",
		metric.WithDescription("Number of failed "+component+" operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &instruments{
		component: component,
		tracer:    otel.Tracer("webcore/" + component),
		duration:  duration,
		errors:    errCounter,
	}, nil
}

func (in *instruments) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := in.tracer.Start(ctx, in.component+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String(in.component+".operation", operation))...),
	)
	return ctx, span, time.Now()
}

// end finishes the span. Errors matched by expected are domain outcomes,
// not failures, and are only noted on the span.
func (in *instruments) end(ctx context.Context, span trace.Span, operation string, start time.Time, err error, expected ...error) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	in.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case isExpected(err, expected):
		span.SetAttributes(attribute.String("outcome", err.Error()))
		span.SetStatus(codes.Ok, "")
	default:
		in.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func isExpected(err error, expected []error) bool {
	for _, target := range expected {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// InstrumentedRegistry wraps a registry.Registry with tracing and metrics.
// A lookup that finds nothing is not counted as an error.
type InstrumentedRegistry struct {
	inner registry.Registry
	in    *instruments
}

// NewInstrumentedRegistry wraps inner.
func NewInstrumentedRegistry(inner registry.Registry) (*InstrumentedRegistry, error) {
	in, err := newInstruments("registry")
	if err != nil {
		return nil, err
	}
	return &InstrumentedRegistry{inner: inner, in: in}, nil
}

func (r *InstrumentedRegistry) LookupApplication(ctx context.Context, appID uint64) (*models.Application, error) {
	ctx, span, start := r.in.start(ctx, "LookupApplication", attribute.String("app_id", strconv.FormatUint(appID, 10)))
	app, err := r.inner.LookupApplication(ctx, appID)
	r.in.end(ctx, span, "LookupApplication", start, err, registry.ErrNotFound)
	return app, err
}

func (r *InstrumentedRegistry) SaveApplication(ctx context.Context, app *models.Application) error {
	ctx, span, start := r.in.start(ctx, "SaveApplication", attribute.String("app_id", strconv.FormatUint(app.AppID, 10)))
	err := r.inner.SaveApplication(ctx, app)
	r.in.end(ctx, span, "SaveApplication", start, err)
	return err
}

func (r *InstrumentedRegistry) Ping(ctx context.Context) error {
	ctx, span, start := r.in.start(ctx, "Ping")
	err := r.inner.Ping(ctx)
	r.in.end(ctx, span, "Ping", start, err)
	return err
}

func (r *InstrumentedRegistry) Close() error {
	return r.inner.Close()
}

// InstrumentedCounter wraps a counter.Counter with tracing and metrics.
// Reaching the limit is not counted as an error.
type InstrumentedCounter struct {
	inner counter.Counter
	in    *instruments
}

// NewInstrumentedCounter wraps inner.
func NewInstrumentedCounter(inner counter.Counter) (*InstrumentedCounter, error) {
	in, err := newInstruments("counter")
	if err != nil {
		return nil, err
	}
	return &InstrumentedCounter{inner: inner, in: in}, nil
}

func (c *InstrumentedCounter) Count(ctx context.Context, appID uuid.UUID) (int64, error) {
	ctx, span, start := c.in.start(ctx, "Count", attribute.String("application.id", appID.String()))
	n, err := c.inner.Count(ctx, appID)
	c.in.end(ctx, span, "Count", start, err)
	return n, err
}

func (c *InstrumentedCounter) IncrementWithExpiry(ctx context.Context, appID uuid.UUID, limit int64, ttl time.Duration) (int64, error) {
	ctx, span, start := c.in.start(ctx, "IncrementWithExpiry",
		attribute.String("application.id", appID.String()),
		attribute.Int64("limit", limit),
	)
	n, err := c.inner.IncrementWithExpiry(ctx, appID, limit, ttl)
	c.in.end(ctx, span, "IncrementWithExpiry", start, err, counter.ErrLimitReached)
	return n, err
}

// Ping checks the wrapped store when it supports it.
func (c *InstrumentedCounter) Ping(ctx context.Context) error {
	p, ok := c.inner.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	ctx, span, start := c.in.start(ctx, "Ping")
	err := p.Ping(ctx)
	c.in.end(ctx, span, "Ping", start, err)
	return err
}

func (c *InstrumentedCounter) Close() error {
	return c.inner.Close()
}

// AdmissionMetrics counts authentication outcomes. It satisfies
// auth.Recorder.
type AdmissionMetrics struct {
	admissions metric.Int64Counter
}

// NewAdmissionMetrics registers the admission counter on the global meter.
func NewAdmissionMetrics() (*AdmissionMetrics, error) {
	admissions, err := otel.Meter("webcore/auth").Int64Counter(
		"auth.admissions",
		metric.WithDescription("API authentication attempts by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &AdmissionMetrics{admissions: admissions}, nil
}

// RecordAdmission adds one attempt with the given outcome.
func (m *AdmissionMetrics) RecordAdmission(ctx context.Context, outcome string) {
	m.admissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
