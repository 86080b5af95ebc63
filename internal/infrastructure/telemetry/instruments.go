package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instruments creates instruments on one meter and remembers the first
// failure, so a set of instruments is declared without an error check per
// line. After a failure the remaining instruments are no-ops.
type Instruments struct {
	meter metric.Meter
	err   error
}

// NewInstruments starts a set on meter
func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

// Err returns the first registration failure
func (in *Instruments) Err() error {
	return in.err
}

func (in *Instruments) fail(name string, err error) {
	if in.err == nil {
		in.err = fmt.Errorf("instrument %s: %w", name, err)
	}
}

// Counter is a monotonic int64 sum
type Counter struct {
	c metric.Int64Counter
}

func (in *Instruments) Counter(name, description, unit string) *Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
		c = noop.Int64Counter{}
	}
	return &Counter{c: c}
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

// UpDownCounter is an int64 sum that may decrease
type UpDownCounter struct {
	c metric.Int64UpDownCounter
}

func (in *Instruments) UpDownCounter(name, description, unit string) *UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
		c = noop.Int64UpDownCounter{}
	}
	return &UpDownCounter{c: c}
}

func (c *UpDownCounter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Histogram is a float64 distribution. With no bounds the SDK defaults apply.
type Histogram struct {
	h metric.Float64Histogram
}

func (in *Instruments) Histogram(name, description, unit string, bounds ...float64) *Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}
	h, err := in.meter.Float64Histogram(name, opts...)
	if err != nil {
		in.fail(name, err)
		h = noop.Float64Histogram{}
	}
	return &Histogram{h: h}
}

func (h *Histogram) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, v, metric.WithAttributes(attrs...))
}

// Observe records d in seconds
func (h *Histogram) Observe(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// Gauge holds the last recorded int64 value
type Gauge struct {
	g metric.Int64Gauge
}

func (in *Instruments) Gauge(name, description, unit string) *Gauge {
	g, err := in.meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
		g = noop.Int64Gauge{}
	}
	return &Gauge{g: g}
}

func (g *Gauge) Record(ctx context.Context, v int64, attrs ...attribute.KeyValue) {
	g.g.Record(ctx, v, metric.WithAttributes(attrs...))
}

// Metric attribute keys
var (
	AttrUserRole = attribute.Key("user_role")

	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")

	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")
)

// Bucket boundaries: durations in seconds, order values in reais
var (
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	DBDurationBuckets   = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	OrderValueBuckets   = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}
)
