// Package telemetry wires OpenTelemetry traces, metrics and logs, plus
// Pyroscope profiling, for the marketplace API.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceVersion  = "1.0.0"
	shutdownTimeout = 10 * time.Second

	defaultExportInterval = 60 * time.Second
)

// Options selects which signals are shipped to the OTLP/gRPC collector
type Options struct {
	ServiceName string
	Endpoint    string
	Insecure    bool

	Traces        bool
	SamplingRatio float64

	Metrics        bool
	ExportInterval time.Duration

	Logs bool
}

// Providers owns the SDK providers installed as OTel globals. A signal that
// is switched off keeps the global no-op implementation.
type Providers struct {
	serviceName string
	log         *zap.Logger

	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider

	spanProfiles atomic.Bool
}

// Setup starts an exporter per enabled signal. If any of them fails the
// ones already started are shut down again.
func Setup(ctx context.Context, opts Options, log *zap.Logger) (_ *Providers, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Providers{serviceName: opts.ServiceName, log: log}
	if !opts.Traces && !opts.Metrics && !opts.Logs {
		log.Info("Telemetry export disabled")
		return p, nil
	}

	defer func() {
		if err != nil {
			_ = p.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	res, err := newResource(opts.ServiceName)
	if err != nil {
		return nil, err
	}

	type starter func(context.Context, Options, *resource.Resource) error
	for _, s := range []struct {
		on    bool
		start starter
	}{
		{opts.Traces, p.startTraces},
		{opts.Metrics, p.startMetrics},
		{opts.Logs, p.startLogs},
	} {
		if !s.on {
			continue
		}
		if err = s.start(ctx, opts, res); err != nil {
			return nil, err
		}
	}

	log.Info("OpenTelemetry initialized",
		zap.String("collector_endpoint", opts.Endpoint),
		zap.String("service_name", opts.ServiceName),
		zap.Bool("traces", opts.Traces),
		zap.Bool("metrics", opts.Metrics),
		zap.Bool("logs", opts.Logs),
	)
	return p, nil
}

func (p *Providers) startTraces(ctx context.Context, opts Options, res *resource.Resource) error {
	eo := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		eo = append(eo, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, eo...)
	if err != nil {
		return fmt.Errorf("otlp trace exporter: %w", err)
	}

	p.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(opts.SamplingRatio)),
	)
	otel.SetTracerProvider(p.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Providers) startMetrics(ctx context.Context, opts Options, res *resource.Resource) error {
	eo := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		eo = append(eo, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, eo...)
	if err != nil {
		return fmt.Errorf("otlp metric exporter: %w", err)
	}

	interval := opts.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	p.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(p.metrics)
	return nil
}

func (p *Providers) startLogs(ctx context.Context, opts Options, res *resource.Resource) error {
	eo := []otlploggrpc.Option{otlploggrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		eo = append(eo, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, eo...)
	if err != nil {
		return fmt.Errorf("otlp log exporter: %w", err)
	}

	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	)
	global.SetLoggerProvider(p.logs)
	return nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	return res, nil
}

// samplerFor is parent-based so an upstream sampling decision wins
func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Tracing reports whether spans are exported
func (p *Providers) Tracing() bool { return p.traces != nil }

// Meter returns a meter from the exporting provider, or the global one
func (p *Providers) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.metrics == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.metrics.Meter(name, opts...)
}

// EnableSpanProfiles tags CPU profiles with the active span id. The
// Pyroscope profiler must already be running. Calling it twice is a no-op.
func (p *Providers) EnableSpanProfiles() {
	if p.traces == nil || !p.spanProfiles.CompareAndSwap(false, true) {
		return
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(p.traces))
	p.log.Info("Span profiles enabled", zap.String("service_name", p.serviceName))
}

// Tee returns base extended with an OTel log core that receives entries at
// or above level. Without log export base is returned unchanged.
func (p *Providers) Tee(base *zap.Logger, level zapcore.Level) *zap.Logger {
	if p.logs == nil {
		return base
	}
	exported := &minLevelCore{
		Core: otelzap.NewCore(p.serviceName, otelzap.WithLoggerProvider(p.logs)),
		min:  level,
	}
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, exported)
	}))
}

// Shutdown flushes every running provider, logs last so shutdown messages
// from the other signals still go out.
func (p *Providers) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if p.traces != nil {
		if err := p.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("traces: %w", err))
		}
	}
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logs: %w", err))
		}
	}
	return errors.Join(errs...)
}

// minLevelCore filters an otelzap core, which has no level of its own
type minLevelCore struct {
	zapcore.Core
	min zapcore.Level
}

func (c *minLevelCore) Enabled(l zapcore.Level) bool {
	return l >= c.min && c.Core.Enabled(l)
}

func (c *minLevelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *minLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &minLevelCore{Core: c.Core.With(fields), min: c.min}
}
