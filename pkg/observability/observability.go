// Package observability wires OpenTelemetry tracing and metrics plus a
// structured slog logger, the way core/pkg/observability does for the
// teacher's services: a Provider bundling a tracer, a meter, and a set of
// named instruments, with Enabled=false short-circuiting to no-op providers.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	Enabled      bool
	Insecure     bool
}

// DefaultConfig returns kernel defaults: telemetry off unless explicitly
// enabled, since kiwi-kernel is typically embedded rather than run as a
// standalone service.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:  "kiwi-kernel",
		Environment:  "development",
		OTLPEndpoint: "localhost:4317",
		Enabled:      false,
		Insecure:     true,
	}
}

// Provider bundles a tracer, a meter, and the RED-style instruments the
// executor and harness record against.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	checkpointsEvaluated metric.Int64Counter
	hooksFired           metric.Int64Counter
	limitsExceeded       metric.Int64Counter
	chainDuration        metric.Float64Histogram
}

// New creates a Provider. When config.Enabled is false, it returns a
// Provider whose Tracer/Meter delegate to OTel's global no-op
// implementations, so callers never need to nil-check.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Provider{config: cfg, logger: slog.Default().With("component", "observability")}

	if !cfg.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		p.tracer = otel.Tracer("kiwi-kernel")
		p.meter = otel.Meter("kiwi-kernel")
		if err := p.initInstruments(); err != nil {
			return nil, err
		}
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("observability: init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("observability: init metric provider: %w", err)
	}

	p.tracer = otel.Tracer("kiwi-kernel")
	p.meter = otel.Meter("kiwi-kernel")
	if err := p.initInstruments(); err != nil {
		return nil, fmt.Errorf("observability: init instruments: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized", "endpoint", cfg.OTLPEndpoint)
	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return err
	}
	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return err
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initInstruments() error {
	var err error
	p.checkpointsEvaluated, err = p.meter.Int64Counter("kiwi.harness.checkpoints_evaluated",
		metric.WithDescription("Number of harness checkpoints evaluated"))
	if err != nil {
		return err
	}
	p.hooksFired, err = p.meter.Int64Counter("kiwi.harness.hooks_fired",
		metric.WithDescription("Number of hooks whose when-clause matched"))
	if err != nil {
		return err
	}
	p.limitsExceeded, err = p.meter.Int64Counter("kiwi.harness.limits_exceeded",
		metric.WithDescription("Number of synthetic limits-exceeded events raised"))
	if err != nil {
		return err
	}
	p.chainDuration, err = p.meter.Float64Histogram("kiwi.executor.chain_duration",
		metric.WithDescription("Chain execution duration in seconds"), metric.WithUnit("s"))
	return err
}

// Shutdown drains and shuts down the underlying providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "shutdown trace provider", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "shutdown metric provider", "error", err)
		}
	}
	return nil
}

// Tracer returns the configured tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// StartChainSpan starts a span for one chain execution.
func (p *Provider) StartChainSpan(ctx context.Context, toolID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "chain.execute", trace.WithAttributes(attribute.String("tool_id", toolID)))
}

// StartPrimitiveSpan starts a span for one terminal primitive dispatch.
func (p *Provider) StartPrimitiveSpan(ctx context.Context, primitiveID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "primitive.dispatch", trace.WithAttributes(attribute.String("primitive_id", primitiveID)))
}

// RecordCheckpoint increments the checkpoints-evaluated counter.
func (p *Provider) RecordCheckpoint(ctx context.Context, name string) {
	if p.checkpointsEvaluated != nil {
		p.checkpointsEvaluated.Add(ctx, 1, metric.WithAttributes(attribute.String("checkpoint", name)))
	}
}

// RecordHookFired increments the hooks-fired counter.
func (p *Provider) RecordHookFired(ctx context.Context, directive string) {
	if p.hooksFired != nil {
		p.hooksFired.Add(ctx, 1, metric.WithAttributes(attribute.String("directive", directive)))
	}
}

// RecordLimitExceeded increments the limits-exceeded counter.
func (p *Provider) RecordLimitExceeded(ctx context.Context, metricName string) {
	if p.limitsExceeded != nil {
		p.limitsExceeded.Add(ctx, 1, metric.WithAttributes(attribute.String("metric", metricName)))
	}
}

// RecordChainDuration records one chain execution's wall-clock duration.
func (p *Provider) RecordChainDuration(ctx context.Context, d time.Duration) {
	if p.chainDuration != nil {
		p.chainDuration.Record(ctx, d.Seconds())
	}
}
