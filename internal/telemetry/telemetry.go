// Package telemetry sets up in-process OpenTelemetry tracing and metrics.
// Spans are optionally pretty-printed to a writer; nothing leaves the
// process.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName scopes every tracer and meter created here.
const InstrumentationName = "github.com/chaz8081/talkkey"

// Config controls what Setup installs.
type Config struct {
	ServiceName string
	Version     string
	Traces      bool      // export spans to TraceWriter
	TraceWriter io.Writer // defaults to stdout
	// Reader is an extra metric reader, e.g. a ManualReader in tests.
	Reader sdkmetric.Reader
}

// Provider owns the tracer and meter providers.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Setup builds the providers and installs them as the otel globals.
func Setup(ctx context.Context, cfg Config, log *slog.Logger) (*Provider, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "talkkey"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Traces {
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.TraceWriter != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.TraceWriter))
		}
		exporter, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
		log.Info("telemetry initialized", "exporter", "stdout")
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Reader != nil {
		mpOpts = append(mpOpts, sdkmetric.WithReader(cfg.Reader))
	}
	mp := sdkmetric.NewMeterProvider(mpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return &Provider{tp: tp, mp: mp}, nil
}

// Tracer returns the application tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(InstrumentationName)
}

// Meter returns the application meter.
func (p *Provider) Meter() metric.Meter {
	return p.mp.Meter(InstrumentationName)
}

// Shutdown flushes pending spans and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if err := p.mp.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
