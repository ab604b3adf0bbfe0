// Package tracing installs the OpenTelemetry tracer provider and the W3C
// propagators used for outbound gateway calls.
package tracing

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName is reported as service.name on every span.
const DefaultServiceName = "payflow"

// Opts holds configuration options for the tracer provider.
type Opts struct {
	Writer      io.Writer // span export destination; nil keeps spans in-process only
	ServiceName string
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithWriter exports finished spans as JSON to w.
func WithWriter(w io.Writer) Option {
	return func(o *Opts) { o.Writer = w }
}

// WithServiceName overrides the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(o *Opts) { o.ServiceName = name }
}

// Provider owns the SDK tracer provider installed as the global one.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider builds an always-sampling tracer provider and installs it,
// together with a TraceContext and Baggage propagator, as the otel globals.
// Spans are still created and propagated when no writer is configured.
func NewProvider(opts ...Option) (*Provider, error) {
	cfg := Opts{ServiceName: DefaultServiceName}
	for _, opt := range opts {
		opt(&cfg)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource.NewWithAttributes("", attribute.String("service.name", cfg.ServiceName))),
	}
	if cfg.Writer != nil {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create span exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	slog.Debug("tracing.NewProvider: tracer provider installed", "service", cfg.ServiceName, "export", cfg.Writer != nil)
	return &Provider{tp: tp}, nil
}

// TracerProvider returns the installed provider.
func (p *Provider) TracerProvider() trace.TracerProvider { return p.tp }

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		slog.Error("tracing.Shutdown: failed to flush spans", "error", err)
		return err
	}
	return nil
}
