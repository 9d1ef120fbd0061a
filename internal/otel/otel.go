// Package otel wires plan-judge telemetry.
//
// Each evaluation run is exported as one trace; the resource identifies the
// judge (provider, model, mode) so that runs with different judges can be
// compared side by side. Without an OTLP endpoint every span and instrument
// is a no-op.
package otel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "plan-judge"

// Version is set from cmd.Version before Init.
var Version = "dev"

// Resource attribute keys describing the judge behind a run.
const (
	AttrProvider = attribute.Key("plan_judge.provider")
	AttrModel    = attribute.Key("plan_judge.model")
	AttrMode     = attribute.Key("plan_judge.mode")
)

// Config selects the OTLP target and describes the judge.
type Config struct {
	// Endpoint is the OTLP base URL, e.g. "http://localhost:3000/api/public/otel".
	// The signal paths /v1/traces and /v1/metrics are appended.
	Endpoint string
	// Headers uses the OTEL_EXPORTER_OTLP_HEADERS format: "k=v,k2=v2".
	Headers string

	Provider string
	Model    string
	Mode     string
}

// Attributes returns the judge attributes set on the exported resource.
// Empty values are omitted.
func (c Config) Attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, kv := range []attribute.KeyValue{
		AttrProvider.String(c.Provider),
		AttrModel.String(c.Model),
		AttrMode.String(c.Mode),
	} {
		if kv.Value.AsString() != "" {
			attrs = append(attrs, kv)
		}
	}
	return attrs
}

// Telemetry owns the providers installed by Init.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	Metrics *Metrics
}

// Enabled reports whether spans and metrics are exported.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.tp != nil
}

func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(val)
	}
	return headers
}

// target is an endpoint split the way the OTLP http exporters want it.
type target struct {
	host     string
	basePath string
	insecure bool
}

func parseEndpoint(endpoint string) (target, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return target{}, fmt.Errorf("otel: invalid endpoint URL %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return target{}, fmt.Errorf("otel: endpoint %q has no host", endpoint)
	}
	return target{
		host:     u.Host,
		basePath: strings.TrimRight(u.Path, "/"),
		insecure: u.Scheme == "http",
	}, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := append([]attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(Version),
	}, cfg.Attributes()...)
	return resource.New(ctx, resource.WithAttributes(attrs...), resource.WithHost())
}

// Init installs OTLP http exporters when cfg.Endpoint is set. Metrics are
// always created so that callers can record unconditionally.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	t := &Telemetry{}

	if cfg.Endpoint != "" {
		tgt, err := parseEndpoint(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		res, err := newResource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("otel resource: %w", err)
		}
		if err := t.installTracing(ctx, tgt, parseHeaders(cfg.Headers), res); err != nil {
			return nil, err
		}
		if err := t.installMetrics(ctx, tgt, parseHeaders(cfg.Headers), res); err != nil {
			t.Shutdown(ctx)
			return nil, err
		}
	}

	metrics, err := NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}
	t.Metrics = metrics
	return t, nil
}

func (t *Telemetry) installTracing(ctx context.Context, tgt target, headers map[string]string, res *resource.Resource) error {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(tgt.host),
		otlptracehttp.WithURLPath(tgt.basePath + "/v1/traces"),
	}
	if tgt.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(headers))
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("otel trace exporter: %w", err)
	}
	t.tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(t.tp)
	return nil
}

func (t *Telemetry) installMetrics(ctx context.Context, tgt target, headers map[string]string, res *resource.Resource) error {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(tgt.host),
		otlpmetrichttp.WithURLPath(tgt.basePath + "/v1/metrics"),
	}
	if tgt.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(headers))
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("otel metric exporter: %w", err)
	}
	// A run is short; export often enough that the final flush is small.
	t.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(t.mp)
	return nil
}

// Shutdown flushes pending spans and metrics.
func (t *Telemetry) Shutdown(ctx context.Context) {
	if t == nil {
		return
	}
	if t.tp != nil {
		_ = t.tp.Shutdown(ctx)
	}
	if t.mp != nil {
		_ = t.mp.Shutdown(ctx)
	}
}
