package otel

import (
	"context"
	"testing"
	"time"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("Authorization=Basic abc=, x-team = a11y ,=skip,novalue")
	if len(got) != 2 {
		t.Fatalf("expected 2 headers, got %d: %v", len(got), got)
	}
	if got["Authorization"] != "Basic abc=" {
		t.Errorf("Authorization: got %q", got["Authorization"])
	}
	if got["x-team"] != "a11y" {
		t.Errorf("x-team: got %q", got["x-team"])
	}
	if len(parseHeaders("")) != 0 {
		t.Error("empty input should yield no headers")
	}
}

func TestInit_NoEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	tel, err := Init(ctx, Config{Provider: "anthropic"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer tel.Shutdown(ctx)

	if tel.Metrics == nil {
		t.Fatal("expected metrics even without an endpoint")
	}
	if tel.Enabled() {
		t.Error("telemetry without an endpoint should not export")
	}
	tel.Metrics.RecordEvaluation(ctx, "strategic", "scored")
	tel.Metrics.RecordRun(ctx, "complete", time.Second)
}

func TestInit_InvalidEndpoint(t *testing.T) {
	if _, err := Init(context.Background(), Config{Endpoint: "http://[::1"}); err == nil {
		t.Fatal("expected error for malformed endpoint")
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     target
		wantErr  bool
	}{
		{endpoint: "http://localhost:4318", want: target{host: "localhost:4318", insecure: true}},
		{endpoint: "https://cloud.langfuse.com/api/public/otel/", want: target{host: "cloud.langfuse.com", basePath: "/api/public/otel"}},
		{endpoint: "localhost:4318", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseEndpoint(tt.endpoint)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.endpoint)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.endpoint, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.endpoint, got, tt.want)
		}
	}
}

func TestConfigAttributes(t *testing.T) {
	attrs := Config{Provider: "openai", Model: "gpt-4o", Mode: ""}.Attributes()
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes (empty mode omitted), got %v", attrs)
	}
	if attrs[0].Key != AttrProvider || attrs[0].Value.AsString() != "openai" {
		t.Errorf("provider attribute: got %v", attrs[0])
	}
	if attrs[1].Key != AttrModel || attrs[1].Value.AsString() != "gpt-4o" {
		t.Errorf("model attribute: got %v", attrs[1])
	}
}

func TestShutdown_NilSafe(t *testing.T) {
	var tel *Telemetry
	tel.Shutdown(context.Background())
	if tel.Enabled() {
		t.Error("nil telemetry is not enabled")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordTokens(ctx, "anthropic", "claude", 1, 2, 3, 4)
	m.RecordCacheHit(ctx)
	m.RecordCacheMiss(ctx)
	m.RecordCacheInvalidation(ctx)
	m.RecordEvaluation(ctx, "technical", "timeout")
	m.RecordRun(ctx, "failed", time.Millisecond)
}
