package httpclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/torosent/surge/internal/config"
)

func TestBuildRequestWithHeaders(t *testing.T) {
	cfg := &config.Config{
		TargetURL: "http://example.com/api",
		Headers: map[string]string{
			"accept":     "application/json",
			"X-Trace-Id": "12345",
		},
	}

	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("expected builder, got error: %v", err)
	}

	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodGet {
		t.Fatalf("expected method GET, got %s", req.Method)
	}
	if req.URL.String() != cfg.TargetURL {
		t.Fatalf("expected URL %s, got %s", cfg.TargetURL, req.URL.String())
	}
	if req.Header.Get("Accept") != "application/json" {
		t.Fatalf("expected canonical Accept header, got %q", req.Header.Get("Accept"))
	}
	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}
	if req.Body != nil && req.Body != http.NoBody {
		t.Fatalf("expected no request body")
	}
}

func TestBuildRequestHeadersAreIsolated(t *testing.T) {
	builder, err := NewRequestBuilder(&config.Config{
		TargetURL: "http://example.com/",
		Headers:   map[string]string{"X-Env": "canary"},
	})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	first, _ := builder.Build(context.Background())
	first.Header.Set("Traceparent", "00-abc")
	second, _ := builder.Build(context.Background())
	if second.Header.Get("Traceparent") != "" {
		t.Fatalf("headers leaked between requests")
	}
}

func TestNewRequestBuilderErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "nil config"},
		{name: "empty target", cfg: &config.Config{TargetURL: "  "}},
		{name: "header injection", cfg: &config.Config{
			TargetURL: "http://example.com",
			Headers:   map[string]string{"X-Bad": "a\r\nb"},
		}},
		{name: "empty header key", cfg: &config.Config{
			TargetURL: "http://example.com",
			Headers:   map[string]string{" ": "value"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRequestBuilder(tt.cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNewClientTimeoutAndPool(t *testing.T) {
	client := NewClient(2*time.Second, 100)
	if client.Timeout != 2*time.Second {
		t.Fatalf("expected timeout 2s, got %s", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConnsPerHost != 100 {
		t.Fatalf("expected 100 idle conns per host, got %d", transport.MaxIdleConnsPerHost)
	}
	if transport.MaxIdleConns != 256 {
		t.Fatalf("expected 256 idle conns, got %d", transport.MaxIdleConns)
	}

	small := NewClient(-1, 1)
	if small.Timeout != 0 {
		t.Fatalf("expected negative timeout to clamp to 0, got %s", small.Timeout)
	}
	if small.Transport.(*http.Transport).MaxIdleConnsPerHost != 32 {
		t.Fatalf("expected idle pool floor of 32")
	}
}
