package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/surge/internal/metrics"
	"github.com/torosent/surge/internal/tracing"
)

// MaxBodyBytes bounds how much of a response body is buffered for checks.
// Anything beyond it is drained and discarded.
const MaxBodyBytes = 1 << 20

// Executor issues one request per call and classifies the result.
type Executor struct {
	client     *http.Client
	builder    *RequestBuilder
	check      Check
	trackField string
	tracer     trace.Tracer
	propagate  bool
}

// Option customises an Executor.
type Option func(*Executor)

// WithTracing emits a client span per request and, when the provider allows
// it, injects W3C trace headers.
func WithTracing(p *tracing.Provider) Option {
	return func(e *Executor) {
		if p == nil || !p.Enabled() {
			return
		}
		WithTracer(p.Tracer(), p.ShouldPropagate())(e)
	}
}

// WithTracer is WithTracing for an explicit tracer.
func WithTracer(tracer trace.Tracer, propagate bool) Option {
	return func(e *Executor) {
		e.tracer = tracer
		e.propagate = propagate
	}
}

// WithTrackField records the value at a gjson path of every response body as
// the outcome's variant.
func WithTrackField(path string) Option {
	return func(e *Executor) {
		e.trackField = path
	}
}

func NewExecutor(client *http.Client, builder *RequestBuilder, check Check, opts ...Option) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{
		client:  client,
		builder: builder,
		check:   check,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs one GET. Transport errors are reported in the outcome with
// a zero status code; they are never returned.
func (e *Executor) Execute(ctx context.Context) metrics.Outcome {
	start := time.Now()
	outcome := metrics.Outcome{Timestamp: start}

	var span trace.Span
	if e.tracer != nil {
		ctx, span = tracing.StartRequestSpan(ctx, e.tracer, e.builder.Method(), e.builder.Target())
	}

	req, err := e.builder.Build(ctx)
	if err != nil {
		outcome.Err = fmt.Errorf("build request: %w", err)
		outcome.Latency = time.Since(start)
		e.endSpan(span, outcome)
		return outcome
	}
	if e.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		outcome.Err = err
		outcome.Latency = time.Since(start)
		e.endSpan(span, outcome)
		return outcome
	}

	body, err := e.consume(resp)
	outcome.Latency = time.Since(start)
	if err != nil {
		outcome.Err = fmt.Errorf("read body: %w", err)
		e.endSpan(span, outcome)
		return outcome
	}

	outcome.StatusCode = resp.StatusCode
	outcome.Variant = lookupField(body, e.trackField)
	if err := e.check.Evaluate(resp.StatusCode, body); err != nil {
		outcome.Err = err
	} else {
		outcome.Passed = true
	}
	e.endSpan(span, outcome)
	return outcome
}

// consume reads up to MaxBodyBytes of the body when something needs it and
// drains the rest so the connection can be reused.
func (e *Executor) consume(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	var body []byte
	if e.check.NeedsBody() || e.trackField != "" || resp.StatusCode != e.check.ExpectStatus {
		var err error
		body, err = io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
		if err != nil {
			return nil, err
		}
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return nil, err
	}
	return body, nil
}

func (e *Executor) endSpan(span trace.Span, outcome metrics.Outcome) {
	if span == nil {
		return
	}
	var attrs []attribute.KeyValue
	if outcome.StatusCode != 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", outcome.StatusCode))
	}
	if outcome.Variant != "" {
		attrs = append(attrs, attribute.String("surge.variant", outcome.Variant))
	}
	tracing.EndSpan(span, outcome.Err, attrs...)
}
