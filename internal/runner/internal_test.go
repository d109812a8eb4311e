package runner

import (
	"errors"
	"testing"
	"time"

	"github.com/torosent/surge/internal/metrics"
)

func TestRampDelay(t *testing.T) {
	tests := []struct {
		index, count int
		rampUp       time.Duration
		want         time.Duration
	}{
		{0, 4, time.Second, 0},
		{1, 4, time.Second, 250 * time.Millisecond},
		{3, 4, time.Second, 750 * time.Millisecond},
		{2, 4, 0, 0},
		{0, 1, time.Second, 0},
	}
	for _, tt := range tests {
		if got := rampDelay(tt.index, tt.count, tt.rampUp); got != tt.want {
			t.Errorf("rampDelay(%d, %d, %s) = %s, want %s", tt.index, tt.count, tt.rampUp, got, tt.want)
		}
	}
}

func TestNormalizeCapsRampUp(t *testing.T) {
	opt := Options{Duration: time.Second, RampUp: 5 * time.Second}
	opt.normalize()
	if opt.RampUp != time.Second {
		t.Errorf("RampUp = %s, want 1s", opt.RampUp)
	}
	if opt.LimiterFactory == nil {
		t.Error("LimiterFactory should not be nil")
	}
}

type captureLogger struct {
	logged []metrics.Outcome
}

func (c *captureLogger) LogFailure(o metrics.Outcome) { c.logged = append(c.logged, o) }

type countingSink struct{ n int }

func (c *countingSink) Record(metrics.Outcome) { c.n++ }

func TestWithLogging(t *testing.T) {
	inner := &countingSink{}
	logger := &captureLogger{}
	sink := WithLogging(inner, logger)

	sink.Record(metrics.Outcome{Passed: true, StatusCode: 200})
	sink.Record(metrics.Outcome{StatusCode: 500, Err: errors.New("status 500"), VU: 2, Iteration: 7})

	if inner.n != 2 {
		t.Fatalf("inner sink saw %d outcomes, want 2", inner.n)
	}
	if len(logger.logged) != 1 {
		t.Fatalf("logged %d outcomes, want 1", len(logger.logged))
	}
	if logger.logged[0].VU != 2 || logger.logged[0].Iteration != 7 {
		t.Errorf("logged outcome lost VU/iteration: %+v", logger.logged[0])
	}

	if WithLogging(inner, nil) != inner {
		t.Error("WithLogging(nil logger) should return the sink unchanged")
	}
}
