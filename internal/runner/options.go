package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/surge/internal/metrics"
)

// ErrInvalidOptions is returned by New when the options cannot describe a run.
var ErrInvalidOptions = errors.New("invalid runner options")

// Executor abstracts executing a single request.
// Failures are reported in the returned outcome, never as panics or errors.
type Executor interface {
	Execute(ctx context.Context) metrics.Outcome
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context) metrics.Outcome

func (f ExecutorFunc) Execute(ctx context.Context) metrics.Outcome { return f(ctx) }

// Options configure the Runner.
type Options struct {
	VirtualUsers   int                         // number of concurrent virtual users (>= 1)
	Duration       time.Duration               // run length; 0 stops as soon as all VUs are released
	Pause          time.Duration               // sleep between iterations of one VU
	RampUp         time.Duration               // spread VU starts linearly over this window (0 = all at once)
	RatePerSecond  int                         // global request cap across all VUs (0 means unlimited)
	Executor       Executor                    // request executor (required)
	Sink           metrics.Sink                // outcome consumer (required)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o Options) validate() error {
	var issues []string
	if o.VirtualUsers < 1 {
		issues = append(issues, fmt.Sprintf("virtual users must be >= 1, got %d", o.VirtualUsers))
	}
	if o.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if o.Pause < 0 {
		issues = append(issues, "pause must be >= 0")
	}
	if o.RampUp < 0 {
		issues = append(issues, "ramp-up must be >= 0")
	}
	if o.RatePerSecond < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if o.Executor == nil {
		issues = append(issues, "executor is required")
	}
	if o.Sink == nil {
		issues = append(issues, "sink is required")
	}
	if len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(issues, "; "))
	}
	return nil
}

func (o *Options) normalize() {
	if o.RampUp > o.Duration {
		o.RampUp = o.Duration
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps VUs from bunching up after a pause.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
