package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Result captures execution summary.
type Result struct {
	Total      int64
	Failures   int64
	VUsStarted int
	Duration   time.Duration
}

// Runner drives a fixed number of virtual users for a fixed duration.
type Runner struct {
	opt     Options
	limiter *rate.Limiter
}

// New validates the options and builds a Runner. Options are copied, so later
// changes by the caller do not affect the run.
func New(opt Options) (*Runner, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	opt.normalize()
	var limiter *rate.Limiter
	if opt.RatePerSecond > 0 {
		limiter = opt.LimiterFactory(opt.RatePerSecond)
	}
	return &Runner{opt: opt, limiter: limiter}, nil
}

// Run starts every virtual user, waits for the duration to elapse (or ctx to
// be cancelled), signals all users to stop and waits for them to drain.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var total, failures, started int64

	// stopCtx is the cooperative stop signal. Requests run on reqCtx, which
	// keeps ctx's values but not its cancellation, so a request in flight when
	// the timer fires or ctx is cancelled finishes or hits its client timeout.
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()
	reqCtx := context.WithoutCancel(ctx)

	release := make(chan struct{})
	var ready, wg sync.WaitGroup
	ready.Add(r.opt.VirtualUsers)
	wg.Add(r.opt.VirtualUsers)
	for i := 0; i < r.opt.VirtualUsers; i++ {
		vu := &virtualUser{
			id:       i + 1,
			executor: r.opt.Executor,
			sink:     r.opt.Sink,
			pause:    r.opt.Pause,
			delay:    rampDelay(i, r.opt.VirtualUsers, r.opt.RampUp),
			limiter:  r.limiter,
			total:    &total,
			failures: &failures,
		}
		go func() {
			defer wg.Done()
			atomic.AddInt64(&started, 1)
			ready.Done()
			<-release
			vu.run(reqCtx, stopCtx)
		}()
	}

	// Every VU goroutine is running before the duration timer is armed.
	ready.Wait()
	close(release)

	timer := time.NewTimer(r.opt.Duration)
	defer timer.Stop()
	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-drained:
	}
	stop()
	<-drained

	return Result{
		Total:      atomic.LoadInt64(&total),
		Failures:   atomic.LoadInt64(&failures),
		VUsStarted: int(atomic.LoadInt64(&started)),
		Duration:   time.Since(start),
	}
}

// rampDelay spreads VU starts linearly across the ramp-up window.
func rampDelay(index, count int, rampUp time.Duration) time.Duration {
	if rampUp <= 0 || count <= 1 {
		return 0
	}
	return time.Duration(int64(rampUp) * int64(index) / int64(count))
}
