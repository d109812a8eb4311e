package runner

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/surge/internal/metrics"
)

// virtualUser is one sequential request loop: request, check, sleep, repeat.
type virtualUser struct {
	id       int
	executor Executor
	sink     metrics.Sink
	pause    time.Duration
	delay    time.Duration
	limiter  *rate.Limiter
	total    *int64
	failures *int64
}

func (v *virtualUser) run(reqCtx, stopCtx context.Context) {
	if !sleep(stopCtx, v.delay) {
		return
	}

	var iteration int64
	for {
		// Cycle boundary: never begin a request after stop.
		if stopCtx.Err() != nil {
			return
		}
		if v.limiter != nil {
			if err := v.limiter.Wait(stopCtx); err != nil {
				return
			}
		}

		iteration++
		v.record(v.executor.Execute(reqCtx), iteration)

		if !sleep(stopCtx, v.pause) {
			return
		}
	}
}

func (v *virtualUser) record(o metrics.Outcome, iteration int64) {
	o.VU = v.id
	o.Iteration = iteration
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now()
	}
	atomic.AddInt64(v.total, 1)
	if !o.Passed {
		atomic.AddInt64(v.failures, 1)
	}
	v.sink.Record(o)
}

// sleep waits for d or until ctx is done. It reports whether the caller
// should keep going.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
