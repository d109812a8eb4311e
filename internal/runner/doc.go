// Package runner provides the virtual-user execution engine for surge.
//
// A run starts a fixed number of virtual users (VUs). Each VU is an
// independent goroutine that repeats one cycle until the run ends:
//
//	execute request -> record outcome -> pause -> check stop signal
//
// # Basic Usage
//
//	r, err := runner.New(runner.Options{
//		VirtualUsers: 10,
//		Duration:     15 * time.Second,
//		Pause:        time.Second,
//		Executor:     executor,
//		Sink:         collector,
//	})
//	if err != nil {
//		return err // invalid options, nothing was started
//	}
//	result := r.Run(ctx)
//
// # Stopping
//
// When the duration timer fires (or ctx is cancelled) the stop signal is
// raised. VUs observe it at cycle boundaries and while pausing; a request that
// is already in flight is allowed to complete or hit its own timeout, so an
// interrupt does not turn it into a failure. Run returns only after every VU
// has drained.
//
// # Pacing
//
// Options.Pause separates iterations of one VU. Options.RatePerSecond adds an
// optional global cap shared by all VUs, and Options.RampUp staggers VU start
// times across a window.
package runner
