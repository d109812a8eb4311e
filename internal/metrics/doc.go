// Package metrics aggregates request outcomes produced by virtual users.
//
// Every request issued during a run yields one [Outcome]. Outcomes stream into
// a [Collector], which keeps running counters and an HDR latency histogram and
// can produce a [Stats] summary at any time:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//
//	collector.Record(metrics.Outcome{
//		Timestamp:  time.Now(),
//		Latency:    12 * time.Millisecond,
//		StatusCode: 200,
//		Passed:     true,
//	})
//
//	stats := collector.Stats(collector.Elapsed())
//
// # Failure classes
//
// A failed outcome is either a transport failure (no response, StatusCode 0)
// or a check failure (a response the check rejected). Both count toward
// [Stats.Failures] and are also broken down by [ErrorLabel].
//
// # Thread Safety
//
// Record may be called from any number of goroutines.
package metrics
