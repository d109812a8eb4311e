package metrics

import "time"

// Outcome is the immutable result of one request issued by a virtual user.
type Outcome struct {
	Timestamp  time.Time     // when the request was started
	Latency    time.Duration // time until response headers and body were consumed, or until failure
	StatusCode int           // 0 when no complete response was received
	Passed     bool          // whether the check accepted the response
	Err        error         // transport or check failure detail; nil when Passed
	VU         int           // 1-based virtual user id
	Iteration  int64         // 1-based iteration number within the virtual user
	Variant    string        // tracked response field value, if configured
}

// TransportFailure reports whether the request failed before any response arrived.
func (o Outcome) TransportFailure() bool {
	return !o.Passed && o.StatusCode == 0
}

// CheckFailure reports whether a response arrived but was rejected by the check.
func (o Outcome) CheckFailure() bool {
	return !o.Passed && o.StatusCode != 0
}

// Sink consumes outcomes as they are produced.
type Sink interface {
	Record(Outcome)
}
