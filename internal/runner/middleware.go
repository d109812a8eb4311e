package runner

import (
	"github.com/torosent/surge/internal/metrics"
)

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(o metrics.Outcome)
}

// loggingSink wraps a Sink with failure logging.
type loggingSink struct {
	inner  metrics.Sink
	logger FailureLogger
}

// WithLogging wraps a Sink so failed outcomes are also handed to logger.
// Outcomes reach the logger after the VU id and iteration are stamped.
func WithLogging(sink metrics.Sink, logger FailureLogger) metrics.Sink {
	if logger == nil {
		return sink
	}
	return &loggingSink{
		inner:  sink,
		logger: logger,
	}
}

func (l *loggingSink) Record(o metrics.Outcome) {
	l.inner.Record(o)
	if !o.Passed {
		l.logger.LogFailure(o)
	}
}
