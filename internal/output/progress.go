package output

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/torosent/surge/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			stats := p.collector.Stats(p.collector.Elapsed())
			fmt.Fprint(p.writer, "\r"+progressLine(stats))
		case <-p.done:
			return
		}
	}
}

func progressLine(stats metrics.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Requests: %d | Successes: %d | Failures: %d | RPS: %.1f | P95: %.1fms",
		stats.Total, stats.Successes, stats.Failures, stats.RequestsPerSec, stats.P95LatencyMs)
	if variants := metrics.FlattenCounts(stats.Variants); len(variants) > 0 {
		parts := make([]string, 0, len(variants))
		for _, v := range variants {
			parts = append(parts, fmt.Sprintf("%s %.0f%%", v.Label, metrics.Share(v.Count, stats.Total)))
		}
		b.WriteString(" | Variants: " + strings.Join(parts, ", "))
	}
	return b.String()
}
