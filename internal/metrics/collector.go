package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector aggregates request outcomes in a thread-safe manner.
type Collector struct {
	mu                sync.Mutex
	hist              *hdrhistogram.Histogram
	successes         int64
	transportFailures int64
	checkFailures     int64
	minLatency        time.Duration
	maxLatency        time.Duration
	sumLatency        time.Duration
	statusCodes       map[string]int64
	errorsByType      map[string]int64
	variants          map[string]int64
	start             time.Time
}

// Stats represents aggregated metrics for a run.
type Stats struct {
	Total             int64         `json:"total"`
	Successes         int64         `json:"successes"`
	Failures          int64         `json:"failures"`
	TransportFailures int64         `json:"transport_failures"`
	CheckFailures     int64         `json:"check_failures"`
	SuccessRate       float64       `json:"success_rate"`
	MinLatency        time.Duration `json:"-"`
	MaxLatency        time.Duration `json:"-"`
	MeanLatency       time.Duration `json:"-"`
	P50Latency        time.Duration `json:"-"`
	P90Latency        time.Duration `json:"-"`
	P95Latency        time.Duration `json:"-"`
	P99Latency        time.Duration `json:"-"`
	Duration          time.Duration `json:"-"`
	RequestsPerSec    float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	StatusCodes map[string]int `json:"status_codes,omitempty"`
	Errors      map[string]int `json:"errors,omitempty"`
	Variants    map[string]int `json:"variants,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		statusCodes:  make(map[string]int64),
		errorsByType: make(map[string]int64),
		variants:     make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the beginning of the run for elapsed-time calculations.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// Elapsed returns the time since Start (or construction).
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// Record adds a single outcome to the aggregate.
func (c *Collector) Record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	latency := max(o.Latency, 0)
	us := latency.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)
	c.sumLatency += latency

	first := c.successes+c.transportFailures+c.checkFailures == 0
	if first || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if o.StatusCode != 0 {
		c.statusCodes[strconv.Itoa(o.StatusCode)]++
	}
	if o.Variant != "" {
		c.variants[o.Variant]++
	}

	switch {
	case o.Passed:
		c.successes++
	case o.TransportFailure():
		c.transportFailures++
		c.errorsByType[ErrorLabel(o.Err)]++
	default:
		c.checkFailures++
		c.errorsByType[ErrorLabel(o.Err)]++
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := c.transportFailures + c.checkFailures
	total := c.successes + failures
	stats := Stats{
		Total:             total,
		Successes:         c.successes,
		Failures:          failures,
		TransportFailures: c.transportFailures,
		CheckFailures:     c.checkFailures,
		MinLatency:        c.minLatency,
		MaxLatency:        c.maxLatency,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
		stats.SuccessRate = float64(c.successes) / float64(total)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P95Latency = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = toMillis(stats.MinLatency)
	stats.MaxLatencyMs = toMillis(stats.MaxLatency)
	stats.MeanLatencyMs = toMillis(stats.MeanLatency)
	stats.P50LatencyMs = toMillis(stats.P50Latency)
	stats.P90LatencyMs = toMillis(stats.P90Latency)
	stats.P95LatencyMs = toMillis(stats.P95Latency)
	stats.P99LatencyMs = toMillis(stats.P99Latency)

	stats.Duration = elapsed
	stats.DurationMs = toMillis(elapsed)
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	stats.StatusCodes = copyCounts(c.statusCodes)
	stats.Errors = copyCounts(c.errorsByType)
	stats.Variants = copyCounts(c.variants)

	return stats
}

func copyCounts(src map[string]int64) map[string]int {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = int(v)
	}
	return out
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
