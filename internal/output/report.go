// Package output renders run summaries for terminals and machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/surge/internal/metrics"
	"github.com/torosent/surge/internal/threshold"
)

// ReportMetadata describes the configuration a run was executed with.
type ReportMetadata struct {
	TargetURL    string        `json:"target"`
	Environment  string        `json:"env,omitempty"`
	VirtualUsers int           `json:"vus"`
	Duration     time.Duration `json:"-"`
	Pause        time.Duration `json:"-"`
	TrackField   string        `json:"track_field,omitempty"`

	DurationMs float64 `json:"duration_ms"`
	PauseMs    float64 `json:"pause_ms"`
}

// ThresholdSummary aggregates threshold results for the JSON report.
type ThresholdSummary struct {
	Total   int                   `json:"total"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []ThresholdResultJSON `json:"results"`
}

// ThresholdResultJSON is one evaluated threshold.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

type jsonReport struct {
	Config     ReportMetadata    `json:"config"`
	Summary    metrics.Stats     `json:"summary"`
	Thresholds *ThresholdSummary `json:"thresholds,omitempty"`
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats, meta ReportMetadata) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	if meta.TargetURL != "" {
		target := meta.TargetURL
		if meta.Environment != "" {
			target = fmt.Sprintf("%s (%s)", target, meta.Environment)
		}
		fmt.Fprintf(w, "Target:            %s\n", target)
	}
	if meta.VirtualUsers > 0 {
		fmt.Fprintf(w, "Virtual Users:     %d\n", meta.VirtualUsers)
		fmt.Fprintf(w, "Pause:             %s\n", meta.Pause)
	}
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d (%.2f%%)\n", stats.Successes, stats.SuccessRate*100)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	if stats.Failures > 0 {
		fmt.Fprintf(w, "  Transport:       %d\n", stats.TransportFailures)
		fmt.Fprintf(w, "  Check:           %d\n", stats.CheckFailures)
	}
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P95:             %s\n", stats.P95Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.StatusCodes) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		writeBuckets(w, stats.StatusCodes, stats.Total, "  ")
	}
	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		writeBuckets(w, stats.Errors, stats.Failures, "  ")
	}
	if len(stats.Variants) > 0 {
		label := "Variants"
		if meta.TrackField != "" {
			label = fmt.Sprintf("Variants (%s)", meta.TrackField)
		}
		fmt.Fprintf(w, "\n%s:\n", label)
		writeBuckets(w, stats.Variants, stats.Total, "  ")
	}
}

// PrintThresholdResults writes one line per evaluated threshold.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	summary := summarizeThresholds(results)
	fmt.Fprintf(w, "\nThresholds: %d passed, %d failed\n", summary.Passed, summary.Failed)
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats, meta ReportMetadata, results []threshold.Result) error {
	meta.DurationMs = float64(meta.Duration) / float64(time.Millisecond)
	meta.PauseMs = float64(meta.Pause) / float64(time.Millisecond)

	report := jsonReport{
		Config:     meta,
		Summary:    stats,
		Thresholds: summarizeThresholds(results),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	summary := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		summary.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func writeBuckets(w io.Writer, counts map[string]int, total int64, indent string) {
	for _, b := range metrics.FlattenCounts(counts) {
		fmt.Fprintf(w, "%s%-16s %d (%.1f%%)\n", indent, b.Label+":", b.Count, metrics.Share(b.Count, total))
	}
}
