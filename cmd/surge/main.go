package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/torosent/surge/internal/config"
	"github.com/torosent/surge/internal/dashboard"
	"github.com/torosent/surge/internal/httpclient"
	"github.com/torosent/surge/internal/metrics"
	"github.com/torosent/surge/internal/output"
	"github.com/torosent/surge/internal/runner"
	"github.com/torosent/surge/internal/threshold"
	"github.com/torosent/surge/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

// errThresholdsFailed marks a completed run whose thresholds did not hold.
var errThresholdsFailed = errors.New("thresholds failed")

type stderrFailureLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one load test. Failed requests never make it return an error;
// only configuration problems and failed thresholds do.
func run(args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		// The first interrupt drains the run; a second one gets the default handler.
		cancel()
	}()

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "[surge] tracing shutdown: %v\n", err)
		}
	}()

	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return err
	}
	executor := httpclient.NewExecutor(
		httpclient.NewClient(cfg.Timeout, cfg.VirtualUsers),
		builder,
		httpclient.NewCheck(cfg),
		httpclient.WithTracing(tp),
		httpclient.WithTrackField(cfg.TrackField),
	)

	collector := metrics.NewCollector()
	var sink metrics.Sink = collector
	if cfg.LogErrors {
		sink = runner.WithLogging(sink, &stderrFailureLogger{w: stderr})
	}

	r, err := runner.New(runner.Options{
		VirtualUsers:  cfg.VirtualUsers,
		Duration:      cfg.Duration,
		Pause:         cfg.Pause,
		RampUp:        cfg.RampUp,
		RatePerSecond: cfg.Rate,
		Executor:      executor,
		Sink:          sink,
	})
	if err != nil {
		return err
	}

	stopDisplay := func() {}
	switch {
	case cfg.Dashboard:
		dash, err := dashboard.New(collector, dashboardConfig(cfg), cancel)
		if err != nil {
			return err
		}
		dash.Start()
		stopDisplay = dash.Stop
	case !cfg.JSONOutput:
		progress := output.NewProgressReporter(collector, progressInterval, stdout)
		progress.Start()
		stopDisplay = func() {
			progress.Stop()
			fmt.Fprintln(stdout)
		}
	}

	collector.Start()
	result := r.Run(ctx)
	stopDisplay()

	stats := collector.Stats(result.Duration)
	results := threshold.NewEvaluator(thresholds).Evaluate(stats)
	meta := reportMetadata(cfg)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, stats, meta, results); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, stats, meta)
		output.PrintThresholdResults(stdout, results)
	}

	if !threshold.AllPassed(results) {
		failed := 0
		for _, res := range results {
			if !res.Pass {
				failed++
			}
		}
		return fmt.Errorf("%w: %d of %d", errThresholdsFailed, failed, len(results))
	}
	return nil
}

func reportMetadata(cfg *config.Config) output.ReportMetadata {
	return output.ReportMetadata{
		TargetURL:    cfg.TargetURL,
		Environment:  cfg.Environment,
		VirtualUsers: cfg.VirtualUsers,
		Duration:     cfg.Duration,
		Pause:        cfg.Pause,
		TrackField:   cfg.TrackField,
	}
}

func dashboardConfig(cfg *config.Config) dashboard.TestConfig {
	return dashboard.TestConfig{
		TargetURL:    cfg.TargetURL,
		Environment:  cfg.Environment,
		VirtualUsers: cfg.VirtualUsers,
		Duration:     cfg.Duration,
		Pause:        cfg.Pause,
		RampUp:       cfg.RampUp,
		Rate:         cfg.Rate,
		Timeout:      cfg.Timeout,
		TrackField:   cfg.TrackField,
		ConfigFile:   cfg.ConfigFile,
	}
}

func (l *stderrFailureLogger) LogFailure(o metrics.Outcome) {
	if o.Passed {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	status := "-"
	if o.StatusCode != 0 {
		status = fmt.Sprintf("%d", o.StatusCode)
	}
	fmt.Fprintf(l.w, "[surge] vu=%d iter=%d status=%s latency=%s request failed: %v\n",
		o.VU, o.Iteration, status, o.Latency.Round(time.Microsecond), o.Err)
}
