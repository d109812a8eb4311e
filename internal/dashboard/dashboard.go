// Package dashboard renders a live terminal view of a running load test.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/surge/internal/metrics"
)

const (
	historySize  = 100
	maxListRows  = 10
	refreshEvery = 500 * time.Millisecond
)

// TestConfig holds load test configuration parameters for display.
type TestConfig struct {
	TargetURL    string        // Full target URL
	Environment  string        // Named environment the target came from, if any
	VirtualUsers int           // Number of virtual users
	Duration     time.Duration // Run length
	Pause        time.Duration // Sleep between iterations
	RampUp       time.Duration // VU start spread
	Rate         int           // Global requests per second cap (0 = unlimited)
	Timeout      time.Duration // Request timeout
	TrackField   string        // Response field tallied as the variant
	ConfigFile   string        // Path to config file if used
}

// Dashboard renders a live terminal UI for load test metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	statusList     *widgets.List
	variantList    *widgets.List
	errorList      *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	testConfig     TestConfig
}

// New initialises the terminal and builds the widgets. shutdownFunc is
// invoked when the user presses q or Ctrl-C.
func New(collector *metrics.Collector, cfg TestConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, historySize),
		testConfig:     cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Mean latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP95: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Run Progress"
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statusList = newList("Status Codes", ui.ColorYellow)
	d.variantList = newList(variantTitle(d.testConfig.TrackField), ui.ColorGreen)
	d.errorList = newList("Errors", ui.ColorRed)

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Test Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Requests"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

func newList(title string, fg ui.Color) *widgets.List {
	l := widgets.NewList()
	l.Title = title
	l.Rows = []string{"Awaiting data"}
	l.TextStyle = ui.NewStyle(fg)
	l.BorderStyle.Fg = ui.ColorCyan
	return l
}

func variantTitle(field string) string {
	if field == "" {
		return "Variants"
	}
	return fmt.Sprintf("Variants (%s)", field)
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.22,
			ui.NewCol(0.5, d.progressGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.33, d.statusList),
			ui.NewCol(0.33, d.variantList),
			ui.NewCol(0.34, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(refreshEvery)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop cancels the context once the run has drained.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	elapsed := d.collector.Elapsed()
	d.apply(d.collector.Stats(elapsed), elapsed)
}

func (d *Dashboard) apply(stats metrics.Stats, elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if stats.Total > 0 {
		d.latencyHistory = append(d.latencyHistory, stats.MeanLatencyMs)
		if len(d.latencyHistory) > historySize {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			stats.MeanLatencyMs,
			stats.MinLatencyMs,
			stats.MaxLatencyMs,
		)
	}

	d.progressGauge.Percent = progressPercent(elapsed, d.testConfig.Duration)
	d.progressGauge.Label = fmt.Sprintf("%s / %s", elapsed.Round(time.Second), d.testConfig.Duration)

	target := d.testConfig.TargetURL
	if d.testConfig.Environment != "" {
		target = fmt.Sprintf("%s (%s)", target, d.testConfig.Environment)
	}
	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Total: %d | Success Rate: %.1f%%",
		target,
		d.formatTestParams(),
		elapsed.Round(time.Second),
		stats.Total,
		stats.SuccessRate*100,
	)

	d.metricsPara.Text = joinLines([]string{
		fmt.Sprintf("Total Requests:    %d", stats.Total),
		fmt.Sprintf("Successful:        %d", stats.Successes),
		fmt.Sprintf("Transport Errors:  %d", stats.TransportFailures),
		fmt.Sprintf("Check Failures:    %d", stats.CheckFailures),
		fmt.Sprintf("Current RPS:       %.2f", stats.RequestsPerSec),
	})

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP95:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P95LatencyMs,
		stats.P99LatencyMs,
	)

	d.statusList.Rows = formatBucketRows(stats.StatusCodes, stats.Total, "yellow", "[No responses yet](fg:white)")
	d.variantList.Rows = formatBucketRows(stats.Variants, stats.Total, "green", "[No variants tracked](fg:white)")
	d.errorList.Rows = formatBucketRows(stats.Errors, stats.Failures, "red", "[No failures](fg:green)")
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func progressPercent(elapsed, total time.Duration) int {
	if total <= 0 {
		return 100
	}
	pct := int(elapsed * 100 / total)
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

func formatBucketRows(counts map[string]int, total int64, color, empty string) []string {
	rows := metrics.FlattenCounts(counts)
	if len(rows) == 0 {
		return []string{empty}
	}
	if len(rows) > maxListRows {
		rows = rows[:maxListRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:%s) %d (%.1f%%)", row.Label, color, row.Count, metrics.Share(row.Count, total)))
	}
	return formatted
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// formatTestParams formats the test configuration parameters for display.
func (d *Dashboard) formatTestParams() string {
	var parts []string

	if d.testConfig.VirtualUsers > 0 {
		parts = append(parts, fmt.Sprintf("VUs: %d", d.testConfig.VirtualUsers))
	}

	parts = append(parts, fmt.Sprintf("Pause: %s", d.testConfig.Pause))

	if d.testConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.testConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.testConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.testConfig.Duration))
	}

	if d.testConfig.RampUp > 0 {
		parts = append(parts, fmt.Sprintf("Ramp-up: %s", d.testConfig.RampUp))
	}

	if d.testConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.testConfig.Timeout))
	}

	if d.testConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.testConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
