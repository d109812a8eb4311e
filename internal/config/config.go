package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"
)

// Default values applied by the Loader before the config file and flags.
const (
	DefaultVirtualUsers = 1
	DefaultDuration     = 10 * time.Second
	DefaultPause        = time.Second
	DefaultTimeout      = 30 * time.Second
	DefaultExpectStatus = 200
)

type Config struct {
	TargetURL    string                 `mapstructure:"target"`
	Environment  string                 `mapstructure:"env"`
	Environments map[string]Environment `mapstructure:"environments"`
	Headers      map[string]string      `mapstructure:"headers"`
	VirtualUsers int                    `mapstructure:"vus"`
	Duration     time.Duration          `mapstructure:"duration"`
	Pause        time.Duration          `mapstructure:"pause"`
	RampUp       time.Duration          `mapstructure:"ramp_up"`
	Timeout      time.Duration          `mapstructure:"timeout"`
	Rate         int                    `mapstructure:"rate"`
	ExpectStatus int                    `mapstructure:"expect_status"`
	ExpectJSON   []JSONExpectation      `mapstructure:"expect_json"`
	TrackField   string                 `mapstructure:"track_field"`
	Thresholds   []string               `mapstructure:"thresholds"`
	JSONOutput   bool                   `mapstructure:"json_output"`
	Dashboard    bool                   `mapstructure:"dashboard"`
	LogErrors    bool                   `mapstructure:"log_errors"`
	Tracing      TracingConfig          `mapstructure:"tracing"`
	ConfigFile   string                 `mapstructure:"-"`
}

// Environment is a named target. A non-zero VirtualUsers or Duration replaces
// the top-level value when the environment is selected.
type Environment struct {
	Target       string        `mapstructure:"target"`
	VirtualUsers int           `mapstructure:"vus"`
	Duration     time.Duration `mapstructure:"duration"`
}

// JSONExpectation asserts that a JSON path in the response body equals Value.
type JSONExpectation struct {
	Path  string `mapstructure:"path"`
	Value string `mapstructure:"value"`
}

// ParseJSONExpectation parses the "path=value" form used by flags and config files.
func ParseJSONExpectation(raw string) (JSONExpectation, error) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 {
		return JSONExpectation{}, fmt.Errorf("invalid expectation %q, expected path=value", raw)
	}
	path := strings.TrimSpace(parts[0])
	if path == "" {
		return JSONExpectation{}, fmt.Errorf("invalid expectation %q: path is empty", raw)
	}
	return JSONExpectation{Path: path, Value: strings.TrimSpace(parts[1])}, nil
}

func (e JSONExpectation) String() string {
	return e.Path + "=" + e.Value
}

// TracingConfig controls OpenTelemetry export of per-request spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" (default) or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"` // 0 means sample everything
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers are injected into requests.
// Defaults to on whenever tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// EnvironmentNames returns the configured environment names in sorted order.
func (c Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required (use --target, --env or --help for usage information)")
	} else if issue := validateTarget(c.TargetURL); issue != "" {
		issues = append(issues, issue)
	}

	if c.Environment != "" {
		if _, ok := c.Environments[strings.ToLower(c.Environment)]; !ok {
			issues = append(issues, fmt.Sprintf("env: unknown environment %q (known: %s)", c.Environment, strings.Join(c.EnvironmentNames(), ", ")))
		}
	}
	for _, name := range c.EnvironmentNames() {
		env := c.Environments[name]
		if issue := validateTarget(env.Target); issue != "" {
			issues = append(issues, fmt.Sprintf("environments.%s: %s", name, issue))
		}
		if env.VirtualUsers < 0 {
			issues = append(issues, fmt.Sprintf("environments.%s: vus must be >= 0", name))
		}
		if env.Duration < 0 {
			issues = append(issues, fmt.Sprintf("environments.%s: duration must be >= 0", name))
		}
	}

	// Security warnings for heavy load
	if c.VirtualUsers > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High virtual user count configured (%d VUs). Ensure you have authorization to test the target system.", c.VirtualUsers))
	}
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High rate limit configured (%d RPS). Ensure you have authorization to test the target system.", c.Rate))
	}

	// Print warnings to stderr
	if len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, w)
		}
	}

	if c.VirtualUsers < 1 {
		issues = append(issues, "vus must be >= 1")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Pause < 0 {
		issues = append(issues, "pause must be >= 0")
	}
	if c.RampUp < 0 {
		issues = append(issues, "ramp-up must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.ExpectStatus < 100 || c.ExpectStatus > 599 {
		issues = append(issues, fmt.Sprintf("expect-status must be a valid HTTP status code, got %d", c.ExpectStatus))
	}
	for i, exp := range c.ExpectJSON {
		if strings.TrimSpace(exp.Path) == "" {
			issues = append(issues, fmt.Sprintf("expect-json[%d]: path is required", i))
		}
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTarget(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Sprintf("target %q is not a valid URL: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("target %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("target %q has no host", raw)
	}
	return ""
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
