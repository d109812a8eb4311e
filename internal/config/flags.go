package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "surge",
		Short:         "Drive virtual users against an HTTP endpoint and report the results",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("target", "", "Target URL to load test")
	flags.String("env", "", "Named target environment from the config file")
	flags.StringSlice("header", nil, "Additional request header in key=value form")

	// Load control flags
	flags.IntP("vus", "u", DefaultVirtualUsers, "Number of concurrent virtual users")
	flags.DurationP("duration", "d", DefaultDuration, "How long to run the test (e.g. 15s, 1m)")
	flags.DurationP("pause", "p", DefaultPause, "Pause between iterations of each virtual user")
	flags.Duration("ramp-up", 0, "Spread virtual user starts across this window")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.IntP("rate", "r", 0, "Global requests per second cap across all virtual users (0 means unlimited)")

	// Check flags
	flags.Int("expect-status", DefaultExpectStatus, "HTTP status code a response must have to pass the check")
	flags.StringSlice("expect-json", nil, "JSON body assertion in path=value form (repeatable)")
	flags.String("track-field", "", "JSON path whose value is tallied per response (e.g. color)")
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'req_duration:p95 < 500')")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Float64("tracing-sample-rate", 0, "Span sample ratio between 0 and 1 (0 means sample all)")
	flags.Bool("tracing-insecure", false, "Disable TLS when exporting spans")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s\n\nFlags:\n", cmd.UseLine(), cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("env") {
		val, err := fs.GetString("env")
		if err != nil {
			return err
		}
		cfg.Environment = strings.TrimSpace(val)
	}
	if fs.Changed("vus") {
		val, err := fs.GetInt("vus")
		if err != nil {
			return err
		}
		cfg.VirtualUsers = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("pause") {
		val, err := fs.GetDuration("pause")
		if err != nil {
			return err
		}
		cfg.Pause = val
	}
	if fs.Changed("ramp-up") {
		val, err := fs.GetDuration("ramp-up")
		if err != nil {
			return err
		}
		cfg.RampUp = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("expect-status") {
		val, err := fs.GetInt("expect-status")
		if err != nil {
			return err
		}
		cfg.ExpectStatus = val
	}
	if fs.Changed("expect-json") {
		vals, err := fs.GetStringSlice("expect-json")
		if err != nil {
			return err
		}
		expectations, err := parseJSONExpectations(vals)
		if err != nil {
			return err
		}
		cfg.ExpectJSON = expectations
	}
	if fs.Changed("track-field") {
		val, err := fs.GetString("track-field")
		if err != nil {
			return err
		}
		cfg.TrackField = strings.TrimSpace(val)
	}
	if fs.Changed("threshold") {
		vals, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = vals
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	return applyTracingFlags(&cfg.Tracing, fs)
}

func applyTracingFlags(t *TracingConfig, fs *pflag.FlagSet) error {
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		t.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		t.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		t.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		t.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		t.Insecure = val
	}
	return nil
}

func parseJSONExpectations(raw []string) ([]JSONExpectation, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]JSONExpectation, 0, len(raw))
	for _, entry := range raw {
		exp, err := ParseJSONExpectation(entry)
		if err != nil {
			return nil, fmt.Errorf("expect-json: %w", err)
		}
		out = append(out, exp)
	}
	return out, nil
}
