package config

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
// Precedence, lowest first: defaults, config file, flags. An explicit --target
// wins over the URL of a selected environment.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	// "::" keeps dotted JSON paths and environment names intact as map keys.
	cfgViper := viper.NewWithOptions(viper.KeyDelimiter("::"))
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	settings := cfgViper.AllSettings()
	if configPath != "" {
		if err := restoreDataKeys(configPath, settings); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		Headers:      map[string]string{},
		VirtualUsers: DefaultVirtualUsers,
		Duration:     DefaultDuration,
		Pause:        DefaultPause,
		Timeout:      DefaultTimeout,
		ExpectStatus: DefaultExpectStatus,
		ConfigFile:   configPath,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	resolveEnvironment(cfg, flagSet.Changed)

	return cfg, nil
}

// resolveEnvironment applies the selected environment's target and load
// overrides. Values given explicitly on the command line (reported by
// explicit, keyed by flag name) win. Unknown names are left for Validate.
func resolveEnvironment(cfg *Config, explicit func(flag string) bool) {
	name := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if name == "" {
		return
	}
	env, ok := cfg.Environments[name]
	if !ok {
		return
	}
	if !explicit("target") {
		cfg.TargetURL = env.Target
	}
	if env.VirtualUsers > 0 && !explicit("vus") {
		cfg.VirtualUsers = env.VirtualUsers
	}
	if env.Duration > 0 && !explicit("duration") {
		cfg.Duration = env.Duration
	}
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "env", "environment"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("env: %w", err)
		}
		cfg.Environment = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "environments", "targets"); ok {
		envs, err := parseEnvironments(raw)
		if err != nil {
			return fmt.Errorf("environments: %w", err)
		}
		cfg.Environments = envs
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "vus", "virtualusers", "virtual_users", "virtual-users"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("vus: %w", err)
		}
		cfg.VirtualUsers = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "pause", "sleep"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		cfg.Pause = dur
	}

	if raw, ok := lookupSetting(settings, "rampup", "ramp_up", "ramp-up"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("rampUp: %w", err)
		}
		cfg.RampUp = dur
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "expectstatus", "expect_status", "expect-status"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("expectStatus: %w", err)
		}
		cfg.ExpectStatus = val
	}

	if raw, ok := lookupSetting(settings, "expectjson", "expect_json", "expect-json"); ok {
		expectations, err := parseJSONExpectationSetting(raw)
		if err != nil {
			return fmt.Errorf("expectJSON: %w", err)
		}
		cfg.ExpectJSON = expectations
	}

	if raw, ok := lookupSetting(settings, "trackfield", "track_field", "track-field"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("trackField: %w", err)
		}
		cfg.TrackField = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

// parseJSONExpectationSetting accepts either a list of "path=value" strings or
// a path->value map.
func parseJSONExpectationSetting(value interface{}) ([]JSONExpectation, error) {
	switch value.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		pairs, err := asStringMap(value)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(pairs))
		for path := range pairs {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		out := make([]JSONExpectation, 0, len(paths))
		for _, path := range paths {
			out = append(out, JSONExpectation{Path: strings.TrimSpace(path), Value: strings.TrimSpace(pairs[path])})
		}
		return out, nil
	default:
		entries, err := asStringSlice(value)
		if err != nil {
			return nil, err
		}
		return parseJSONExpectations(entries)
	}
}

// parseEnvironments reads the environments section. Each entry is either a
// bare URL or a mapping with a target and optional vus and duration.
func parseEnvironments(value interface{}) (map[string]Environment, error) {
	section, err := asSection(value)
	if err != nil {
		return nil, err
	}
	envs := make(map[string]Environment, len(section))
	for name, raw := range section {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("empty environment name")
		}
		env, err := parseEnvironment(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		envs[key] = env
	}
	return envs, nil
}

func parseEnvironment(value interface{}) (Environment, error) {
	var env Environment
	if _, isMap := value.(map[string]interface{}); !isMap {
		target, err := asString(value)
		if err != nil {
			return env, err
		}
		env.Target = strings.TrimSpace(target)
		return env, nil
	}

	settings, err := asSection(value)
	if err != nil {
		return env, err
	}
	if raw, ok := lookupSetting(settings, "target", "url"); ok {
		val, err := asString(raw)
		if err != nil {
			return env, fmt.Errorf("target: %w", err)
		}
		env.Target = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "vus", "virtual_users"); ok {
		val, err := asInt(raw)
		if err != nil {
			return env, fmt.Errorf("vus: %w", err)
		}
		env.VirtualUsers = val
	}
	if raw, ok := lookupSetting(settings, "duration"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return env, fmt.Errorf("duration: %w", err)
		}
		env.Duration = val
	}
	return env, nil
}

func parseTracing(value interface{}) (TracingConfig, error) {
	var tc TracingConfig
	settings, err := asSection(value)
	if err != nil {
		return tc, err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("protocol: %w", err)
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("service_name: %w", err)
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return tc, fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tc, fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tc, fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = &val
	}
	return tc, nil
}
