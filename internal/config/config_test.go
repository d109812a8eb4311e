package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/surge/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{"--target", "http://localhost:8081/"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "http://localhost:8081/" {
		t.Errorf("TargetURL = %q, want http://localhost:8081/", cfg.TargetURL)
	}
	if cfg.VirtualUsers != 1 {
		t.Errorf("VirtualUsers = %d, want 1", cfg.VirtualUsers)
	}
	if cfg.Duration != 10*time.Second {
		t.Errorf("Duration = %s, want 10s", cfg.Duration)
	}
	if cfg.Pause != time.Second {
		t.Errorf("Pause = %s, want 1s", cfg.Pause)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.ExpectStatus != 200 {
		t.Errorf("ExpectStatus = %d, want 200", cfg.ExpectStatus)
	}
	if cfg.Rate != 0 {
		t.Errorf("Rate = %d, want 0", cfg.Rate)
	}
	if cfg.JSONOutput {
		t.Errorf("JSONOutput = true, want false")
	}
	if len(cfg.Headers) != 0 {
		t.Errorf("Headers len = %d, want 0", len(cfg.Headers))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadNoArgsRequestsHelp(t *testing.T) {
	_, err := config.NewLoader().Load(nil)
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load(nil) error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadShortFlags(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{
		"--target", "http://host.docker.internal:8081/",
		"-u", "10", "-d", "15s", "-p", "500ms",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VirtualUsers != 10 || cfg.Duration != 15*time.Second || cfg.Pause != 500*time.Millisecond {
		t.Errorf("unexpected config: vus=%d duration=%s pause=%s", cfg.VirtualUsers, cfg.Duration, cfg.Pause)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"target": "https://api.example.com",
		"headers": {"x-env": "staging"},
		"vus": 20,
		"duration": "20s",
		"pause": "2s",
		"timeout": "45s",
		"rate": 50,
		"expect_status": 204,
		"expect_json": ["status=ok"],
		"track_field": "color",
		"jsonOutput": true
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--vus", "5", "--header", "Authorization=Bearer token"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "https://api.example.com" {
		t.Errorf("TargetURL = %q, want https://api.example.com", cfg.TargetURL)
	}
	if cfg.VirtualUsers != 5 {
		t.Errorf("VirtualUsers = %d, want 5 (flag overrides file)", cfg.VirtualUsers)
	}
	if cfg.Headers["X-Env"] != "staging" {
		t.Errorf("Headers[X-Env] = %q, want staging", cfg.Headers["X-Env"])
	}
	if cfg.Headers["Authorization"] != "Bearer token" {
		t.Errorf("Headers[Authorization] = %q, want Bearer token", cfg.Headers["Authorization"])
	}
	if cfg.Duration != 20*time.Second {
		t.Errorf("Duration = %s, want 20s", cfg.Duration)
	}
	if cfg.Pause != 2*time.Second {
		t.Errorf("Pause = %s, want 2s", cfg.Pause)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s", cfg.Timeout)
	}
	if cfg.Rate != 50 {
		t.Errorf("Rate = %d, want 50", cfg.Rate)
	}
	if cfg.ExpectStatus != 204 {
		t.Errorf("ExpectStatus = %d, want 204", cfg.ExpectStatus)
	}
	if len(cfg.ExpectJSON) != 1 || cfg.ExpectJSON[0].Path != "status" || cfg.ExpectJSON[0].Value != "ok" {
		t.Errorf("ExpectJSON = %+v, want [status=ok]", cfg.ExpectJSON)
	}
	if cfg.TrackField != "color" {
		t.Errorf("TrackField = %q, want color", cfg.TrackField)
	}
	if !cfg.JSONOutput {
		t.Errorf("JSONOutput = false, want true")
	}
}

func TestLoadConfigFileYAMLEnvironments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"env: canary",
		"vus: 10",
		"duration: 15s",
		"environments:",
		"  local: http://host.docker.internal:8081/",
		"  canary: http://content-service-canary.default.svc.cluster.local/",
		"  blue-green: http://content-service.default.svc.cluster.local/",
		"expect_json:",
		"  data.color: green",
		"thresholds:",
		"  - \"req_failed:rate < 0.01\"",
		"tracing:",
		"  endpoint: localhost:4317",
		"  insecure: true",
		"  sample_rate: 0.5",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "http://content-service-canary.default.svc.cluster.local/" {
		t.Errorf("TargetURL = %q, want canary URL", cfg.TargetURL)
	}
	if len(cfg.Environments) != 3 {
		t.Errorf("Environments = %v, want 3 entries", cfg.Environments)
	}
	if len(cfg.ExpectJSON) != 1 || cfg.ExpectJSON[0].Path != "data.color" {
		t.Errorf("ExpectJSON = %+v, want dotted path preserved", cfg.ExpectJSON)
	}
	if len(cfg.Thresholds) != 1 {
		t.Errorf("Thresholds = %v, want 1 entry", cfg.Thresholds)
	}
	if !cfg.Tracing.Enabled() || !cfg.Tracing.Insecure || cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	// --env switches environment, --target beats both.
	cfg, err = config.NewLoader().Load([]string{"--config", path, "--env", "blue-green"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "http://content-service.default.svc.cluster.local/" {
		t.Errorf("TargetURL = %q, want blue-green URL", cfg.TargetURL)
	}
	cfg, err = config.NewLoader().Load([]string{"--config", path, "--env", "local", "--target", "http://override.test/"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "http://override.test/" {
		t.Errorf("TargetURL = %q, want explicit target", cfg.TargetURL)
	}
}

func TestConfigValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		have config.Config
		want []string
	}{
		{
			name: "missing target",
			have: config.Config{VirtualUsers: 1, ExpectStatus: 200},
			want: []string{"target"},
		},
		{
			name: "malformed target",
			have: config.Config{TargetURL: "ftp://example.com", VirtualUsers: 1, ExpectStatus: 200},
			want: []string{"http or https"},
		},
		{
			name: "target without host",
			have: config.Config{TargetURL: "http://", VirtualUsers: 1, ExpectStatus: 200},
			want: []string{"no host"},
		},
		{
			name: "zero virtual users",
			have: config.Config{TargetURL: "http://example.test/", VirtualUsers: 0, ExpectStatus: 200},
			want: []string{"vus"},
		},
		{
			name: "negative values",
			have: config.Config{
				TargetURL:    "https://example.com",
				VirtualUsers: 1,
				Duration:     -1,
				Pause:        -1,
				Timeout:      -1,
				Rate:         -5,
				ExpectStatus: 200,
			},
			want: []string{"duration", "pause", "timeout", "rate"},
		},
		{
			name: "bad expected status",
			have: config.Config{TargetURL: "http://example.test/", VirtualUsers: 1, ExpectStatus: 42},
			want: []string{"expect-status"},
		},
		{
			name: "unknown environment",
			have: config.Config{
				TargetURL:    "http://example.test/",
				VirtualUsers: 1,
				ExpectStatus: 200,
				Environment:  "prod",
				Environments: map[string]config.Environment{"local": {Target: "http://localhost:8081/"}},
			},
			want: []string{"unknown environment", "local"},
		},
		{
			name: "tracing",
			have: config.Config{
				TargetURL:    "http://example.test/",
				VirtualUsers: 1,
				ExpectStatus: 200,
				Tracing:      config.TracingConfig{Protocol: "thrift", SampleRate: 2},
			},
			want: []string{"protocol", "sample_rate"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.have.Validate()
			if err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
			var vErr config.ValidationError
			if !errors.As(err, &vErr) || len(vErr.Issues()) == 0 {
				t.Fatalf("Validate() error %T, want ValidationError with issues", err)
			}
			for _, want := range tc.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing %q", err.Error(), want)
				}
			}
		})
	}
}

func TestParseJSONExpectation(t *testing.T) {
	exp, err := config.ParseJSONExpectation(" color = green ")
	if err != nil {
		t.Fatalf("ParseJSONExpectation() error = %v", err)
	}
	if exp.Path != "color" || exp.Value != "green" {
		t.Errorf("got %+v", exp)
	}
	if exp.String() != "color=green" {
		t.Errorf("String() = %q", exp.String())
	}
	for _, bad := range []string{"color", "=green"} {
		if _, err := config.ParseJSONExpectation(bad); err == nil {
			t.Errorf("ParseJSONExpectation(%q) error = nil, want error", bad)
		}
	}
}

func TestTracingConfigPropagation(t *testing.T) {
	off := false
	if (config.TracingConfig{}).ShouldPropagate() {
		t.Error("disabled tracing should not propagate")
	}
	if !(config.TracingConfig{Endpoint: "localhost:4317"}).ShouldPropagate() {
		t.Error("enabled tracing should propagate by default")
	}
	if (config.TracingConfig{Endpoint: "localhost:4317", Propagate: &off}).ShouldPropagate() {
		t.Error("explicit propagate=false should win")
	}
}

func TestLoadConfigFileExpectJSONKeepsPathCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surge.yaml")
	content := strings.Join([]string{
		"target: http://localhost:8000/",
		"expect_json:",
		"  appVersion: 2",
		"  meta.buildColor: green",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []config.JSONExpectation{
		{Path: "appVersion", Value: "2"},
		{Path: "meta.buildColor", Value: "green"},
	}
	if len(cfg.ExpectJSON) != len(want) {
		t.Fatalf("ExpectJSON = %+v, want %+v", cfg.ExpectJSON, want)
	}
	for i := range want {
		if cfg.ExpectJSON[i] != want[i] {
			t.Errorf("ExpectJSON[%d] = %+v, want %+v", i, cfg.ExpectJSON[i], want[i])
		}
	}
}

func TestLoadConfigFileEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surge.yaml")
	content := strings.Join([]string{
		"env: local",
		"vus: 10",
		"duration: 15s",
		"environments:",
		"  local: http://host.docker.internal:8081/",
		"  blue-green:",
		"    target: http://content-service.default.svc.cluster.local/",
		"    vus: 20",
		"    duration: 20s",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VirtualUsers != 10 || cfg.Duration != 15*time.Second {
		t.Errorf("local: vus=%d duration=%s, want 10 and 15s", cfg.VirtualUsers, cfg.Duration)
	}

	cfg, err = config.NewLoader().Load([]string{"--config", path, "--env", "blue-green"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TargetURL != "http://content-service.default.svc.cluster.local/" || cfg.VirtualUsers != 20 || cfg.Duration != 20*time.Second {
		t.Errorf("blue-green: target=%q vus=%d duration=%s", cfg.TargetURL, cfg.VirtualUsers, cfg.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg, err = config.NewLoader().Load([]string{"--config", path, "--env", "blue-green", "--vus", "5"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VirtualUsers != 5 || cfg.Duration != 20*time.Second {
		t.Errorf("--vus should win over the environment: vus=%d duration=%s", cfg.VirtualUsers, cfg.Duration)
	}
}
