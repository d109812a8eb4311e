package httpclient

import (
	"errors"
	"strings"
	"testing"

	"github.com/torosent/surge/internal/config"
)

func TestCheckEvaluate(t *testing.T) {
	body := []byte(`{"service":"content-api","version":"v2","color":"green","meta":{"region":"eu"}}`)

	tests := []struct {
		name       string
		check      Check
		status     int
		body       []byte
		wantErr    bool
		wantReason string
	}{
		{name: "default status ok", check: Check{}, status: 200},
		{name: "default status mismatch", check: Check{}, status: 500, wantErr: true, wantReason: "expected status 200"},
		{name: "custom status", check: Check{ExpectStatus: 204}, status: 204},
		{
			name:   "json match",
			check:  Check{ExpectStatus: 200, ExpectJSON: []config.JSONExpectation{{Path: "color", Value: "green"}}},
			status: 200, body: body,
		},
		{
			name:   "json dollar path",
			check:  Check{ExpectStatus: 200, ExpectJSON: []config.JSONExpectation{{Path: "$.meta.region", Value: "eu"}}},
			status: 200, body: body,
		},
		{
			name:   "json mismatch",
			check:  Check{ExpectStatus: 200, ExpectJSON: []config.JSONExpectation{{Path: "color", Value: "blue"}}},
			status: 200, body: body, wantErr: true, wantReason: `want "blue"`,
		},
		{
			name:   "json missing path",
			check:  Check{ExpectStatus: 200, ExpectJSON: []config.JSONExpectation{{Path: "nope", Value: "x"}}},
			status: 200, body: body, wantErr: true, wantReason: "not found",
		},
		{
			name:   "json invalid body",
			check:  Check{ExpectStatus: 200, ExpectJSON: []config.JSONExpectation{{Path: "color", Value: "green"}}},
			status: 200, body: []byte("<html>"), wantErr: true, wantReason: "not valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check.Evaluate(tt.status, tt.body)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Evaluate() error = %v, want nil", err)
				}
				return
			}
			var checkErr *CheckError
			if !errors.As(err, &checkErr) {
				t.Fatalf("Evaluate() error = %v, want *CheckError", err)
			}
			if checkErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", checkErr.StatusCode, tt.status)
			}
			if !strings.Contains(checkErr.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", checkErr.Reason, tt.wantReason)
			}
		})
	}
}

func TestCheckErrorSnippet(t *testing.T) {
	long := strings.Repeat("x", 1000)
	err := Check{}.Evaluate(503, []byte(long))
	var checkErr *CheckError
	if !errors.As(err, &checkErr) {
		t.Fatalf("expected *CheckError, got %v", err)
	}
	if len(checkErr.Body) != maxSnippet+3 {
		t.Fatalf("expected truncated snippet, got %d bytes", len(checkErr.Body))
	}
	if !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestNewCheckDefaults(t *testing.T) {
	if got := NewCheck(nil).ExpectStatus; got != 200 {
		t.Fatalf("NewCheck(nil).ExpectStatus = %d, want 200", got)
	}
	check := NewCheck(&config.Config{ExpectStatus: 201, ExpectJSON: []config.JSONExpectation{{Path: "a", Value: "b"}}})
	if check.ExpectStatus != 201 || !check.NeedsBody() {
		t.Fatalf("unexpected check %+v", check)
	}
}

func TestLookupField(t *testing.T) {
	body := []byte(`{"color":"blue","version":2}`)
	tests := []struct {
		path string
		want string
	}{
		{"color", "blue"},
		{"$.color", "blue"},
		{"version", "2"},
		{"missing", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := lookupField(body, tt.path); got != tt.want {
			t.Errorf("lookupField(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if got := lookupField([]byte("not json"), "color"); got != "" {
		t.Errorf("lookupField(non-json) = %q, want empty", got)
	}
}
