package httpclient

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/torosent/surge/internal/config"
)

const maxSnippet = 256

// CheckError reports a response that arrived but failed the check.
type CheckError struct {
	StatusCode int
	Expected   int
	Reason     string
	Body       string
}

func (e *CheckError) Error() string {
	msg := fmt.Sprintf("check failed: status %d", e.StatusCode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Body != "" {
		msg += fmt.Sprintf(" (body: %q)", e.Body)
	}
	return msg
}

// Check is the assertion applied to every response.
type Check struct {
	ExpectStatus int
	ExpectJSON   []config.JSONExpectation
}

// NewCheck builds the check described by cfg.
func NewCheck(cfg *config.Config) Check {
	check := Check{ExpectStatus: config.DefaultExpectStatus}
	if cfg == nil {
		return check
	}
	if cfg.ExpectStatus != 0 {
		check.ExpectStatus = cfg.ExpectStatus
	}
	check.ExpectJSON = append(check.ExpectJSON, cfg.ExpectJSON...)
	return check
}

// NeedsBody reports whether Evaluate inspects the response body.
func (c Check) NeedsBody() bool {
	return len(c.ExpectJSON) > 0
}

// Evaluate returns nil when the response passes, or a *CheckError.
func (c Check) Evaluate(status int, body []byte) error {
	expected := c.ExpectStatus
	if expected == 0 {
		expected = config.DefaultExpectStatus
	}
	if status != expected {
		return &CheckError{
			StatusCode: status,
			Expected:   expected,
			Reason:     fmt.Sprintf("expected status %d", expected),
			Body:       snippet(body),
		}
	}
	if len(c.ExpectJSON) == 0 {
		return nil
	}
	if !gjson.ValidBytes(body) {
		return &CheckError{
			StatusCode: status,
			Expected:   expected,
			Reason:     "response body is not valid JSON",
			Body:       snippet(body),
		}
	}
	for _, exp := range c.ExpectJSON {
		result := gjson.GetBytes(body, normalizePath(exp.Path))
		if !result.Exists() {
			return &CheckError{
				StatusCode: status,
				Expected:   expected,
				Reason:     fmt.Sprintf("json path %q not found", exp.Path),
			}
		}
		if result.String() != exp.Value {
			return &CheckError{
				StatusCode: status,
				Expected:   expected,
				Reason:     fmt.Sprintf("json path %q = %q, want %q", exp.Path, result.String(), exp.Value),
			}
		}
	}
	return nil
}

// lookupField reads a gjson path from a JSON body. Missing paths and non-JSON
// bodies yield "".
func lookupField(body []byte, path string) string {
	if path == "" || len(body) == 0 {
		return ""
	}
	result := gjson.GetBytes(body, normalizePath(path))
	if !result.Exists() {
		return ""
	}
	return result.String()
}

// normalizePath accepts both "$.field" and "field" syntax.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if len(path) > 0 && path[0] == '$' {
		if len(path) > 1 && path[1] == '.' {
			return path[2:]
		}
		if len(path) == 1 {
			return "@this"
		}
	}
	return path
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippet {
		s = s[:maxSnippet] + "..."
	}
	return s
}
