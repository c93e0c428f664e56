package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Step", KeyStep, "devise", Step("devise")},
		{"Action", KeyAction, "append Gemfile", Action("append Gemfile")},
		{"Path", KeyPath, "config/routes.rb", Path("config/routes.rb")},
		{"Command", KeyCommand, "bin/rails generate", Command("bin/rails generate")},
		{"Commit", KeyCommit, "abc123", Commit("abc123")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := ExitCode(3); a.Key != KeyExitCode || a.Value.Int64() != 3 {
		t.Fatalf("unexpected exit code attr %v", a)
	}
	if a := Files(2); a.Key != KeyFiles || a.Value.Int64() != 2 {
		t.Fatalf("unexpected files attr %v", a)
	}
	if a := StepIndex(4); a.Key != KeyStepIndex || a.Value.Int64() != 4 {
		t.Fatalf("unexpected step index attr %v", a)
	}
	if a := Duration(1500 * time.Microsecond); a.Value.Float64() != 1.5 {
		t.Fatalf("expected 1.5ms, got %v", a.Value.Float64())
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("expected empty string for nil error, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("expected boom, got %q", a.Value.String())
	}
}
