package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStep       = "step"
	KeyStepIndex  = "step_index"
	KeyAction     = "action"
	KeyPath       = "path"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyCommit     = "commit"
	KeyFiles      = "files"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func StepIndex(i int) slog.Attr       { return slog.Int(KeyStepIndex, i) }
func Action(desc string) slog.Attr    { return slog.String(KeyAction, desc) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Command(cmd string) slog.Attr    { return slog.String(KeyCommand, cmd) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Commit(hash string) slog.Attr    { return slog.String(KeyCommit, hash) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
