package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTrigger    = "trigger"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyDir        = "dir"
	KeyRepo       = "repository"
	KeyGate       = "gate"
	KeyCommand    = "command"
	KeyOutcome    = "outcome"
	KeyCI         = "ci"
	KeyExitCode   = "exit_code"
	KeyCount      = "count"
	KeyURL        = "url"
	KeySubject    = "subject"
	KeyCommit     = "commit"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Trigger(t string) slog.Attr      { return slog.String(KeyTrigger, t) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Gate(g string) slog.Attr         { return slog.String(KeyGate, g) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func CI(on bool) slog.Attr            { return slog.Bool(KeyCI, on) }
func ExitCode(c int) slog.Attr        { return slog.Int(KeyExitCode, c) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Commit(c string) slog.Attr       { return slog.String(KeyCommit, c) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
