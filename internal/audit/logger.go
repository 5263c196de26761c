// Package audit appends one JSON line per engine phase to a log file,
// giving installs and removals a durable trail without any database.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger struct {
	path string
	mu   sync.Mutex
}

// Event is one line of the audit trail. Manifest and Version identify the
// tool being acted on; Phase is the engine phase (download, verify,
// extract, place, link, remove).
type Event struct {
	Timestamp string `json:"timestamp"`
	Operation string `json:"operation"`
	Manifest  string `json:"manifest,omitempty"`
	Version   string `json:"version,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Status    string `json:"status"`
	Target    string `json:"target,omitempty"`
	Message   string `json:"message,omitempty"`
}

// New returns a logger appending to path. An empty path disables logging;
// a nil logger is safe to call.
func New(path string) *Logger {
	return &Logger{path: path}
}

func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(blob, '\n')); err != nil {
		return err
	}
	return nil
}

// Ok records a successful phase. Audit failures never fail the operation.
func (l *Logger) Ok(operation, name, version, phase, target string) {
	_ = l.Log(Event{Operation: operation, Manifest: name, Version: version, Phase: phase, Status: "ok", Target: target})
}

// Fail records a failed phase with the error message.
func (l *Logger) Fail(operation, name, version, phase string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	_ = l.Log(Event{Operation: operation, Manifest: name, Version: version, Phase: phase, Status: "error", Message: msg})
}
