// Package logging implements logging.Logger with pluggable Writers,
// generalized from the teacher's MultiLogger/JSONLogEntry pair
// (internal/infrastructure/observability/logging/daemon) and from
// loykin-provisr's lumberjack-backed file rotation
// (internal/logger/logger.go).
package logging

import (
	"encoding/json"
	"io"
	"sync"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ghostrunctl/ghost/internal/domain/logging"
)

// jsonEntry is the on-disk/console shape for one Event; Fields are
// nested under a "fields" key rather than inlined at the root.
type jsonEntry struct {
	Timestamp string         `json:"ts"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// jsonWriter encodes one Event per line to an underlying io.Writer.
type jsonWriter struct {
	mu  sync.Mutex
	out io.Writer
	enc *json.Encoder
	// closer is non-nil when out also needs releasing (a rotated file).
	closer io.Closer
}

func newJSONWriter(out io.Writer, closer io.Closer) *jsonWriter {
	return &jsonWriter{out: out, enc: json.NewEncoder(out), closer: closer}
}

// NewConsoleWriter writes JSON lines to out (typically os.Stdout),
// never rotated and never closed by this Writer.
func NewConsoleWriter(out io.Writer) logging.Writer {
	return newJSONWriter(out, nil)
}

// FileRotation mirrors lumberjack's tunables (spec §9 ambient stack:
// the daemon's own log file, distinct from per-child output capture).
type FileRotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
	defaultMaxAgeDays = 14
)

// NewFileWriter writes JSON lines to path, rotating via lumberjack.
func NewFileWriter(path string, rotation FileRotation) logging.Writer {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    valOr(rotation.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: valOr(rotation.MaxBackups, defaultMaxBackups),
		MaxAge:     valOr(rotation.MaxAgeDays, defaultMaxAgeDays),
		Compress:   rotation.Compress,
	}
	return newJSONWriter(lj, lj)
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (w *jsonWriter) Write(event logging.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(jsonEntry{
		Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Level:     event.Level.String(),
		Component: event.Component,
		Message:   event.Message,
		Fields:    event.Fields,
	})
}

func (w *jsonWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
