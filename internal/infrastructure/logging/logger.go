package logging

import (
	"sync"

	"github.com/ghostrunctl/ghost/internal/domain/logging"
)

// MultiLogger dispatches every Event to all configured writers, best
// effort (a failing writer never blocks the others).
type MultiLogger struct {
	mu      sync.RWMutex
	writers []logging.Writer
}

// New constructs a MultiLogger fanning out to writers.
func New(writers ...logging.Writer) *MultiLogger {
	return &MultiLogger{writers: writers}
}

func (l *MultiLogger) dispatch(level logging.Level, component, message string, fields map[string]any) {
	event := logging.NewEvent(level, component, message)
	event.Fields = fields

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, w := range l.writers {
		_ = w.Write(event)
	}
}

func (l *MultiLogger) Debug(component, message string, fields map[string]any) {
	l.dispatch(logging.LevelDebug, component, message, fields)
}

func (l *MultiLogger) Info(component, message string, fields map[string]any) {
	l.dispatch(logging.LevelInfo, component, message, fields)
}

func (l *MultiLogger) Warn(component, message string, fields map[string]any) {
	l.dispatch(logging.LevelWarn, component, message, fields)
}

func (l *MultiLogger) Error(component, message string, fields map[string]any) {
	l.dispatch(logging.LevelError, component, message, fields)
}

// Close closes every writer, returning the first error encountered.
func (l *MultiLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ logging.Logger = (*MultiLogger)(nil)
