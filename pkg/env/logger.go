package env

import (
	"io"
	"sync"
)

var newline = []byte{'\n'}

// Logger is a best-effort sink for pre-formatted diagnostic lines. Write
// failures never reach the caller: diagnostic output is not allowed to
// affect engine correctness or control flow. Callers that need visibility
// into dropped lines can install an error hook.
//
// The Logger does no formatting, rotation, or level filtering of its own.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	onErr func(error)
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithErrorHook installs a callback invoked with the write error whenever a
// line cannot be written. The hook runs with the Logger's internal lock held
// and must not call back into the Logger.
func WithErrorHook(hook func(error)) LoggerOption {
	return func(l *Logger) { l.onErr = hook }
}

// NewLogger returns a Logger writing lines to w. The sink does not have to
// be a file; tests may substitute an in-memory or discarding writer.
func NewLogger(w io.Writer, opts ...LoggerOption) *Logger {
	l := &Logger{w: w}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log writes message followed by a single newline. Errors are swallowed.
func (l *Logger) Log(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := io.WriteString(l.w, message); err != nil {
		l.fail(err)
		return
	}
	if _, err := l.w.Write(newline); err != nil {
		l.fail(err)
	}
}

func (l *Logger) fail(err error) {
	if l.onErr != nil {
		l.onErr(err)
	}
}

// Close releases the underlying sink if it is an io.Closer.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
