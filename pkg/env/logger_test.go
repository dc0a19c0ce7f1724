package env

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingWriter fails every write with a fixed error.
type failingWriter struct {
	err error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

// closeTrackingWriter records whether Close ran.
type closeTrackingWriter struct {
	bytes.Buffer
	closed bool
}

func (w *closeTrackingWriter) Close() error {
	w.closed = true
	return nil
}

func TestLoggerLog(t *testing.T) {
	t.Run("Appends a newline per message", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&buf)

		l.Log("compaction started")
		l.Log("compaction finished")

		assert.Equal(t, "compaction started\ncompaction finished\n", buf.String())
	})

	t.Run("Empty message still produces a line", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&buf)

		l.Log("")
		assert.Equal(t, "\n", buf.String())
	})

	t.Run("Write failures are swallowed", func(t *testing.T) {
		l := NewLogger(&failingWriter{err: errors.New("disk full")})

		assert.NotPanics(t, func() {
			l.Log("this line is lost")
		})
	})

	t.Run("Error hook observes swallowed failures", func(t *testing.T) {
		sinkErr := errors.New("disk full")
		var seen []error
		l := NewLogger(&failingWriter{err: sinkErr}, WithErrorHook(func(err error) {
			seen = append(seen, err)
		}))

		l.Log("dropped")
		l.Log("also dropped")

		require.Len(t, seen, 2)
		assert.ErrorIs(t, seen[0], sinkErr)
	})
}

func TestLoggerClose(t *testing.T) {
	t.Run("Closes a closable sink", func(t *testing.T) {
		w := &closeTrackingWriter{}
		l := NewLogger(w)

		l.Log("last words")
		require.NoError(t, l.Close())
		assert.True(t, w.closed)
	})

	t.Run("Plain writers close without error", func(t *testing.T) {
		l := NewLogger(&bytes.Buffer{})
		assert.NoError(t, l.Close())
	})
}
