package env

import (
	"fmt"
	"io"
	"sync"
)

// RandomAccessFile provides atomic positioned reads over a single shared
// read+seek resource. Clones share the resource: the seek and the read
// performed by one ReadAt always complete before another call's seek begins,
// so concurrent callers never observe an interleaved cursor.
//
// True positioned reads (pread) are not assumed to exist on every backend,
// so atomicity comes from serializing seek-then-read through one mutex. A
// backend with native positioned reads may ship its own handle type instead;
// this wrapper is the portable default.
type RandomAccessFile struct {
	s      *sharedFile
	closed bool // this clone gave up its reference; guarded by s.mu
}

// sharedFile is the state common to all clones of one RandomAccessFile.
type sharedFile struct {
	mu       sync.Mutex
	f        io.ReadSeeker // nil once the last clone is closed
	refs     int
	poisoned bool
}

// NewRandomAccessFile wraps f in a shareable positioned reader. If f also
// implements io.Closer it is closed when the last clone is closed.
func NewRandomAccessFile(f io.ReadSeeker) *RandomAccessFile {
	return &RandomAccessFile{s: &sharedFile{f: f, refs: 1}}
}

// Clone returns a new handle to the same underlying resource. Reads through
// any clone are mutually exclusive with reads through any other. Cloning a
// handle that was already closed yields a handle that is closed from birth;
// it never resurrects a released resource.
func (r *RandomAccessFile) Clone() *RandomAccessFile {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.closed || s.refs == 0 {
		return &RandomAccessFile{s: s, closed: true}
	}
	s.refs++
	return &RandomAccessFile{s: s}
}

// ReadAt repositions the shared resource to off and reads exactly n bytes.
// Fewer than n available bytes is an I/O-kind error, never a short result.
// If a previous caller panicked while holding the file, every subsequent
// ReadAt fails with ErrPoisoned.
func (r *RandomAccessFile) ReadAt(off int64, n int) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, NewError(CodeIO, fmt.Sprintf("invalid read range: offset %d, length %d", off, n))
	}

	s := r.s
	s.mu.Lock()
	defer func() {
		// A panic out of the underlying Seek or Read poisons the file
		// for everyone else; the panic itself still reaches the caller
		// that provoked it.
		if rec := recover(); rec != nil {
			s.poisoned = true
			s.mu.Unlock()
			panic(rec)
		}
		s.mu.Unlock()
	}()

	if s.poisoned {
		return nil, ErrPoisoned
	}
	if r.closed || s.f == nil {
		return nil, NewError(CodeIO, "read from closed file")
	}

	if _, err := s.f.Seek(off, io.SeekStart); err != nil {
		return nil, NewErrorWithCause(CodeIO, fmt.Sprintf("seek to offset %d failed", off), err)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(s.f, buf); err != nil {
		return nil, NewErrorWithCause(CodeIO, fmt.Sprintf("read of %d bytes at offset %d failed", n, off), err)
	}
	return buf, nil
}

// Close releases this clone's reference. The underlying resource is closed
// when the last clone goes away. Closing a clone twice is a no-op, and Close
// stays permitted on a poisoned file: it is the release path, so the
// underlying resource is never leaked behind a poisoned mutex.
func (r *RandomAccessFile) Close() error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	s.refs--
	if s.refs > 0 {
		return nil
	}

	f := s.f
	s.f = nil
	if c, ok := f.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return NewErrorWithCause(CodeIO, "close failed", err)
		}
	}
	return nil
}
