// Package env defines the platform abstraction consumed by the QuarryKV
// storage engine: file and directory operations, advisory locking, timing,
// and diagnostic logging, independent of any concrete operating system or
// persistence medium.
//
// Engine code (memtables, SSTables, compaction, write-ahead logs) holds an
// Env implementation and never touches the OS directly. Backends may be
// disk-based, memory-based, or fault-injecting test doubles; none of them
// live in this package.
package env

import "io"

// Env is the single seam through which engine code reaches the outside
// world. It holds no long-lived state of its own: every operation either
// completes immediately or hands back a typed handle (reader, writer, lock,
// logger) that the caller then operates on directly.
//
// Every operation is synchronous and may block for the duration of the
// underlying system call. The layer offers no cancellation or timeout
// primitive; callers wanting timeouts build them on top using Micros and
// SleepFor. Fallible operations return a *Error.
type Env interface {
	// OpenSequentialFile returns a forward-only reader positioned at the
	// start of the named file. Fails if the file does not exist or is not
	// readable.
	OpenSequentialFile(name string) (SequentialFile, error)

	// OpenRandomAccessFile returns a RandomAccessFile wrapping a
	// readable and seekable handle to the named file. The returned file
	// may be cloned and read from multiple goroutines concurrently.
	OpenRandomAccessFile(name string) (*RandomAccessFile, error)

	// OpenWritableFile returns a writer that creates the named file, or
	// truncates it if it already exists.
	OpenWritableFile(name string) (WritableFile, error)

	// OpenAppendableFile returns a writer positioned at the current end
	// of the named file, creating it if absent.
	OpenAppendableFile(name string) (WritableFile, error)

	// Exists reports whether name currently denotes an existing
	// filesystem entry. Absence is not an error; only access failures
	// unrelated to existence are.
	Exists(name string) (bool, error)

	// Children returns the names of the immediate entries of the
	// directory dir, in unspecified order. Fails if dir is not a
	// directory.
	Children(dir string) ([]string, error)

	// FileSize returns the length of the named file in bytes.
	FileSize(name string) (int64, error)

	// RemoveFile deletes the named file. Fails if it does not exist or
	// cannot be removed.
	RemoveFile(name string) error

	// CreateDir creates the named directory. Fails if it already exists
	// or the parent directory is missing.
	CreateDir(name string) error

	// RemoveDir removes the named directory, which is assumed to be
	// empty.
	RemoveDir(name string) error

	// RenameFile moves the entry at src to dst, overwriting dst if the
	// backend supports it. The move is atomic from the engine's point of
	// view.
	RenameFile(src, dst string) error

	// LockFile acquires an exclusive advisory claim on the named path
	// and returns a guard for it. While the guard is outstanding, any
	// further LockFile call on the same path, from this or any other
	// claimant, fails with a locked-kind error. The claim is advisory:
	// it contends on the lock only and does not prevent unsynchronized
	// writes to the path. Whether claims are visible across processes is
	// a backend policy; implementations must document their choice.
	LockFile(name string) (FileLock, error)

	// UnlockFile releases a previously acquired claim. It is equivalent
	// to calling Release on the guard.
	UnlockFile(l FileLock) error

	// NewLogger returns a Logger writing to the named file, created or
	// truncated as needed.
	NewLogger(name string) (*Logger, error)

	// Micros returns a monotonically non-decreasing count of elapsed
	// microseconds since an unspecified epoch, for interval timing.
	Micros() uint64

	// SleepFor blocks the calling goroutine for at least the requested
	// number of microseconds.
	SleepFor(micros uint32)
}

// SequentialFile is a forward-only read handle. It is not safe for
// concurrent use; each handle should be owned by a single caller at a time.
type SequentialFile interface {
	io.Reader
	io.Closer
}

// WritableFile is a write handle. Like SequentialFile it is single-owner;
// the layer adds no synchronization of its own.
type WritableFile interface {
	io.Writer
	io.Closer

	// Sync flushes written data to stable storage.
	Sync() error
}

// FileLock is the guard returned by Env.LockFile. Releasing the guard ends
// the claim on every exit path: Release is idempotent, so a deferred Release
// stays safe even when the lock was already given back through
// Env.UnlockFile.
type FileLock interface {
	Release() error
}
