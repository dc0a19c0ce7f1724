// Package envtest provides a reusable conformance suite for env.Env
// implementations. The platform layer ships no backend of its own, so any
// disk-backed, memory-backed, or fault-injecting implementation lives
// outside this module; this suite is how such an implementation verifies it
// upholds the contracts engine code relies on.
//
// Usage, from an implementation's own test file:
//
//	func TestConformance(t *testing.T) {
//		envtest.Run(t, func(t *testing.T) (env.Env, string) {
//			return mybackend.New(), t.TempDir()
//		})
//	}
package envtest

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrykv/platform/pkg/env"
)

// Factory returns a fresh Env together with an existing, writable root
// directory the suite may populate. It is called once per subtest, so state
// never leaks between properties.
type Factory func(t *testing.T) (env.Env, string)

// Run executes every contract check against the supplied factory.
func Run(t *testing.T, newEnv Factory) {
	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "log.txt")

		writeFile(t, e, name, []byte("hello"))

		size, err := e.FileSize(name)
		require.NoError(t, err)
		assert.Equal(t, int64(5), size)

		assert.Equal(t, []byte("hello"), readFile(t, e, name))
	})

	t.Run("WritableFileTruncates", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "current")

		writeFile(t, e, name, []byte("a much longer first version"))
		writeFile(t, e, name, []byte("v2"))

		assert.Equal(t, []byte("v2"), readFile(t, e, name))
	})

	t.Run("AppendableFileExtends", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "journal")

		writeFile(t, e, name, []byte("hello"))

		w, err := e.OpenAppendableFile(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(" world"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		assert.Equal(t, []byte("hello world"), readFile(t, e, name))
	})

	t.Run("AppendableFileCreatesWhenAbsent", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "fresh-journal")

		w, err := e.OpenAppendableFile(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("first"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		assert.Equal(t, []byte("first"), readFile(t, e, name))
	})

	t.Run("OpenMissingFileFails", func(t *testing.T) {
		e, root := newEnv(t)

		_, err := e.OpenSequentialFile(filepath.Join(root, "nope"))
		require.Error(t, err)

		_, err = e.OpenRandomAccessFile(filepath.Join(root, "nope"))
		require.Error(t, err)
	})

	t.Run("RandomAccessExactRanges", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "table")
		content := patternedContent(4096)
		writeFile(t, e, name, content)

		f, err := e.OpenRandomAccessFile(name)
		require.NoError(t, err)
		defer f.Close()

		cases := []struct {
			off int64
			n   int
		}{
			{0, 0},
			{0, 4096},
			{13, 64},
			{4095, 1},
			{1024, 3072},
		}
		for _, tc := range cases {
			got, err := f.ReadAt(tc.off, tc.n)
			require.NoError(t, err, "ReadAt(%d, %d)", tc.off, tc.n)
			assert.Equal(t, content[tc.off:tc.off+int64(tc.n)], got)
		}
	})

	t.Run("RandomAccessPastEOFFails", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "table")
		writeFile(t, e, name, patternedContent(100))

		f, err := e.OpenRandomAccessFile(name)
		require.NoError(t, err)
		defer f.Close()

		got, err := f.ReadAt(90, 20)
		require.Error(t, err, "short read at EOF must be an error, not a truncated buffer")
		assert.Nil(t, got)

		var envErr *env.Error
		require.ErrorAs(t, err, &envErr)
		assert.Equal(t, env.CodeIO, envErr.Code)
	})

	t.Run("RandomAccessConcurrentClones", func(t *testing.T) {
		const (
			goroutines = 8
			iterations = 100
			stripe     = 4096
			chunk      = 128
		)

		e, root := newEnv(t)
		name := filepath.Join(root, "table")
		content := patternedContent(goroutines * stripe)
		writeFile(t, e, name, content)

		f, err := e.OpenRandomAccessFile(name)
		require.NoError(t, err)
		defer f.Close()

		var wg sync.WaitGroup
		errCh := make(chan error, goroutines)

		for g := 0; g < goroutines; g++ {
			clone := f.Clone()
			wg.Add(1)
			go func(g int, clone *env.RandomAccessFile) {
				defer wg.Done()
				defer clone.Close()

				base := int64(g * stripe)
				for i := 0; i < iterations; i++ {
					off := base + int64((i*chunk)%(stripe-chunk))
					got, err := clone.ReadAt(off, chunk)
					if err != nil {
						errCh <- fmt.Errorf("goroutine %d: %w", g, err)
						return
					}
					if string(got) != string(content[off:off+chunk]) {
						errCh <- fmt.Errorf("goroutine %d: garbled read at offset %d", g, off)
						return
					}
				}
			}(g, clone)
		}

		wg.Wait()
		close(errCh)
		for err := range errCh {
			t.Error(err)
		}
	})

	t.Run("ExistsNeverFailsOnAbsence", func(t *testing.T) {
		e, root := newEnv(t)

		ok, err := e.Exists(filepath.Join(root, "missing"))
		require.NoError(t, err)
		assert.False(t, ok)

		name := filepath.Join(root, "present")
		writeFile(t, e, name, []byte("x"))

		ok, err = e.Exists(name)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("DirectoryLifecycle", func(t *testing.T) {
		e, root := newEnv(t)
		dir := filepath.Join(root, "subdir")

		require.NoError(t, e.CreateDir(dir))
		assert.Error(t, e.CreateDir(dir), "creating an existing directory must fail")

		names, err := e.Children(root)
		require.NoError(t, err)
		assert.Contains(t, names, "subdir")

		require.NoError(t, e.RemoveDir(dir))

		names, err = e.Children(root)
		require.NoError(t, err)
		assert.NotContains(t, names, "subdir")
	})

	t.Run("CreateDirWithMissingParentFails", func(t *testing.T) {
		e, root := newEnv(t)
		assert.Error(t, e.CreateDir(filepath.Join(root, "no-parent", "child")))
	})

	t.Run("ChildrenOfNonDirectoryFails", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "plain-file")
		writeFile(t, e, name, []byte("x"))

		_, err := e.Children(name)
		assert.Error(t, err)
	})

	t.Run("RemoveFile", func(t *testing.T) {
		e, root := newEnv(t)

		assert.Error(t, e.RemoveFile(filepath.Join(root, "missing")))

		name := filepath.Join(root, "victim")
		writeFile(t, e, name, []byte("x"))
		require.NoError(t, e.RemoveFile(name))

		ok, err := e.Exists(name)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RenameMovesEntry", func(t *testing.T) {
		e, root := newEnv(t)
		src := filepath.Join(root, "000041.tmp")
		dst := filepath.Join(root, "000041.sst")
		writeFile(t, e, src, []byte("payload"))

		require.NoError(t, e.RenameFile(src, dst))

		ok, err := e.Exists(dst)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = e.Exists(src)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.Equal(t, []byte("payload"), readFile(t, e, dst))
	})

	t.Run("LockContention", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "LOCK")

		l1, err := e.LockFile(name)
		require.NoError(t, err)

		_, err = e.LockFile(name)
		require.Error(t, err)
		assert.ErrorIs(t, err, env.ErrLocked)

		require.NoError(t, e.UnlockFile(l1))

		l2, err := e.LockFile(name)
		require.NoError(t, err, "a released path must be lockable again")
		require.NoError(t, l2.Release())
		assert.NoError(t, l2.Release(), "Release must be idempotent")
	})

	t.Run("IndependentPathsLockIndependently", func(t *testing.T) {
		e, root := newEnv(t)

		l1, err := e.LockFile(filepath.Join(root, "LOCK-a"))
		require.NoError(t, err)
		defer l1.Release()

		l2, err := e.LockFile(filepath.Join(root, "LOCK-b"))
		require.NoError(t, err)
		defer l2.Release()
	})

	t.Run("LoggerWritesLines", func(t *testing.T) {
		e, root := newEnv(t)
		name := filepath.Join(root, "LOG")

		l, err := e.NewLogger(name)
		require.NoError(t, err)
		l.Log("level-0 flush: 2 files")
		l.Log("compaction done")
		require.NoError(t, l.Close())

		assert.Equal(t, []byte("level-0 flush: 2 files\ncompaction done\n"), readFile(t, e, name))
	})

	t.Run("MicrosAndSleepFor", func(t *testing.T) {
		e, _ := newEnv(t)

		before := e.Micros()
		e.SleepFor(2000)
		after := e.Micros()

		assert.GreaterOrEqual(t, after, before, "Micros must be non-decreasing")
		assert.GreaterOrEqual(t, after-before, uint64(2000),
			"SleepFor must block for at least the requested duration")
	})
}

// writeFile creates name through the Env under test and fills it with data.
func writeFile(t *testing.T, e env.Env, name string, data []byte) {
	t.Helper()

	w, err := e.OpenWritableFile(name)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
}

// readFile drains name through the Env under test.
func readFile(t *testing.T, e env.Env, name string) []byte {
	t.Helper()

	r, err := e.OpenSequentialFile(name)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

// patternedContent builds a deterministic byte pattern so reads from the
// wrong offset never pass by accident.
func patternedContent(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i*31 + 7)
	}
	return buf
}
