package envmetrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrykv/platform/pkg/env"
)

// fakeEnv returns canned results so the decorator's accounting can be
// checked without touching any real backend.
type fakeEnv struct {
	err    error
	micros uint64
	sleeps []uint32
}

func (f *fakeEnv) OpenSequentialFile(string) (env.SequentialFile, error) { return nil, f.err }

func (f *fakeEnv) OpenRandomAccessFile(string) (*env.RandomAccessFile, error) { return nil, f.err }

func (f *fakeEnv) OpenWritableFile(string) (env.WritableFile, error) { return nil, f.err }

func (f *fakeEnv) OpenAppendableFile(string) (env.WritableFile, error) { return nil, f.err }

func (f *fakeEnv) Exists(string) (bool, error) { return false, f.err }

func (f *fakeEnv) Children(string) ([]string, error) { return nil, f.err }

func (f *fakeEnv) FileSize(string) (int64, error) { return 0, f.err }

func (f *fakeEnv) RemoveFile(string) error { return f.err }

func (f *fakeEnv) CreateDir(string) error { return f.err }

func (f *fakeEnv) RemoveDir(string) error { return f.err }

func (f *fakeEnv) RenameFile(string, string) error { return f.err }

func (f *fakeEnv) LockFile(string) (env.FileLock, error) { return nil, f.err }

func (f *fakeEnv) UnlockFile(env.FileLock) error { return f.err }

func (f *fakeEnv) NewLogger(string) (*env.Logger, error) { return nil, f.err }

func (f *fakeEnv) Micros() uint64 { return f.micros }

func (f *fakeEnv) SleepFor(micros uint32) { f.sleeps = append(f.sleeps, micros) }

func TestWrapCountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := Wrap(&fakeEnv{}, WithRegisterer(reg))

	_, err := e.Exists("manifest")
	require.NoError(t, err)
	_, err = e.Exists("manifest")
	require.NoError(t, err)
	require.NoError(t, e.CreateDir("db"))

	assert.Equal(t, float64(2), testutil.ToFloat64(e.ops.WithLabelValues(opExists)))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.ops.WithLabelValues(opCreateDir)))
	assert.Equal(t, float64(0), testutil.ToFloat64(e.errs.WithLabelValues(opExists, env.CodeIO)))
}

func TestWrapCountsErrorsByCode(t *testing.T) {
	t.Run("Platform error codes become labels", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		inner := &fakeEnv{err: env.NewError(env.CodeLocked, "LOCK is held")}
		e := Wrap(inner, WithRegisterer(reg))

		_, err := e.LockFile("LOCK")
		require.Error(t, err)
		assert.ErrorIs(t, err, env.ErrLocked, "the decorator must not rewrite errors")

		assert.Equal(t, float64(1), testutil.ToFloat64(e.errs.WithLabelValues(opLockFile, env.CodeLocked)))
	})

	t.Run("Foreign errors count as unknown", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		inner := &fakeEnv{err: errors.New("backend leaked a raw error")}
		e := Wrap(inner, WithRegisterer(reg))

		require.Error(t, e.RemoveFile("x"))
		assert.Equal(t, float64(1), testutil.ToFloat64(e.errs.WithLabelValues(opRemoveFile, "unknown")))
	})
}

func TestWrapLogsFailures(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	reg := prometheus.NewRegistry()
	inner := &fakeEnv{err: env.NewError(env.CodeIO, "disk on fire")}
	e := Wrap(inner, WithRegisterer(reg), WithLogger(logger))

	_, err := e.FileSize("000007.sst")
	require.Error(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, opFileSize, entries[0].Data["op"])
}

func TestWrapNamespacesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := Wrap(&fakeEnv{}, WithRegisterer(reg), WithNamespace("quarry"))

	_, err := e.Children("db")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "quarry_env_operations_total")
	assert.True(t, allHavePrefix(names, "quarry_"), "all metrics should carry the namespace, got %v", names)
}

func TestTimingPrimitivesPassThrough(t *testing.T) {
	inner := &fakeEnv{micros: 42}
	e := Wrap(inner, WithRegisterer(prometheus.NewRegistry()))

	assert.Equal(t, uint64(42), e.Micros())

	e.SleepFor(7)
	assert.Equal(t, []uint32{7}, inner.sleeps)
}

func allHavePrefix(names []string, prefix string) bool {
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			return false
		}
	}
	return true
}
