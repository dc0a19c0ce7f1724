// Package envmetrics wraps an env.Env with Prometheus instrumentation and
// optional failure tracing. The decorator is backend-agnostic: it forwards
// every operation to the wrapped Env and records per-operation counters and
// latency histograms, so engine deployments can watch their platform layer
// without the backends knowing about metrics at all.
package envmetrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/quarrykv/platform/pkg/env"
)

// Operation label values, one per Env operation. Micros and SleepFor are the
// timing primitives themselves and pass through unrecorded.
const (
	opOpenSequential   = "open_sequential_file"
	opOpenRandomAccess = "open_random_access_file"
	opOpenWritable     = "open_writable_file"
	opOpenAppendable   = "open_appendable_file"
	opExists           = "exists"
	opChildren         = "children"
	opFileSize         = "file_size"
	opRemoveFile       = "remove_file"
	opCreateDir        = "create_dir"
	opRemoveDir        = "remove_dir"
	opRenameFile       = "rename_file"
	opLockFile         = "lock_file"
	opUnlockFile       = "unlock_file"
	opNewLogger        = "new_logger"
)

// Env instruments an inner env.Env. Construct it with Wrap.
type Env struct {
	inner env.Env
	log   logrus.FieldLogger

	ops      *prometheus.CounterVec
	errs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ env.Env = (*Env)(nil)

// Option configures the instrumented Env.
type Option func(*config)

type config struct {
	registerer prometheus.Registerer
	namespace  string
	log        logrus.FieldLogger
}

// WithRegisterer sets the Prometheus registerer the collectors are
// registered with. Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *config) { c.registerer = r }
}

// WithNamespace prefixes the metric names with the given namespace.
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithLogger makes the decorator log every failed operation at warn level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) { c.log = log }
}

// Wrap returns an Env that forwards to inner and records metrics for every
// operation. It panics if the collectors cannot be registered, which only
// happens when two instances share a registerer and namespace.
func Wrap(inner env.Env, opts ...Option) *Env {
	cfg := config{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Env{
		inner: inner,
		log:   cfg.log,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "env_operations_total",
			Help:      "Total number of platform layer operations, by operation.",
		}, []string{"op"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "env_operation_errors_total",
			Help:      "Total number of failed platform layer operations, by operation and error code.",
		}, []string{"op", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "env_operation_duration_seconds",
			Help:      "Latency of platform layer operations, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	cfg.registerer.MustRegister(e.ops, e.errs, e.duration)
	return e
}

// observe records one completed operation.
func (e *Env) observe(op string, start time.Time, err error) {
	e.ops.WithLabelValues(op).Inc()
	e.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		return
	}
	e.errs.WithLabelValues(op, errorCode(err)).Inc()
	if e.log != nil {
		e.log.WithField("op", op).WithError(err).Warn("env operation failed")
	}
}

// errorCode extracts the platform error code, or "unknown" for foreign
// errors an implementation let escape.
func errorCode(err error) string {
	var envErr *env.Error
	if errors.As(err, &envErr) {
		return envErr.Code
	}
	return "unknown"
}

func (e *Env) OpenSequentialFile(name string) (env.SequentialFile, error) {
	start := time.Now()
	f, err := e.inner.OpenSequentialFile(name)
	e.observe(opOpenSequential, start, err)
	return f, err
}

func (e *Env) OpenRandomAccessFile(name string) (*env.RandomAccessFile, error) {
	start := time.Now()
	f, err := e.inner.OpenRandomAccessFile(name)
	e.observe(opOpenRandomAccess, start, err)
	return f, err
}

func (e *Env) OpenWritableFile(name string) (env.WritableFile, error) {
	start := time.Now()
	f, err := e.inner.OpenWritableFile(name)
	e.observe(opOpenWritable, start, err)
	return f, err
}

func (e *Env) OpenAppendableFile(name string) (env.WritableFile, error) {
	start := time.Now()
	f, err := e.inner.OpenAppendableFile(name)
	e.observe(opOpenAppendable, start, err)
	return f, err
}

func (e *Env) Exists(name string) (bool, error) {
	start := time.Now()
	ok, err := e.inner.Exists(name)
	e.observe(opExists, start, err)
	return ok, err
}

func (e *Env) Children(dir string) ([]string, error) {
	start := time.Now()
	names, err := e.inner.Children(dir)
	e.observe(opChildren, start, err)
	return names, err
}

func (e *Env) FileSize(name string) (int64, error) {
	start := time.Now()
	size, err := e.inner.FileSize(name)
	e.observe(opFileSize, start, err)
	return size, err
}

func (e *Env) RemoveFile(name string) error {
	start := time.Now()
	err := e.inner.RemoveFile(name)
	e.observe(opRemoveFile, start, err)
	return err
}

func (e *Env) CreateDir(name string) error {
	start := time.Now()
	err := e.inner.CreateDir(name)
	e.observe(opCreateDir, start, err)
	return err
}

func (e *Env) RemoveDir(name string) error {
	start := time.Now()
	err := e.inner.RemoveDir(name)
	e.observe(opRemoveDir, start, err)
	return err
}

func (e *Env) RenameFile(src, dst string) error {
	start := time.Now()
	err := e.inner.RenameFile(src, dst)
	e.observe(opRenameFile, start, err)
	return err
}

func (e *Env) LockFile(name string) (env.FileLock, error) {
	start := time.Now()
	l, err := e.inner.LockFile(name)
	e.observe(opLockFile, start, err)
	return l, err
}

func (e *Env) UnlockFile(l env.FileLock) error {
	start := time.Now()
	err := e.inner.UnlockFile(l)
	e.observe(opUnlockFile, start, err)
	return err
}

func (e *Env) NewLogger(name string) (*env.Logger, error) {
	start := time.Now()
	l, err := e.inner.NewLogger(name)
	e.observe(opNewLogger, start, err)
	return l, err
}

func (e *Env) Micros() uint64 {
	return e.inner.Micros()
}

func (e *Env) SleepFor(micros uint32) {
	e.inner.SleepFor(micros)
}
