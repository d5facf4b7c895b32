package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeBytes = 10 * 1024 * 1024
	DefaultMaxBackups   = 5

	TimestampField = "timestamp"

	megabyte = 1024 * 1024
)

var ErrClosed = errors.New("event log is closed")

// SerializationError means one field of a record could not be JSON encoded.
// Nothing is written when Emit returns it.
type SerializationError struct {
	Field string
	Err   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize field %q: %v", e.Field, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// RotationConfig controls when the sink file rolls over.
// Size rollover is rounded up to whole megabytes.
type RotationConfig struct {
	MaxSizeBytes   int64
	MaxBackups     int
	RotateInterval time.Duration
	MaxAgeDays     int
	Compress       bool
}

func (c RotationConfig) withDefaults() RotationConfig {
	if c.MaxSizeBytes <= 0 {
		c.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	return c
}

func (c RotationConfig) maxSizeMB() int {
	mb := int((c.MaxSizeBytes + megabyte - 1) / megabyte)
	if mb < 1 {
		mb = 1
	}
	return mb
}

type Option func(*Logger)

// WithClock overrides the source of default timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// WithDiagnostics routes rotation failures to the given logger.
func WithDiagnostics(logger *zerolog.Logger) Option {
	return func(l *Logger) {
		l.diag = logger
	}
}

// Logger appends one JSON object per line to a rotating file.
type Logger struct {
	path   string
	mu     sync.Mutex
	file   *lumberjack.Logger
	out    *recordWriter
	enc    zerolog.Logger
	sched  *cron.Cron
	now    func() time.Time
	diag   *zerolog.Logger
	closed bool
}

// recordWriter keeps the error of the last write so Emit can report it.
type recordWriter struct {
	w   io.Writer
	err error
}

func (r *recordWriter) Write(p []byte) (int, error) {
	n, err := r.w.Write(p)
	r.err = err
	return n, err
}

// Open creates the parent directories and the sink file, then returns a
// logger appending to it.
func Open(path string, cfg RotationConfig, opts ...Option) (*Logger, error) {
	if path == "" {
		return nil, errors.New("event log path is required")
	}
	cfg = cfg.withDefaults()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	nop := zerolog.Nop()
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.maxSizeMB(),
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	out := &recordWriter{w: lj}

	l := &Logger{
		path: path,
		file: lj,
		out:  out,
		enc:  zerolog.New(out),
		now:  time.Now,
		diag: &nop,
	}
	for _, opt := range opts {
		opt(l)
	}

	if cfg.RotateInterval > 0 {
		l.sched = cron.New()
		spec := "@every " + cfg.RotateInterval.String()
		if _, err := l.sched.AddFunc(spec, l.scheduledRotate); err != nil {
			return nil, fmt.Errorf("schedule rotation %q: %w", spec, err)
		}
		l.sched.Start()
	}

	return l, nil
}

type encodedField struct {
	key string
	raw []byte
}

// Emit writes fields as a single line. A timestamp is added when absent and
// written first; the remaining keys follow in sorted order. The caller's
// map is not modified.
func (l *Logger) Emit(fields map[string]any) error {
	ts, err := l.timestamp(fields)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != TimestampField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	encoded := make([]encodedField, 0, len(keys))
	for _, k := range keys {
		raw, err := json.Marshal(fields[k])
		if err != nil {
			return &SerializationError{Field: k, Err: err}
		}
		encoded = append(encoded, encodedField{key: k, raw: raw})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	ev := l.enc.Log().RawJSON(TimestampField, ts)
	for _, f := range encoded {
		ev = ev.RawJSON(f.key, f.raw)
	}
	l.out.err = nil
	ev.Send()

	if l.out.err != nil {
		return fmt.Errorf("write event: %w", l.out.err)
	}
	return nil
}

func (l *Logger) timestamp(fields map[string]any) ([]byte, error) {
	if v, ok := fields[TimestampField]; ok {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, &SerializationError{Field: TimestampField, Err: err}
		}
		return raw, nil
	}
	return json.Marshal(l.now().UTC().Format(time.RFC3339Nano))
}

// Rotate closes the current file, renames it to a timestamped backup and
// opens a fresh one. Old backups beyond MaxBackups are removed oldest first.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	return l.file.Rotate()
}

func (l *Logger) scheduledRotate() {
	if err := l.Rotate(); err != nil && !errors.Is(err, ErrClosed) {
		l.diag.Error().Err(err).Str("path", l.path).Msg("scheduled event log rotation failed")
	}
}

// Close stops scheduled rotation and releases the file. It is safe to call
// more than once.
func (l *Logger) Close() error {
	if l.sched != nil {
		<-l.sched.Stop().Done()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

func (l *Logger) Path() string {
	return l.path
}
