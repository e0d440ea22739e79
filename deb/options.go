package deb

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

type options struct {
	logger      *log.Logger
	compression Compression
	modTime     time.Time
	workers     int
	tempDir     string
	wrapWidth   int
}

// Option configures the assembler and the components it drives.
type Option func(*options)

// WithLogger sets the logger used to report progress. Nil loggers are ignored.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCompression selects the compression of the control and data tarballs.
// The default is CompressionGzip.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithModTime pins the modification time of generated members and clamps the
// modification time of destroot entries to at most t, for reproducible output.
func WithModTime(t time.Time) Option {
	return func(o *options) {
		o.modTime = t
	}
}

// WithWorkers sets how many regular files the destroot walker hashes
// concurrently. Values below 2 keep the walk on a single goroutine.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTempDir sets the directory used to stage the tarballs during assembly.
// The default is os.TempDir.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithWrapWidth sets the column at which description paragraphs are wrapped.
// Zero disables wrapping.
func WithWrapWidth(width int) Option {
	return func(o *options) {
		o.wrapWidth = width
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:      log.New(io.Discard),
		compression: CompressionGzip,
		workers:     1,
		wrapWidth:   DefaultWrapWidth,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// now returns the pinned modification time, or the current time.
func (o *options) now() time.Time {
	if o.modTime.IsZero() {
		return time.Now()
	}
	return o.modTime
}

// clamp limits t to the pinned modification time, if any.
func (o *options) clamp(t time.Time) time.Time {
	if !o.modTime.IsZero() && t.After(o.modTime) {
		return o.modTime
	}
	return t
}
