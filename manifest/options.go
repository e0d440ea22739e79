package manifest

import (
	"io"

	"github.com/charmbracelet/log"
)

type options struct {
	logger     *log.Logger
	strictArch bool
}

// Option configures how build files and package definitions are loaded.
type Option func(*options)

// WithLogger sets the logger warnings are reported to. Nil loggers are ignored.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStrictArch rejects architectures unknown to dpkg in every package,
// whatever their strict_arch setting.
func WithStrictArch(strict bool) Option {
	return func(o *options) {
		o.strictArch = strict
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
