package flexrec

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var pkgLogger atomic.Pointer[zap.Logger]

// Logger returns the package logger. It is a no-op logger unless SetLogger
// has been called.
func Logger() *zap.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger replaces the package logger used by records constructed without
// WithLogger. A nil logger restores the no-op logger.
func SetLogger(l *zap.Logger) {
	pkgLogger.Store(l)
}

type options struct {
	allocator Allocator
	logger    *zap.Logger
}

// Option configures record construction.
type Option func(*options)

// WithAllocator sets the allocator that supplies and releases the record's memory.
//
// If nil is passed, DefaultAllocator is used.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a == nil {
			a = DefaultAllocator
		}
		o.allocator = a
	}
}

// WithLogger sets the logger for the record's lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = zap.NewNop()
		}
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{allocator: DefaultAllocator, logger: Logger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
