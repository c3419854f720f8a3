package mapres

import (
	"github.com/hupe1980/mapres/elfloader"
	"github.com/hupe1980/mapres/resource"
)

type options struct {
	logger  *Logger
	metrics MetricsCollector
	rc      *resource.Controller
	loader  elfloader.Loader
}

// Option configures a MappedResource, ElfSnapshot or LoadResources call.
type Option func(*options)

func newOptions(optFns []Option) options {
	o := options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.loader == nil {
		o.loader = elfloader.New(elfloader.WithController(o.rc))
	}
	return o
}

// WithLogger sets the logger for load failures and lifecycle events.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, metrics are discarded.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithResourceController charges mappings against rc's memory limit and,
// in LoadResources, bounds concurrency by its background worker slots.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithLoader replaces the ELF loader used by ElfSnapshot.
//
// The default loader charges images against the resource controller.
func WithLoader(l elfloader.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}
