package worker

import (
	"github.com/okian/benchboard/internal/domain/dedupe"
	"github.com/okian/benchboard/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithName sets the dispatcher name for identification and logging.
func WithName(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.name = name
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDeduper makes the dispatcher skip events whose id it already delivered.
func WithDeduper(d dedupe.Deduper) Option {
	return func(disp *Dispatcher) {
		disp.seen = d
	}
}
