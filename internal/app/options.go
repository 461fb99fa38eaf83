package service

import (
	"time"

	"github.com/okian/benchboard/internal/adapters/mq/worker"
	"github.com/okian/benchboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir sets the archive root directory.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithCacheTTL sets how long a computed best-record result stays usable.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithBatchThreshold sets the record count at which scans switch to batches.
func WithBatchThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchThreshold = n
		}
	}
}

// WithBatchSize sets the number of records per scan batch.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithScanWorkers sets the number of concurrent scan batches.
func WithScanWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scanWorkers = n
		}
	}
}

// WithScanTimeout bounds each archive scan. Zero means unbounded.
func WithScanTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.scanTimeout = d
		}
	}
}

// WithEventQueueSize sets the capacity of the outbound event queue.
func WithEventQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithInactiveAfter sets how long after its last report a team counts as inactive.
func WithInactiveAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.inactiveAfter = d
		}
	}
}

// WithMaxHistoryLimit caps the page size of history queries.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSink sets where update events are delivered.
func WithSink(sink worker.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}
