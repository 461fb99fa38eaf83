package repository

import "github.com/okian/benchboard/pkg/logger"

// Option applies a configuration option to the LiveStore.
type Option func(*LiveStore)

// WithLogger sets the logger used for best-record improvements.
func WithLogger(l logger.Logger) Option {
	return func(s *LiveStore) {
		if l != nil {
			s.log = l
		}
	}
}
