package repository

import (
	"time"

	"github.com/okian/rankset/pkg/logger"
)

// Option applies a configuration option to the LockedStore.
type Option func(*LockedStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *LockedStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *LockedStore) {
		if l != nil {
			s.logger = l
		}
	}
}
