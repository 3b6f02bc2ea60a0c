package service

import "github.com/okian/rankset/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMaxScore sets the highest accepted score.
func WithMaxScore(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxScore = n
		}
	}
}

// WithBranchFactor sets the fan-out of the ranking tree.
func WithBranchFactor(n int) Option {
	return func(s *Service) {
		if n > 1 {
			s.branchFactor = n
		}
	}
}

// WithQueueSize sets the maximum number of pending async commands.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
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
