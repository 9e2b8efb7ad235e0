package repository

import (
	"time"

	"github.com/okian/garage/internal/domain/model"
)

// Option applies a configuration option to the InMemoryStore.
type Option func(*InMemoryStore)

// WithSpots seeds the inventory. Later calls append.
func WithSpots(spots []model.Spot) Option {
	return func(s *InMemoryStore) {
		s.seed = append(s.seed, spots...)
	}
}

// WithHistoryLimit caps how many completed sessions are retained. Zero keeps all.
func WithHistoryLimit(n int) Option {
	return func(s *InMemoryStore) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *InMemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
