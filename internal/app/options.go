package service

import (
	"github.com/okian/garage/internal/adapters/repository"
	"github.com/okian/garage/internal/domain/lifecycle"
	"github.com/okian/garage/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of gate event workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the gate event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many gate event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHistoryLimit caps completed sessions kept by the store.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

// WithLayout sets the spot inventory built on Start.
func WithLayout(blocks []repository.Block) Option {
	return func(s *Service) {
		if len(blocks) > 0 {
			s.layout = blocks
		}
	}
}

// WithPolicy sets the initial policy snapshot.
func WithPolicy(p lifecycle.Policy) Option {
	return func(s *Service) {
		s.policy.Store(&p)
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

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithCoordinatorOptions passes options such as a clock to the coordinator.
func WithCoordinatorOptions(opts ...lifecycle.Option) Option {
	return func(s *Service) {
		s.coordOpts = append(s.coordOpts, opts...)
	}
}
