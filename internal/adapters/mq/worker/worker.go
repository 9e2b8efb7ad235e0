// Package worker drains gate events from the queue and hands them to a handler.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/pkg/logger"
	"github.com/okian/garage/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
	shardBuffer             = 64
)

// Handler applies one gate event.
type Handler interface {
	HandleGateEvent(ctx context.Context, e model.GateEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e model.GateEvent) error

// HandleGateEvent implements Handler.
func (f HandlerFunc) HandleGateEvent(ctx context.Context, e model.GateEvent) error {
	return f(ctx, e)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.GateEvent
}

// InMemoryWorker reads events until the queue channel closes or it is stopped.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string
	onDone  func() // called after every event, used by the pool for throughput

	stop    chan struct{}
	stopped sync.Once
	done    chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		handler: h,
		name:    "worker",
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes events until ctx is done, Stop is called, or the queue is
// closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "gate event failed",
					logger.String("event_id", e.EventID),
					logger.String("plate", e.LicensePlate),
					logger.String("direction", string(e.Direction)),
					logger.Error(err),
				)
			}
		}
	}
}

// Stop makes Run return without draining.
func (w *InMemoryWorker) Stop() {
	w.stopped.Do(func() { close(w.stop) })
}

// Done is closed when Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, e model.GateEvent) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(time.Since(start).Seconds())
		if w.onDone != nil {
			w.onDone()
		}
	}()

	if err := w.handler.HandleGateEvent(ctx, e); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordGateEventProcessed(string(e.Direction), "error")
		return fmt.Errorf("event %s: %w", e.EventID, err)
	}
	metrics.RecordGateEventProcessed(string(e.Direction), "ok")
	return nil
}

// shard is the per-worker queue fed by the pool dispatcher.
type shard chan model.GateEvent

// Dequeue implements Queue.
func (s shard) Dequeue(context.Context) <-chan model.GateEvent { return s }

// Pool runs a fixed number of workers over one queue. Events are routed to
// workers by plate, so events for one vehicle are handled in queue order.
type Pool struct {
	workers []*InMemoryWorker
	shards  []shard
	queue   Queue
	halt    chan struct{}
	halted  sync.Once

	processed atomic.Int64
	lastTick  time.Time

	stopMetrics chan struct{}
	once        sync.Once

	logger logger.Logger
}

// NewPool creates workerCount workers. A count below one uses a multiple of
// the CPU count.
func NewPool(workerCount int, q Queue, h Handler) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers:     make([]*InMemoryWorker, workerCount),
		shards:      make([]shard, workerCount),
		queue:       q,
		halt:        make(chan struct{}),
		lastTick:    time.Now(),
		stopMetrics: make(chan struct{}),
		logger:      logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.shards[i] = make(shard, shardBuffer)
		p.workers[i] = NewInMemoryWorker(p.shards[i], h,
			WithName("worker-"+strconv.Itoa(i)),
			withOnDone(func() { p.processed.Add(1) }),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many events the pool has handled, successful or not.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start runs every worker in its own goroutine plus the dispatcher.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.dispatch(ctx)
	go p.runMetrics(ctx)
}

// dispatch moves events from the queue to their plate's shard. Shards are
// closed once the queue is closed and drained.
func (p *Pool) dispatch(ctx context.Context) {
	defer func() {
		for _, s := range p.shards {
			close(s)
		}
	}()
	for e := range p.queue.Dequeue(ctx) {
		select {
		case p.shards[p.shardFor(e)] <- e:
		case <-ctx.Done():
			return
		case <-p.halt:
			return
		}
	}
}

// shardFor picks the worker index for e's plate.
func (p *Pool) shardFor(e model.GateEvent) int {
	return int(xxhash.Sum64String(model.NormalizePlate(e.LicensePlate)) % uint64(len(p.shards)))
}

func (p *Pool) runMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopMetrics:
			return
		case now := <-ticker.C:
			current := p.processed.Load()
			if elapsed := now.Sub(p.lastTick).Seconds(); elapsed > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(current-last) / elapsed)
			}
			last = current
			p.lastTick = now
		}
	}
}

// Shutdown closes the queue, lets workers drain what is buffered, and stops
// any worker still busy when ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.once.Do(func() { close(p.stopMetrics) })

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			p.halted.Do(func() { close(p.halt) })
			w.Stop()
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
