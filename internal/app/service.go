// Package service wires the parking core to its adapters and implements the
// dependencies required by the HTTP API and the gate event workers.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/garage/internal/adapters/mq/queue"
	workerpool "github.com/okian/garage/internal/adapters/mq/worker"
	"github.com/okian/garage/internal/adapters/repository"
	"github.com/okian/garage/internal/config"
	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/dedupe"
	"github.com/okian/garage/internal/domain/lifecycle"
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
	"github.com/okian/garage/pkg/logger"
	"github.com/okian/garage/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const resultOK = "OK"

// Service owns the store, the coordinator and the gate event pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       *repository.InMemoryStore
	coordinator *lifecycle.Coordinator
	deduper     dedupe.Deduper
	gateQueue   *eventqueue.InMemoryQueue
	pool        *workerpool.Pool

	// Policy snapshot read by every coordinator decision.
	policy atomic.Pointer[lifecycle.Policy]

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	historyLimit int
	layout       []repository.Block
	coordOpts    []lifecycle.Option

	// State
	started  bool
	stopping bool

	// Observability
	logger logger.Logger
	tracer trace.Tracer
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    10_000,
		dedupeSize:   50_000,
		historyLimit: 10_000,
		layout:       repository.DefaultLayout(),
		tracer:       noop.NewTracerProvider().Tracer("garage"),
	}
	p := lifecycle.DefaultPolicy()
	s.policy.Store(&p)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the current policy snapshot. It makes Service a
// lifecycle.PolicySource.
func (s *Service) Policy() lifecycle.Policy {
	return *s.policy.Load()
}

// ApplyPolicy validates p and swaps it in for every later decision.
// Sessions already in flight keep the snapshot they started with.
func (s *Service) ApplyPolicy(ctx context.Context, p lifecycle.Policy) error {
	if err := p.Validate(); err != nil {
		metrics.RecordConfigReload("invalid")
		return fmt.Errorf("apply policy: %w", err)
	}
	s.policy.Store(&p)
	metrics.RecordConfigReload("applied")
	s.log().Info(ctx, "policy applied",
		logger.Duration("grace_period", p.Billing.GracePeriod),
		logger.Bool("apply_grace_by_default", p.Billing.ApplyGraceByDefault),
		logger.String("rounding", string(p.Billing.Rounding)),
	)
	return nil
}

// ApplyConfig converts a reloaded config into a policy and applies it. The
// layout and pipeline sizes are not changed at runtime.
func (s *Service) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	p, err := cfg.Policy()
	if err != nil {
		metrics.RecordConfigReload("invalid")
		return err
	}
	return s.ApplyPolicy(ctx, p)
}

// Start builds the store and the coordinator and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	log := s.log()
	log.Info(ctx, "starting garage service...")

	spots, err := repository.BuildLayout(s.layout)
	if err != nil {
		return fmt.Errorf("build layout: %w", err)
	}
	store, err := repository.NewInMemoryStore(ctx,
		repository.WithSpots(spots),
		repository.WithHistoryLimit(s.historyLimit),
	)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	s.store = store
	s.coordinator = lifecycle.New(store, s, s.coordOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.gateQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.gateQueue, s)
	s.pool.Start(ctx)

	s.started = true
	log.Info(ctx, "garage service started",
		logger.Int("spots", len(spots)),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the workers and closes the store. Workers keep using the
// coordinator while they drain, so the lock is not held during shutdown.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	pool, store := s.pool, s.store
	s.mu.Unlock()

	log := s.log()
	log.Info(ctx, "stopping garage service...")

	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := store.Close(); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	s.started = false
	s.stopping = false
	s.mu.Unlock()

	log.Info(ctx, "garage service stopped", logger.Int64("processedEvents", pool.Processed()))
	return errors.Join(errs...)
}

// CheckIn parks v in the best compatible spot.
func (s *Service) CheckIn(ctx context.Context, v model.Vehicle) (lifecycle.CheckInResult, error) {
	return s.checkIn(ctx, v, time.Time{})
}

func (s *Service) checkIn(ctx context.Context, v model.Vehicle, at time.Time) (lifecycle.CheckInResult, error) {
	c, err := s.coord()
	if err != nil {
		return lifecycle.CheckInResult{}, err
	}
	ctx, done := s.observe(ctx, lifecycle.OpCheckIn,
		attribute.String("garage.plate", model.NormalizePlate(v.LicensePlate)),
		attribute.String("garage.vehicle_type", string(v.Type)),
		attribute.Bool("garage.electric", v.Electric),
	)
	res, err := c.CheckInAt(ctx, v, at)
	if err == nil {
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("garage.spot_id", res.Spot.ID.String()),
			attribute.Float64("garage.score", res.Score),
		)
		metrics.RecordAssignmentScore(res.Score)
	}
	metrics.RecordCheckIn(resultCode(err))
	done(err)
	return res, err
}

// CheckOut closes the session for plate and bills it.
func (s *Service) CheckOut(ctx context.Context, plate string, opts lifecycle.CheckoutOptions) (lifecycle.CheckoutResult, error) {
	c, err := s.coord()
	if err != nil {
		return lifecycle.CheckoutResult{}, err
	}
	ctx, done := s.observe(ctx, lifecycle.OpCheckOut, attribute.String("garage.plate", model.NormalizePlate(plate)))
	res, err := c.CheckOut(ctx, plate, opts)
	s.recordCheckout(ctx, res, err, false)
	done(err)
	return res, err
}

// ForceCheckout closes the session for plate regardless of timing problems.
func (s *Service) ForceCheckout(ctx context.Context, plate, reason string) (lifecycle.CheckoutResult, error) {
	c, err := s.coord()
	if err != nil {
		return lifecycle.CheckoutResult{}, err
	}
	ctx, done := s.observe(ctx, lifecycle.OpForceCheckout,
		attribute.String("garage.plate", model.NormalizePlate(plate)),
		attribute.String("garage.reason", reason),
	)
	res, err := c.ForceCheckout(ctx, plate, reason)
	s.recordCheckout(ctx, res, err, true)
	if err == nil {
		s.log().Warn(ctx, "forced checkout",
			logger.String("plate", res.Session.Plate()),
			logger.String("spot", res.Spot.ID.String()),
			logger.String("reason", reason),
		)
	}
	done(err)
	return res, err
}

func (s *Service) recordCheckout(ctx context.Context, res lifecycle.CheckoutResult, err error, forced bool) {
	metrics.RecordCheckOut(resultCode(err), forced)
	if err != nil {
		return
	}
	metrics.RecordBilling(res.Charge.Total, res.Charge.BillableHours)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("garage.spot_id", res.Spot.ID.String()),
		attribute.Float64("garage.amount_due", res.Charge.Total),
		attribute.Int("garage.billable_hours", res.Charge.BillableHours),
	)
}

// SimulateAssignment reports the spot a vehicle would get, without parking it.
func (s *Service) SimulateAssignment(ctx context.Context, req assignment.Request) (assignment.Simulation, error) {
	c, err := s.coord()
	if err != nil {
		return assignment.Simulation{}, err
	}
	ctx, done := s.observe(ctx, lifecycle.OpSimulateAssignment,
		attribute.String("garage.vehicle_type", string(req.VehicleType)))
	sim, err := c.SimulateAssignment(ctx, req)
	done(err)
	return sim, err
}

// SimulateCheckout prices a checkout for plate without applying it.
func (s *Service) SimulateCheckout(ctx context.Context, plate string, opts lifecycle.CheckoutOptions) (lifecycle.CheckoutEstimate, error) {
	c, err := s.coord()
	if err != nil {
		return lifecycle.CheckoutEstimate{}, err
	}
	ctx, done := s.observe(ctx, lifecycle.OpSimulateCheckout, attribute.String("garage.plate", model.NormalizePlate(plate)))
	est, err := c.SimulateCheckout(ctx, plate, opts)
	done(err)
	return est, err
}

// ReadyForCheckout lists sessions parked at least minMinutes.
func (s *Service) ReadyForCheckout(ctx context.Context, minMinutes int) ([]lifecycle.ReadySession, error) {
	c, err := s.coord()
	if err != nil {
		return nil, err
	}
	ctx, done := s.observe(ctx, lifecycle.OpReadyForCheckout, attribute.Int("garage.min_minutes", minMinutes))
	out, err := c.ReadyForCheckout(ctx, minMinutes)
	done(err)
	return out, err
}

// Availability counts free spots a vehicle type could use.
func (s *Service) Availability(ctx context.Context, vt types.VehicleType) (assignment.Availability, error) {
	c, err := s.coord()
	if err != nil {
		return assignment.Availability{}, err
	}
	ctx, done := s.observe(ctx, lifecycle.OpAvailability, attribute.String("garage.vehicle_type", string(vt)))
	a, err := c.Availability(ctx, vt)
	done(err)
	return a, err
}

// SetSpotStatus marks a free spot available or out of service.
func (s *Service) SetSpotStatus(ctx context.Context, id model.SpotID, status types.SpotStatus) (model.Spot, error) {
	c, err := s.coord()
	if err != nil {
		return model.Spot{}, err
	}
	ctx, done := s.observe(ctx, lifecycle.OpSetSpotStatus,
		attribute.String("garage.spot_id", id.String()),
		attribute.String("garage.status", string(status)),
	)
	spot, err := c.SetSpotStatus(ctx, id, status)
	if err == nil {
		s.log().Info(ctx, "spot status changed",
			logger.String("spot", id.String()), logger.String("status", string(status)))
	}
	done(err)
	return spot, err
}

// Session returns the active session for plate.
func (s *Service) Session(ctx context.Context, plate string) (model.Session, error) {
	c, err := s.coord()
	if err != nil {
		return model.Session{}, err
	}
	return c.Session(ctx, plate)
}

// Spots returns the inventory.
func (s *Service) Spots(ctx context.Context) ([]model.Spot, error) {
	c, err := s.coord()
	if err != nil {
		return nil, err
	}
	return c.Spots(ctx)
}

// AssignmentStats aggregates the inventory.
func (s *Service) AssignmentStats(ctx context.Context) (lifecycle.AssignmentStats, error) {
	c, err := s.coord()
	if err != nil {
		return lifecycle.AssignmentStats{}, err
	}
	return c.AssignmentStats(ctx)
}

// CheckoutStats aggregates sessions and revenue.
func (s *Service) CheckoutStats(ctx context.Context) (lifecycle.CheckoutStats, error) {
	c, err := s.coord()
	if err != nil {
		return lifecycle.CheckoutStats{}, err
	}
	return c.CheckoutStats(ctx)
}

// SubmitGateEvent deduplicates e by event id and queues it for the workers.
// It reports duplicate=true when the id was already accepted. An event that
// cannot be queued is forgotten so the gate can resend it.
func (s *Service) SubmitGateEvent(ctx context.Context, e model.GateEvent) (duplicate bool, err error) {
	s.mu.RLock()
	started, deduper, q := s.started, s.deduper, s.gateQueue
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}
	e, err = normalizeGateEvent(e)
	if err != nil {
		metrics.RecordGateEventReceived(string(e.Direction), "rejected")
		return false, err
	}
	direction := string(e.Direction)

	if deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordGateEventReceived(direction, "duplicate")
		s.log().Debug(ctx, "duplicate gate event", logger.String("eventID", e.EventID))
		return true, nil
	}
	if err := q.Enqueue(ctx, e); err != nil {
		deduper.Unrecord(ctx, e.EventID)
		metrics.RecordGateEventReceived(direction, "rejected")
		return false, err
	}
	metrics.RecordGateEventReceived(direction, "accepted")
	return false, nil
}

// normalizeGateEvent checks required fields and canonicalizes the plate and
// the enumerations.
func normalizeGateEvent(e model.GateEvent) (model.GateEvent, error) {
	if e.EventID == "" {
		return e, fmt.Errorf("%w: event id is required", ErrInvalidGateEvent)
	}
	e.LicensePlate = model.NormalizePlate(e.LicensePlate)
	if e.LicensePlate == "" {
		return e, fmt.Errorf("%w: %w", ErrInvalidGateEvent, model.ErrEmptyPlate)
	}
	d, err := types.ParseDirection(string(e.Direction))
	if err != nil {
		return e, fmt.Errorf("%w: %w", ErrInvalidGateEvent, err)
	}
	e.Direction = d
	if d == types.DirectionEntry {
		vt, err := types.ParseVehicleType(string(e.VehicleType))
		if err != nil {
			return e, fmt.Errorf("%w: %w", ErrInvalidGateEvent, err)
		}
		e.VehicleType = vt
	}
	return e, nil
}

// HandleGateEvent applies one gate event: an entry checks the vehicle in and
// an exit checks it out, both at the time the gate fired. It implements
// worker.Handler.
func (s *Service) HandleGateEvent(ctx context.Context, e model.GateEvent) error {
	switch e.Direction {
	case types.DirectionEntry:
		_, err := s.checkIn(ctx, e.Vehicle(), e.TS)
		return err
	case types.DirectionExit:
		_, err := s.CheckOut(ctx, e.LicensePlate, lifecycle.CheckoutOptions{CheckOutTime: e.TS})
		return err
	}
	return fmt.Errorf("%w: direction %q", ErrInvalidGateEvent, e.Direction)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.Policy()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"historyLimit": s.historyLimit,
		"gracePeriod":  p.Billing.GracePeriod.String(),
		"rounding":     string(p.Billing.Rounding),
	}

	if s.started {
		queueLen := s.gateQueue.Len()
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["processedEvents"] = s.pool.Processed()
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}

func (s *Service) coord() (*lifecycle.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.coordinator, nil
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get().Named("service")
	}
	return s.logger
}

// observe starts a span for op and returns a func that ends it, setting the
// status and the latency metric from err.
func (s *Service) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "garage."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(err error) {
		code := resultCode(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, code)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.SetAttributes(attribute.String("garage.result", code))
		metrics.RecordOperationDuration(op, code, time.Since(start).Seconds())
		span.End()
	}
}

func resultCode(err error) string {
	if err == nil {
		return resultOK
	}
	return lifecycle.Code(err)
}
