// Package repository holds the garage inventory and parking sessions.
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/garage/internal/domain/lifecycle"
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
	"github.com/okian/garage/pkg/metrics"
)

const (
	defaultHistoryLimit          = 10000
	defaultMetricsUpdateInterval = 5 * time.Second
)

var _ lifecycle.Store = (*InMemoryStore)(nil)

// InMemoryStore implements lifecycle.Store. Update transactions are serialized
// by a single mutex; View runs under the read lock.
type InMemoryStore struct {
	mu        sync.RWMutex
	spots     map[model.SpotID]model.Spot
	active    map[string]model.Session // by normalized plate
	completed []model.Session          // oldest checkout first, trimmed to historyLimit
	totals    lifecycle.CheckoutTotals // over every closed session

	seed                  []model.Spot
	historyLimit          int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewInMemoryStore builds a store seeded with the spots given through options
// and starts a background metrics updater bound to ctx.
func NewInMemoryStore(ctx context.Context, opts ...Option) (*InMemoryStore, error) {
	s := &InMemoryStore{
		spots:                 make(map[model.SpotID]model.Spot),
		active:                make(map[string]model.Session),
		historyLimit:          defaultHistoryLimit,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, spot := range s.seed {
		if err := spot.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.spots[spot.ID]; dup {
			return nil, fmt.Errorf("%s: %w", spot.ID, ErrDuplicateSpot)
		}
		s.spots[spot.ID] = spot.Clone()
	}
	s.seed = nil

	s.stopChan = make(chan struct{})
	s.updateMetrics()
	s.startMetricsUpdater(ctx)
	return s, nil
}

// Close stops the metrics updater.
func (s *InMemoryStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// View runs fn against a read-only view.
func (s *InMemoryStore) View(ctx context.Context, fn func(lifecycle.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryTxLatency("view", time.Since(start).Seconds())
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newTx(s))
}

// Update runs fn with exclusive access. Staged writes are applied only when fn
// returns nil.
func (s *InMemoryStore) Update(ctx context.Context, fn func(lifecycle.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryTxLatency("update", time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTx(s)
	if err := fn(t); err != nil {
		metrics.RecordErrorByComponent("repository", "tx_rollback")
		return err
	}
	t.commit()
	return nil
}

func (s *InMemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *InMemoryStore) updateMetrics() {
	counts := make(map[types.SpotStatus]int, len(types.SpotStatuses))
	s.mu.RLock()
	for _, spot := range s.spots {
		counts[spot.Status]++
	}
	active := len(s.active)
	completed := s.totals.Completed
	s.mu.RUnlock()

	for _, st := range types.SpotStatuses {
		metrics.UpdateSpotsByStatus(string(st), counts[st])
	}
	metrics.UpdateActiveSessions(active)
	metrics.UpdateCompletedSessions(completed)
}

// tx stages writes on top of the store. It is only used while the caller holds
// the store lock.
type tx struct {
	s       *InMemoryStore
	spots   map[model.SpotID]model.Spot
	opened  map[string]model.Session
	closed  map[string]bool // plates whose base session was closed
	history []model.Session
}

func newTx(s *InMemoryStore) *tx {
	return &tx{s: s}
}

func (t *tx) Spots() ([]model.Spot, error) {
	out := make([]model.Spot, 0, len(t.s.spots))
	for id, spot := range t.s.spots {
		if staged, ok := t.spots[id]; ok {
			spot = staged
		}
		out = append(out, spot.Clone())
	}
	model.SortSpots(out)
	return out, nil
}

func (t *tx) Spot(id model.SpotID) (model.Spot, error) {
	if spot, ok := t.spots[id]; ok {
		return spot.Clone(), nil
	}
	spot, ok := t.s.spots[id]
	if !ok {
		return model.Spot{}, fmt.Errorf("%s: %w", id, lifecycle.ErrSpotNotFound)
	}
	return spot.Clone(), nil
}

func (t *tx) ActiveSession(plate string) (model.Session, bool, error) {
	if s, ok := t.opened[plate]; ok {
		return s, true, nil
	}
	if t.closed[plate] {
		return model.Session{}, false, nil
	}
	s, ok := t.s.active[plate]
	return s, ok, nil
}

func (t *tx) ActiveSessions() ([]model.Session, error) {
	out := make([]model.Session, 0, len(t.s.active)+len(t.opened))
	for plate, s := range t.s.active {
		if t.closed[plate] {
			continue
		}
		if _, reopened := t.opened[plate]; reopened {
			continue
		}
		out = append(out, s)
	}
	for _, s := range t.opened {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plate() < out[j].Plate() })
	return out, nil
}

func (t *tx) CompletedSessions() ([]model.Session, error) {
	out := make([]model.Session, 0, len(t.s.completed)+len(t.history))
	out = append(out, t.s.completed...)
	out = append(out, t.history...)
	return out, nil
}

func (t *tx) CheckoutTotals() (lifecycle.CheckoutTotals, error) {
	totals := t.s.totals
	for _, closed := range t.history {
		totals.Add(closed)
	}
	return totals, nil
}

func (t *tx) PutSpot(spot model.Spot) error {
	if _, ok := t.s.spots[spot.ID]; !ok {
		return fmt.Errorf("%s: %w", spot.ID, lifecycle.ErrSpotNotFound)
	}
	if err := spot.Validate(); err != nil {
		return err
	}
	if t.spots == nil {
		t.spots = make(map[model.SpotID]model.Spot)
	}
	t.spots[spot.ID] = spot.Clone()
	return nil
}

func (t *tx) CreateSession(s model.Session) error {
	if !s.Active() {
		return fmt.Errorf("session %s: %w", s.ID, lifecycle.ErrSessionNotActive)
	}
	if _, ok, _ := t.ActiveSession(s.Plate()); ok {
		return fmt.Errorf("%s: %w", s.Plate(), lifecycle.ErrSessionExists)
	}
	if t.opened == nil {
		t.opened = make(map[string]model.Session)
	}
	t.opened[s.Plate()] = s
	return nil
}

func (t *tx) CloseSession(s model.Session) error {
	current, ok, _ := t.ActiveSession(s.Plate())
	if !ok || current.ID != s.ID {
		return fmt.Errorf("session %s: %w", s.ID, lifecycle.ErrSessionNotActive)
	}
	if s.Active() || s.CheckOutTime == nil {
		return fmt.Errorf("session %s is not completed: %w", s.ID, lifecycle.ErrSessionNotActive)
	}
	if _, staged := t.opened[s.Plate()]; staged {
		delete(t.opened, s.Plate())
	} else {
		if t.closed == nil {
			t.closed = make(map[string]bool)
		}
		t.closed[s.Plate()] = true
	}
	t.history = append(t.history, s)
	return nil
}

func (t *tx) commit() {
	s := t.s
	for id, spot := range t.spots {
		s.spots[id] = spot
	}
	for plate := range t.closed {
		delete(s.active, plate)
	}
	for plate, session := range t.opened {
		s.active[plate] = session
	}
	for _, closed := range t.history {
		s.totals.Add(closed)
	}
	s.completed = append(s.completed, t.history...)
	if s.historyLimit > 0 && len(s.completed) > s.historyLimit {
		s.completed = append([]model.Session(nil), s.completed[len(s.completed)-s.historyLimit:]...)
	}
}
