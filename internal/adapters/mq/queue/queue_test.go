package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

func gateEvent(id string) model.GateEvent {
	return model.GateEvent{
		EventID:      id,
		LicensePlate: "PLATE-" + id,
		VehicleType:  types.VehicleStandard,
		Direction:    types.DirectionEntry,
		TS:           time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, gateEvent("e1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.EventID != "e1" {
		t.Errorf("expected e1, got %s", got.EventID)
	}
}

func TestInMemoryQueue_Full(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, gateEvent(fmt.Sprintf("e%d", i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, gateEvent("overflow")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	_ = q.Enqueue(ctx, gateEvent("before-close"))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if err := q.Enqueue(ctx, gateEvent("after-close")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var drained []string
	for e := range q.Dequeue(ctx) {
		drained = append(drained, e.EventID)
	}
	if len(drained) != 1 || drained[0] != "before-close" {
		t.Errorf("expected buffered event to drain, got %v", drained)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, gateEvent("e1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected closed dequeue channel for cancelled context")
		}
	case <-time.After(time.Second):
		t.Error("dequeue channel was not closed")
	}
}
