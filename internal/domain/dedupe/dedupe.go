// Package dedupe remembers recently seen gate event ids.
package dedupe

import (
	"container/list"
	"context"
	"sync"

	"github.com/okian/garage/pkg/metrics"
)

const defaultMaxSize = 50000

// Deduper records seen event ids so each gate event is applied at most once.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen, recording it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a retry of the same event is accepted. Used when
	// an event was recorded but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps ids in insertion order and evicts the oldest once
// maxSize is reached. A maxSize of zero or less never evicts.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		metrics.RecordDedupeDuplicate()
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
		metrics.RecordDedupeEviction()
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
