// Package dedup guards against repeated webhook deliveries and double-logged income.
package dedup

import "sync"

// DefaultCapacity is the number of event IDs remembered
const DefaultCapacity = 100

// EventFilter remembers recently seen event IDs. When full it keeps only the
// most recently inserted half, an approximate LRU.
type EventFilter struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

// NewEventFilter creates a filter; capacity < 2 uses DefaultCapacity
func NewEventFilter(capacity int) *EventFilter {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &EventFilter{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// Seen reports whether id was already delivered and records it otherwise.
// An empty id is never treated as a duplicate.
func (f *EventFilter) Seen(id string) bool {
	if id == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[id]; ok {
		return true
	}
	f.seen[id] = struct{}{}
	f.order = append(f.order, id)

	if len(f.order) > f.capacity {
		keep := f.order[len(f.order)-f.capacity/2:]
		for _, old := range f.order[:len(f.order)-len(keep)] {
			delete(f.seen, old)
		}
		f.order = append([]string(nil), keep...)
	}
	return false
}

// Len returns the number of remembered IDs
func (f *EventFilter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}
