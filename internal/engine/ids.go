package engine

import (
	"fmt"
	"math"
	"sync"
)

// IDAllocator hands out monotonically increasing ids. Ids are never reused,
// so an id seen by a renderer always names the same entity.
type IDAllocator struct {
	next      uint64
	allocated int
	mu        sync.Mutex
}

// NewIDAllocator creates an allocator whose first id is start.
func NewIDAllocator(start uint32) *IDAllocator {
	return &IDAllocator{next: uint64(start)}
}

// Allocate returns the next id.
func (a *IDAllocator) Allocate() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.next > math.MaxUint32 {
		return 0, fmt.Errorf("id space exhausted after %d allocations", a.allocated)
	}
	id := uint32(a.next)
	a.next++
	a.allocated++
	return id, nil
}

// Peek returns the id the next Allocate will return.
func (a *IDAllocator) Peek() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// AllocatedCount returns the number of ids handed out.
func (a *IDAllocator) AllocatedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocated
}
