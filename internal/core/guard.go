package core

import (
	"container/list"
	"sync"

	"github.com/mkamel/airwave/internal/domain"
)

// PendingGuard is a bounded identity-keyed set preventing one identity
// from having two concurrent create/join operations in flight. It is a
// dedup guard only; the registry's conditional updates remain the
// authority for correctness.
type PendingGuard struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[domain.UserID]*list.Element
}

func NewPendingGuard(capacity int) *PendingGuard {
	if capacity <= 0 {
		capacity = 1000
	}
	return &PendingGuard{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[domain.UserID]*list.Element),
	}
}

// TryAcquire marks the identity as in-flight. False means an operation
// from the same identity is already pending. Insertion beyond capacity
// evicts the oldest entry.
func (g *PendingGuard) TryAcquire(id domain.UserID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.index[id]; ok {
		return false
	}
	g.index[id] = g.order.PushFront(id)
	if g.order.Len() > g.capacity {
		oldest := g.order.Back()
		g.order.Remove(oldest)
		delete(g.index, oldest.Value.(domain.UserID))
	}
	return true
}

func (g *PendingGuard) Release(id domain.UserID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if el, ok := g.index[id]; ok {
		g.order.Remove(el)
		delete(g.index, id)
	}
}

func (g *PendingGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}
