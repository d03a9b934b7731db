package flow

import (
	"sort"
	"sync"
)

// WorkerRegistry tracks every worker the supervisor has started so that
// teardown can reach all of them.
type WorkerRegistry struct {
	mu      sync.Mutex
	workers map[string]*WorkerHandle
	closed  bool
}

// NewWorkerRegistry creates an empty registry
func NewWorkerRegistry() *WorkerRegistry {
	return &WorkerRegistry{workers: make(map[string]*WorkerHandle)}
}

// Register starts tracking h. After KillAll the registry is closed: the
// handle is killed instead and Register returns false.
func (r *WorkerRegistry) Register(h *WorkerHandle) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = h.Kill()
		return false
	}
	r.workers[h.ID] = h
	r.mu.Unlock()
	return true
}

// Remove stops tracking the worker with the given ID
func (r *WorkerRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.workers, id)
	r.mu.Unlock()
}

// HasLive reports whether a tracked worker exists for root
func (r *WorkerRegistry) HasLive(root string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.workers {
		if h.Root == root {
			return true
		}
	}
	return false
}

// Snapshot returns info for every tracked worker, oldest first
func (r *WorkerRegistry) Snapshot() []WorkerInfo {
	r.mu.Lock()
	infos := make([]WorkerInfo, 0, len(r.workers))
	for _, h := range r.workers {
		infos = append(infos, h.Info())
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// KillAll closes the registry, forcefully kills every tracked worker and
// clears the set. It returns how many handles were killed.
func (r *WorkerRegistry) KillAll() int {
	r.mu.Lock()
	r.closed = true
	handles := make([]*WorkerHandle, 0, len(r.workers))
	for _, h := range r.workers {
		handles = append(handles, h)
	}
	r.workers = make(map[string]*WorkerHandle)
	r.mu.Unlock()

	for _, h := range handles {
		_ = h.Kill()
	}
	return len(handles)
}
