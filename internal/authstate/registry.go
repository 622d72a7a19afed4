package authstate

import (
	"net/url"
	"sync"
	"time"
)

// Factory builds a Manager for a browser, restoring accessToken when the
// browser carried one.
type Factory func(accessToken string) *Manager

type entry struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry keeps one Manager per browser id and closes managers that have
// been idle longer than the TTL. When a limit is set, creating a manager
// past it closes the least recently seen one first.
type Registry struct {
	factory Factory
	idleTTL time.Duration
	now     func() time.Time
	limit   int

	mu       sync.Mutex
	managers map[string]*entry
}

// NewRegistry creates a registry. A nil now uses time.Now.
func NewRegistry(factory Factory, idleTTL time.Duration, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		factory:  factory,
		idleTTL:  idleTTL,
		now:      now,
		managers: make(map[string]*entry),
	}
}

// SetLimit caps the number of live managers. Zero or less means no cap.
func (r *Registry) SetLimit(n int) {
	r.mu.Lock()
	r.limit = n
	r.mu.Unlock()
}

// Acquire returns the manager of browserID, creating and starting one with
// landing as its first URL when the browser has none.
func (r *Registry) Acquire(browserID, accessToken string, landing *url.URL) *Manager {
	now := r.now()

	r.mu.Lock()
	stale := r.sweepLocked(now)
	e, ok := r.managers[browserID]
	if ok {
		e.lastSeen = now
		r.mu.Unlock()
		closeAll(stale)
		return e.manager
	}
	stale = append(stale, r.evictLocked()...)
	m := r.factory(accessToken)
	r.managers[browserID] = &entry{manager: m, lastSeen: now}
	r.mu.Unlock()

	closeAll(stale)
	m.Start(landing)
	return m
}

// Forget closes and drops the manager of browserID.
func (r *Registry) Forget(browserID string) {
	r.mu.Lock()
	e, ok := r.managers[browserID]
	delete(r.managers, browserID)
	r.mu.Unlock()
	if ok {
		e.manager.Close()
	}
}

// Sweep closes managers idle past the TTL.
func (r *Registry) Sweep() {
	r.mu.Lock()
	stale := r.sweepLocked(r.now())
	r.mu.Unlock()
	closeAll(stale)
}

func (r *Registry) sweepLocked(now time.Time) []*Manager {
	if r.idleTTL <= 0 {
		return nil
	}
	var stale []*Manager
	for id, e := range r.managers {
		if now.Sub(e.lastSeen) > r.idleTTL {
			stale = append(stale, e.manager)
			delete(r.managers, id)
		}
	}
	return stale
}

// evictLocked drops the least recently seen managers until one more fits
// under the limit.
func (r *Registry) evictLocked() []*Manager {
	if r.limit <= 0 {
		return nil
	}
	var evicted []*Manager
	for len(r.managers) >= r.limit {
		var oldestID string
		var oldest *entry
		for id, e := range r.managers {
			if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
				oldestID, oldest = id, e
			}
		}
		evicted = append(evicted, oldest.manager)
		delete(r.managers, oldestID)
	}
	return evicted
}

// Len returns the number of live managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Close closes every manager.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Manager, 0, len(r.managers))
	for id, e := range r.managers {
		all = append(all, e.manager)
		delete(r.managers, id)
	}
	r.mu.Unlock()
	closeAll(all)
}

func closeAll(ms []*Manager) {
	for _, m := range ms {
		m.Close()
	}
}
