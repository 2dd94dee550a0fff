// Package lifecycle tracks per-app bootstrap and mount reference counts.
//
// The registry is passive: callers bump counters around an app's
// bootstrap and mount phases and query AllIdle to learn whether it is
// safe to fully unpatch the mutation interceptor process-wide. Entries
// are created lazily on first increase and never deleted; the registry
// is monotonic for the process lifetime.
package lifecycle

import "sync"

// Phase is one of the two independently counted lifecycle phases.
type Phase string

const (
	Bootstrapping Phase = "bootstrapping"
	Mounting      Phase = "mounting"
)

// Direction adjusts a counter up or down.
type Direction int

const (
	Increase Direction = iota
	Decrease
)

// Counts holds both phase counters for one app.
type Counts struct {
	Bootstrapping int
	Mounting      int
}

// Registry maps app identifiers to phase counters.
type Registry struct {
	mu   sync.RWMutex
	apps map[string]*Counts

	// observer, if set, is told how many apps are non-idle after each
	// adjustment (feeds the monitoring gauge)
	observer func(busy int)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{apps: make(map[string]*Counts)}
}

// WithObserver registers a callback receiving the number of non-idle
// apps after every adjustment.
func (r *Registry) WithObserver(fn func(busy int)) *Registry {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
	return r
}

// Adjust changes one counter. Increase always adds one. Decrease
// subtracts one only when the counter is above zero: a one-shot setup
// action may have a teardown that legitimately fires more than once, and
// a duplicate signal must not drive the count negative. Entries are
// created on the first increase only; a decrease for an untracked app
// is a no-op.
func (r *Registry) Adjust(appID string, phase Phase, direction Direction) {
	switch phase {
	case Bootstrapping, Mounting:
	default:
		return
	}

	r.mu.Lock()
	counts, ok := r.apps[appID]
	if !ok {
		if direction == Decrease {
			r.mu.Unlock()
			return
		}
		counts = &Counts{}
		r.apps[appID] = counts
	}

	var target *int
	switch phase {
	case Bootstrapping:
		target = &counts.Bootstrapping
	case Mounting:
		target = &counts.Mounting
	}

	switch direction {
	case Increase:
		*target++
	case Decrease:
		if *target > 0 {
			*target--
		}
	}

	observer := r.observer
	busy := r.busyLocked()
	r.mu.Unlock()

	if observer != nil {
		observer(busy)
	}
}

// AllIdle reports whether every tracked app has both counters at zero.
func (r *Registry) AllIdle() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.busyLocked() == 0
}

// Counts returns a copy of one app's counters. The zero value is
// returned for apps never adjusted.
func (r *Registry) Counts(appID string) Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if counts, ok := r.apps[appID]; ok {
		return *counts
	}
	return Counts{}
}

func (r *Registry) busyLocked() int {
	busy := 0
	for _, counts := range r.apps {
		if counts.Bootstrapping > 0 || counts.Mounting > 0 {
			busy++
		}
	}
	return busy
}
