package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"stayease/internal/model"
)

// Registry holds live checkouts by id. Drafts are in memory only and are
// lost when the process restarts.
type Registry struct {
	deps    Deps
	timeout time.Duration

	mu        sync.RWMutex
	checkouts map[string]*Orchestrator
}

func NewRegistry(deps Deps, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Registry{
		deps:      deps,
		timeout:   timeout,
		checkouts: make(map[string]*Orchestrator),
	}
}

// Start opens a checkout for draft. nav, when non-nil, replaces the
// registry's navigator for this checkout.
func (r *Registry) Start(draft *model.BookingDraft, nav Navigator) (*Orchestrator, error) {
	deps := r.deps
	if nav != nil {
		deps.Navigator = nav
	}
	o, err := New(uuid.NewString(), draft, deps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.checkouts[o.ID()] = o
	r.mu.Unlock()
	return o, nil
}

// Get returns a live checkout, or nil when unknown or idle too long.
func (r *Registry) Get(id string) *Orchestrator {
	r.mu.RLock()
	o := r.checkouts[id]
	r.mu.RUnlock()
	if o == nil || o.IsExpired(r.timeout) {
		return nil
	}
	return o
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkouts, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.checkouts)
}

// Cleanup removes checkouts idle longer than the timeout.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, o := range r.checkouts {
		if o.IsExpired(r.timeout) {
			delete(r.checkouts, id)
			removed++
		}
	}
	return removed
}
