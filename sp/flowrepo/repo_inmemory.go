package flowrepo

import (
	"sync"
	"time"

	"github.com/openape/openape-go/sp"
	"github.com/pkg/errors"
)

const defaultTTL = 10 * time.Minute

// InMemoryRepo is a thread-safe in-memory implementation of the Repo
// interface. Stale entries are evicted on read.
type InMemoryRepo struct {
	mu     sync.RWMutex
	states map[string]*sp.FlowState
	ttl    time.Duration
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory flow-state repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]*sp.FlowState),
		ttl:    defaultTTL,
	}
}

// Upsert stores or updates a flow state.
func (r *InMemoryRepo) Upsert(state string, flowState *sp.FlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flowState == nil {
		return errors.New("flowState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *flowState
	r.states[state] = &copied
	return nil
}

// Get retrieves a flow state by state parameter.
func (r *InMemoryRepo) Get(state string) (*sp.FlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flowState, ok := r.states[state]
	if !ok {
		return nil, errors.New("state not found")
	}
	if time.Since(flowState.CreatedAt) > r.ttl {
		delete(r.states, state)
		return nil, errors.New("state not found")
	}

	copied := *flowState
	return &copied, nil
}

// Delete removes a flow state.
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}
