package codes

import (
	"sync"
	"time"
)

// InMemoryRepo is a thread-safe in-memory implementation of Repo. Expired
// entries are evicted lazily at lookup time; no background sweeper is needed
// for correctness.
type InMemoryRepo struct {
	mu      sync.Mutex
	entries map[string]*Entry
	nowTime func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepoOption configures an InMemoryRepo.
type InMemoryRepoOption func(*InMemoryRepo)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(now func() time.Time) InMemoryRepoOption {
	return func(r *InMemoryRepo) {
		r.nowTime = now
	}
}

// NewInMemoryRepo creates a new in-memory authorization-code repository.
func NewInMemoryRepo(options ...InMemoryRepoOption) *InMemoryRepo {
	r := &InMemoryRepo{
		entries: make(map[string]*Entry),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) Save(entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	r.entries[entry.Code] = &copied
	return nil
}

func (r *InMemoryRepo) Find(code string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.liveEntry(code)
	if entry == nil {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (r *InMemoryRepo) Consume(code string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.liveEntry(code)
	if entry == nil {
		return nil, nil
	}
	delete(r.entries, code)
	return entry, nil
}

func (r *InMemoryRepo) Delete(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, code)
	return nil
}

// liveEntry returns the stored entry for code, evicting it if expired.
// Callers must hold the lock.
func (r *InMemoryRepo) liveEntry(code string) *Entry {
	entry, ok := r.entries[code]
	if !ok {
		return nil
	}
	if !r.nowTime().Before(entry.ExpiresAt) {
		delete(r.entries, code)
		return nil
	}
	return entry
}
