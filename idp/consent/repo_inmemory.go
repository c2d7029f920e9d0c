package consent

import "sync"

// InMemoryRepo is a thread-safe in-memory implementation of Repo.
type InMemoryRepo struct {
	mu     sync.RWMutex
	grants map[string]*Entry
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory consent repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{grants: make(map[string]*Entry)}
}

func key(userID, spID string) string {
	return userID + ":" + spID
}

func (r *InMemoryRepo) HasConsent(userID, spID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.grants[key(userID, spID)]
	return ok, nil
}

func (r *InMemoryRepo) Save(entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	r.grants[key(entry.UserID, entry.SPID)] = &copied
	return nil
}
