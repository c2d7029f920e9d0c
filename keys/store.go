package keys

import (
	"sync"

	"github.com/pkg/errors"
)

// Store holds the IdP's active key pairs. The signing key is the designated
// current key; retired keys remain in the store so assertions signed before a
// rotation stay verifiable until they expire.
type Store interface {
	// SigningKey returns the current signing key.
	SigningKey() (*KeyPair, error)

	// All returns every known key pair, current first.
	All() ([]*KeyPair, error)
}

// Rotator is implemented by stores that support key rotation.
type Rotator interface {
	// Rotate installs a new current signing key, retiring the previous one.
	Rotate(kp *KeyPair) error
}

// InMemoryStore is a thread-safe in-memory Store. Keys are generated as an
// explicit startup step and handed to NewInMemoryStore, so there is no hidden
// first-request key generation.
type InMemoryStore struct {
	mu    sync.RWMutex
	pairs []*KeyPair
}

var (
	_ Store   = (*InMemoryStore)(nil)
	_ Rotator = (*InMemoryStore)(nil)
)

// NewInMemoryStore creates a store over already-generated key pairs, the
// first being the current signing key.
func NewInMemoryStore(pairs ...*KeyPair) (*InMemoryStore, error) {
	if len(pairs) == 0 {
		return nil, errors.New("[NewInMemoryStore] at least one key pair is required")
	}
	return &InMemoryStore{pairs: append([]*KeyPair(nil), pairs...)}, nil
}

func (s *InMemoryStore) SigningKey() (*KeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pairs[0], nil
}

func (s *InMemoryStore) All() ([]*KeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*KeyPair(nil), s.pairs...), nil
}

func (s *InMemoryStore) Rotate(kp *KeyPair) error {
	if kp == nil {
		return errors.New("[InMemoryStore.Rotate] key pair cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = append([]*KeyPair{kp}, s.pairs...)
	return nil
}
