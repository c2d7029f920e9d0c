package webauthn

import (
	"sync"
	"time"

	gowebauthn "github.com/go-webauthn/webauthn/webauthn"
	"github.com/pkg/errors"
)

// InMemoryCredentialRepo is a thread-safe in-memory CredentialRepo.
type InMemoryCredentialRepo struct {
	mu          sync.RWMutex
	credentials map[string]*Credential
}

var _ CredentialRepo = (*InMemoryCredentialRepo)(nil)

// NewInMemoryCredentialRepo creates a new in-memory credential repository.
func NewInMemoryCredentialRepo() *InMemoryCredentialRepo {
	return &InMemoryCredentialRepo{credentials: make(map[string]*Credential)}
}

func (r *InMemoryCredentialRepo) Save(credential *Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *credential
	r.credentials[credential.CredentialID] = &copied
	return nil
}

func (r *InMemoryCredentialRepo) FindByID(credentialID string) (*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	credential, ok := r.credentials[credentialID]
	if !ok {
		return nil, nil
	}
	copied := *credential
	return &copied, nil
}

func (r *InMemoryCredentialRepo) FindByUser(email string) ([]*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*Credential
	for _, credential := range r.credentials {
		if credential.UserEmail == email {
			copied := *credential
			found = append(found, &copied)
		}
	}
	return found, nil
}

func (r *InMemoryCredentialRepo) Delete(credentialID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.credentials, credentialID)
	return nil
}

func (r *InMemoryCredentialRepo) DeleteAllForUser(email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, credential := range r.credentials {
		if credential.UserEmail == email {
			delete(r.credentials, id)
		}
	}
	return nil
}

func (r *InMemoryCredentialRepo) UpdateCounter(credentialID string, counter uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	credential, ok := r.credentials[credentialID]
	if !ok {
		return errors.Errorf("credential %s not found", credentialID)
	}
	credential.Counter = counter
	return nil
}

type challengeEntry struct {
	session   *gowebauthn.SessionData
	expiresAt time.Time
}

// InMemoryChallengeRepo is a thread-safe in-memory ChallengeRepo.
type InMemoryChallengeRepo struct {
	mu       sync.Mutex
	sessions map[string]challengeEntry
	nowTime  func() time.Time
}

var _ ChallengeRepo = (*InMemoryChallengeRepo)(nil)

// NewInMemoryChallengeRepo creates a new in-memory ceremony-session repository.
func NewInMemoryChallengeRepo() *InMemoryChallengeRepo {
	return &InMemoryChallengeRepo{
		sessions: make(map[string]challengeEntry),
		nowTime:  time.Now,
	}
}

func (r *InMemoryChallengeRepo) Save(token string, session *gowebauthn.SessionData, expiresAt time.Time) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[token] = challengeEntry{session: session, expiresAt: expiresAt}
	return nil
}

func (r *InMemoryChallengeRepo) Consume(token string) (*gowebauthn.SessionData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[token]
	if !ok {
		return nil, nil
	}
	delete(r.sessions, token)

	if !r.nowTime().Before(entry.expiresAt) {
		return nil, nil
	}
	return entry.session, nil
}

// InMemoryRegistrationURLRepo is a thread-safe in-memory RegistrationURLRepo.
type InMemoryRegistrationURLRepo struct {
	mu      sync.Mutex
	urls    map[string]*RegistrationURL
	nowTime func() time.Time
}

var _ RegistrationURLRepo = (*InMemoryRegistrationURLRepo)(nil)

// NewInMemoryRegistrationURLRepo creates a new in-memory registration-URL
// repository.
func NewInMemoryRegistrationURLRepo() *InMemoryRegistrationURLRepo {
	return &InMemoryRegistrationURLRepo{
		urls:    make(map[string]*RegistrationURL),
		nowTime: time.Now,
	}
}

func (r *InMemoryRegistrationURLRepo) Save(reg *RegistrationURL) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *reg
	r.urls[reg.Token] = &copied
	return nil
}

func (r *InMemoryRegistrationURLRepo) Find(token string) (*RegistrationURL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.urls[token]
	if !ok {
		return nil, nil
	}
	copied := *reg
	return &copied, nil
}

func (r *InMemoryRegistrationURLRepo) Consume(token string) (*RegistrationURL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.urls[token]
	if !ok || reg.Consumed || !r.nowTime().Before(reg.ExpiresAt) {
		return nil, nil
	}
	reg.Consumed = true

	copied := *reg
	return &copied, nil
}

func (r *InMemoryRegistrationURLRepo) List() ([]*RegistrationURL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*RegistrationURL, 0, len(r.urls))
	for _, reg := range r.urls {
		copied := *reg
		list = append(list, &copied)
	}
	return list, nil
}

func (r *InMemoryRegistrationURLRepo) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.urls, token)
	return nil
}
