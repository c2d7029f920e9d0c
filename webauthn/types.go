// Package webauthn is the IdP's thin passthrough to the platform WebAuthn
// ceremony: option generation, verification delegation, and the stores for
// credentials, ceremony sessions, and admin-minted registration URLs. The
// ceremony cryptography itself is delegated to go-webauthn.
package webauthn

import (
	"time"

	gowebauthn "github.com/go-webauthn/webauthn/webauthn"
)

// Credential is a registered authenticator credential for a user.
type Credential struct {
	CredentialID string // base64url-encoded
	UserEmail    string
	PublicKey    []byte
	Counter      uint32
	Transports   []string
	DeviceType   string
	BackedUp     bool
	CreatedAt    time.Time
	Name         string
}

// RegistrationURL is a single-use, admin-minted invitation to register a
// credential for an email address.
type RegistrationURL struct {
	Token     string
	Email     string
	Name      string
	CreatedAt time.Time
	ExpiresAt time.Time
	CreatedBy string
	Consumed  bool
}

// CredentialRepo stores registered credentials.
type CredentialRepo interface {
	Save(credential *Credential) error
	FindByID(credentialID string) (*Credential, error)
	FindByUser(email string) ([]*Credential, error)
	Delete(credentialID string) error
	DeleteAllForUser(email string) error
	UpdateCounter(credentialID string, counter uint32) error
}

// ChallengeRepo stores in-flight ceremony sessions keyed by an opaque token.
// Consume is single-use: a session can back at most one verification.
type ChallengeRepo interface {
	Save(token string, session *gowebauthn.SessionData, expiresAt time.Time) error
	Consume(token string) (*gowebauthn.SessionData, error)
}

// RegistrationURLRepo stores registration invitations.
type RegistrationURLRepo interface {
	Save(reg *RegistrationURL) error
	Find(token string) (*RegistrationURL, error)
	// Consume marks an unexpired, unconsumed invitation as consumed and
	// returns it; nil if it is unknown, expired, or already used.
	Consume(token string) (*RegistrationURL, error)
	List() ([]*RegistrationURL, error)
	Delete(token string) error
}
