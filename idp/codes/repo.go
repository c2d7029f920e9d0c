// Package codes stores single-use authorization codes. A code is a bearer
// secret bound to the SP, redirect URI, PKCE challenge, user, and nonce of
// one authorize request; the store must never reveal codes other than by
// exact lookup.
package codes

import "time"

// Entry is a stored authorization code with its bindings and expiry.
type Entry struct {
	Code          string
	SPID          string
	RedirectURI   string
	CodeChallenge string
	UserID        string
	Nonce         string
	ExpiresAt     time.Time
}

// Repo is the authorization-code store contract. A distributed deployment
// needs an implementation whose Consume has compare-and-delete semantics;
// the in-memory implementation holds a single lock across check and delete.
type Repo interface {
	// Save stores a code entry.
	Save(entry *Entry) error

	// Find returns the entry for a code, or nil if it is unknown. An expired
	// entry is treated as absent and eagerly evicted.
	Find(code string) (*Entry, error)

	// Consume atomically removes and returns an unexpired entry. At most one
	// concurrent caller wins; all others get nil.
	Consume(code string) (*Entry, error)

	// Delete removes a code unconditionally.
	Delete(code string) error
}
