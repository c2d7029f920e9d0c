// Package consent records which SPs a user has durably granted access to.
// Grants are append-only; presence implies allow under the allowlist-user
// policy mode.
package consent

import "time"

// Entry is a recorded consent grant.
type Entry struct {
	UserID    string
	SPID      string
	GrantedAt time.Time
}

// Repo is the consent-store contract. Read-mostly; last write visible to the
// next read is the only ordering requirement.
type Repo interface {
	HasConsent(userID, spID string) (bool, error)
	Save(entry *Entry) error
}
