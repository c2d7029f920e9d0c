// Package flowrepo stores an SP's in-flight login flow states keyed by the
// state parameter, so the callback handler can recover the PKCE verifier and
// nonce of the attempt that started it.
package flowrepo

import "github.com/openape/openape-go/sp"

// Repo is the flow-state store contract. Entries are short-lived; an
// implementation may evict anything older than its TTL.
type Repo interface {
	Upsert(state string, flowState *sp.FlowState) error
	Get(state string) (*sp.FlowState, error)
	Delete(state string) error
}
