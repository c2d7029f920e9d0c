package keys

import (
	"github.com/go-jose/go-jose/v4"
	"github.com/pkg/errors"
)

// PublishJWKS exports the public half of every key in the store as a JSON Web
// Key Set, one kid-indexed entry per key. Verifiers always resolve a key by
// kid, which is what keeps rotation transparent to them.
func PublishJWKS(store Store) (*jose.JSONWebKeySet, error) {
	pairs, err := store.All()
	if err != nil {
		return nil, errors.Wrap(err, "[PublishJWKS] store.All")
	}

	set := &jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, 0, len(pairs))}
	for _, kp := range pairs {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       kp.PublicKey,
			KeyID:     kp.KeyID,
			Algorithm: kp.Algorithm,
			Use:       "sig",
		})
	}
	return set, nil
}
