// Package pkce provides the random values and S256 challenge computation that
// bind an authorization code to the client that requested it.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pkg/errors"
)

const tokenByteLength = 32 // 256 bits, encodes to 43 base64url characters

func randomToken() (string, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[pkce randomToken] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateVerifier returns a fresh PKCE code verifier.
func GenerateVerifier() (string, error) {
	return randomToken()
}

// GenerateState returns a fresh CSRF state value.
func GenerateState() (string, error) {
	return randomToken()
}

// GenerateNonce returns a fresh per-flow nonce.
func GenerateNonce() (string, error) {
	return randomToken()
}

// ChallengeS256 computes the S256 code challenge for a verifier.
func ChallengeS256(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// VerifyS256 reports whether the verifier hashes to the stored challenge.
func VerifyS256(verifier, challenge string) bool {
	computed := ChallengeS256(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
