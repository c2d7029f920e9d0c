package pkce_test

import (
	"testing"

	"github.com/openape/openape-go/pkce"
	"github.com/stretchr/testify/require"
)

// Test vector from RFC 7636 appendix B.
const (
	rfcVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	rfcChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

func TestChallengeS256(t *testing.T) {
	require.Equal(t, rfcChallenge, pkce.ChallengeS256(rfcVerifier))
}

func TestVerifyS256(t *testing.T) {
	t.Run("matching verifier passes", func(t *testing.T) {
		require.True(t, pkce.VerifyS256(rfcVerifier, rfcChallenge))
	})

	t.Run("wrong verifier fails", func(t *testing.T) {
		require.False(t, pkce.VerifyS256("some-other-verifier", rfcChallenge))
	})

	t.Run("empty verifier fails", func(t *testing.T) {
		require.False(t, pkce.VerifyS256("", rfcChallenge))
	})
}

func TestGeneratedValuesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		verifier, err := pkce.GenerateVerifier()
		require.NoError(t, err)
		require.Len(t, verifier, 43) // 32 bytes base64url, unpadded
		require.False(t, seen[verifier])
		seen[verifier] = true
	}

	state, err := pkce.GenerateState()
	require.NoError(t, err)
	nonce, err := pkce.GenerateNonce()
	require.NoError(t, err)
	require.NotEqual(t, state, nonce)
}
