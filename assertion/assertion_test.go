package assertion_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openape/openape-go/assertion"
	"github.com/openape/openape-go/keys"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://idp.example.com"
	testSubject  = "user@example.com"
	testAudience = "https://sp.example.com"
	testNonce    = "random-nonce-value"
)

func testSigner(t *testing.T) (keys.Signer, *keys.KeyPair) {
	t.Helper()
	keyPair, err := keys.GenerateRSAKeyPair("test-key-1", 2048)
	require.NoError(t, err)
	return keys.NewKeyPairSigner(keyPair), keyPair
}

func issueParams() assertion.IssueParams {
	return assertion.IssueParams{
		Subject:  testSubject,
		Audience: testAudience,
		Nonce:    testNonce,
	}
}

func TestIssue(t *testing.T) {
	signer, keyPair := testSigner(t)
	now := time.Now()

	raw, err := assertion.Issue(issueParams(), signer, testIssuer, now)
	require.NoError(t, err)
	require.Len(t, strings.Split(raw, "."), 3)

	claims, err := assertion.ParseAndVerify(raw, keyPair.PublicKey)
	require.NoError(t, err)
	require.Equal(t, testIssuer, claims.Issuer)
	require.Equal(t, testSubject, claims.Subject)
	require.Equal(t, testAudience, claims.Audience)
	require.Equal(t, testNonce, claims.Nonce)
	require.Equal(t, assertion.DefaultActor, claims.Actor)
	require.Equal(t, now.Unix(), claims.IssuedAt)
	require.Equal(t, now.Unix()+int64(assertion.Lifetime.Seconds()), claims.ExpiresAt)
	require.NotEmpty(t, claims.ID)
}

func TestIssueUniqueIDs(t *testing.T) {
	signer, keyPair := testSigner(t)
	now := time.Now()

	first, err := assertion.Issue(issueParams(), signer, testIssuer, now)
	require.NoError(t, err)
	second, err := assertion.Issue(issueParams(), signer, testIssuer, now)
	require.NoError(t, err)

	firstClaims, err := assertion.ParseAndVerify(first, keyPair.PublicKey)
	require.NoError(t, err)
	secondClaims, err := assertion.ParseAndVerify(second, keyPair.PublicKey)
	require.NoError(t, err)
	require.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestIssueCarriesKeyID(t *testing.T) {
	signer, _ := testSigner(t)

	raw, err := assertion.Issue(issueParams(), signer, testIssuer, time.Now())
	require.NoError(t, err)

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	require.NoError(t, err)
	require.Equal(t, "test-key-1", token.Header["kid"])
}

func TestParseAndVerify(t *testing.T) {
	signer, keyPair := testSigner(t)

	t.Run("rejects a tampered assertion", func(t *testing.T) {
		raw, err := assertion.Issue(issueParams(), signer, testIssuer, time.Now())
		require.NoError(t, err)

		tampered := raw[:len(raw)-4] + "AAAA"
		_, err = assertion.ParseAndVerify(tampered, keyPair.PublicKey)
		require.Error(t, err)
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		raw, err := assertion.Issue(issueParams(), signer, testIssuer, time.Now())
		require.NoError(t, err)

		otherPair, err := keys.GenerateRSAKeyPair("other-key", 2048)
		require.NoError(t, err)
		_, err = assertion.ParseAndVerify(raw, otherPair.PublicKey)
		require.Error(t, err)
	})

	t.Run("rejects an expired assertion", func(t *testing.T) {
		raw, err := assertion.Issue(issueParams(), signer, testIssuer, time.Now().Add(-2*assertion.Lifetime))
		require.NoError(t, err)

		_, err = assertion.ParseAndVerify(raw, keyPair.PublicKey)
		require.Error(t, err)
	})

	t.Run("rejects non-RS256 tokens", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": testSubject})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = assertion.ParseAndVerify(raw, keyPair.PublicKey)
		require.Error(t, err)
	})
}

func TestClaimsCheck(t *testing.T) {
	now := time.Now()
	valid := func() *assertion.Claims {
		return &assertion.Claims{
			Issuer:    testIssuer,
			Subject:   testSubject,
			Audience:  testAudience,
			Actor:     assertion.DefaultActor,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(assertion.Lifetime).Unix(),
			Nonce:     testNonce,
			ID:        "jti-1",
		}
	}
	expected := assertion.Expected{Issuer: testIssuer, Audience: testAudience, Nonce: testNonce}

	t.Run("valid claims pass", func(t *testing.T) {
		require.NoError(t, valid().Check(expected, now))
	})

	t.Run("issuer mismatch fails", func(t *testing.T) {
		claims := valid()
		claims.Issuer = "https://evil.example.com"
		err := claims.Check(expected, now)
		require.Error(t, err)
		require.Contains(t, err.Error(), "issuer mismatch")
	})

	t.Run("audience mismatch fails", func(t *testing.T) {
		claims := valid()
		claims.Audience = "https://other-sp.example.com"
		err := claims.Check(expected, now)
		require.Error(t, err)
		require.Contains(t, err.Error(), "audience mismatch")
	})

	t.Run("nonce mismatch fails", func(t *testing.T) {
		claims := valid()
		claims.Nonce = "replayed-nonce"
		err := claims.Check(expected, now)
		require.Error(t, err)
		require.Contains(t, err.Error(), "nonce mismatch")
	})

	t.Run("expired claims fail", func(t *testing.T) {
		err := valid().Check(expected, now.Add(assertion.Lifetime+time.Second))
		require.Error(t, err)
		require.Contains(t, err.Error(), "expired")
	})
}
