// Package assertion defines the signed statement an IdP hands to an SP after
// a successful code exchange, plus issuance and claim validation. Assertions
// are meant for immediate one-shot exchange, not long-lived bearer use, so
// the lifetime is fixed at five minutes.
package assertion

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/openape/openape-go/keys"
	"github.com/pkg/errors"
)

// Lifetime is the fixed validity window of every assertion.
const Lifetime = 5 * time.Minute

// DefaultActor is the value of the act extension claim when the issuer does
// not override it. It marks the assertion as the result of a human-present
// authentication ceremony.
const DefaultActor = "human"

// Claims is the payload of a signed assertion.
type Claims struct {
	Issuer    string `json:"iss"`
	Subject   string `json:"sub"`
	Audience  string `json:"aud"`
	Actor     string `json:"act,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"nonce"`
	ID        string `json:"jti"`
}

// IssueParams carries the per-assertion inputs. Actor defaults to
// DefaultActor when empty.
type IssueParams struct {
	Subject  string
	Audience string
	Nonce    string
	Actor    string
}

// Issue builds and signs an assertion for the given subject/audience/nonce.
// The signer carries its key ID into the token header so verifiers can pick
// the matching published key.
func Issue(params IssueParams, signer keys.Signer, issuer string, now time.Time) (string, error) {
	actor := params.Actor
	if actor == "" {
		actor = DefaultActor
	}

	iat := now.Unix()
	claims := jwt.MapClaims{
		"iss":   issuer,
		"sub":   params.Subject,
		"aud":   params.Audience,
		"act":   actor,
		"iat":   iat,
		"exp":   iat + int64(Lifetime.Seconds()),
		"nonce": params.Nonce,
		"jti":   uuid.New().String(),
	}

	signed, err := signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[assertion.Issue] signer.Sign")
	}
	return signed, nil
}

// Expected holds the values a verifier requires the claims to match.
type Expected struct {
	Issuer   string
	Audience string
	Nonce    string
}

// Check validates the claims against the expected binding values and expiry.
func (c *Claims) Check(expected Expected, now time.Time) error {
	if c.Issuer != expected.Issuer {
		return errors.Errorf("issuer mismatch: got %q, want %q", c.Issuer, expected.Issuer)
	}
	if c.Audience != expected.Audience {
		return errors.Errorf("audience mismatch: got %q, want %q", c.Audience, expected.Audience)
	}
	if c.Nonce != expected.Nonce {
		return errors.New("nonce mismatch")
	}
	if now.Unix() >= c.ExpiresAt {
		return errors.New("assertion expired")
	}
	return nil
}

// Decode unmarshals a verified JWT payload into Claims.
func Decode(payload []byte) (*Claims, error) {
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.Wrap(err, "[assertion.Decode] unmarshal payload")
	}
	return &claims, nil
}

// ParseAndVerify parses a raw assertion and verifies its RS256 signature with
// an explicitly supplied public key, returning the claims. Expiry is checked
// by the parser; binding claims still need Check.
func ParseAndVerify(raw string, publicKey any) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{keys.RS256}))

	mapClaims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(raw, mapClaims, func(*jwt.Token) (any, error) {
		return publicKey, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "[assertion.ParseAndVerify] parse")
	}
	if !token.Valid {
		return nil, errors.New("[assertion.ParseAndVerify] assertion invalid")
	}

	payload, err := json.Marshal(mapClaims)
	if err != nil {
		return nil, errors.Wrap(err, "[assertion.ParseAndVerify] marshal claims")
	}
	return Decode(payload)
}
