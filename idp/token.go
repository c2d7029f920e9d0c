package idp

import (
	"github.com/openape/openape-go/assertion"
	"github.com/openape/openape-go/keys"
	"github.com/openape/openape-go/pkce"
	"github.com/pkg/errors"
)

// TokenParams is the JSON body of a backchannel token-exchange request.
type TokenParams struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
	SPID         string `json:"sp_id"`
}

// TokenResult is the successful response of a token exchange.
type TokenResult struct {
	Assertion string `json:"assertion"`
}

// Exchange redeems an authorization code for a signed assertion. Each step is
// a hard gate: the first failure wins and no partial state is retained. The
// code is consumed atomically after PKCE passes, so concurrent redemptions of
// the same code yield at most one assertion; every loser observes the same
// ErrInvalidCode a stale or unknown code would, avoiding an oracle.
func (s *Service) Exchange(params *TokenParams) (*TokenResult, error) {
	if params.GrantType != GrantTypeAuthCode {
		return nil, ErrUnsupportedGrantType
	}

	entry, err := s.repos.Codes.Find(params.Code)
	if err != nil {
		return nil, errors.Wrap(err, "[Exchange] codes.Find")
	}
	if entry == nil {
		return nil, ErrInvalidCode
	}

	if entry.SPID != params.SPID {
		return nil, ErrSPMismatch
	}
	if entry.RedirectURI != params.RedirectURI {
		return nil, ErrRedirectURIMismatch
	}
	if !pkce.VerifyS256(params.CodeVerifier, entry.CodeChallenge) {
		return nil, ErrPKCEVerification
	}

	// Single use is enforced here, before issuing the assertion.
	consumed, err := s.repos.Codes.Consume(params.Code)
	if err != nil {
		return nil, errors.Wrap(err, "[Exchange] codes.Consume")
	}
	if consumed == nil {
		return nil, ErrInvalidCode
	}

	signingKey, err := s.keyStore.SigningKey()
	if err != nil {
		return nil, errors.Wrap(err, "[Exchange] keyStore.SigningKey")
	}

	signed, err := assertion.Issue(assertion.IssueParams{
		Subject:  consumed.UserID,
		Audience: params.SPID,
		Nonce:    consumed.Nonce,
		Actor:    s.actor,
	}, keys.NewKeyPairSigner(signingKey), s.issuer, s.nowTime())
	if err != nil {
		return nil, errors.Wrap(err, "[Exchange] assertion.Issue")
	}

	return &TokenResult{Assertion: signed}, nil
}
