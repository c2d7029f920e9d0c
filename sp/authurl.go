// Package sp implements the Service-Provider side of the federation
// protocol: building the authorize redirect, completing the callback, and
// serving the SP manifest.
package sp

import (
	"net/url"
	"time"

	"github.com/openape/openape-go/discovery"
	"github.com/openape/openape-go/idp"
	"github.com/openape/openape-go/pkce"
	"github.com/pkg/errors"
)

// FlowState is the client-held state of one login attempt. It is a capability
// token: the SP must keep it retrievable (session, cookie) until the callback
// arrives, and it is never persisted at the IdP.
type FlowState struct {
	CodeVerifier string
	State        string
	Nonce        string
	IdPURL       string
	CreatedAt    time.Time
}

// AuthURLOptions are the SP-side inputs to an authorize redirect.
type AuthURLOptions struct {
	SPID        string
	RedirectURI string
	Email       string // optional, attached as login_hint
}

// AuthURL is a built authorize redirect plus the flow state the caller must
// hold on to for the callback.
type AuthURL struct {
	URL       string
	FlowState *FlowState
}

// BuildAuthorizationURL generates fresh PKCE, state, and nonce values and
// assembles the IdP authorize URL. Two calls with identical inputs yield
// distinct state/nonce/verifier values; determinism here would break the
// CSRF and replay guarantees.
func BuildAuthorizationURL(cfg *discovery.IdPConfig, options AuthURLOptions) (*AuthURL, error) {
	if cfg == nil || cfg.IdPURL == "" {
		return nil, errors.New("[BuildAuthorizationURL] IdP config is required")
	}
	if options.SPID == "" || options.RedirectURI == "" {
		return nil, errors.New("[BuildAuthorizationURL] spID and redirectURI are required")
	}

	codeVerifier, err := pkce.GenerateVerifier()
	if err != nil {
		return nil, errors.Wrap(err, "[BuildAuthorizationURL] generate verifier")
	}
	state, err := pkce.GenerateState()
	if err != nil {
		return nil, errors.Wrap(err, "[BuildAuthorizationURL] generate state")
	}
	nonce, err := pkce.GenerateNonce()
	if err != nil {
		return nil, errors.Wrap(err, "[BuildAuthorizationURL] generate nonce")
	}

	params := url.Values{}
	params.Set("response_type", idp.ResponseTypeCode)
	params.Set("sp_id", options.SPID)
	params.Set("redirect_uri", options.RedirectURI)
	params.Set("state", state)
	params.Set("code_challenge", pkce.ChallengeS256(codeVerifier))
	params.Set("code_challenge_method", idp.CodeChallengeMethodS256)
	params.Set("nonce", nonce)
	if options.Email != "" {
		params.Set("login_hint", options.Email)
	}

	return &AuthURL{
		URL: cfg.IdPURL + "/authorize?" + params.Encode(),
		FlowState: &FlowState{
			CodeVerifier: codeVerifier,
			State:        state,
			Nonce:        nonce,
			IdPURL:       cfg.IdPURL,
			CreatedAt:    time.Now(),
		},
	}, nil
}
