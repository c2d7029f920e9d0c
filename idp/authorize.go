package idp

import (
	"github.com/openape/openape-go/discovery"
	"github.com/openape/openape-go/idp/consent"
	"github.com/pkg/errors"
)

// Protocol constants. The profile is pinned: there is no response-type or
// challenge-method negotiation.
const (
	ResponseTypeCode        = "code"
	CodeChallengeMethodS256 = "S256"
	GrantTypeAuthCode       = "authorization_code"
)

// AuthorizeParams are the query parameters of an inbound authorize request,
// as received from the SP. Values are opaque except ResponseType and
// CodeChallengeMethod, which are constrained enumerations.
type AuthorizeParams struct {
	ResponseType        string
	SPID                string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	LoginHint           string
}

// ValidateAuthorizeRequest is the pure, side-effect-free gate run before any
// policy or storage work. It returns nil when the request is well formed.
func ValidateAuthorizeRequest(params *AuthorizeParams) error {
	if params.ResponseType != ResponseTypeCode {
		return errors.New(`Unsupported response_type. Must be "code".`)
	}
	if params.CodeChallengeMethod != CodeChallengeMethodS256 {
		return errors.New(`Unsupported code_challenge_method. Must be "S256".`)
	}

	required := []struct {
		name, value string
	}{
		{"sp_id", params.SPID},
		{"redirect_uri", params.RedirectURI},
		{"state", params.State},
		{"code_challenge", params.CodeChallenge},
		{"nonce", params.Nonce},
	}
	for _, p := range required {
		if p.value == "" {
			return errors.Errorf("Missing required parameter: %s", p.name)
		}
	}
	return nil
}

// Decision is the outcome of policy evaluation for one (SP, user) pair.
type Decision string

const (
	// DecisionAllow proceeds directly to code issuance.
	DecisionAllow Decision = "allow"
	// DecisionConsent requires the caller to obtain a consent grant and retry
	// the same authorize request.
	DecisionConsent Decision = "consent"
	// DecisionDeny is terminal; no code may ever be issued from it.
	DecisionDeny Decision = "deny"
)

// EvaluatePolicy decides whether the SP may authenticate the user under the
// IdP's published policy mode. The default branch maps unknown or absent
// modes to consent: the engine fails toward explicit user consent, never
// toward silent allow.
func EvaluatePolicy(mode discovery.PolicyMode, spID, userID string, consentRepo consent.Repo) (Decision, error) {
	switch mode {
	case discovery.PolicyOpen:
		return DecisionAllow, nil
	case discovery.PolicyDeny:
		return DecisionDeny, nil
	case discovery.PolicyAllowlistUser:
		granted, err := consentRepo.HasConsent(userID, spID)
		if err != nil {
			return DecisionDeny, errors.Wrap(err, "[EvaluatePolicy] consentRepo.HasConsent")
		}
		if granted {
			return DecisionAllow, nil
		}
		return DecisionConsent, nil
	case discovery.PolicyAllowlistAdmin:
		// Admin allowlisting needs an external data source; without one the
		// engine must not fail open.
		return DecisionDeny, nil
	default:
		return DecisionConsent, nil
	}
}
