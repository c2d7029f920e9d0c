package idp

import "github.com/pkg/errors"

// Token-exchange and policy failures. The message texts are part of the wire
// contract: SP integrations match on these substrings, so they must not
// change. None of these are retried automatically; a failed exchange needs a
// fresh authorize flow.
var (
	ErrUnsupportedGrantType = errors.New("Unsupported grant_type")
	ErrInvalidCode          = errors.New("Invalid or expired authorization code")
	ErrSPMismatch           = errors.New("SP ID mismatch")
	ErrRedirectURIMismatch  = errors.New("Redirect URI mismatch")
	ErrPKCEVerification     = errors.New("PKCE verification failed")

	// ErrPolicyDenied is terminal and deliberately generic: it must not leak
	// whether the SP or the policy mode caused the denial.
	ErrPolicyDenied = errors.New("authorization denied")
)
