package sp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/openape/openape-go/assertion"
	"github.com/openape/openape-go/idp"
	"github.com/openape/openape-go/keys"
	"github.com/pkg/errors"
)

// timeNow is injectable for tests.
var timeNow = time.Now

// ErrStateMismatch indicates the callback state did not match the stored flow
// state. Flagged distinctly: it points at a CSRF attempt, not a transient
// condition, and the login attempt must not be retried.
var ErrStateMismatch = errors.New("state mismatch: possible CSRF attack")

// TokenExchangeError is a failed backchannel exchange, carrying the upstream
// status and body.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("Token exchange failed: %d %s", e.StatusCode, e.Body)
}

// AssertionValidationError is a returned assertion that failed signature or
// claim validation, with the underlying reason attached.
type AssertionValidationError struct {
	Reason error
}

func (e *AssertionValidationError) Error() string {
	return fmt.Sprintf("Assertion validation failed: %v", e.Reason)
}

func (e *AssertionValidationError) Unwrap() error {
	return e.Reason
}

// CallbackOptions are the inputs to HandleCallback. PublicKey, when set,
// verifies the assertion directly instead of fetching the IdP's JWKS.
type CallbackOptions struct {
	Code        string
	State       string
	FlowState   *FlowState
	SPID        string
	RedirectURI string
	PublicKey   any
	HTTPClient  *http.Client
}

// CallbackResult is a completed login: the validated claims and the raw
// assertion they came from.
type CallbackResult struct {
	Claims       *assertion.Claims
	RawAssertion string
}

// HandleCallback completes the flow after the IdP redirects back: it checks
// the state against the stored flow state, redeems the code over the
// backchannel, and validates the returned assertion's signature and claims.
// Claims are returned only on full success.
func HandleCallback(ctx context.Context, options CallbackOptions) (*CallbackResult, error) {
	if options.FlowState == nil {
		return nil, errors.New("[HandleCallback] flow state is required")
	}
	if options.State != options.FlowState.State {
		return nil, ErrStateMismatch
	}

	rawAssertion, err := exchangeCode(ctx, options)
	if err != nil {
		return nil, err
	}

	claims, err := validateAssertion(ctx, rawAssertion, options)
	if err != nil {
		return nil, &AssertionValidationError{Reason: err}
	}

	return &CallbackResult{Claims: claims, RawAssertion: rawAssertion}, nil
}

func exchangeCode(ctx context.Context, options CallbackOptions) (string, error) {
	body, err := json.Marshal(&idp.TokenParams{
		GrantType:    idp.GrantTypeAuthCode,
		Code:         options.Code,
		CodeVerifier: options.FlowState.CodeVerifier,
		RedirectURI:  options.RedirectURI,
		SPID:         options.SPID,
	})
	if err != nil {
		return "", errors.Wrap(err, "[exchangeCode] marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, options.FlowState.IdPURL+"/token", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "[exchangeCode] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := options.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "[exchangeCode] backchannel request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "[exchangeCode] read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", &TokenExchangeError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result idp.TokenResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", errors.Wrap(err, "[exchangeCode] decode response")
	}
	if result.Assertion == "" {
		return "", errors.New("[exchangeCode] response contains no assertion")
	}
	return result.Assertion, nil
}

func validateAssertion(ctx context.Context, rawAssertion string, options CallbackOptions) (*assertion.Claims, error) {
	var claims *assertion.Claims
	var err error

	if options.PublicKey != nil {
		claims, err = assertion.ParseAndVerify(rawAssertion, options.PublicKey)
	} else {
		claims, err = verifyWithJWKS(ctx, rawAssertion, options)
	}
	if err != nil {
		return nil, err
	}

	if err := claims.Check(assertion.Expected{
		Issuer:   options.FlowState.IdPURL,
		Audience: options.SPID,
		Nonce:    options.FlowState.Nonce,
	}, timeNow()); err != nil {
		return nil, err
	}
	return claims, nil
}

// verifyWithJWKS resolves the signing key by kid from the IdP's published key
// set and verifies the assertion signature against it.
func verifyWithJWKS(ctx context.Context, rawAssertion string, options CallbackOptions) (*assertion.Claims, error) {
	if options.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, options.HTTPClient)
	}

	keySet := oidc.NewRemoteKeySet(ctx, options.FlowState.IdPURL+keys.WellKnownJWKS)
	payload, err := keySet.VerifySignature(ctx, rawAssertion)
	if err != nil {
		return nil, errors.Wrap(err, "verify signature against JWKS")
	}
	return assertion.Decode(payload)
}
