// Package idp implements the Identity-Provider side of the federation
// protocol: authorize-request validation, policy evaluation, the single-use
// authorization-code lifecycle, token exchange, and assertion issuance.
package idp

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/openape/openape-go/discovery"
	"github.com/openape/openape-go/idp/codes"
	"github.com/openape/openape-go/idp/consent"
	"github.com/openape/openape-go/keys"
	"github.com/pkg/errors"
)

const (
	codeGenerationLength = 32
	defaultCodeTTL       = 5 * time.Minute
)

// CodeRedirect sends the user agent back to the SP with a freshly issued
// authorization code and the SP's original state value.
type CodeRedirect func(redirectURI, code, state string)

// ConsentRedirect sends the user agent to a consent step for the given SP.
// The SP's authorize request is retried unchanged after the grant.
type ConsentRedirect func(spID, redirectURI string)

// Repos holds all repository dependencies for the Service.
type Repos struct {
	Codes   codes.Repo
	Consent consent.Repo
}

// Service provides the IdP's protocol operations over its stores and keys.
type Service struct {
	repos    Repos
	keyStore keys.Store
	issuer   string
	mode     discovery.PolicyMode
	codeTTL  time.Duration
	actor    string
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithPolicyMode sets the policy mode this IdP publishes in its discovery
// record and enforces on authorize requests.
func WithPolicyMode(mode discovery.PolicyMode) ServiceOption {
	return func(s *Service) {
		s.mode = mode
	}
}

// WithCodeTTL overrides the authorization-code expiry window.
func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.codeTTL = ttl
	}
}

// WithActor overrides the act claim stamped on issued assertions.
func WithActor(actor string) ServiceOption {
	return func(s *Service) {
		s.actor = actor
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(repos Repos, keyStore keys.Store, issuer string, options ...ServiceOption) (*Service, error) {
	if repos.Codes == nil {
		return nil, errors.New("[NewService] Codes repo is required")
	}
	if repos.Consent == nil {
		return nil, errors.New("[NewService] Consent repo is required")
	}
	if keyStore == nil {
		return nil, errors.New("[NewService] keyStore is required")
	}
	if issuer == "" {
		return nil, errors.New("[NewService] issuer is required")
	}

	service := &Service{
		repos:    repos,
		keyStore: keyStore,
		issuer:   issuer,
		codeTTL:  defaultCodeTTL,
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Issuer returns the issuer URL assertions are stamped with.
func (s *Service) Issuer() string {
	return s.issuer
}

// Mode returns the policy mode this IdP enforces.
func (s *Service) Mode() discovery.PolicyMode {
	return s.mode
}

// Authorize runs the authorize request for an authenticated user: validation,
// policy evaluation, then either a consent redirect or code issuance and the
// redirect back to the SP. A deny decision returns ErrPolicyDenied and never
// issues a code.
func (s *Service) Authorize(params *AuthorizeParams, userID string, consentRedirect ConsentRedirect, codeRedirect CodeRedirect) error {
	if err := ValidateAuthorizeRequest(params); err != nil {
		return errors.Wrap(err, "[Authorize] failed parameter validation")
	}

	decision, err := EvaluatePolicy(s.mode, params.SPID, userID, s.repos.Consent)
	if err != nil {
		return errors.Wrap(err, "[Authorize] policy evaluation")
	}

	switch decision {
	case DecisionDeny:
		return ErrPolicyDenied
	case DecisionConsent:
		consentRedirect(params.SPID, params.RedirectURI)
		return nil
	}

	code, err := s.IssueCode(params, userID)
	if err != nil {
		return errors.Wrap(err, "[Authorize] failed issuing authorization code")
	}
	codeRedirect(params.RedirectURI, code, params.State)
	return nil
}

// IssueCode mints a single-use authorization code bound to the request's SP,
// redirect URI, PKCE challenge, user, and nonce.
func (s *Service) IssueCode(params *AuthorizeParams, userID string) (string, error) {
	bytes := make([]byte, codeGenerationLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[IssueCode] rand.Read")
	}
	code := base64.RawURLEncoding.EncodeToString(bytes)

	if err := s.repos.Codes.Save(&codes.Entry{
		Code:          code,
		SPID:          params.SPID,
		RedirectURI:   params.RedirectURI,
		CodeChallenge: params.CodeChallenge,
		UserID:        userID,
		Nonce:         params.Nonce,
		ExpiresAt:     s.nowTime().Add(s.codeTTL),
	}); err != nil {
		return "", errors.Wrap(err, "[IssueCode] codes.Save")
	}

	return code, nil
}

// GrantConsent records a durable consent grant for the (user, SP) pair.
func (s *Service) GrantConsent(userID, spID string) error {
	err := s.repos.Consent.Save(&consent.Entry{
		UserID:    userID,
		SPID:      spID,
		GrantedAt: s.nowTime(),
	})
	return errors.Wrap(err, "[GrantConsent] consent.Save")
}

// JWKS publishes the verification keys for all active signing keys.
func (s *Service) JWKS() (*jose.JSONWebKeySet, error) {
	return keys.PublishJWKS(s.keyStore)
}
