package webauthn

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	gowebauthn "github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const ceremonyTTL = 5 * time.Minute

// RPConfig identifies the IdP as a WebAuthn relying party.
type RPConfig struct {
	RPDisplayName string
	RPID          string
	Origins       []string
}

// RP wraps the WebAuthn ceremony for this relying party. It generates
// ceremony options, keeps the session in the challenge store under an opaque
// single-use token, and persists verified credentials.
type RP struct {
	wa          *gowebauthn.WebAuthn
	credentials CredentialRepo
	challenges  ChallengeRepo
}

// NewRP creates a relying party over the given stores.
func NewRP(cfg RPConfig, credentials CredentialRepo, challenges ChallengeRepo) (*RP, error) {
	wa, err := gowebauthn.New(&gowebauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.Origins,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[NewRP] webauthn.New")
	}
	if credentials == nil || challenges == nil {
		return nil, errors.New("[NewRP] credential and challenge repos are required")
	}

	return &RP{wa: wa, credentials: credentials, challenges: challenges}, nil
}

// BeginRegistration generates credential-creation options for a user,
// excluding already-registered credentials. The returned token retrieves the
// ceremony session exactly once during FinishRegistration.
func (rp *RP) BeginRegistration(email, name string) (*protocol.CredentialCreation, string, error) {
	user, err := rp.ceremonyUser(email, name)
	if err != nil {
		return nil, "", err
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(user.creds))
	for _, cred := range user.creds {
		exclusions = append(exclusions, cred.Descriptor())
	}

	options, session, err := rp.wa.BeginRegistration(user, gowebauthn.WithExclusions(exclusions))
	if err != nil {
		return nil, "", errors.Wrap(err, "[BeginRegistration] webauthn options")
	}

	token, err := rp.saveSession(session)
	if err != nil {
		return nil, "", err
	}
	return options, token, nil
}

// FinishRegistration verifies the authenticator's attestation response and
// persists the new credential.
func (rp *RP) FinishRegistration(email, name, token string, r *http.Request) (*Credential, error) {
	session, err := rp.consumeSession(token)
	if err != nil {
		return nil, err
	}
	user, err := rp.ceremonyUser(email, name)
	if err != nil {
		return nil, err
	}

	verified, err := rp.wa.FinishRegistration(user, *session, r)
	if err != nil {
		return nil, errors.Wrap(err, "[FinishRegistration] verification")
	}

	credential := fromVerified(verified, email)
	if err := rp.credentials.Save(credential); err != nil {
		return nil, errors.Wrap(err, "[FinishRegistration] credentials.Save")
	}
	return credential, nil
}

// BeginLogin generates assertion options for a user's registered credentials.
func (rp *RP) BeginLogin(email string) (*protocol.CredentialAssertion, string, error) {
	user, err := rp.ceremonyUser(email, "")
	if err != nil {
		return nil, "", err
	}
	if len(user.creds) == 0 {
		return nil, "", errors.Errorf("[BeginLogin] no credentials registered for %s", email)
	}

	options, session, err := rp.wa.BeginLogin(user)
	if err != nil {
		return nil, "", errors.Wrap(err, "[BeginLogin] webauthn options")
	}

	token, err := rp.saveSession(session)
	if err != nil {
		return nil, "", err
	}
	return options, token, nil
}

// FinishLogin verifies the authenticator's assertion response and bumps the
// credential's signature counter.
func (rp *RP) FinishLogin(email, token string, r *http.Request) (*Credential, error) {
	session, err := rp.consumeSession(token)
	if err != nil {
		return nil, err
	}
	user, err := rp.ceremonyUser(email, "")
	if err != nil {
		return nil, err
	}

	verified, err := rp.wa.FinishLogin(user, *session, r)
	if err != nil {
		return nil, errors.Wrap(err, "[FinishLogin] verification")
	}

	credentialID := base64.RawURLEncoding.EncodeToString(verified.ID)
	if err := rp.credentials.UpdateCounter(credentialID, verified.Authenticator.SignCount); err != nil {
		return nil, errors.Wrap(err, "[FinishLogin] credentials.UpdateCounter")
	}
	return rp.credentials.FindByID(credentialID)
}

func (rp *RP) saveSession(session *gowebauthn.SessionData) (string, error) {
	token := uuid.New().String()
	if err := rp.challenges.Save(token, session, time.Now().Add(ceremonyTTL)); err != nil {
		return "", errors.Wrap(err, "challenges.Save")
	}
	return token, nil
}

func (rp *RP) consumeSession(token string) (*gowebauthn.SessionData, error) {
	session, err := rp.challenges.Consume(token)
	if err != nil {
		return nil, errors.Wrap(err, "challenges.Consume")
	}
	if session == nil {
		return nil, errors.New("unknown or expired ceremony session")
	}
	return session, nil
}

// NewRegistrationURL mints a single-use registration invitation.
func NewRegistrationURL(email, name, createdBy string, ttl time.Duration) *RegistrationURL {
	now := time.Now()
	return &RegistrationURL{
		Token:     uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		CreatedBy: createdBy,
		Consumed:  false,
	}
}

// ceremonyUser adapts a user's stored credentials to the webauthn.User
// contract for one ceremony.
type ceremonyUser struct {
	email string
	name  string
	creds []gowebauthn.Credential
}

var _ gowebauthn.User = (*ceremonyUser)(nil)

func (rp *RP) ceremonyUser(email, name string) (*ceremonyUser, error) {
	stored, err := rp.credentials.FindByUser(email)
	if err != nil {
		return nil, errors.Wrap(err, "credentials.FindByUser")
	}

	creds := make([]gowebauthn.Credential, 0, len(stored))
	for _, c := range stored {
		id, err := base64.RawURLEncoding.DecodeString(c.CredentialID)
		if err != nil {
			return nil, errors.Wrapf(err, "decode credential ID %s", c.CredentialID)
		}

		transports := make([]protocol.AuthenticatorTransport, 0, len(c.Transports))
		for _, t := range c.Transports {
			transports = append(transports, protocol.AuthenticatorTransport(t))
		}

		creds = append(creds, gowebauthn.Credential{
			ID:        id,
			PublicKey: c.PublicKey,
			Transport: transports,
			Flags: gowebauthn.CredentialFlags{
				BackupEligible: c.DeviceType == "multiDevice",
				BackupState:    c.BackedUp,
			},
			Authenticator: gowebauthn.Authenticator{SignCount: c.Counter},
		})
	}

	displayName := name
	if displayName == "" {
		displayName = email
	}
	return &ceremonyUser{email: email, name: displayName, creds: creds}, nil
}

func (u *ceremonyUser) WebAuthnID() []byte { return []byte(u.email) }

func (u *ceremonyUser) WebAuthnName() string { return u.email }

func (u *ceremonyUser) WebAuthnDisplayName() string { return u.name }

func (u *ceremonyUser) WebAuthnCredentials() []gowebauthn.Credential { return u.creds }

func fromVerified(verified *gowebauthn.Credential, email string) *Credential {
	transports := make([]string, 0, len(verified.Transport))
	for _, t := range verified.Transport {
		transports = append(transports, string(t))
	}

	deviceType := "singleDevice"
	if verified.Flags.BackupEligible {
		deviceType = "multiDevice"
	}

	return &Credential{
		CredentialID: base64.RawURLEncoding.EncodeToString(verified.ID),
		UserEmail:    email,
		PublicKey:    verified.PublicKey,
		Counter:      verified.Authenticator.SignCount,
		Transports:   transports,
		DeviceType:   deviceType,
		BackedUp:     verified.Flags.BackupState,
		CreatedAt:    time.Now(),
	}
}
