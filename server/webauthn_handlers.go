package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openape/openape-go/webauthn"
)

const registrationURLTTL = 24 * time.Hour

// RegisterOptions starts a credential registration ceremony. Registration is
// invitation-only: the caller must present an unconsumed registration token
// minted by an admin.
func (s *Server) RegisterOptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RegistrationToken string `json:"registration_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RegistrationToken == "" {
			writeJSONError(w, "Missing required parameter: registration_token", http.StatusBadRequest)
			return
		}

		invitation, err := s.regURLs.Find(body.RegistrationToken)
		if err != nil {
			writeJSONError(w, "Failed to look up registration token", http.StatusInternalServerError)
			return
		}
		if invitation == nil || invitation.Consumed || time.Now().After(invitation.ExpiresAt) {
			writeJSONError(w, "Invalid or expired registration token", http.StatusForbidden)
			return
		}

		options, ceremonyToken, err := s.rp.BeginRegistration(invitation.Email, invitation.Name)
		if err != nil {
			log.Error().Err(err).Str("email", invitation.Email).Msg("begin registration")
			writeJSONError(w, "Failed to create registration options", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"options":        options,
			"ceremony_token": ceremonyToken,
		})
	}
}

// RegisterVerify completes a registration ceremony. The request body is the
// authenticator's attestation response, so the registration and ceremony
// tokens arrive as query parameters.
func (s *Server) RegisterVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		registrationToken := r.URL.Query().Get("registration_token")
		ceremonyToken := r.URL.Query().Get("ceremony_token")
		if registrationToken == "" || ceremonyToken == "" {
			writeJSONError(w, "Missing required parameter: registration_token and ceremony_token", http.StatusBadRequest)
			return
		}

		invitation, err := s.regURLs.Consume(registrationToken)
		if err != nil {
			writeJSONError(w, "Failed to consume registration token", http.StatusInternalServerError)
			return
		}
		if invitation == nil {
			writeJSONError(w, "Invalid or expired registration token", http.StatusForbidden)
			return
		}

		credential, err := s.rp.FinishRegistration(invitation.Email, invitation.Name, ceremonyToken, r)
		if err != nil {
			log.Debug().Err(err).Str("email", invitation.Email).Msg("registration verification rejected")
			writeJSONError(w, "Registration verification failed", http.StatusBadRequest)
			return
		}

		s.setSessionCookie(w, invitation.Email)
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"verified":      true,
			"credential_id": credential.CredentialID,
		})
	}
}

// AuthenticateOptions starts a login ceremony for a registered user.
func (s *Server) AuthenticateOptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
			writeJSONError(w, "Missing required parameter: email", http.StatusBadRequest)
			return
		}

		options, ceremonyToken, err := s.rp.BeginLogin(body.Email)
		if err != nil {
			log.Debug().Err(err).Str("email", body.Email).Msg("begin login rejected")
			writeJSONError(w, "Failed to create authentication options", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"options":        options,
			"ceremony_token": ceremonyToken,
		})
	}
}

// AuthenticateVerify completes a login ceremony and establishes the IdP
// login session used by the authorize endpoint.
func (s *Server) AuthenticateVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		ceremonyToken := r.URL.Query().Get("ceremony_token")
		if email == "" || ceremonyToken == "" {
			writeJSONError(w, "Missing required parameter: email and ceremony_token", http.StatusBadRequest)
			return
		}

		credential, err := s.rp.FinishLogin(email, ceremonyToken, r)
		if err != nil {
			log.Debug().Err(err).Str("email", email).Msg("login verification rejected")
			writeJSONError(w, "Authentication verification failed", http.StatusUnauthorized)
			return
		}

		s.setSessionCookie(w, email)
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"verified":      true,
			"credential_id": credential.CredentialID,
		})
	}
}

// CreateRegistrationURL mints a single-use registration invitation.
func (s *Server) CreateRegistrationURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
			writeJSONError(w, "Missing required parameter: email", http.StatusBadRequest)
			return
		}

		invitation := webauthn.NewRegistrationURL(body.Email, body.Name, "admin", registrationURLTTL)
		if err := s.regURLs.Save(invitation); err != nil {
			writeJSONError(w, "Failed to save registration URL", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      invitation.Token,
			"email":      invitation.Email,
			"expires_at": invitation.ExpiresAt,
		})
	}
}

// ListRegistrationURLs lists all minted invitations.
func (s *Server) ListRegistrationURLs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invitations, err := s.regURLs.List()
		if err != nil {
			writeJSONError(w, "Failed to list registration URLs", http.StatusInternalServerError)
			return
		}

		type item struct {
			Token     string    `json:"token"`
			Email     string    `json:"email"`
			Name      string    `json:"name,omitempty"`
			ExpiresAt time.Time `json:"expires_at"`
			Consumed  bool      `json:"consumed"`
		}
		out := make([]item, 0, len(invitations))
		for _, inv := range invitations {
			out = append(out, item{
				Token:     inv.Token,
				Email:     inv.Email,
				Name:      inv.Name,
				ExpiresAt: inv.ExpiresAt,
				Consumed:  inv.Consumed,
			})
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(out)
	}
}
