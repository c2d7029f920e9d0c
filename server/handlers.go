package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/openape/openape-go/idp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// JWKS returns the JSON Web Key Set used to validate assertions. Rotation is
// infrequent, so the document carries an hour-scale cache lifetime.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.idp.JWKS()
		if err != nil {
			http.Error(w, "Failed to get JWKS: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_ = json.NewEncoder(w).Encode(jwks)
	}
}

// Authorize begins the authorization flow: validate, authenticate, evaluate
// policy, then redirect back to the SP with a code (or to the consent step).
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := parseAuthorizeParams(r)
		if err := idp.ValidateAuthorizeRequest(params); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		userID, ok := s.sessionUser(r)
		if !ok {
			// No authenticated session: send the user agent to login, then
			// back to this exact authorize request.
			loginURL := RouteLogin + "?return_to=" + url.QueryEscape(r.URL.RequestURI())
			if params.LoginHint != "" {
				loginURL += "&email=" + url.QueryEscape(params.LoginHint)
			}
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
			return
		}

		consentRedirect := func(spID, redirectURI string) {
			consentURL := fmt.Sprintf("%s?sp_id=%s&return_to=%s",
				RouteConsent, url.QueryEscape(spID), url.QueryEscape(r.URL.RequestURI()))
			http.Redirect(w, r, consentURL, http.StatusSeeOther)
		}

		codeRedirect := func(redirectURI, code, state string) {
			location := fmt.Sprintf("%s?code=%s&state=%s",
				redirectURI, url.QueryEscape(code), url.QueryEscape(state))
			http.Redirect(w, r, location, http.StatusFound)
		}

		if err := s.idp.Authorize(params, userID, consentRedirect, codeRedirect); err != nil {
			if errors.Is(err, idp.ErrPolicyDenied) {
				http.Error(w, idp.ErrPolicyDenied.Error(), http.StatusForbidden)
				return
			}
			http.Error(w, "Authorization failed: "+err.Error(), http.StatusBadRequest)
		}
	}
}

// Token redeems an authorization code for a signed assertion over the
// backchannel.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params idp.TokenParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeJSONError(w, "Invalid token request body", http.StatusBadRequest)
			return
		}

		result, err := s.idp.Exchange(&params)
		if err != nil {
			log.Debug().Err(err).Str("sp_id", params.SPID).Msg("token exchange rejected")
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(result)
	}
}

// LoginPageHandler serves a minimal page that drives the WebAuthn
// authentication ceremony and returns to the pending authorize request.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeHTML)
		fmt.Fprintf(w, loginPageHTML,
			templateEscape(r.URL.Query().Get("email")),
			templateEscape(r.URL.Query().Get("return_to")))
	}
}

// ConsentGetHandler shows the consent prompt for an SP.
func (s *Server) ConsentGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionUser(r); !ok {
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", contentTypeHTML)
		fmt.Fprintf(w, consentPageHTML,
			templateEscape(r.URL.Query().Get("sp_id")),
			templateEscape(r.URL.Query().Get("sp_id")),
			templateEscape(r.URL.Query().Get("return_to")))
	}
}

// ConsentPostHandler records a consent grant and retries the authorize
// request that required it.
func (s *Server) ConsentPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.sessionUser(r)
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		spID := r.FormValue("sp_id")
		if spID == "" {
			http.Error(w, "Missing required parameter: sp_id", http.StatusBadRequest)
			return
		}
		if err := s.idp.GrantConsent(userID, spID); err != nil {
			http.Error(w, "Failed to record consent: "+err.Error(), http.StatusInternalServerError)
			return
		}

		returnTo := r.FormValue("return_to")
		if returnTo == "" || returnTo[0] != '/' {
			returnTo = "/"
		}
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
	}
}

func parseAuthorizeParams(r *http.Request) *idp.AuthorizeParams {
	q := r.URL.Query()
	return &idp.AuthorizeParams{
		ResponseType:        q.Get("response_type"),
		SPID:                q.Get("sp_id"),
		RedirectURI:         q.Get("redirect_uri"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Nonce:               q.Get("nonce"),
		LoginHint:           q.Get("login_hint"),
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
