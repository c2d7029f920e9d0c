package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/openape/openape-go/assertion"
	"github.com/openape/openape-go/discovery"
	"github.com/openape/openape-go/idp"
	"github.com/openape/openape-go/idp/codes"
	"github.com/openape/openape-go/idp/consent"
	"github.com/openape/openape-go/internal/config"
	"github.com/openape/openape-go/keys"
	"github.com/openape/openape-go/pkce"
	"github.com/stretchr/testify/require"
)

const (
	testSPID         = "https://sp.example.com"
	testRedirectURI  = "https://sp.example.com/callback"
	testUserEmail    = "user@example.com"
	testState        = "random-state-value"
	testNonce        = "random-nonce-value"
	testCodeVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type serverFixture struct {
	server  *Server
	ts      *httptest.Server
	client  *http.Client
	keyPair *keys.KeyPair
}

func setupServerFixture(t *testing.T, mode discovery.PolicyMode) *serverFixture {
	t.Helper()

	keyPair, err := keys.GenerateRSAKeyPair("test-key-1", 2048)
	require.NoError(t, err)
	keyStore, err := keys.NewInMemoryStore(keyPair)
	require.NoError(t, err)

	service, err := idp.NewService(
		idp.Repos{Codes: codes.NewInMemoryRepo(), Consent: consent.NewInMemoryRepo()},
		keyStore,
		"https://idp.example.com",
		idp.WithPolicyMode(mode),
	)
	require.NoError(t, err)

	s, err := New(config.New(), service, nil, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &serverFixture{server: s, ts: ts, client: client, keyPair: keyPair}
}

// loggedInRequest attaches a freshly minted login session to the request.
func (f *serverFixture) loggedInRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, f.ts.URL+path, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: f.server.sessions.create(testUserEmail)})
	return req
}

func authorizeQuery() url.Values {
	q := url.Values{}
	q.Set("response_type", idp.ResponseTypeCode)
	q.Set("sp_id", testSPID)
	q.Set("redirect_uri", testRedirectURI)
	q.Set("state", testState)
	q.Set("code_challenge", pkce.ChallengeS256(testCodeVerifier))
	q.Set("code_challenge_method", idp.CodeChallengeMethodS256)
	q.Set("nonce", testNonce)
	return q
}

func TestJWKSEndpoint(t *testing.T) {
	f := setupServerFixture(t, discovery.PolicyOpen)

	resp, err := f.client.Get(f.ts.URL + RouteWellKnownJWKS)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Cache-Control"), "max-age")

	var jwks struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "test-key-1", jwks.Keys[0]["kid"])
}

func TestAuthorizeEndpoint(t *testing.T) {
	t.Run("unauthenticated user is sent to login with return_to", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyOpen)

		resp, err := f.client.Get(f.ts.URL + RouteAuthorize + "?" + authorizeQuery().Encode())
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, RouteLogin, location.Path)
		require.Contains(t, location.Query().Get("return_to"), RouteAuthorize)
	})

	t.Run("invalid request is rejected before login", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyOpen)

		q := authorizeQuery()
		q.Set("code_challenge_method", "plain")
		resp, err := f.client.Get(f.ts.URL + RouteAuthorize + "?" + q.Encode())
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("open policy redirects back to the SP with a code", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyOpen)

		resp, err := f.client.Do(f.loggedInRequest(t, http.MethodGet, RouteAuthorize+"?"+authorizeQuery().Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(location.String(), testRedirectURI))
		require.NotEmpty(t, location.Query().Get("code"))
		require.Equal(t, testState, location.Query().Get("state"))
	})

	t.Run("deny policy returns 403", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyDeny)

		resp, err := f.client.Do(f.loggedInRequest(t, http.MethodGet, RouteAuthorize+"?"+authorizeQuery().Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("allowlist-user without consent redirects to the consent page", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyAllowlistUser)

		resp, err := f.client.Do(f.loggedInRequest(t, http.MethodGet, RouteAuthorize+"?"+authorizeQuery().Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, RouteConsent, location.Path)
		require.Equal(t, testSPID, location.Query().Get("sp_id"))
	})
}

func TestTokenEndpoint(t *testing.T) {
	exchange := func(t *testing.T, f *serverFixture, params *idp.TokenParams) *http.Response {
		t.Helper()
		body, err := json.Marshal(params)
		require.NoError(t, err)
		resp, err := f.client.Post(f.ts.URL+RouteToken, "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	authorizedCode := func(t *testing.T, f *serverFixture) string {
		t.Helper()
		resp, err := f.client.Do(f.loggedInRequest(t, http.MethodGet, RouteAuthorize+"?"+authorizeQuery().Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		return location.Query().Get("code")
	}

	t.Run("full flow yields a verifiable assertion", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyOpen)
		code := authorizedCode(t, f)

		resp := exchange(t, f, &idp.TokenParams{
			GrantType:    idp.GrantTypeAuthCode,
			Code:         code,
			CodeVerifier: testCodeVerifier,
			RedirectURI:  testRedirectURI,
			SPID:         testSPID,
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result idp.TokenResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

		claims, err := assertion.ParseAndVerify(result.Assertion, f.keyPair.PublicKey)
		require.NoError(t, err)
		require.Equal(t, testUserEmail, claims.Subject)
		require.Equal(t, testSPID, claims.Audience)
		require.Equal(t, testNonce, claims.Nonce)
	})

	t.Run("wrong grant_type returns the contract error", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyOpen)

		resp := exchange(t, f, &idp.TokenParams{GrantType: "client_credentials"})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Contains(t, body["error"], "Unsupported grant_type")
	})

	t.Run("code cannot be redeemed twice", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyOpen)
		code := authorizedCode(t, f)

		params := &idp.TokenParams{
			GrantType:    idp.GrantTypeAuthCode,
			Code:         code,
			CodeVerifier: testCodeVerifier,
			RedirectURI:  testRedirectURI,
			SPID:         testSPID,
		}

		first := exchange(t, f, params)
		first.Body.Close()
		require.Equal(t, http.StatusOK, first.StatusCode)

		second := exchange(t, f, params)
		defer second.Body.Close()
		require.Equal(t, http.StatusBadRequest, second.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(second.Body).Decode(&body))
		require.Contains(t, body["error"], "Invalid or expired")
	})
}

func TestConsentEndpoint(t *testing.T) {
	t.Run("post without a session is unauthorized", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyAllowlistUser)

		resp, err := f.client.PostForm(f.ts.URL+RouteConsent, url.Values{"sp_id": {testSPID}})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("granting consent unlocks code issuance", func(t *testing.T) {
		f := setupServerFixture(t, discovery.PolicyAllowlistUser)
		sessionID := f.server.sessions.create(testUserEmail)

		form := url.Values{"sp_id": {testSPID}, "return_to": {RouteAuthorize + "?" + authorizeQuery().Encode()}}
		req, err := http.NewRequest(http.MethodPost, f.ts.URL+RouteConsent, strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionID})

		resp, err := f.client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Location"), RouteAuthorize)

		// The retried authorize request now issues a code directly.
		retry, err := http.NewRequest(http.MethodGet, f.ts.URL+resp.Header.Get("Location"), nil)
		require.NoError(t, err)
		retry.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionID})

		retryResp, err := f.client.Do(retry)
		require.NoError(t, err)
		defer retryResp.Body.Close()
		require.Equal(t, http.StatusFound, retryResp.StatusCode)

		location, err := url.Parse(retryResp.Header.Get("Location"))
		require.NoError(t, err)
		require.NotEmpty(t, location.Query().Get("code"))
	})
}
