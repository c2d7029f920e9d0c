package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "idp_session"
	sessionTTL        = 30 * time.Minute
)

type sessionData struct {
	email     string
	createdAt time.Time
}

// sessionStore holds the IdP's authenticated login sessions. A session is
// created only after a successful WebAuthn authentication ceremony.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionData
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]sessionData)}
}

func (st *sessionStore) create(email string) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := uuid.New().String()
	st.sessions[id] = sessionData{email: email, createdAt: time.Now()}
	return id
}

func (st *sessionStore) get(id string) (string, bool) {
	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Since(session.createdAt) > sessionTTL {
		st.mu.Lock()
		delete(st.sessions, id)
		st.mu.Unlock()
		return "", false
	}
	return session.email, true
}

// sessionUser returns the authenticated user's email for the request.
func (s *Server) sessionUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	return s.sessions.get(cookie.Value)
}

// setSessionCookie creates a login session for the user and attaches it to
// the response.
func (s *Server) setSessionCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.sessions.create(email),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}
