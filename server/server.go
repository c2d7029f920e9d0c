// Package server exposes the IdP's HTTP surface: the authorize and token
// endpoints, JWKS publication, consent, and the WebAuthn ceremony routes.
package server

import (
	"net/http"

	"github.com/openape/openape-go/idp"
	"github.com/openape/openape-go/internal/config"
	"github.com/openape/openape-go/webauthn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	idp      *idp.Service
	rp       *webauthn.RP
	regURLs  webauthn.RegistrationURLRepo
	sessions *sessionStore
}

func New(cfg config.Config, service *idp.Service, rp *webauthn.RP, regURLs webauthn.RegistrationURLRepo) (*Server, error) {
	if service == nil {
		return nil, errors.New("[Server New] idp service is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		idp:      service,
		rp:       rp,
		regURLs:  regURLs,
		sessions: newSessionStore(),
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered")
	}
}
