// Command sp runs a demo Service Provider: it discovers a user's IdP from
// their email domain, starts the login flow, and validates the assertion on
// the callback.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/openape/openape-go/discovery"
	"github.com/openape/openape-go/internal/config"
	"github.com/openape/openape-go/sp"
	"github.com/openape/openape-go/sp/flowrepo"
)

type spApp struct {
	spID        string
	redirectURI string
	resolver    discovery.Resolver
	flows       flowrepo.Repo
}

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("error running sp")
		os.Exit(1)
	}
	log.Info().Msg("sp stopped")
}

func run() error {
	port := config.GetEnv("SP_PORT", ":9090")
	if port[0] != ':' {
		port = ":" + port
	}
	spID := config.GetEnv("SP_ID", "https://sp.example.com")
	redirectURI := config.GetEnv("SP_REDIRECT_URI", "http://localhost:9090/callback")
	recordsFile := config.GetEnv("DISCOVERY_RECORDS_FILE", "./data/records.yaml")

	resolver, err := discovery.NewFileResolver(recordsFile)
	if err != nil {
		return fmt.Errorf("load discovery records: %w", err)
	}

	app := &spApp{
		spID:        spID,
		redirectURI: redirectURI,
		resolver:    resolver,
		flows:       flowrepo.NewInMemoryRepo(),
	}

	displayAppname("SP Demo")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", app.loginHandler)
	mux.HandleFunc("GET /callback", app.callbackHandler)
	mux.HandleFunc("GET "+sp.WellKnownManifest, sp.ManifestHandler(sp.Manifest{
		SPID:         spID,
		Name:         "SP Demo",
		RedirectURIs: []string{redirectURI},
	}))

	httpServer := &http.Server{Addr: port, Handler: mux}
	go func() {
		log.Info().Str("addr", port).Msg("sp listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("sp.ListenAndServe")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// loginHandler discovers the IdP for the email's domain, builds the authorize
// URL, stashes the flow state under the state parameter, and redirects.
func (app *spApp) loginHandler(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "Missing required parameter: email", http.StatusBadRequest)
		return
	}

	cfg, err := discovery.Discover(r.Context(), email, app.resolver)
	if err != nil {
		http.Error(w, "Discovery failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if cfg == nil {
		http.Error(w, "No identity provider found for this email domain", http.StatusNotFound)
		return
	}

	authURL, err := sp.BuildAuthorizationURL(cfg, sp.AuthURLOptions{
		SPID:        app.spID,
		RedirectURI: app.redirectURI,
		Email:       email,
	})
	if err != nil {
		http.Error(w, "Failed to build authorization URL: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := app.flows.Upsert(authURL.FlowState.State, authURL.FlowState); err != nil {
		http.Error(w, "Failed to store flow state: "+err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL.URL, http.StatusFound)
}

// callbackHandler completes the flow: state lookup, backchannel code
// exchange, and assertion validation against the IdP's published JWKS.
func (app *spApp) callbackHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "Missing required parameter: code and state", http.StatusBadRequest)
		return
	}

	flowState, err := app.flows.Get(state)
	if err != nil || flowState == nil {
		http.Error(w, "Unknown or expired login attempt", http.StatusBadRequest)
		return
	}
	// Single-use: a replayed callback must not find the flow state again.
	_ = app.flows.Delete(state)

	result, err := sp.HandleCallback(r.Context(), sp.CallbackOptions{
		Code:        code,
		State:       state,
		FlowState:   flowState,
		SPID:        app.spID,
		RedirectURI: app.redirectURI,
	})
	if err != nil {
		log.Debug().Err(err).Msg("callback rejected")
		status := http.StatusBadRequest
		if errors.Is(err, sp.ErrStateMismatch) {
			status = http.StatusForbidden
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"logged_in": true,
		"subject":   result.Claims.Subject,
		"issuer":    result.Claims.Issuer,
		"actor":     result.Claims.Actor,
	})
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
