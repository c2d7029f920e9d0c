package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/openape/openape-go/idp"
	"github.com/openape/openape-go/idp/codes"
	"github.com/openape/openape-go/idp/consent"
	"github.com/openape/openape-go/internal/config"
	"github.com/openape/openape-go/keys"
	"github.com/openape/openape-go/server"
	"github.com/openape/openape-go/webauthn"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	handler, err := buildServer(c)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildServer wires the signing keys, stores, protocol service, and WebAuthn
// relying party into the HTTP server. Signing keys are generated explicitly
// at startup so the JWKS endpoint is complete before the first request.
func buildServer(c config.Config) (*server.Server, error) {
	keyPair, err := keys.GenerateRSAKeyPair("key-1", 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	keyStore, err := keys.NewInMemoryStore(keyPair)
	if err != nil {
		return nil, fmt.Errorf("key store: %w", err)
	}
	log.Info().Str("kid", keyPair.KeyID).Msg("signing key generated")

	service, err := idp.NewService(
		idp.Repos{
			Codes:   codes.NewInMemoryRepo(),
			Consent: consent.NewInMemoryRepo(),
		},
		keyStore,
		c.GetIssuer(),
		idp.WithPolicyMode(c.GetPolicyMode()),
		idp.WithCodeTTL(c.GetAuthCodeTimeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("idp service: %w", err)
	}

	rp, err := webauthn.NewRP(webauthn.RPConfig{
		RPDisplayName: c.GetAppName(),
		RPID:          c.GetRPID(),
		Origins:       []string{c.GetRPOrigin()},
	}, webauthn.NewInMemoryCredentialRepo(), webauthn.NewInMemoryChallengeRepo())
	if err != nil {
		return nil, fmt.Errorf("webauthn relying party: %w", err)
	}

	return server.New(c, service, rp, webauthn.NewInMemoryRegistrationURLRepo())
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
