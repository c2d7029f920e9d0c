package server

import "github.com/openape/openape-go/keys"

// Route path constants. All routes are defined here to keep the surface in
// one place.
const (
	RouteAuthorize     = "/authorize"
	RouteToken         = "/token"
	RouteLogin         = "/login"
	RouteConsent       = "/consent"
	RouteWellKnownJWKS = keys.WellKnownJWKS

	// WebAuthn ceremony routes
	RouteWebAuthnRegisterOptions     = "/webauthn/register/options"
	RouteWebAuthnRegisterVerify      = "/webauthn/register/verify"
	RouteWebAuthnAuthenticateOptions = "/webauthn/authenticate/options"
	RouteWebAuthnAuthenticateVerify  = "/webauthn/authenticate/verify"

	// Admin routes
	RouteAdminRegistrationURLs = "/admin/registration-urls"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKS(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteLogin, s.LoginPageHandler())
	s.RegisterRouteFunc("GET "+RouteConsent, s.ConsentGetHandler())
	s.RegisterRouteFunc("POST "+RouteConsent, s.ConsentPostHandler())

	if s.rp != nil {
		s.RegisterRouteHandler("POST "+RouteWebAuthnRegisterOptions, ChainMiddleware(s.RegisterOptions(), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+RouteWebAuthnRegisterVerify, ChainMiddleware(s.RegisterVerify(), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+RouteWebAuthnAuthenticateOptions, ChainMiddleware(s.AuthenticateOptions(), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+RouteWebAuthnAuthenticateVerify, ChainMiddleware(s.AuthenticateVerify(), s.APIMiddleware()...))
	}

	if s.regURLs != nil {
		// TODO: gate these behind admin authentication before any non-local deployment.
		s.RegisterRouteFunc("POST "+RouteAdminRegistrationURLs, s.CreateRegistrationURL())
		s.RegisterRouteFunc("GET "+RouteAdminRegistrationURLs, s.ListRegistrationURLs())
	}
}
