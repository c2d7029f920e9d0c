package sp

import (
	"encoding/json"
	"net/http"
)

// WellKnownManifest is the path an SP publishes its manifest under.
const WellKnownManifest = "/.well-known/sp-manifest.json"

// Manifest is the SP's static, public configuration.
type Manifest struct {
	SPID         string   `json:"sp_id"`
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris"`
	LogoURI      string   `json:"logo_uri,omitempty"`
	HomepageURI  string   `json:"homepage_uri,omitempty"`
	Contacts     []string `json:"contacts,omitempty"`
}

// ManifestHandler serves the manifest as JSON. The manifest is static, so it
// carries an hour-scale cache lifetime.
func ManifestHandler(manifest Manifest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_ = json.NewEncoder(w).Encode(manifest)
	}
}
