package sp_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openape/openape-go/sp"
	"github.com/stretchr/testify/require"
)

func TestManifestHandler(t *testing.T) {
	handler := sp.ManifestHandler(sp.Manifest{
		SPID:         "https://sp.example.com",
		Name:         "Example SP",
		RedirectURIs: []string{"https://sp.example.com/callback"},
	})

	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(http.MethodGet, sp.WellKnownManifest, nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Header().Get("Cache-Control"), "max-age")

	var manifest sp.Manifest
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &manifest))
	require.Equal(t, "https://sp.example.com", manifest.SPID)
	require.Equal(t, []string{"https://sp.example.com/callback"}, manifest.RedirectURIs)
}
