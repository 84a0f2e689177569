package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "nebula.db")
	return cfg
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewServerServesAPI(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	w := serve(srv, "GET", "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	w = serve(srv, "GET", "/classify?url=https://www.youtube.com/watch")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mode":"PROXIED"`)

	w = serve(srv, "GET", "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nebula_classifications_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServerPersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)

	first, err := NewServer(cfg)
	require.NoError(t, err)
	tab := first.tabs.Active()
	_, err = first.tabs.Navigate(t.Context(), tab.ID, "example.com")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	restored := second.tabs.Active()
	assert.Equal(t, tab.ID, restored.ID)
	assert.Equal(t, "https://example.com", restored.URL)
	require.Len(t, second.session.History(), 1)
	assert.Equal(t, "https://example.com", second.session.History()[0].URL)
}

func TestNewServerRejectsBadPolicy(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backends:\n  - name: a\n    endpoint: https://relay.test/\n"), 0o600))
	cfg.Policy.File = path

	_, err := NewServer(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidPolicy)
}
