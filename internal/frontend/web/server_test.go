package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/session"
)

func newTestServer(t *testing.T, origins ...string) (*Server, *session.Registry) {
	t.Helper()
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>arena</html>"), 0644)
	require.NoError(t, err)

	cfg := config.HTTPConfig{
		Host:           "127.0.0.1",
		Port:           3000,
		StaticDir:      dir,
		AllowedOrigins: origins,
	}
	reg := session.NewRegistry()
	hub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	return NewServer(cfg, hub, reg, zaptest.NewLogger(t)), reg
}

func TestHealthEndpoint(t *testing.T) {
	srv, reg := newTestServer(t)
	_, err := reg.Register("c1", session.Profile{Name: "Zeta"})
	require.NoError(t, err)
	_, err = reg.Register("c2", session.Profile{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var health struct {
		Status    string `json:"status"`
		Players   int    `json:"players"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Players)

	_, err = time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err)
}

func TestStaticIndex(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arena")
}

func TestCORSHeadersForAllowedOrigin(t *testing.T) {
	srv, _ := newTestServer(t, "http://localhost:3001")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSHeadersAbsentForDisallowedOrigin(t *testing.T) {
	srv, _ := newTestServer(t, "http://localhost:3001")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
}
