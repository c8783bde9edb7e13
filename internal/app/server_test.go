package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace_backend/internal/config"
	"marketplace_backend/internal/draft"
	"marketplace_backend/internal/middleware"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*Server, *draft.Autosaver) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		GinMode:              "test",
		ServerHost:           "127.0.0.1",
		ServerPort:           "0",
		AuthDisabled:         true,
		StorageDriver:        config.StorageDriverLocal,
		StorageLocalPath:     t.TempDir(),
		StoragePublicBaseURL: "http://localhost:8080/media",
	}
	autosaver := draft.NewAutosaver(draft.NewMemoryStore(time.Minute), time.Hour, time.Hour, zap.NewNop())
	handlers := Handlers{Draft: draft.NewHandler(draft.NewService(autosaver, zap.NewNop()), zap.NewNop())}

	s, err := NewServer(cfg, zap.NewNop(), db, nil, handlers, nil, nil, nil, autosaver)
	require.NoError(t, err)
	return s, autosaver
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"UP"`)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestServer_RoutesDraftsThroughDevAuth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/drafts/current", nil)
	req.Header.Set(middleware.DevUserHeader, "uid-1")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/drafts/current", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ShutdownFlushesDrafts(t *testing.T) {
	s, autosaver := newTestServer(t)
	ctx := context.Background()

	sess := draft.NewSession(time.Now())
	sess.Draft.SellerFullName = "Jane"
	require.NoError(t, autosaver.Save(ctx, "uid-1", sess))

	require.NoError(t, s.Shutdown(ctx))
	assert.ErrorIs(t, autosaver.Save(ctx, "uid-1", sess), draft.ErrClosed)
}

func TestMediaRoute(t *testing.T) {
	assert.Equal(t, "/media", mediaRoute("http://localhost:8080/media"))
	assert.Equal(t, "/files/public", mediaRoute("https://cdn.example.com/files/public/"))
	assert.Equal(t, "/media", mediaRoute("https://cdn.example.com"))
	assert.Equal(t, "/uploads", mediaRoute("/uploads"))
}
