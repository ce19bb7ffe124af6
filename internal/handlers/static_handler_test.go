package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHandler_WelcomeWithoutFrontend(t *testing.T) {
	h := NewRootHandler(t.TempDir())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to Chatopia API"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRootHandler_ServesFrontend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	assert.True(t, HasFrontend(dir))
	h := NewRootHandler(dir)

	tests := []struct {
		path string
		body string
	}{
		{path: "/", body: "<html>app</html>"},
		{path: "/assets/app.js", body: "console.log(1)"},
		{path: "/conversations/abc", body: "<html>app</html>"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, tt.body, rec.Body.String(), tt.path)
	}
}

func TestHasFrontend_Empty(t *testing.T) {
	assert.False(t, HasFrontend(""))
	assert.False(t, HasFrontend(filepath.Join(t.TempDir(), "missing")))
}
