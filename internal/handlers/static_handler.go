package handlers

import (
	"chatopia-backend/internal/models"
	"chatopia-backend/pkg/httputil"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const welcomeMessage = "Welcome to Chatopia API"

// NewRootHandler serves the built single-page frontend from dir. Paths that
// do not name a file fall back to index.html so client-side routes work.
// When dir has no index.html it answers "/" with a welcome message instead.
func NewRootHandler(dir string) http.Handler {
	if !HasFrontend(dir) {
		return http.HandlerFunc(handleWelcome)
	}

	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" && !fileExists(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}

// HasFrontend reports whether NewRootHandler would serve files from dir.
func HasFrontend(dir string) bool {
	return dir != "" && fileExists(filepath.Join(dir, "index.html"))
}

func handleWelcome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.RespondError(w, r, http.StatusNotFound, "Not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.WelcomeResponse{Message: welcomeMessage})
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
