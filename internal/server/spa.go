package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// apiPrefixes are route trees whose unknown paths answer with a JSON 404
// instead of the client shell.
var apiPrefixes = []string{"/auth/", "/dict/", "/friends/", "/game/", "/ws", "/healthz", "/openapi.json"}

// handleSPA serves the web client from dir. Unknown GET paths outside the
// API fall back to index.html so the client can route them.
func handleSPA(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	}
}

func isAPIPath(path string) bool {
	for _, p := range apiPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
