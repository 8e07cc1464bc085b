package apihttp

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// handleSPA serves the frontend bundle. Unknown /api/ paths stay JSON 404s;
// any other miss falls back to index.html so client-side routes survive a
// hard refresh.
func (s *Server) handleSPA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown api path")
		return
	}
	if s.staticDir == "" {
		http.NotFound(w, r)
		return
	}

	// Clean relative to root so ".." can never escape the static dir.
	clean := path.Clean("/" + r.URL.Path)
	candidate := filepath.Join(s.staticDir, filepath.FromSlash(clean))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		http.ServeFile(w, r, candidate)
		return
	}

	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}
