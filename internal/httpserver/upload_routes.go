package httpserver

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"messaging_go/internal/config"
)

// UploadRoutes returns a sub-router mounted at /api/uploads. Blobs are
// written by the object store (image messages); this surface only
// serves them back.
func UploadRoutes(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" {
			http.Error(w, "missing filename", http.StatusBadRequest)
			return
		}
		// Prevent path traversal by rejecting anything with separators.
		if filepath.Base(filename) != filename {
			http.Error(w, "invalid filename", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.UploadDir, filename))
	})

	return r
}
