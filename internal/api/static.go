package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yegors/fdwatch/pkg/logger"
)

// StaticFileHandler serves the display page from disk without caching, so edits show up
// on the next reload
type StaticFileHandler struct {
	staticDir string
	logger    *logger.Logger
}

// NewStaticFileHandler creates a new static file handler
func NewStaticFileHandler(staticDir string, log *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		staticDir: staticDir,
		logger:    log.Named("static-handler"),
	}
}

// ServeHTTP serves a file below the static directory, falling back to index.html for
// directories
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fullPath, status := h.resolve(r.URL.Path)
	if status != http.StatusOK {
		if status == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	http.ServeFile(w, r, fullPath)
}

// resolve maps a request path to a file, refusing anything outside the static directory
func (h *StaticFileHandler) resolve(urlPath string) (string, int) {
	rel := strings.TrimPrefix(filepath.Clean("/"+urlPath), "/")
	if rel == "" {
		rel = "index.html"
	}

	absStaticDir, err := filepath.Abs(h.staticDir)
	if err != nil {
		h.logger.Error("Failed to get absolute path for static directory", logger.Error(err))
		return "", http.StatusInternalServerError
	}
	fullPath := filepath.Join(absStaticDir, rel)
	if fullPath != absStaticDir && !strings.HasPrefix(fullPath, absStaticDir+string(filepath.Separator)) {
		h.logger.Warn("Attempted directory traversal", logger.String("requested_path", urlPath))
		return "", http.StatusForbidden
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			h.logger.Debug("File not found", logger.String("path", fullPath))
			return "", http.StatusNotFound
		}
		h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", fullPath))
		return "", http.StatusInternalServerError
	}

	if info.IsDir() {
		index := filepath.Join(fullPath, "index.html")
		if _, err := os.Stat(index); err != nil {
			return "", http.StatusForbidden
		}
		fullPath = index
	}
	return fullPath, http.StatusOK
}
