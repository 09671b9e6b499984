package api

import (
	"io"
	"net/http"
	"strings"

	"tutorportal/internal/metrics"
	"tutorportal/internal/session"
)

// handlePreviewUpload caches the preview of a file the user is about to
// attach. The raw file is the request body.
// POST /api/previews
func (s *HTTPServer) handlePreviewUpload(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("preview_upload")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	rs := s.session(w, r)
	if rs == nil || !s.signedIn(w, r, rs) {
		return
	}

	cache := session.NewPreviewCache(rs.store, s.previewMax)
	limit := s.previewMax
	if limit <= 0 {
		limit = session.DefaultPreviewMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	key, stored, err := cache.Put(r.Context(), data, r.Header.Get("Content-Type"))
	if err != nil {
		s.writeFailure(w, "preview_upload", err)
		return
	}
	if !stored {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large for preview")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// handlePreview serves (GET) or drops (DELETE) a cached preview.
// GET|DELETE /api/previews/{key}
func (s *HTTPServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("preview")
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/api/previews/")
	if key == "" {
		writeError(w, http.StatusBadRequest, "preview key is required")
		return
	}
	rs := s.session(w, r)
	if rs == nil || !s.signedIn(w, r, rs) {
		return
	}

	cache := session.NewPreviewCache(rs.store, s.previewMax)
	if r.Method == http.MethodDelete {
		if err := cache.Evict(r.Context(), key); err != nil {
			s.writeFailure(w, "preview", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	data, mimeType, ok, err := cache.Get(r.Context(), key)
	if err != nil {
		s.writeFailure(w, "preview", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "preview not found")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
