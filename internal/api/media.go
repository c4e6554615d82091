package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/checksum"
	"github.com/starford/tonearm/internal/mediaurl"
)

// MediaHandler serves ephemeral blob handles and the bundled media dir.
type MediaHandler struct {
	resolver *mediaurl.Resolver
}

// NewMediaHandler creates a MediaHandler.
func NewMediaHandler(resolver *mediaurl.Resolver) *MediaHandler {
	return &MediaHandler{resolver: resolver}
}

// Mount registers the media routes on r. prefix is the registry's handle
// prefix, e.g. "/media/".
func (h *MediaHandler) Mount(r chi.Router, prefix string) {
	r.Get(prefix+"*", h.Serve)
	r.Get("/music/*", h.Serve)
	r.Get("/images/*", h.Serve)
}

// Serve streams the resolved source with range and conditional request
// support. Blob handles carry a content ETag.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	m, err := h.resolver.Open(r.Context(), r.URL.Path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Warn("media open failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		http.Error(w, "bad media path", http.StatusBadRequest)
		return
	}
	defer m.Body.Close()

	if m.MIMEType != "" {
		w.Header().Set("Content-Type", m.MIMEType)
	}
	if !isStatic(r.URL.Path) {
		sum, err := checksum.Seeker(m.Body)
		if err != nil {
			slog.Error("media digest failed", slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("ETag", checksum.ETag(sum))
		w.Header().Set("Cache-Control", "private")
	}
	http.ServeContent(w, r, m.Name, time.Time{}, m.Body)
}

func isStatic(p string) bool {
	return strings.HasPrefix(p, "/music/") || strings.HasPrefix(p, "/images/")
}
