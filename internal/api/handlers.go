package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/library"
	"github.com/starford/tonearm/internal/trackservice"
)

// DefaultMaxUpload bounds one import request.
const DefaultMaxUpload = 200 << 20

// Handler holds the library route handlers.
type Handler struct {
	svc       *trackservice.Service
	maxUpload int64
}

// NewHandler creates a new Handler.
func NewHandler(svc *trackservice.Service, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{svc: svc, maxUpload: maxUpload}
}

// ListTracks handles GET /api/tracks. The view's previous URLs are revoked.
func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.svc.Tracks(r.Context(), viewID(r))
	if err != nil {
		slog.Error("list tracks failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TrackListResponse{Tracks: tracks})
}

// Catalog handles GET /api/catalog: bundled tracks followed by the library.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.svc.Catalog(r.Context(), viewID(r))
	if err != nil {
		slog.Error("catalog failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TrackListResponse{Tracks: tracks})
}

// Search handles GET /api/tracks/search?q=...&limit=N.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing query parameter 'q'"))
		return
	}
	limit := index.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be between 1 and 200"))
			return
		}
		limit = n
	}

	hits, err := h.svc.Search(q, limit)
	if err != nil {
		if errors.Is(err, trackservice.ErrNoIndex) {
			writeJSON(w, http.StatusNotImplemented, errorBody("search is disabled"))
			return
		}
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if hits == nil {
		hits = []index.Hit{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}

// Import handles POST /api/tracks/import (multipart/form-data, field "files").
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("files too large or invalid multipart"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'files' field in multipart form"))
		return
	}
	files := make([]library.File, len(headers))
	for i, fh := range headers {
		files[i] = library.MultipartFile(fh)
	}

	added, err := h.svc.Import(r.Context(), files, viewID(r))
	if err != nil {
		slog.Error("import failed", slog.Int("files", len(files)), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{Added: added})
}

// Rescan handles POST /api/tracks/rescan.
func (h *Handler) Rescan(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Rescan(r.Context())
	if err != nil {
		slog.Error("rescan failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RescanResponse(report))
}

// Wipe handles DELETE /api/tracks.
func (h *Handler) Wipe(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Wipe(r.Context()); err != nil {
		slog.Error("wipe failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("wipe incomplete"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
