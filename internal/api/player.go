package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/player"
)

// PlayerHandler exposes the transport.
type PlayerHandler struct {
	ctrl *player.Controller
	deck *player.Deck
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(ctrl *player.Controller, deck *player.Deck) *PlayerHandler {
	return &PlayerHandler{ctrl: ctrl, deck: deck}
}

func (h *PlayerHandler) respond(w http.ResponseWriter, err error) {
	queue, idx := h.deck.Queue()
	resp := PlayerResponse{Status: h.ctrl.Status(), Index: idx, Queue: len(queue)}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/player.
func (h *PlayerHandler) Status(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, nil)
}

// Toggle handles POST /api/player/toggle. The request itself is the user
// gesture that may build the audio graph.
func (h *PlayerHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.TogglePlay(player.UserGesture("http:" + r.RemoteAddr)); err != nil {
		if errors.Is(err, player.ErrClosed) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("player closed"))
			return
		}
		slog.Warn("toggle failed", slog.String("error", err.Error()))
		h.respond(w, err)
		return
	}
	h.respond(w, nil)
}

// Next handles POST /api/player/next.
func (h *PlayerHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.deck.Next)
}

// Prev handles POST /api/player/prev.
func (h *PlayerHandler) Prev(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.deck.Prev)
}

func (h *PlayerHandler) step(w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	err := fn(r.Context())
	if errors.Is(err, apperr.ErrNoSource) {
		writeJSON(w, http.StatusConflict, errorBody("queue is empty"))
		return
	}
	if err != nil {
		// Load failures are isolated to the track; the queue position moved.
		slog.Warn("track change failed", slog.String("error", err.Error()))
	}
	h.respond(w, err)
}

// Select handles POST /api/player/select.
func (h *PlayerHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !readJSON(w, r, smallBody, &req) {
		return
	}
	err := h.deck.Select(r.Context(), req.Index)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("no track at index"))
		return
	}
	if err != nil {
		slog.Warn("select failed", slog.Int("index", req.Index), slog.String("error", err.Error()))
	}
	h.respond(w, err)
}

// Seek handles POST /api/player/seek.
func (h *PlayerHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if !readJSON(w, r, smallBody, &req) {
		return
	}
	writeJSON(w, http.StatusOK, SeekResponse{Position: h.ctrl.Seek(req.Position)})
}

// Volume handles POST /api/player/volume.
func (h *PlayerHandler) Volume(w http.ResponseWriter, r *http.Request) {
	var req VolumeRequest
	if !readJSON(w, r, smallBody, &req) {
		return
	}
	writeJSON(w, http.StatusOK, VolumeResponse{Volume: h.ctrl.SetVolume(req.Volume)})
}
