package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/tonearm/internal/visualizer"
)

// VisualizerHandler serves rendered frames.
type VisualizerHandler struct {
	renderer *visualizer.Renderer
	hub      *FrameHub
}

// NewVisualizerHandler creates a VisualizerHandler.
func NewVisualizerHandler(renderer *visualizer.Renderer, hub *FrameHub) *VisualizerHandler {
	return &VisualizerHandler{renderer: renderer, hub: hub}
}

// Frame handles GET /api/visualizer/frame.png.
func (h *VisualizerHandler) Frame(w http.ResponseWriter, _ *http.Request) {
	data, err := h.renderer.PNG()
	if err != nil {
		slog.Error("frame encode failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// Resize handles POST /api/visualizer/resize.
func (h *VisualizerHandler) Resize(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if !readJSON(w, r, smallBody, &req) {
		return
	}
	if err := h.renderer.Resize(req.Width, req.Height, req.PixelRatio); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	width, height, ratio := h.renderer.Size()
	writeJSON(w, http.StatusOK, map[string]float64{"width": width, "height": height, "pixelRatio": ratio})
}

const (
	frameWriteWait = 2 * time.Second
	frameBuffer    = 4
)

var frameUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FrameHub fans visualizer frames out to websocket clients as binary
// messages holding the raw magnitude bytes. A slow client misses frames
// rather than stalling the draw loop.
type FrameHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
}

// NewFrameHub creates an empty hub.
func NewFrameHub() *FrameHub {
	return &FrameHub{clients: make(map[chan []byte]struct{})}
}

// Broadcast queues f for every client. It never blocks.
func (h *FrameHub) Broadcast(f visualizer.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- f.Bins:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *FrameHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *FrameHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}
}

func (h *FrameHub) add() (chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan []byte, frameBuffer)
	h.clients[ch] = struct{}{}
	return ch, true
}

func (h *FrameHub) remove(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// ServeHTTP handles GET /api/visualizer/ws.
func (h *FrameHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := frameUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, ok := h.add()
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		return
	}
	defer h.remove(ch)

	// The reader only exists to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case bins, ok := <-ch:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(frameWriteWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, bins); err != nil {
				return
			}
		}
	}
}
