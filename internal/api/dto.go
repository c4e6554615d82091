package api

import (
	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/library"
	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/player"
)

// TrackListResponse wraps a track list.
type TrackListResponse struct {
	Tracks []models.PlayableTrack `json:"tracks"`
}

// SearchResponse lists search matches.
type SearchResponse struct {
	Results []index.Hit `json:"results"`
}

// ImportResponse lists the tracks an import added.
type ImportResponse struct {
	Added []models.PlayableTrack `json:"added"`
}

// RescanResponse is the rescan report.
type RescanResponse = library.RescanReport

// PlayerResponse is the transport state plus the queue position.
type PlayerResponse struct {
	player.Status
	Index int    `json:"index"`
	Queue int    `json:"queueLength"`
	Error string `json:"error,omitempty"`
}

// SelectRequest picks a queue entry.
type SelectRequest struct {
	Index int `json:"index"`
}

// SeekRequest moves the playhead, in seconds.
type SeekRequest struct {
	Position float64 `json:"position"`
}

// SeekResponse reports the applied position.
type SeekResponse struct {
	Position float64 `json:"position"`
}

// VolumeRequest sets the linear volume.
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

// VolumeResponse reports the applied volume.
type VolumeResponse struct {
	Volume float64 `json:"volume"`
}

// ResizeRequest describes the visualizer container.
type ResizeRequest struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest checks credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
