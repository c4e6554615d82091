// Package models defines the domain types for Tonearm.
package models

// Placeholder shown for an unknown artist or album.
const Placeholder = "—"

// ZeroDuration is the formatted duration of a track whose length is unknown.
const ZeroDuration = "0:00"

// TrackRecord is the persisted metadata of one imported track.
// It never contains a URL; playback URLs are minted at load time.
type TrackRecord struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	Duration    string `json:"duration"`
	HasCover    bool   `json:"hasCover"`
	AddedAt     string `json:"addedAt"`
	MimeType    string `json:"mimeType,omitempty"`
}

// PlayableTrack is a TrackRecord projected for playback.
// Src is empty when the audio blob is missing. Unsupported marks a container
// no decoder can play (AAC/M4A); such tracks are listed but skipped by the
// player.
type PlayableTrack struct {
	ID          string `json:"id,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	Duration    string `json:"duration,omitempty"`
	HasCover    bool   `json:"hasCover"`
	AddedAt     string `json:"addedAt,omitempty"`
	Src         string `json:"src"`
	Image       string `json:"image"`
	Unsupported bool   `json:"unsupported,omitempty"`
}

// User is a registered account. The password never leaves the store.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
