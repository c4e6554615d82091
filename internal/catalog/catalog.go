// Package catalog holds the bundled track list and merges it with the
// imported library.
package catalog

import (
	_ "embed"
	"fmt"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/starford/tonearm/internal/codec"
	"github.com/starford/tonearm/internal/models"
)

// MusicPrefix is where bundled audio is served.
const MusicPrefix = "/music/"

//go:embed catalog.yaml
var bundled []byte

// Entry is one bundled track.
type Entry struct {
	Title string `yaml:"title"`
	Src   string `yaml:"src"`
	Image string `yaml:"image"`
}

// Parse decodes a catalog document.
func Parse(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return entries, nil
}

// Static returns the bundled catalog as playable tracks.
func Static() ([]models.PlayableTrack, error) {
	entries, err := Parse(bundled)
	if err != nil {
		return nil, err
	}
	return Tracks(entries), nil
}

// Tracks projects entries, resolving src under MusicPrefix.
func Tracks(entries []Entry) []models.PlayableTrack {
	out := make([]models.PlayableTrack, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.PlayableTrack{
			Title:       e.Title,
			Src:         MusicPrefix + path.Clean("/" + e.Src)[1:],
			Image:       e.Image,
			Unsupported: !codec.Supported("", e.Src),
		})
	}
	return out
}
