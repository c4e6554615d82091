package catalog

import (
	"strings"

	"github.com/starford/tonearm/internal/models"
)

// KeyKind names the field an identity key was taken from.
type KeyKind string

const (
	KindID          KeyKind = "id"
	KindFingerprint KeyKind = "fingerprint"
	KindSrc         KeyKind = "src"
	KindTitle       KeyKind = "title"
)

// Key identifies a track across sources.
type Key struct {
	Kind  KeyKind
	Value string
}

func (k Key) String() string { return string(k.Kind) + ":" + k.Value }

// Identity picks the first non-empty of id, fingerprint, src and title,
// trimmed and lower-cased. Keys of different kinds never compare equal.
func Identity(t models.PlayableTrack) Key {
	for _, c := range []struct {
		kind KeyKind
		v    string
	}{
		{KindID, t.ID},
		{KindFingerprint, t.Fingerprint},
		{KindSrc, t.Src},
		{KindTitle, t.Title},
	} {
		if v := strings.ToLower(strings.TrimSpace(c.v)); v != "" {
			return Key{Kind: c.kind, Value: v}
		}
	}
	return Key{}
}

// Merge concatenates lists and keeps the first track seen per identity.
// Tracks with no identity at all are kept.
func Merge(lists ...[]models.PlayableTrack) []models.PlayableTrack {
	seen := make(map[Key]bool)
	var out []models.PlayableTrack
	for _, list := range lists {
		for _, t := range list {
			k := Identity(t)
			if k != (Key{}) {
				if seen[k] {
					continue
				}
				seen[k] = true
			}
			out = append(out, t)
		}
	}
	if out == nil {
		out = []models.PlayableTrack{}
	}
	return out
}
