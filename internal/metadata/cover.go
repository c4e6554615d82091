package metadata

import (
	"sort"
	"strings"

	"github.com/dhowden/tag"
)

// Picture is an embedded image chosen as the track cover.
type Picture struct {
	MIMEType string
	Data     []byte
}

// pictures collects every embedded picture in tag order. ID3 APIC/PIC
// frames live in the raw map under APIC, APIC_0, APIC_1 and so on; the
// format's primary picture is appended when the raw map does not hold it.
func pictures(m tag.Metadata) []*tag.Picture {
	var out []*tag.Picture
	seen := make(map[*tag.Picture]bool)

	raw := m.Raw()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p, ok := raw[k].(*tag.Picture); ok && p != nil && len(p.Data) > 0 && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	if p := m.Picture(); p != nil && len(p.Data) > 0 && !seen[p] {
		out = append(out, p)
	}
	return out
}

func looksLikeCover(p *tag.Picture) bool {
	t := strings.ToLower(p.Type)
	d := strings.ToLower(p.Description)
	return strings.Contains(t, "front") ||
		strings.Contains(d, "front") || strings.Contains(d, "cover")
}

// PickCover prefers a picture whose type mentions "front" or whose
// description mentions "front" or "cover", else the first one. The ID3 type
// names "Cover (back)" too, so the type alone must say front.
func PickCover(pics []*tag.Picture) *tag.Picture {
	if len(pics) == 0 {
		return nil
	}
	for _, p := range pics {
		if looksLikeCover(p) {
			return p
		}
	}
	return pics[0]
}
