package metadata

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/starford/tonearm/internal/models"
)

// FormatSeconds renders seconds as m:ss. Non-finite and non-positive
// values render as "0:00".
func FormatSeconds(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec <= 0 {
		return models.ZeroDuration
	}
	m := int(math.Floor(sec / 60))
	s := int(math.Floor(math.Mod(sec, 60)))
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	return FormatSeconds(d.Seconds())
}

var extRe = regexp.MustCompile(`\.[^.]+$`)

// TitleFromName strips the final extension from a file name.
func TitleFromName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = name
	}
	return extRe.ReplaceAllString(base, "")
}
