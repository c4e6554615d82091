package index

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/tonearm/internal/checksum"
	"github.com/starford/tonearm/internal/models"
)

// Sync brings the index in line with the library records:
//   - new or changed tracks are upserted
//   - tracks no longer in the library are deleted from the index
//
// records must be in library order.
func Sync(db TrackIndex, records []models.TrackRecord, logger *slog.Logger) error {
	signatures, err := db.AllSignatures()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(records))
	for i, rec := range records {
		live[rec.ID] = struct{}{}

		sig := signature(rec, i)
		if signatures[rec.ID] == sig {
			continue
		}
		row := TrackRow{
			ID:        rec.ID,
			Title:     rec.Title,
			Artist:    searchable(rec.Artist),
			Album:     searchable(rec.Album),
			Signature: sig,
			Position:  i,
		}
		if err := db.Upsert(row); err != nil {
			logger.Warn("index: upsert failed", slog.String("id", rec.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("index: indexed", slog.String("id", rec.ID))
		}
	}

	// Remove stale entries.
	for id := range signatures {
		if _, ok := live[id]; !ok {
			if err := db.Delete(id); err != nil {
				logger.Warn("index: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("index: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}

// signature changes whenever a searchable field or the order does.
func signature(rec models.TrackRecord, pos int) string {
	return checksum.Sum([]byte(strings.Join([]string{rec.Title, rec.Artist, rec.Album, strconv.Itoa(pos)}, "\x00")))
}

// searchable blanks the unknown-value placeholder so it never matches.
func searchable(s string) string {
	if s == models.Placeholder {
		return ""
	}
	return s
}
