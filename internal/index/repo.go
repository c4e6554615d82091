package index

import (
	"fmt"
	"time"
)

// TrackRow represents a row in the track_index table.
type TrackRow struct {
	ID        string
	Title     string
	Artist    string
	Album     string
	Signature string
	Position  int
	UpdatedAt time.Time
}

// Hit is one search match.
type Hit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Album   string `json:"album"`
	Snippet string `json:"snippet"`
}

// DefaultLimit caps a search when the caller passes no limit.
const DefaultLimit = 20

// Upsert inserts or replaces a track and its FTS entry within a transaction.
func (db *DB) Upsert(r TrackRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO track_index (id, title, artist, album, signature, position, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			artist     = excluded.artist,
			album      = excluded.album,
			signature  = excluded.signature,
			position   = excluded.position,
			updated_at = excluded.updated_at
	`, r.ID, r.Title, r.Artist, r.Album, r.Signature, r.Position, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert track: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.ID, r.Title, r.Artist, r.Album); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a track and its FTS entry.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM track_index WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete track: %w", err)
	}
	return tx.Commit()
}

// AllSignatures maps every indexed id to its stored signature.
func (db *DB) AllSignatures() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, signature FROM track_index`)
	if err != nil {
		return nil, fmt.Errorf("index: all signatures: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, sig string
		if err := rows.Scan(&id, &sig); err != nil {
			return nil, err
		}
		out[id] = sig
	}
	return out, rows.Err()
}
