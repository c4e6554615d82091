//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tracks_fts USING fts5(
			id UNINDEXED,
			title,
			artist,
			album,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, artist, album string) error {
	_, _ = tx.Exec(`DELETE FROM tracks_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO tracks_fts (id, title, artist, album) VALUES (?, ?, ?, ?)`,
		id, title, artist, album)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM tracks_fts WHERE id = ?`, id)
}

// matchQuery turns free text into quoted prefix terms so FTS5 syntax in user
// input is never interpreted. Terms without a letter or digit are dropped.
func matchQuery(q string) string {
	var terms []string
	for _, f := range strings.Fields(q) {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0 {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " ")
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	match := matchQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT f.id, t.title, t.artist, t.album,
		       snippet(tracks_fts, -1, '<b>', '</b>', '...', 16)
		FROM tracks_fts f
		JOIN track_index t ON t.id = f.id
		WHERE tracks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Title, &h.Artist, &h.Album, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
