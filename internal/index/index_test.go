package index

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/tonearm/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "tonearm-index-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quiet() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func rec(id, title, artist, album string) models.TrackRecord {
	return models.TrackRecord{ID: id, Title: title, Artist: artist, Album: album}
}

func ids(hits []Hit) []string {
	var out []string
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM track_index`).Scan(&count); err != nil {
		t.Fatalf("track_index table missing: %v", err)
	}
}

func TestUpsertAndSignatures(t *testing.T) {
	db := testDB(t)
	if err := db.Upsert(TrackRow{ID: "t1", Title: "Hello", Signature: "abc123"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := db.Upsert(TrackRow{ID: "t1", Title: "Hello again", Signature: "def456"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	sigs, err := db.AllSignatures()
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 1 || sigs["t1"] != "def456" {
		t.Errorf("signatures = %v", sigs)
	}
}

func TestSearch_TitleArtistAlbum(t *testing.T) {
	db := testDB(t)
	err := Sync(db, []models.TrackRecord{
		rec("t1", "Blue Monday", "New Order", "Power, Corruption & Lies"),
		rec("t2", "Monday Morning", "Fleetwood Mac", "Fleetwood Mac"),
		rec("t3", "Age of Consent", "New Order", "Power, Corruption & Lies"),
	}, quiet())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	hits, err := db.Search("monday", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("monday hits = %v", ids(hits))
	}

	hits, _ = db.Search("new order age", 10)
	if len(hits) != 1 || hits[0].ID != "t3" {
		t.Errorf("multi-term hits = %v", ids(hits))
	}

	hits, _ = db.Search("fleetwood", 10)
	if len(hits) != 1 || hits[0].Artist != "Fleetwood Mac" {
		t.Errorf("artist hits = %+v", hits)
	}
}

func TestSearch_Limit(t *testing.T) {
	db := testDB(t)
	var records []models.TrackRecord
	for _, id := range []string{"a", "b", "c", "d"} {
		records = append(records, rec(id, "Song "+id, "Band", "Album"))
	}
	_ = Sync(db, records, quiet())

	hits, err := db.Search("band", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("limit ignored: %d hits", len(hits))
	}
}

func TestSearch_EmptyAndSpecialQueries(t *testing.T) {
	db := testDB(t)
	_ = Sync(db, []models.TrackRecord{rec("t1", `100% "Pure"`, "x_y", "")}, quiet())

	hits, err := db.Search("   ", 10)
	if err != nil || len(hits) != 0 {
		t.Errorf("blank query = %v, %v", hits, err)
	}
	if _, err := db.Search(`"unbalanced AND (`, 10); err != nil {
		t.Errorf("special characters should not error: %v", err)
	}
	hits, _ = db.Search("pure", 10)
	if len(hits) != 1 {
		t.Errorf("quoted title hits = %v", ids(hits))
	}
}

func TestSearch_PlaceholderNotIndexed(t *testing.T) {
	db := testDB(t)
	_ = Sync(db, []models.TrackRecord{rec("t1", "Song", models.Placeholder, models.Placeholder)}, quiet())
	hits, _ := db.Search(models.Placeholder, 10)
	if len(hits) != 0 {
		t.Errorf("placeholder matched: %v", ids(hits))
	}
}

func TestSync_RemovesStaleAndUpdatesChanged(t *testing.T) {
	db := testDB(t)
	_ = Sync(db, []models.TrackRecord{rec("t1", "Old Title", "A", "B"), rec("t2", "Other", "A", "B")}, quiet())
	if err := Sync(db, []models.TrackRecord{rec("t1", "New Title", "A", "B")}, quiet()); err != nil {
		t.Fatal(err)
	}

	sigs, _ := db.AllSignatures()
	if _, ok := sigs["t2"]; ok || len(sigs) != 1 {
		t.Errorf("stale entry kept: %v", sigs)
	}
	if hits, _ := db.Search("old", 10); len(hits) != 0 {
		t.Errorf("old title still matches: %v", ids(hits))
	}
	if hits, _ := db.Search("new", 10); len(hits) != 1 {
		t.Errorf("new title missing: %v", ids(hits))
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	db := testDB(t)
	records := []models.TrackRecord{rec("t1", "Same", "A", "B")}
	_ = Sync(db, records, quiet())
	before, _ := db.AllSignatures()

	// Bump updated_at so a rewrite would be visible.
	var first string
	db.conn.QueryRow(`SELECT updated_at FROM track_index WHERE id = 't1'`).Scan(&first)
	_ = Sync(db, records, quiet())
	var second string
	db.conn.QueryRow(`SELECT updated_at FROM track_index WHERE id = 't1'`).Scan(&second)

	after, _ := db.AllSignatures()
	if before["t1"] != after["t1"] || first != second {
		t.Error("unchanged record was rewritten")
	}
}
