// Package testutil provides shared test helpers for stores, databases and
// synthetic audio.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/tonearm/internal/account"
	"github.com/starford/tonearm/internal/blobstore"
)

// TestStore creates a temporary SQLite blob store that is automatically
// cleaned up.
func TestStore(t *testing.T) *blobstore.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tonearm-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := blobstore.OpenSQLite(dbFile.Name(), blobstore.DefaultNamespace)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestAccounts creates a temporary accounts database.
func TestAccounts(t *testing.T) *account.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tonearm-accounts-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := account.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
