package index

// TrackIndex defines the interface for track indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type TrackIndex interface {
	Upsert(row TrackRow) error
	Delete(id string) error
	AllSignatures() (map[string]string, error)
	Search(query string, limit int) ([]Hit, error)
	Close() error
}

// Verify *DB satisfies TrackIndex at compile time.
var _ TrackIndex = (*DB)(nil)
