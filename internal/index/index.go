package index

// EntryIndex defines the interface for search index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type EntryIndex interface {
	UpsertEntry(r Row, body string) error
	DeleteEntry(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
