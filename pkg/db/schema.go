package db

// Schema defines the SQLite schema for named blobs.
// Each row holds one serialized document, rewritten as a whole on every save.
const Schema = `
CREATE TABLE IF NOT EXISTS blobs (
    name TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_blobs_updated_at ON blobs(updated_at);
`

// Blob represents a stored document
type Blob struct {
	Name      string
	Data      []byte
	CreatedAt string
	UpdatedAt string
}
