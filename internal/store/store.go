// Package store defines the document-store collaborators the scheduler
// drives, and implements them for CouchDB-compatible HTTP APIs.
package store

import "context"

// Discovery lists the logical databases available for backup.
type Discovery interface {
	ListDatabases(ctx context.Context) ([]string, error)
}

// Snapshotter writes a full point-in-time export of one database into the
// backup directory, named <database>-<encoded timestamp>.json.
type Snapshotter interface {
	Snapshot(ctx context.Context, database string) error
}

// Verifier reports whether a snapshot file is structurally valid.
type Verifier interface {
	Verify(ctx context.Context, path string) (bool, error)
}
