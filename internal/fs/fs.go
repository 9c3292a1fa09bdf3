// Package fs defines the filesystem abstraction used by couchvault.
// Retention deletions go through it so tests can inject per-file failures.
package fs

type FS interface {
	Remove(path string) error
	MkdirAll(path string) error
}
