// Package catalog enumerates snapshot files in the backup directory and owns
// the filename metadata encoding. Filenames are the only source of truth for
// database and timestamp; there is no separate index file.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileInfo describes one snapshot file on disk. Timestamp is the raw encoded
// segment from the filename; DecodeTimestamp may still fail on it, in which
// case the file is excluded from retention math but never deleted.
type FileInfo struct {
	Path      string
	Database  string
	Timestamp string
	Size      int64
}

// Scan lists the snapshot files in dir. A missing directory is an empty
// catalog, not an error. Companion .log files and foreign names are skipped.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup dir: %w", err)
	}

	var files []FileInfo
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		db, raw, ok := ParseFilename(ent.Name())
		if !ok {
			continue
		}
		st, err := ent.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:      filepath.Join(dir, ent.Name()),
			Database:  db,
			Timestamp: raw,
			Size:      st.Size(),
		})
	}
	return files, nil
}

// ScanDatabase returns dir's snapshots for a single database, newest first.
// Entries whose timestamp cannot be decoded sort last.
func ScanDatabase(dir, database string) ([]FileInfo, error) {
	all, err := Scan(dir)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, f := range all {
		if f.Database == database {
			files = append(files, f)
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		ti, erri := DecodeTimestamp(files[i].Timestamp)
		tj, errj := DecodeTimestamp(files[j].Timestamp)
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return ti.After(tj)
	})
	return files, nil
}
