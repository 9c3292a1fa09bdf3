package catalog

import (
	"regexp"
	"strings"
	"time"
)

// wireFormat is the RFC3339 millisecond form carried inside snapshot
// filenames, before ':' and '.' are made filesystem-safe.
const wireFormat = "2006-01-02T15:04:05.000Z"

// encodedTimestamp matches a fully encoded segment: 2025-12-24T23-04-15-080Z
var encodedTimestamp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T(\d{2})-(\d{2})-(\d{2})-(\d{3})Z$`)

// snapshotName splits "<database>-<timestamp>.json". The database part is
// greedy so names containing '-' survive; the timestamp only needs to look
// date-like here, decoding happens separately.
var snapshotName = regexp.MustCompile(`^(.+)-(\d{4}-\d{2}-\d{2}T.+)\.json$`)

// EncodeTimestamp renders t for use in a snapshot filename: RFC3339 with
// millisecond precision in UTC, with every ':' and '.' replaced by '-'.
func EncodeTimestamp(t time.Time) string {
	s := t.UTC().Format(wireFormat)
	s = strings.ReplaceAll(s, ":", "-")
	return strings.ReplaceAll(s, ".", "-")
}

// DecodeTimestamp inverts EncodeTimestamp. Values that do not match the
// encoded shape fall back to direct RFC3339 parsing, so files named with an
// unencoded timestamp still classify.
func DecodeTimestamp(raw string) (time.Time, error) {
	if m := encodedTimestamp.FindStringSubmatch(raw); m != nil {
		iso := m[1] + "T" + m[2] + ":" + m[3] + ":" + m[4] + "." + m[5] + "Z"
		return time.Parse(wireFormat, iso)
	}
	return time.Parse(time.RFC3339, raw)
}

// Filename returns the snapshot filename for one database at one instant.
func Filename(database string, t time.Time) string {
	return database + "-" + EncodeTimestamp(t) + ".json"
}

// ParseFilename splits a directory entry name into database and raw
// timestamp. ok is false for anything that is not a snapshot file
// (companion logs, temp files, foreign names).
func ParseFilename(name string) (database, rawTimestamp string, ok bool) {
	m := snapshotName.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// LogPath returns the companion log file path for a snapshot path.
func LogPath(path string) string {
	return path + ".log"
}
