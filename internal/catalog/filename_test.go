package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTimestamp(t *testing.T) {
	ts := time.Date(2025, 12, 24, 23, 4, 15, 80*int(time.Millisecond), time.UTC)
	assert.Equal(t, "2025-12-24T23-04-15-080Z", EncodeTimestamp(ts))
}

func TestEncodeTimestampConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2025, 12, 25, 0, 4, 15, 80*int(time.Millisecond), loc)
	assert.Equal(t, "2025-12-24T23-04-15-080Z", EncodeTimestamp(ts))
}

func TestDecodeTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2025, 12, 24, 23, 4, 15, 80*int(time.Millisecond), time.UTC)

	decoded, err := DecodeTimestamp(EncodeTimestamp(ts))
	require.NoError(t, err)
	assert.True(t, decoded.Equal(ts))
}

func TestDecodeTimestampFallsBackToRFC3339(t *testing.T) {
	decoded, err := DecodeTimestamp("2025-12-24T23:04:15.080Z")
	require.NoError(t, err)
	assert.True(t, decoded.Equal(time.Date(2025, 12, 24, 23, 4, 15, 80*int(time.Millisecond), time.UTC)))
}

func TestDecodeTimestampRejectsGarbage(t *testing.T) {
	_, err := DecodeTimestamp("not-a-timestamp")
	assert.Error(t, err)

	// date-shaped but invalid
	_, err = DecodeTimestamp("2025-13-99T99-99-99-999Z")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 12, 24, 23, 4, 15, 80*int(time.Millisecond), time.UTC)
	assert.Equal(t, "eddo_prod-2025-12-24T23-04-15-080Z.json", Filename("eddo_prod", ts))
}

func TestParseFilename(t *testing.T) {
	db, raw, ok := ParseFilename("eddo_prod-2025-12-24T23-04-15-080Z.json")
	require.True(t, ok)
	assert.Equal(t, "eddo_prod", db)
	assert.Equal(t, "2025-12-24T23-04-15-080Z", raw)
}

func TestParseFilenameDatabaseWithDash(t *testing.T) {
	db, raw, ok := ParseFilename("my-app-db-2025-12-24T23-04-15-080Z.json")
	require.True(t, ok)
	assert.Equal(t, "my-app-db", db)
	assert.Equal(t, "2025-12-24T23-04-15-080Z", raw)
}

func TestParseFilenameRejectsForeignNames(t *testing.T) {
	for _, name := range []string{
		"eddo_prod-2025-12-24T23-04-15-080Z.json.log",
		"eddo_prod-2025-12-24T23-04-15-080Z.json.tmp",
		"readme.txt",
		"eddo_prod.json",
		"-2025-12-24T23-04-15-080Z.json",
	} {
		_, _, ok := ParseFilename(name)
		assert.False(t, ok, "expected %q to be rejected", name)
	}
}

func TestParseFilenameKeepsUndecodableTimestamp(t *testing.T) {
	// name-level match is looser than the timestamp codec; the raw segment
	// is carried through and only fails at decode time
	db, raw, ok := ParseFilename("db1-2025-13-99Tjunk.json")
	require.True(t, ok)
	assert.Equal(t, "db1", db)
	assert.Equal(t, "2025-13-99Tjunk", raw)

	_, err := DecodeTimestamp(raw)
	assert.Error(t, err)
}

func TestLogPath(t *testing.T) {
	assert.Equal(t, "/backups/a.json.log", LogPath("/backups/a.json"))
}
