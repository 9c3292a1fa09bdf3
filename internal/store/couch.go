package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/couchvault/couchvault/internal/catalog"
)

// Couch talks to a CouchDB-compatible HTTP API. It implements Discovery,
// Snapshotter and Verifier.
type Couch struct {
	baseURL  string
	username string
	password string
	dir      string
	client   *http.Client
	log      zerolog.Logger
	now      func() time.Time
}

type CouchOptions struct {
	URL       string
	Username  string
	Password  string
	Timeout   time.Duration
	BackupDir string
}

func NewCouch(opts CouchOptions, log zerolog.Logger) (*Couch, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("couchdb url is required")
	}
	if opts.BackupDir == "" {
		return nil, fmt.Errorf("backup dir is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	return &Couch{
		baseURL:  strings.TrimRight(opts.URL, "/"),
		username: opts.Username,
		password: opts.Password,
		dir:      opts.BackupDir,
		client:   &http.Client{Timeout: opts.Timeout},
		log:      log,
		now:      time.Now,
	}, nil
}

func (c *Couch) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}
	return resp, nil
}

// ListDatabases returns every database except CouchDB system databases
// (leading underscore, e.g. _users, _replicator).
func (c *Couch) ListDatabases(ctx context.Context) ([]string, error) {
	resp, err := c.get(ctx, "/_all_dbs")
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	defer resp.Body.Close()

	var all []string
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decoding database list: %w", err)
	}

	var dbs []string
	for _, db := range all {
		if strings.HasPrefix(db, "_") {
			continue
		}
		dbs = append(dbs, db)
	}
	return dbs, nil
}

// Snapshot streams {db}/_all_docs?include_docs=true into
// <dir>/<db>-<encoded timestamp>.json, going through a temp file so a
// partial transfer never looks like a finished snapshot. A .log companion
// records the transfer summary.
func (c *Couch) Snapshot(ctx context.Context, database string) error {
	started := c.now()

	resp, err := c.get(ctx, "/"+url.PathEscape(database)+"/_all_docs?include_docs=true")
	if err != nil {
		return fmt.Errorf("exporting %s: %w", database, err)
	}
	defer resp.Body.Close()

	final := filepath.Join(c.dir, catalog.Filename(database, started))
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalizing snapshot: %w", err)
	}

	c.writeLog(final, database, started, written)
	c.log.Info().Str("database", database).Str("file", final).Int64("bytes", written).
		Msg("snapshot written")
	return nil
}

func (c *Couch) writeLog(snapshotPath, database string, started time.Time, bytes int64) {
	summary := fmt.Sprintf("database=%s started=%s elapsed=%s bytes=%d\n",
		database, started.UTC().Format(time.RFC3339), c.now().Sub(started).Round(time.Millisecond), bytes)
	if err := os.WriteFile(catalog.LogPath(snapshotPath), []byte(summary), 0o644); err != nil {
		c.log.Error().Err(err).Str("file", snapshotPath).Msg("writing snapshot log")
	}
}

// Verify checks the _all_docs shape of a snapshot: decodable JSON with a
// total_rows field matching the length of the rows array. A malformed file
// is reported as invalid, not as an error.
func (c *Couch) Verify(ctx context.Context, path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var doc struct {
		TotalRows *int64            `json:"total_rows"`
		Rows      []json.RawMessage `json:"rows"`
	}
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		c.log.Debug().Err(err).Str("file", path).Msg("snapshot failed to decode")
		return false, nil
	}
	if doc.TotalRows == nil || doc.Rows == nil {
		return false, nil
	}
	return *doc.TotalRows == int64(len(doc.Rows)), nil
}
