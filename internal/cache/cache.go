// Package cache fingerprints build inputs between runs so unchanged
// projects can skip font regeneration. It records one sha256 digest per
// source file (a structural digest for directory-backed formats) and one
// canonical snapshot of the config document, in a sqlite database shared
// across projects.
//
// Reads never mutate the database; only AddFiles, AddConfig and Clean
// write. Classification is conservative: a file that exists but cannot be
// read counts as modified, never as unchanged.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/fontpipe/fontpipe/internal/config"
)

// Error is a cache fault: an unopenable database or a failed write.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cache: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("cache: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cache is an open fingerprint database.
type Cache struct {
	db *sql.DB
	fs billy.Filesystem
}

const schema = `
CREATE TABLE IF NOT EXISTS file_cache (
	path TEXT PRIMARY KEY,
	digest TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS config_cache (
	path TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
`

// DefaultPath places the database in the user cache directory so one
// database serves every project, as source paths are keyed per project.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", &Error{Err: fmt.Errorf("locate user cache dir: %w", err)}
	}
	return filepath.Join(dir, "fontpipe", "cache.db"), nil
}

// Open opens or creates the database at path, reading files from the host
// filesystem. Callers pass absolute file paths.
func Open(path string) (*Cache, error) {
	return OpenWith(path, osfs.New("/"))
}

// OpenWith opens the database with an explicit filesystem for file hashing.
func OpenWith(path string, fsys billy.Filesystem) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &Error{Path: path, Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("open sqlite: %w", err)}
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() // ignore error
		return nil, &Error{Path: path, Err: fmt.Errorf("create tables: %w", err)}
	}
	return &Cache{db: db, fs: fsys}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Changes classifies the given files against the recorded digests.
type Changes struct {
	New      []string // no record yet
	Modified []string // digest differs, or the file is unreadable
	Missing  []string // recorded but no longer present
}

// Empty reports whether nothing changed.
func (ch Changes) Empty() bool {
	return len(ch.New) == 0 && len(ch.Modified) == 0 && len(ch.Missing) == 0
}

// AddFiles records the current digest of every given file, replacing any
// prior record.
func (c *Cache) AddFiles(files []string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return &Error{Err: err}
	}
	defer tx.Rollback()
	for _, f := range files {
		digest, err := c.hashPath(f)
		if err != nil {
			return &Error{Path: f, Err: err}
		}
		_, err = tx.Exec(
			`INSERT INTO file_cache (path, digest) VALUES (?, ?)
			 ON CONFLICT(path) DO UPDATE SET digest = excluded.digest`,
			f, digest)
		if err != nil {
			return &Error{Path: f, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &Error{Err: err}
	}
	return nil
}

// ChangedFiles classifies files without touching the records.
func (c *Cache) ChangedFiles(files []string) (Changes, error) {
	var ch Changes
	for _, f := range files {
		var recorded string
		err := c.db.QueryRow(
			`SELECT digest FROM file_cache WHERE path = ?`, f).Scan(&recorded)
		switch {
		case err == sql.ErrNoRows:
			ch.New = append(ch.New, f)
			continue
		case err != nil:
			return Changes{}, &Error{Path: f, Err: err}
		}
		if _, err := c.fs.Stat(f); err != nil {
			if os.IsNotExist(err) {
				ch.Missing = append(ch.Missing, f)
				continue
			}
			ch.Modified = append(ch.Modified, f)
			continue
		}
		digest, err := c.hashPath(f)
		if err != nil {
			// Unreadable counts as modified so a rebuild is never skipped.
			ch.Modified = append(ch.Modified, f)
			continue
		}
		if digest != recorded {
			ch.Modified = append(ch.Modified, f)
		}
	}
	sort.Strings(ch.New)
	sort.Strings(ch.Modified)
	sort.Strings(ch.Missing)
	return ch, nil
}

// AddConfig records the canonical snapshot of the config document, keyed by
// its path.
func (c *Cache) AddConfig(cfg *config.Config) error {
	snap, err := snapshot(cfg)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(
		`INSERT INTO config_cache (path, data) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET data = excluded.data`,
		cfg.Path, snap)
	if err != nil {
		return &Error{Path: cfg.Path, Err: err}
	}
	return nil
}

// ChangedConfig reports whether the config differs from its recorded
// snapshot. A config never seen before counts as changed.
func (c *Cache) ChangedConfig(cfg *config.Config) (bool, error) {
	snap, err := snapshot(cfg)
	if err != nil {
		return true, err
	}
	var recorded string
	err = c.db.QueryRow(
		`SELECT data FROM config_cache WHERE path = ?`, cfg.Path).Scan(&recorded)
	switch {
	case err == sql.ErrNoRows:
		return true, nil
	case err != nil:
		return true, &Error{Path: cfg.Path, Err: err}
	}
	return recorded != snap, nil
}

// Clean drops every record.
func (c *Cache) Clean() error {
	if _, err := c.db.Exec(`DELETE FROM file_cache; DELETE FROM config_cache;`); err != nil {
		return &Error{Err: err}
	}
	return nil
}

// snapshot canonicalizes a config for comparison: marshalled to a map with
// the stat description stripped, then rendered as key-sorted JSON. Editing
// only stat must not force a rebuild, as STAT generation reruns regardless.
func snapshot(cfg *config.Config) (string, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return "", &Error{Path: cfg.Path, Err: fmt.Errorf("encode config: %w", err)}
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return "", &Error{Path: cfg.Path, Err: fmt.Errorf("canonicalize config: %w", err)}
	}
	delete(m, "stat")
	return oj.JSON(m, &oj.Options{Sort: true}), nil
}
