/*
Package catalog records which frames have already been converted so that a
directory can be processed repeatedly without redoing any work.

Sources are identified by the SHA-1 of their contents rather than their path
as the player tends to reuse file names.
*/
package catalog

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // database/sql driver
)

// Catalog is a sqlite database of completed conversions.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog in file.
func Open(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS conversion (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, source TEXT NOT NULL, output TEXT NOT NULL, converted INTEGER NOT NULL, UNIQUE(sha1, output))"); err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{
		db: db,
	}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Hash returns the SHA-1 of b as used to key the catalog.
func Hash(b []byte) string {
	return fmt.Sprintf("%X", sha1.Sum(b))
}

// Converted reports whether the source with the given hash has already been
// converted to output and that output still exists.
func (c *Catalog) Converted(sha, output string) (bool, error) {
	var id int64
	switch err := c.db.QueryRow("SELECT id FROM conversion WHERE sha1 = ? AND output = ?", sha, output).Scan(&id); err {
	case sql.ErrNoRows:
		return false, nil
	case nil:
		if _, err := os.Stat(output); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}

// Record stores a completed conversion of source to output.
func (c *Catalog) Record(sha, source, output string) error {
	if _, err := c.db.Exec("INSERT OR REPLACE INTO conversion (sha1, source, output, converted) VALUES (?, ?, ?, ?)", sha, source, output, time.Now().Unix()); err != nil {
		return err
	}
	return nil
}

// Count returns the number of recorded conversions.
func (c *Catalog) Count() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM conversion").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
