// Package index keeps a persistent record of which identifiers each
// on-disk source file contains, so a references scan can skip files that
// cannot match. An entry is trusted only while the file's modification
// time and size are unchanged, and only if the file was already older than
// RacyWindow when it was indexed: an edit landing in the same timestamp
// tick as the read would otherwise keep both values. The index can rule
// files out but never produces matches itself.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mplxls.index")

// RacyWindow covers the coarsest common timestamp granularity (FAT, 2s).
const RacyWindow = 2 * time.Second

// FileRecord identifies the version of a file an entry was built from.
type FileRecord struct {
	Path    string
	ModTime int64 // unix nanoseconds
	Size    int64
}

// RecordFor describes the file as it is on disk now.
func RecordFor(path string, info os.FileInfo) FileRecord {
	return FileRecord{Path: path, ModTime: info.ModTime().UnixNano(), Size: info.Size()}
}

type Index struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	// the driver applies DSN options to every connection it opens
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own database
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Infof("word index at %s", path)
	return &Index{db: db, now: time.Now}, nil
}

// DefaultPath is the index location under the XDG state directory.
func DefaultPath(appName string) (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, appName, "index.db"), nil
}

func (ix *Index) WithTx(fn func(*sql.Tx) error) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	return nil
}

func (ix *Index) GetFile(path string) (*FileRecord, error) {
	var record FileRecord
	err := ix.db.QueryRow(
		"SELECT path, mod_time, size FROM files WHERE path = ?",
		path,
	).Scan(&record.Path, &record.ModTime, &record.Size)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file: %w", err)
	}

	return &record, nil
}

// Put replaces the entry for file with words. It must be called after the
// content the words came from was read.
func (ix *Index) Put(file FileRecord, words []string) error {
	indexedAt := ix.now().UnixNano()
	return ix.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
            INSERT INTO files (path, mod_time, size, indexed_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT(path) DO UPDATE SET
                mod_time = excluded.mod_time,
                size = excluded.size,
                indexed_at = excluded.indexed_at
        `, file.Path, file.ModTime, file.Size, indexedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert file: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM words WHERE path = ?", file.Path); err != nil {
			return fmt.Errorf("failed to delete existing words: %w", err)
		}

		stmt, err := tx.Prepare("INSERT INTO words (path, word) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare word insert statement: %w", err)
		}
		defer stmt.Close()

		for _, word := range words {
			if _, err := stmt.Exec(file.Path, word); err != nil {
				return fmt.Errorf("failed to insert word: %w", err)
			}
		}
		return nil
	})
}

// CanSkip reports whether the file described by current certainly does not
// contain word: the entry must exist, match current exactly, not be racy,
// and lack word.
func (ix *Index) CanSkip(current FileRecord, word string) (bool, error) {
	var stored FileRecord
	var indexedAt int64
	err := ix.db.QueryRow(
		"SELECT path, mod_time, size, indexed_at FROM files WHERE path = ?",
		current.Path,
	).Scan(&stored.Path, &stored.ModTime, &stored.Size, &indexedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query file: %w", err)
	}
	if stored != current {
		return false, nil
	}
	if indexedAt-stored.ModTime < int64(RacyWindow) {
		// modified too close to the read to tell later edits apart
		return false, nil
	}

	var n int
	err = ix.db.QueryRow(
		"SELECT COUNT(*) FROM words WHERE path = ? AND word = ?",
		current.Path, word,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query words: %w", err)
	}
	return n == 0, nil
}

// Forget drops the entry for path.
func (ix *Index) Forget(path string) error {
	if _, err := ix.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Paths lists every indexed path.
func (ix *Index) Paths() ([]string, error) {
	rows, err := ix.db.Query("SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file records: %w", err)
	}
	return paths, nil
}

// Prune drops entries for files that no longer exist and returns how many went.
func (ix *Index) Prune() (int, error) {
	started := time.Now()
	paths, err := ix.Paths()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := ix.Forget(path); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	log.Debugf("pruned %d of %d entries in %s", pruned, len(paths), time.Since(started))
	return pruned, nil
}

// Clear drops every entry.
func (ix *Index) Clear() error {
	_, err := ix.db.Exec(`
        DELETE FROM words;
        DELETE FROM files;
    `)
	if err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}
	return nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}
