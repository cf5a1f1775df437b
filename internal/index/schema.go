package index

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 2

func initSchema(db *sql.DB) error {
	var version int
	err := db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// the index is a cache, older layouts are rebuilt from scratch
	for _, table := range []string{"words", "files"} {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}

	if err := createTables(tx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return tx.Commit()
}

func createTables(tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS files (
            path TEXT PRIMARY KEY,
            mod_time INTEGER NOT NULL,
            size INTEGER NOT NULL,
            indexed_at INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS words (
            path TEXT NOT NULL,
            word TEXT NOT NULL,
            FOREIGN KEY (path) REFERENCES files(path) ON DELETE CASCADE,
            PRIMARY KEY (path, word)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_words_word
            ON words(word)`,
	}

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}

	return nil
}
