package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sqlshift/sqlshift/internal/debug"
)

// Cache is a local sqlite store of translation results, keyed by object name
// and source checksum. Repeated runs skip objects whose source has not
// changed.
type Cache struct {
	db *sql.DB
}

// CachedTranslation is one stored translation result.
type CachedTranslation struct {
	Name           string
	SourceChecksum string
	TranslatedSQL  string
	Warnings       int
	TranslatedAt   time.Time
}

// OpenCache opens (creating when needed) the local cache at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	createSQL := `
		CREATE TABLE IF NOT EXISTS translations (
			name TEXT NOT NULL,
			source_checksum TEXT NOT NULL,
			translated_sql TEXT NOT NULL,
			warnings INTEGER NOT NULL DEFAULT 0,
			translated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (name, source_checksum)
		)
	`
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	debug.Debug("opened translation cache", "path", path)
	return &Cache{db: db}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached translation for a name and source checksum, or nil
// when absent.
func (c *Cache) Get(ctx context.Context, name, sourceChecksum string) (*CachedTranslation, error) {
	query := `
		SELECT name, source_checksum, translated_sql, warnings, translated_at
		FROM translations
		WHERE name = ? AND source_checksum = ?
	`
	var ct CachedTranslation
	err := c.db.QueryRowContext(ctx, query, name, sourceChecksum).Scan(
		&ct.Name, &ct.SourceChecksum, &ct.TranslatedSQL, &ct.Warnings, &ct.TranslatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	return &ct, nil
}

// Put stores a translation result, replacing any previous entry for the same
// name and checksum.
func (c *Cache) Put(ctx context.Context, ct *CachedTranslation) error {
	insertSQL := `
		INSERT OR REPLACE INTO translations (name, source_checksum, translated_sql, warnings, translated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	when := ct.TranslatedAt
	if when.IsZero() {
		when = time.Now()
	}
	_, err := c.db.ExecContext(ctx, insertSQL,
		ct.Name, ct.SourceChecksum, ct.TranslatedSQL, ct.Warnings, when)
	return err
}

// Prune drops entries for names no longer present in the source.
func (c *Cache) Prune(ctx context.Context, keep []string) (int64, error) {
	if len(keep) == 0 {
		res, err := c.db.ExecContext(ctx, `DELETE FROM translations`)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TEMPORARY TABLE keep_names (name TEXT PRIMARY KEY)`); err != nil {
		return 0, err
	}
	for _, name := range keep {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_names (name) VALUES (?)`, name); err != nil {
			return 0, err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM translations WHERE name NOT IN (SELECT name FROM keep_names)`)
	if err != nil {
		return 0, err
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return pruned, tx.Commit()
}
