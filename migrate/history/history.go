// Package history tracks which translated objects have been applied to the
// target database.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// Record is one applied object in the history table. Checksum digests the
// source definition the object was translated from, so an unchanged source
// can be skipped on the next run.
type Record struct {
	ID            string
	Name          string
	AppliedAt     time.Time
	ExecutionTime int64 // milliseconds
	Checksum      string
	RolledBack    bool
	Validated     bool
}

// Manager manages the migration history table on the target database.
type Manager struct {
	db       *sql.DB
	provider string
}

// NewManager creates a history manager for the target database.
func NewManager(db *sql.DB, provider string) *Manager {
	return &Manager{db: db, provider: provider}
}

// InitTable creates the history table when it does not exist.
func (m *Manager) InitTable(ctx context.Context) error {
	createTableSQL := m.getMigrationTableSQL()
	if createTableSQL == "" {
		return fmt.Errorf("no history table DDL for provider %q", m.provider)
	}
	if _, err := m.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	return nil
}

// Record inserts a migration record, replacing any previous row for the same
// name. A re-applied object starts over: not rolled back, not validated.
func (m *Manager) Record(ctx context.Context, record *Record) error {
	_, err := m.db.ExecContext(ctx, m.getInsertSQL(),
		record.Name,
		record.AppliedAt,
		record.Checksum,
		record.ExecutionTime,
		record.RolledBack,
		record.Validated,
	)
	return err
}

// RecordTx inserts a migration record inside an existing transaction, so the
// record commits or rolls back together with the migration itself.
func (m *Manager) RecordTx(ctx context.Context, tx *sql.Tx, record *Record) error {
	_, err := tx.ExecContext(ctx, m.getInsertSQL(),
		record.Name,
		record.AppliedAt,
		record.Checksum,
		record.ExecutionTime,
		record.RolledBack,
		record.Validated,
	)
	return err
}

// GetAll returns every migration record in applied order.
func (m *Manager) GetAll(ctx context.Context) ([]Record, error) {
	rows, err := m.db.QueryContext(ctx, m.getSelectAllSQL())
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(
			&record.ID,
			&record.Name,
			&record.AppliedAt,
			&record.Checksum,
			&record.ExecutionTime,
			&record.RolledBack,
			&record.Validated,
		); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetPending filters available migration names down to those not yet applied.
func (m *Manager) GetPending(ctx context.Context, available []string) ([]string, error) {
	applied, err := m.GetAppliedNames(ctx)
	if err != nil {
		return nil, err
	}

	appliedMap := make(map[string]bool, len(applied))
	for _, name := range applied {
		appliedMap[name] = true
	}

	var pending []string
	for _, name := range available {
		if !appliedMap[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// GetAppliedNames returns the names of applied, not rolled back migrations.
func (m *Manager) GetAppliedNames(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, m.getSelectNamesSQL())
	if err != nil {
		return nil, fmt.Errorf("query migration names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan migration name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetChecksum returns the recorded source checksum for an object, or "" when
// the object is unknown or its migration was rolled back.
func (m *Manager) GetChecksum(ctx context.Context, name string) (string, error) {
	var checksum string
	err := m.db.QueryRowContext(ctx, m.getSelectChecksumSQL(), name).Scan(&checksum)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query checksum: %w", err)
	}
	return checksum, nil
}

// MarkRolledBack flags a migration as rolled back.
func (m *Manager) MarkRolledBack(ctx context.Context, name string) error {
	_, err := m.db.ExecContext(ctx, m.getUpdateRolledBackSQL(), name)
	return err
}

// MarkValidated flags an object as validated against the source. Unknown
// names are a no-op.
func (m *Manager) MarkValidated(ctx context.Context, name string) error {
	_, err := m.db.ExecContext(ctx, m.getUpdateValidatedSQL(), name)
	return err
}

// Checksum computes the sha256 hex digest of a source definition. A changed
// digest for an already applied object means the source drifted and the
// object must be re-applied.
func Checksum(definition string) string {
	hash := sha256.Sum256([]byte(definition))
	return hex.EncodeToString(hash[:])
}

func (m *Manager) getMigrationTableSQL() string {
	switch m.provider {
	case "postgresql", "postgres":
		return `
			CREATE TABLE IF NOT EXISTS _sqlshift_migrations (
				id SERIAL PRIMARY KEY,
				migration_name VARCHAR(255) NOT NULL UNIQUE,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				checksum VARCHAR(64) NOT NULL,
				execution_time INTEGER,
				rolled_back BOOLEAN DEFAULT FALSE,
				validated BOOLEAN DEFAULT FALSE
			)
		`
	case "mysql":
		return `
			CREATE TABLE IF NOT EXISTS _sqlshift_migrations (
				id INT AUTO_INCREMENT PRIMARY KEY,
				migration_name VARCHAR(255) NOT NULL UNIQUE,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				checksum VARCHAR(64) NOT NULL,
				execution_time INT,
				rolled_back TINYINT(1) DEFAULT 0,
				validated TINYINT(1) DEFAULT 0
			)
		`
	default:
		return ""
	}
}

func (m *Manager) getInsertSQL() string {
	switch m.provider {
	case "postgresql", "postgres":
		return `
			INSERT INTO _sqlshift_migrations (migration_name, applied_at, checksum, execution_time, rolled_back, validated)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (migration_name) DO UPDATE SET
				applied_at = EXCLUDED.applied_at,
				checksum = EXCLUDED.checksum,
				execution_time = EXCLUDED.execution_time,
				rolled_back = EXCLUDED.rolled_back,
				validated = EXCLUDED.validated
		`
	default:
		return `
			INSERT INTO _sqlshift_migrations (migration_name, applied_at, checksum, execution_time, rolled_back, validated)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				applied_at = VALUES(applied_at),
				checksum = VALUES(checksum),
				execution_time = VALUES(execution_time),
				rolled_back = VALUES(rolled_back),
				validated = VALUES(validated)
		`
	}
}

func (m *Manager) getSelectAllSQL() string {
	return `
		SELECT id, migration_name, applied_at, checksum, execution_time, rolled_back, validated
		FROM _sqlshift_migrations
		ORDER BY applied_at ASC
	`
}

func (m *Manager) getSelectNamesSQL() string {
	switch m.provider {
	case "postgresql", "postgres":
		return `
			SELECT migration_name
			FROM _sqlshift_migrations
			WHERE rolled_back = FALSE
			ORDER BY applied_at ASC
		`
	default:
		return `
			SELECT migration_name
			FROM _sqlshift_migrations
			WHERE rolled_back = 0
			ORDER BY applied_at ASC
		`
	}
}

func (m *Manager) getSelectChecksumSQL() string {
	switch m.provider {
	case "postgresql", "postgres":
		return `SELECT checksum FROM _sqlshift_migrations WHERE migration_name = $1 AND rolled_back = FALSE`
	default:
		return `SELECT checksum FROM _sqlshift_migrations WHERE migration_name = ? AND rolled_back = 0`
	}
}

func (m *Manager) getUpdateRolledBackSQL() string {
	switch m.provider {
	case "postgresql", "postgres":
		return `
			UPDATE _sqlshift_migrations
			SET rolled_back = TRUE
			WHERE migration_name = $1
		`
	default:
		return `
			UPDATE _sqlshift_migrations
			SET rolled_back = 1
			WHERE migration_name = ?
		`
	}
}

func (m *Manager) getUpdateValidatedSQL() string {
	switch m.provider {
	case "postgresql", "postgres":
		return `
			UPDATE _sqlshift_migrations
			SET validated = TRUE
			WHERE migration_name = $1
		`
	default:
		return `
			UPDATE _sqlshift_migrations
			SET validated = 1
			WHERE migration_name = ?
		`
	}
}
