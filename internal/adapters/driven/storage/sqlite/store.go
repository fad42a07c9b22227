// Package sqlite is the default cursor store, backed by a local
// SQLite database in the dfesync data directory.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CursorStore = (*Store)(nil)

// Store persists cursors in a SQLite database keyed by
// (cnpj, environment).
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the cursor database under dataDir.
// If dataDir is empty, defaults to ~/.dfesync/data/state.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".dfesync", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "state.db")

	// WAL mode so the batch processor and sync loop can share the file.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_cursors (
			cnpj         TEXT NOT NULL,
			environment  TEXT NOT NULL,
			last_nsu     TEXT NOT NULL,
			next_allowed INTEGER NOT NULL DEFAULT 0,
			updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (cnpj, environment)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating sync_cursors table: %w", err)
	}
	return nil
}

// Load returns the stored cursor, or the zero cursor when the pair
// has never synced.
func (s *Store) Load(ctx context.Context, cnpj string, env domain.Environment) (domain.Cursor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_nsu, next_allowed
		FROM sync_cursors WHERE cnpj = ? AND environment = ?
	`, cnpj, string(env))

	var lastNSU string
	var nextAllowed int64
	if err := row.Scan(&lastNSU, &nextAllowed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ZeroCursor(), nil
		}
		return domain.Cursor{}, fmt.Errorf("loading cursor: %w", err)
	}

	cursor := domain.Cursor{LastNSU: domain.PadNSU(lastNSU)}
	if nextAllowed > 0 {
		cursor.NextAllowed = time.Unix(nextAllowed, 0)
	}
	return cursor, nil
}

// Save upserts the cursor in a single statement, so a crash leaves
// either the old or the new row, never a mix.
func (s *Store) Save(ctx context.Context, cnpj string, env domain.Environment, cursor domain.Cursor) error {
	var nextAllowed int64
	if !cursor.NextAllowed.IsZero() {
		nextAllowed = cursor.NextAllowed.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (cnpj, environment, last_nsu, next_allowed, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(cnpj, environment) DO UPDATE SET
			last_nsu = excluded.last_nsu,
			next_allowed = excluded.next_allowed,
			updated_at = excluded.updated_at
	`, cnpj, string(env), domain.PadNSU(cursor.LastNSU), nextAllowed)
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}

// Delete removes the cursor for a pair.
func (s *Store) Delete(ctx context.Context, cnpj string, env domain.Environment) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sync_cursors WHERE cnpj = ? AND environment = ?
	`, cnpj, string(env))
	if err != nil {
		return fmt.Errorf("deleting cursor: %w", err)
	}
	return nil
}
