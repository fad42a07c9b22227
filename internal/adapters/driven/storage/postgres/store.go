// Package postgres is a cursor store for shared deployments where
// several hosts sync different subscribers against one database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
)

const operationTimeout = 5 * time.Second

// Ensure Store implements the interface.
var _ driven.CursorStore = (*Store)(nil)

// Store persists cursors in a Postgres table keyed by
// (cnpj, environment).
type Store struct {
	dsn string

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

// NewStore creates a store for the given DSN. The connection is
// opened lazily on first use.
func NewStore(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty postgres DSN", domain.ErrUsage)
	}
	return &Store{dsn: dsn}, nil
}

func (s *Store) ensureReady() error {
	s.initOnce.Do(func() {
		db, err := sql.Open("postgres", s.dsn)
		if err != nil {
			s.initErr = fmt.Errorf("opening postgres: %w", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		_, err = db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS sync_cursors (
				cnpj         TEXT NOT NULL,
				environment  TEXT NOT NULL,
				last_nsu     TEXT NOT NULL,
				next_allowed BIGINT NOT NULL DEFAULT 0,
				updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
				PRIMARY KEY (cnpj, environment)
			)
		`)
		if err != nil {
			db.Close()
			s.initErr = fmt.Errorf("creating sync_cursors table: %w", err)
			return
		}
		s.db = db
	})
	return s.initErr
}

// Load returns the stored cursor, or the zero cursor when absent.
func (s *Store) Load(ctx context.Context, cnpj string, env domain.Environment) (domain.Cursor, error) {
	if err := s.ensureReady(); err != nil {
		return domain.Cursor{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT last_nsu, next_allowed
		FROM sync_cursors WHERE cnpj = $1 AND environment = $2
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

// Save upserts the cursor atomically.
func (s *Store) Save(ctx context.Context, cnpj string, env domain.Environment, cursor domain.Cursor) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var nextAllowed int64
	if !cursor.NextAllowed.IsZero() {
		nextAllowed = cursor.NextAllowed.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (cnpj, environment, last_nsu, next_allowed, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (cnpj, environment) DO UPDATE SET
			last_nsu = EXCLUDED.last_nsu,
			next_allowed = EXCLUDED.next_allowed,
			updated_at = EXCLUDED.updated_at
	`, cnpj, string(env), domain.PadNSU(cursor.LastNSU), nextAllowed)
	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}

// Delete removes the cursor for a pair.
func (s *Store) Delete(ctx context.Context, cnpj string, env domain.Environment) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sync_cursors WHERE cnpj = $1 AND environment = $2
	`, cnpj, string(env))
	if err != nil {
		return fmt.Errorf("deleting cursor: %w", err)
	}
	return nil
}

// Close closes the connection if one was opened.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
