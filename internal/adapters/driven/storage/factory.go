// Package storage selects a cursor store backend from a DSN.
package storage

import (
	"strings"

	"github.com/nfetools/dfesync/internal/adapters/driven/storage/memory"
	"github.com/nfetools/dfesync/internal/adapters/driven/storage/postgres"
	"github.com/nfetools/dfesync/internal/adapters/driven/storage/sqlite"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
)

// Open returns the cursor store for a DSN:
//
//   - ""                        → SQLite under dataDir (the default)
//   - "sqlite:///path/to/dir"   → SQLite under the given directory
//   - "postgres://..."          → Postgres (also "postgresql://")
//   - "memory:"                 → in-process, non-persistent
func Open(dsn, dataDir string) (driven.CursorStore, error) {
	switch {
	case dsn == "":
		return sqlite.NewStore(dataDir)
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.NewStore(strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return postgres.NewStore(dsn)
	case dsn == "memory:":
		return memory.NewCursorStore(), nil
	default:
		// Anything else is treated as a SQLite data directory path.
		return sqlite.NewStore(dsn)
	}
}
