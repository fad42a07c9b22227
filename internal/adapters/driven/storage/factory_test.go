package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfetools/dfesync/internal/adapters/driven/storage/memory"
	"github.com/nfetools/dfesync/internal/adapters/driven/storage/postgres"
	"github.com/nfetools/dfesync/internal/adapters/driven/storage/sqlite"
)

// TestOpen_DefaultSQLite tests the empty-DSN default.
func TestOpen_DefaultSQLite(t *testing.T) {
	store, err := Open("", t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &sqlite.Store{}, store)
}

// TestOpen_SQLiteScheme tests explicit sqlite DSNs.
func TestOpen_SQLiteScheme(t *testing.T) {
	store, err := Open("sqlite://"+t.TempDir(), "")
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &sqlite.Store{}, store)
}

// TestOpen_Postgres tests postgres DSN routing.
func TestOpen_Postgres(t *testing.T) {
	store, err := Open("postgres://u:p@localhost/db", "")
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &postgres.Store{}, store)
}

// TestOpen_Memory tests the in-process backend.
func TestOpen_Memory(t *testing.T) {
	store, err := Open("memory:", "")
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &memory.CursorStore{}, store)
}
