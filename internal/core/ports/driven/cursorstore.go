package driven

import (
	"context"

	"github.com/nfetools/dfesync/internal/core/domain"
)

// CursorStore persists sync resume state per (CNPJ, environment) pair.
type CursorStore interface {
	// Load returns the stored cursor, or the zero cursor when none
	// has been persisted yet. Absence is not an error.
	Load(ctx context.Context, cnpj string, env domain.Environment) (domain.Cursor, error)

	// Save persists the cursor atomically: a crash during Save leaves
	// either the old or the new value readable, never a mix.
	Save(ctx context.Context, cnpj string, env domain.Environment, cursor domain.Cursor) error

	// Delete removes the cursor for a pair. Used by explicit resets.
	Delete(ctx context.Context, cnpj string, env domain.Environment) error

	// Close releases the underlying backend.
	Close() error
}
