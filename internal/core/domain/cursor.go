package domain

import (
	"fmt"
	"strings"
	"time"
)

// NSUWidth is the fixed width of a distribution sequence number.
const NSUWidth = 15

// Environment selects the production or homologation distribution
// endpoint. Cursors are keyed per environment; the two never share
// resume state.
type Environment string

const (
	// EnvProduction is the national production environment.
	EnvProduction Environment = "prod"

	// EnvHomologation is the national test environment.
	EnvHomologation Environment = "hom"
)

// ParseEnvironment validates an environment name.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(s)) {
	case EnvProduction:
		return EnvProduction, nil
	case EnvHomologation:
		return EnvHomologation, nil
	}
	return "", fmt.Errorf("%w: environment must be %q or %q, got %q",
		ErrUsage, EnvProduction, EnvHomologation, s)
}

// Cursor is the persisted resume point for one (CNPJ, environment)
// pair. LastNSU only advances after the documents behind it have been
// durably placed; it is never rolled back except by an explicit reset.
type Cursor struct {
	// LastNSU is the last consumed sequence number, zero-padded to
	// NSUWidth digits.
	LastNSU string

	// NextAllowed is the earliest instant a new query session may run.
	NextAllowed time.Time
}

// ZeroCursor is the cursor used before any sync has run.
func ZeroCursor() Cursor {
	return Cursor{LastNSU: PadNSU("0")}
}

// IsZero reports whether the cursor has never advanced.
func (c Cursor) IsZero() bool {
	return c.LastNSU == "" || c.LastNSU == PadNSU("0")
}

// PadNSU left-pads a sequence number with zeros to NSUWidth digits.
// Values already at or beyond the width are returned unchanged.
func PadNSU(nsu string) string {
	if nsu == "" {
		nsu = "0"
	}
	if len(nsu) >= NSUWidth {
		return nsu
	}
	return strings.Repeat("0", NSUWidth-len(nsu)) + nsu
}
