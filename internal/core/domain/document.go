package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DocumentKind classifies an extracted distribution document by its
// root element.
type DocumentKind string

const (
	// KindInvoice is a protocol-stamped invoice bundle (nfeProc).
	// This is the only kind retained long-term.
	KindInvoice DocumentKind = "invoice"

	// KindEvent is an ancillary protocol event (procEventoNFe,
	// resEvento). Events are intentionally not persisted.
	KindEvent DocumentKind = "event"

	// KindOther is any unrecognised root element, including the
	// summary schemas (resNFe) that carry no full invoice body.
	KindOther DocumentKind = "other"
)

// AccessKeyLength is the fixed width of an NF-e access key.
const AccessKeyLength = 44

// Document is a fiscal document extracted from a distribution payload.
// It owns its raw bytes once extraction has completed.
type Document struct {
	// Kind classifies the document by root element.
	Kind DocumentKind

	// Number is the invoice number (nNF) with non-digits removed and
	// leading zeros stripped. Empty when the source element is absent
	// or carries no digits.
	Number string

	// AccessKey is the 44-digit access key (chNFe), when present.
	AccessKey string

	// Emission is the emission year/month. Zero when the document
	// carries no parsable emission timestamp.
	Emission MonthRef

	// Raw is the full decompressed document body.
	Raw []byte
}

// Identity returns the preferred naming key for the document: the
// normalised invoice number, falling back to the access key.
func (d *Document) Identity() string {
	if d.Number != "" {
		return d.Number
	}
	return d.AccessKey
}

// Placement is the outcome of landing a document in the archive tree.
type Placement struct {
	// Directory is the destination directory (root/cnpj/year/month).
	Directory string

	// FileName is the final file name within Directory.
	FileName string

	// CollisionResolved is true when the primary candidate name was
	// taken and an alternate name was used instead.
	CollisionResolved bool
}

// Path returns the full placed file path.
func (p Placement) Path() string {
	return filepath.Join(p.Directory, p.FileName)
}

// MonthRef identifies an emission month. The zero value means unknown.
type MonthRef struct {
	Year  int
	Month time.Month
}

// IsZero reports whether the month is unset.
func (m MonthRef) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// String formats the month as YYYY-MM.
func (m MonthRef) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MonthOf returns the MonthRef for an instant.
func MonthOf(t time.Time) MonthRef {
	return MonthRef{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a YYYY-MM month reference.
func ParseMonth(s string) (MonthRef, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return MonthRef{}, fmt.Errorf("%w: month must be YYYY-MM, got %q", ErrUsage, s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return MonthRef{}, fmt.Errorf("%w: invalid year in %q", ErrUsage, s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return MonthRef{}, fmt.Errorf("%w: invalid month in %q", ErrUsage, s)
	}
	return MonthRef{Year: year, Month: time.Month(month)}, nil
}

// LastCompleteMonth returns the month before the one containing now.
func LastCompleteMonth(now time.Time) MonthRef {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := firstOfMonth.AddDate(0, 0, -1)
	return MonthRef{Year: prev.Year(), Month: prev.Month()}
}

// NormalizeSubscriber strips all non-digit characters from a CNPJ so
// that formatted and bare inputs map to the same identity.
func NormalizeSubscriber(cnpj string) string {
	var b strings.Builder
	for _, r := range cnpj {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeNumber reduces an invoice-number field to its naming form:
// digits only, leading zeros removed. Returns "" when no digits remain.
func NormalizeNumber(nnf string) string {
	var b strings.Builder
	for _, r := range nnf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if digits == "" && b.Len() > 0 {
		// All zeros is still the number zero.
		return "0"
	}
	return digits
}
