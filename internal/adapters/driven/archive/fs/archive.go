// Package fs implements the archive port on a local directory tree.
//
// Documents land under root/cnpj/YYYY/MM with the invoice number as
// the primary file name, the access key on collision, and an explicit
// duplicate marker as last resort. Writes go through a temp file and
// an exclusive link so concurrent writers can never overwrite each
// other's documents.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
	"github.com/nfetools/dfesync/internal/logger"
)

// DupSuffix marks the last-resort artifact written when both the
// number-based and key-based names are taken.
const DupSuffix = ".dup"

// Ensure Archive implements the port.
var _ driven.Archive = (*Archive)(nil)

// Archive writes documents into a date-partitioned tree.
type Archive struct {
	root string
	now  func() time.Time
}

// New creates an archive rooted at root.
func New(root string) *Archive {
	return &Archive{root: root, now: time.Now}
}

// NewWithClock creates an archive with an injected clock. Used by
// tests to pin the wall-clock fallback partition.
func NewWithClock(root string, now func() time.Time) *Archive {
	return &Archive{root: root, now: now}
}

// Place writes doc under cnpj's partition. Only invoice bundles are
// accepted; callers discard events and unknown kinds before reaching
// the archive.
//
// Collision chain: <number>.xml, then <accessKey>.xml, then the
// primary name with DupSuffix appended. The first two stages never
// overwrite; the duplicate stage replaces only a previous duplicate
// artifact for the same name.
func (a *Archive) Place(doc domain.Document, cnpj string) (domain.Placement, error) {
	if doc.Kind != domain.KindInvoice {
		return domain.Placement{}, fmt.Errorf("%w: refusing to place %s document", domain.ErrDocument, doc.Kind)
	}

	identity := doc.Identity()
	if identity == "" {
		return domain.Placement{}, fmt.Errorf("%w: document has no naming key", domain.ErrDocument)
	}

	emission := doc.Emission
	if emission.IsZero() {
		// Approximation for documents without a parsable emission
		// timestamp; recorded at debug level for reproducibility.
		emission = domain.MonthOf(a.now())
		logger.Debug("no emission date; partitioning under current month %s", emission)
	}

	dir := filepath.Join(a.root, cnpj,
		fmt.Sprintf("%04d", emission.Year), fmt.Sprintf("%02d", int(emission.Month)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Placement{}, fmt.Errorf("creating destination directory: %w", err)
	}

	primary := identity + ".xml"
	placed, err := writeExclusive(filepath.Join(dir, primary), doc.Raw)
	if err != nil {
		return domain.Placement{}, err
	}
	if placed {
		return domain.Placement{Directory: dir, FileName: primary}, nil
	}

	if doc.AccessKey != "" && doc.AccessKey != identity {
		alt := doc.AccessKey + ".xml"
		placed, err = writeExclusive(filepath.Join(dir, alt), doc.Raw)
		if err != nil {
			return domain.Placement{}, err
		}
		if placed {
			return domain.Placement{Directory: dir, FileName: alt, CollisionResolved: true}, nil
		}
	}

	dup := primary + DupSuffix
	if err := writeAtomic(filepath.Join(dir, dup), doc.Raw); err != nil {
		return domain.Placement{}, err
	}
	logger.Warn("duplicate artifact written: %s", filepath.Join(dir, dup))
	return domain.Placement{Directory: dir, FileName: dup, CollisionResolved: true}, nil
}

// writeExclusive writes data to path only if path does not exist yet.
// The content is staged in a temp file and linked into place, so a
// crash never leaves a partial file under the final name and two
// racing writers cannot both win. Returns false when path was taken.
func writeExclusive(path string, data []byte) (bool, error) {
	tmp, err := stage(path, data)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("linking %s: %w", path, err)
	}
	return true, nil
}

// writeAtomic replaces path with data via rename. Only the duplicate
// stage uses this, where replacing an earlier duplicate artifact of
// the same name is acceptable.
func writeAtomic(path string, data []byte) error {
	tmp, err := stage(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// stage writes data to a unique temp file next to path.
func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("staging write: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("staging write: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("staging write: %w", err)
	}
	return f.Name(), nil
}
