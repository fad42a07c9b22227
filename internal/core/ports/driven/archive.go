package driven

import (
	"github.com/nfetools/dfesync/internal/core/domain"
)

// Archive lands extracted documents in the destination tree.
type Archive interface {
	// Place writes the document under the subscriber's partition,
	// resolving name collisions without overwriting existing files.
	// Only domain.KindInvoice documents are accepted.
	Place(doc domain.Document, cnpj string) (domain.Placement, error)
}
