// Package domain defines the core business entities for dfesync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A fiscal document extracted from a distribution payload
//   - Cursor: The persisted NSU resume point for a (CNPJ, environment) pair
//   - MonthRef: An emission year/month used for partitioning and filtering
//   - Placement: The outcome of landing a document in the archive tree
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
