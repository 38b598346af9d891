package trajectory

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// STORE INTERFACE
// The archive persists the whole collection as one document per namespace.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultNamespace is the storage key of the collection.
const DefaultNamespace = "escolar_db_v1"

// Store loads and saves the full collection.
type Store interface {
	// Load returns the persisted collection.
	// Returns an empty collection and nil when nothing has been saved yet.
	// Returns an error wrapping shared.ErrMalformedState when the payload
	// cannot be decoded.
	Load(ctx context.Context) (Collection, error)

	// Save replaces the persisted collection. The write is atomic: readers
	// see either the old or the new document.
	Save(ctx context.Context, c Collection) error
}
