// Package query contains read operations (CQRS - Queries).
// Queries work on an immutable snapshot and never touch the store.
package query

import "github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"

// SnapshotSource provides the current collection and its schema.
// archive.Archive implements it.
type SnapshotSource interface {
	Snapshot() trajectory.Collection
	Schema() *trajectory.Schema
}
