package postgres

import (
	"context"
	"fmt"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence"
)

const (
	loadDocumentSQL = `SELECT payload FROM archive_documents WHERE namespace = $1`

	saveDocumentSQL = `
		INSERT INTO archive_documents (namespace, payload, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (namespace) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
)

// CollectionStore implements trajectory.Store on the archive_documents table.
type CollectionStore struct {
	db        Querier
	namespace string
}

// NewCollectionStore creates a store for namespace. An empty namespace uses
// trajectory.DefaultNamespace.
func NewCollectionStore(db Querier, namespace string) *CollectionStore {
	if namespace == "" {
		namespace = trajectory.DefaultNamespace
	}
	return &CollectionStore{db: db, namespace: namespace}
}

// Load reads the namespace document. A missing row is an empty collection.
func (s *CollectionStore) Load(ctx context.Context) (trajectory.Collection, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, loadDocumentSQL, s.namespace).Scan(&payload)
	if err != nil {
		if IsNoRows(err) {
			return trajectory.Collection{}, nil
		}
		return nil, fmt.Errorf("postgres: load %s: %w", s.namespace, err)
	}

	return persistence.Decode(payload)
}

// Save upserts the namespace document in a single statement.
func (s *CollectionStore) Save(ctx context.Context, c trajectory.Collection) error {
	payload, err := persistence.Encode(c)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, saveDocumentSQL, s.namespace, string(payload)); err != nil {
		return fmt.Errorf("postgres: save %s: %w", s.namespace, err)
	}
	return nil
}
