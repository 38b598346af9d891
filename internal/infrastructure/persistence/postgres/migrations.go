package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE ARCHIVE DOCUMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- One JSON document per archive namespace.
CREATE TABLE IF NOT EXISTS archive_documents (
    namespace VARCHAR(100) PRIMARY KEY,
    payload JSONB NOT NULL DEFAULT '[]'::jsonb,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT payload_is_array CHECK (jsonb_typeof(payload) = 'array')
);
`

const migration001Down = `
DROP TABLE IF EXISTS archive_documents;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: DOCUMENT HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// Keeps the previous payload of every save so an accidental deletion in the
// editor can be recovered by hand.
const migration002Up = `
CREATE TABLE IF NOT EXISTS archive_document_history (
    id BIGSERIAL PRIMARY KEY,
    namespace VARCHAR(100) NOT NULL,
    payload JSONB NOT NULL,
    replaced_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_archive_history_namespace
    ON archive_document_history(namespace, replaced_at DESC);

CREATE OR REPLACE FUNCTION archive_documents_keep_history()
RETURNS TRIGGER AS $$
BEGIN
    IF OLD.payload IS DISTINCT FROM NEW.payload THEN
        INSERT INTO archive_document_history (namespace, payload)
        VALUES (OLD.namespace, OLD.payload);
    END IF;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_archive_documents_history ON archive_documents;
CREATE TRIGGER trg_archive_documents_history
    BEFORE UPDATE ON archive_documents
    FOR EACH ROW EXECUTE FUNCTION archive_documents_keep_history();
`

const migration002Down = `
DROP TRIGGER IF EXISTS trg_archive_documents_history ON archive_documents;
DROP FUNCTION IF EXISTS archive_documents_keep_history();
DROP TABLE IF EXISTS archive_document_history;
`

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_archive_documents",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_archive_document_history",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

var ErrMigrationFailed = errors.New("postgres: migration failed")

// Migration is one schema step. AppliedAt and IsApplied are filled by Status.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

const (
	createMigrationTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	selectMigrationsSQL = `SELECT version, applied_at FROM schema_migrations ORDER BY version`
	insertMigrationSQL  = `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`
	deleteMigrationSQL  = `DELETE FROM schema_migrations WHERE version = $1`
)

type migrationDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// Migrator applies GetMigrations in version order, one transaction each.
type Migrator struct {
	db         migrationDB
	migrations []Migration
}

func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{db: conn, migrations: GetMigrations()}
}

// applied creates the bookkeeping table when needed and returns the applied
// versions with their timestamps.
func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	if _, err := m.db.Exec(ctx, createMigrationTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := m.db.Query(ctx, selectMigrationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	var (
		version int
		at      time.Time
		out     = make(map[int]time.Time)
	)
	_, err = pgx.ForEachRow(rows, []any{&version, &at}, func() error {
		out[version] = at
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration row: %w", err)
	}
	return out, nil
}

func (m *Migrator) Migrate(ctx context.Context) error {
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		err := m.db.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, insertMigrationSQL, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: %03d %s: %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
	}
	return nil
}

// Rollback reverts the highest applied version. Nothing applied is a no-op.
func (m *Migrator) Rollback(ctx context.Context) error {
	done, err := m.applied(ctx)
	if err != nil || len(done) == 0 {
		return err
	}

	last := slices.Max(mapKeys(done))
	i := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == last })
	if i < 0 || m.migrations[i].DownSQL == "" {
		return fmt.Errorf("%w: no down SQL for version %d", ErrMigrationFailed, last)
	}
	mig := m.migrations[i]

	return m.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
			return fmt.Errorf("%w: rollback %03d: %v", ErrMigrationFailed, last, err)
		}
		_, err := tx.Exec(ctx, deleteMigrationSQL, last)
		return err
	})
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(m.migrations)
	for i := range out {
		out[i].AppliedAt, out[i].IsApplied = done[out[i].Version]
	}
	return out, nil
}

func mapKeys(m map[int]time.Time) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
