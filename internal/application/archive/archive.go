// Package archive owns the single in-memory snapshot of the student
// collection and its persistence lifecycle: load once at start-up, save after
// every change.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// SeedStudent is created when the archive opens with no students.
func SeedStudent(schema *trajectory.Schema) trajectory.Student {
	return trajectory.Student{
		ID:         "1",
		DNI:        "50.828.593",
		FullName:   "MANQUILLAN ARÒM IGNACIO",
		Course:     "1°2° - T.T.",
		Shift:      "",
		Trajectory: trajectory.NewTrajectory(schema),
	}
}

// Config configures an Archive.
type Config struct {
	// Seed inserts SeedStudent when the loaded collection is empty.
	Seed bool

	Logger *slog.Logger
}

// Archive holds the current collection. Reads return immutable snapshots;
// writes go through Apply, which persists the whole collection before the
// new snapshot becomes visible.
type Archive struct {
	store  trajectory.Store
	schema *trajectory.Schema
	logger *slog.Logger

	writeMu sync.Mutex // serialises Apply

	mu      sync.RWMutex
	current trajectory.Collection
}

// Open loads the collection from store. A load failure is not fatal: it is
// logged and the archive starts empty.
func Open(ctx context.Context, store trajectory.Store, schema *trajectory.Schema, cfg Config) *Archive {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &Archive{
		store:  store,
		schema: schema,
		logger: cfg.Logger.With("component", "archive"),
	}

	coll, err := store.Load(ctx)
	if err != nil {
		a.logger.Warn("failed to load collection, starting empty", "error", err)
		coll = trajectory.Collection{}
	}
	if coll == nil {
		coll = trajectory.Collection{}
	}
	a.current = coll

	if cfg.Seed && len(coll) == 0 {
		seeded := coll.Add(SeedStudent(schema))
		if err := store.Save(ctx, seeded); err != nil {
			a.logger.Warn("failed to persist seed student", "error", err)
		}
		a.current = seeded
		a.logger.Info("archive seeded", "students", len(seeded))
	}

	a.logger.Info("archive opened", "students", len(a.current))
	return a
}

// Snapshot returns the current collection. Callers must not modify it.
func (a *Archive) Snapshot() trajectory.Collection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Schema returns the subject schema of the archive.
func (a *Archive) Schema() *trajectory.Schema {
	return a.schema
}

// Mutation computes the next collection from the current one.
type Mutation func(trajectory.Collection) (trajectory.Collection, error)

// Apply runs fn against the current collection, saves the result and
// publishes it. When fn or the save fails, the current snapshot is kept.
func (a *Archive) Apply(ctx context.Context, op string, fn Mutation) (trajectory.Collection, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	next, err := fn(a.Snapshot())
	if err != nil {
		return nil, err
	}

	if err := a.store.Save(ctx, next); err != nil {
		a.logger.Error("failed to save collection", "operation", op, "error", err)
		return nil, fmt.Errorf("%s: save collection: %w", op, err)
	}

	a.mu.Lock()
	a.current = next
	a.mu.Unlock()

	a.logger.Debug("collection saved", "operation", op, "students", len(next))
	return next, nil
}
