package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence/memory"
)

type failingStore struct {
	loadErr error
	saveErr error
	saved   int
}

func (s *failingStore) Load(context.Context) (trajectory.Collection, error) {
	return nil, s.loadErr
}

func (s *failingStore) Save(context.Context, trajectory.Collection) error {
	s.saved++
	return s.saveErr
}

func TestOpen_SeedsEmptyArchive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	a := Open(ctx, store, trajectory.DefaultSchema(), Config{Seed: true})

	snap := a.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "1", snap[0].ID)
	assert.Equal(t, "MANQUILLAN ARÒM IGNACIO", snap[0].FullName)
	assert.Equal(t, 1, store.Saves())

	// a second open finds the persisted seed and does not add another
	b := Open(ctx, store, trajectory.DefaultSchema(), Config{Seed: true})
	assert.Len(t, b.Snapshot(), 1)
	assert.Equal(t, 1, store.Saves())
}

func TestOpen_MalformedStateStartsEmpty(t *testing.T) {
	store := memory.NewStoreWithDocument([]byte(`{{{`))

	a := Open(context.Background(), store, trajectory.DefaultSchema(), Config{})
	assert.NotNil(t, a.Snapshot())
	assert.Empty(t, a.Snapshot())
}

func TestOpen_LoadErrorStartsEmpty(t *testing.T) {
	store := &failingStore{loadErr: errors.New("connection refused")}

	a := Open(context.Background(), store, trajectory.DefaultSchema(), Config{})
	assert.Empty(t, a.Snapshot())
}

func TestApply_PersistsEveryChange(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a := Open(ctx, store, trajectory.DefaultSchema(), Config{Seed: true})

	next, err := a.Apply(ctx, "rename", func(c trajectory.Collection) (trajectory.Collection, error) {
		return c.UpdateHeaderField("1", trajectory.FieldFullName, "RENOMBRADO")
	})
	require.NoError(t, err)
	assert.Equal(t, "RENOMBRADO", next[0].FullName)
	assert.Equal(t, next, a.Snapshot())

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "RENOMBRADO", persisted[0].FullName)
}

func TestApply_MutationErrorKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a := Open(ctx, store, trajectory.DefaultSchema(), Config{Seed: true})
	before := a.Snapshot()

	_, err := a.Apply(ctx, "update", func(c trajectory.Collection) (trajectory.Collection, error) {
		return c.UpdateHeaderField("missing", trajectory.FieldDNI, "1")
	})
	assert.Error(t, err)
	assert.Equal(t, before, a.Snapshot())
	assert.Equal(t, 1, store.Saves())
}

func TestApply_SaveErrorKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{saveErr: errors.New("disk full")}
	a := Open(ctx, store, trajectory.DefaultSchema(), Config{})

	_, err := a.Apply(ctx, "create", func(c trajectory.Collection) (trajectory.Collection, error) {
		return c.Add(trajectory.Student{ID: "x"}), nil
	})
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, a.Snapshot())
}
