package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence/memory"
)

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
	failSet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) GetBytes(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, errors.New("i/o timeout")
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("i/o timeout")
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type failingStore struct{ err error }

func (s failingStore) Load(context.Context) (trajectory.Collection, error) { return nil, s.err }
func (s failingStore) Save(context.Context, trajectory.Collection) error   { return s.err }

func sampleCollection() trajectory.Collection {
	return trajectory.Collection{{
		ID: "1", DNI: "50.828.593", FullName: "MANQUILLAN ARÒM IGNACIO", Course: "1°2° - T.T.",
		Trajectory: trajectory.NewTrajectory(trajectory.DefaultSchema()),
	}}
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "archive:escolar_db_v1", ArchiveKey(trajectory.DefaultNamespace))
}

func TestCollectionStore(t *testing.T) {
	cache := newFakeCache()
	store := NewCollectionStore(cache, "")

	empty, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Save(context.Background(), sampleCollection()))
	assert.Equal(t, time.Duration(0), cache.ttls["archive:escolar_db_v1"])

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "50.828.593", loaded[0].DNI)

	cache.data["archive:escolar_db_v1"] = []byte("{{")
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, shared.ErrMalformedState)

	cache.failGet = true
	_, err = store.Load(context.Background())
	assert.Error(t, err)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	cache := newFakeCache()
	backing := memory.NewStore()
	require.NoError(t, backing.Save(context.Background(), sampleCollection()))

	store := NewCachedStore(backing, cache, "ns", time.Minute, nil)

	first, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Contains(t, cache.data, "archive:ns:cache")
	assert.Equal(t, time.Minute, cache.ttls["archive:ns:cache"])

	// served from cache even after the backing store changes underneath
	require.NoError(t, backing.Save(context.Background(), trajectory.Collection{}))
	second, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 1)
}

func TestCachedStore_WriteThroughAndFailures(t *testing.T) {
	cache := newFakeCache()
	backing := memory.NewStore()
	store := NewCachedStore(backing, cache, "ns", time.Minute, nil)

	require.NoError(t, store.Save(context.Background(), sampleCollection()))
	assert.Equal(t, 1, backing.Saves())
	assert.Contains(t, cache.data, "archive:ns:cache")

	// cache outages are tolerated
	cache.failGet, cache.failSet = true, true
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	cache.failGet, cache.failSet = false, false

	// a malformed entry is dropped and the backing store is used
	cache.data["archive:ns:cache"] = []byte("not json")
	loaded, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	broken := NewCachedStore(failingStore{err: errors.New("disk full")}, cache, "ns", time.Minute, nil)
	err = broken.Save(context.Background(), trajectory.Collection{})
	assert.ErrorContains(t, err, "disk full")
	assert.NotContains(t, cache.data, "archive:ns:cache")

	_, err = broken.Load(context.Background())
	assert.ErrorContains(t, err, "disk full")
}
