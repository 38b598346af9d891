package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence"
)

// DocumentCache is the subset of Cache the stores need.
type DocumentCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// PRIMARY STORE
// ══════════════════════════════════════════════════════════════════════════════

// CollectionStore implements trajectory.Store on a single Redis key.
type CollectionStore struct {
	cache DocumentCache
	key   string
}

// NewCollectionStore creates a store for namespace. An empty namespace uses
// trajectory.DefaultNamespace.
func NewCollectionStore(cache DocumentCache, namespace string) *CollectionStore {
	if namespace == "" {
		namespace = trajectory.DefaultNamespace
	}
	return &CollectionStore{cache: cache, key: ArchiveKey(namespace)}
}

// Load reads the document. A missing key is an empty collection.
func (s *CollectionStore) Load(ctx context.Context) (trajectory.Collection, error) {
	data, err := s.cache.GetBytes(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return trajectory.Collection{}, nil
		}
		return nil, fmt.Errorf("redis: load %s: %w", s.key, err)
	}
	return persistence.Decode(data)
}

// Save replaces the document with a single SET and no expiry.
func (s *CollectionStore) Save(ctx context.Context, c trajectory.Collection) error {
	data, err := persistence.Encode(c)
	if err != nil {
		return err
	}
	if err := s.cache.SetBytes(ctx, s.key, data, 0); err != nil {
		return fmt.Errorf("redis: save %s: %w", s.key, err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE-ASIDE DECORATOR
// ══════════════════════════════════════════════════════════════════════════════

// CachedStore serves Load from Redis when possible and falls back to the
// wrapped store. Cache errors never fail an operation; they are logged.
type CachedStore struct {
	next   trajectory.Store
	cache  DocumentCache
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps next with a cache entry that expires after ttl.
func NewCachedStore(next trajectory.Store, cache DocumentCache, namespace string, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if namespace == "" {
		namespace = trajectory.DefaultNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		next:   next,
		cache:  cache,
		key:    ArchiveKey(namespace) + ":cache",
		ttl:    ttl,
		logger: logger.With("component", "cached_store"),
	}
}

// Load returns the cached document when present and well formed.
func (s *CachedStore) Load(ctx context.Context) (trajectory.Collection, error) {
	data, err := s.cache.GetBytes(ctx, s.key)
	switch {
	case err == nil:
		coll, decodeErr := persistence.Decode(data)
		if decodeErr == nil {
			return coll, nil
		}
		s.logger.Warn("discarding malformed cache entry", "key", s.key, "error", decodeErr)
		_ = s.cache.Delete(ctx, s.key)
	case !errors.Is(err, ErrCacheMiss):
		s.logger.Warn("cache read failed", "key", s.key, "error", err)
	}

	coll, err := s.next.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, coll)
	return coll, nil
}

// Save writes through to the wrapped store, then refreshes the cache.
// On failure the cache entry is dropped so a later Load cannot serve a
// document the store never accepted.
func (s *CachedStore) Save(ctx context.Context, c trajectory.Collection) error {
	if err := s.next.Save(ctx, c); err != nil {
		if delErr := s.cache.Delete(ctx, s.key); delErr != nil {
			s.logger.Warn("cache invalidation failed", "key", s.key, "error", delErr)
		}
		return err
	}
	s.fill(ctx, c)
	return nil
}

func (s *CachedStore) fill(ctx context.Context, c trajectory.Collection) {
	data, err := persistence.Encode(c)
	if err != nil {
		return
	}
	if err := s.cache.SetBytes(ctx, s.key, data, s.ttl); err != nil {
		s.logger.Warn("cache write failed", "key", s.key, "error", err)
	}
}
