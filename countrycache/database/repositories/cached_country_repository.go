package repositories

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/internal/domain/countries"
)

// cachedCountryRepository keeps single-country lookups in an LRU keyed by normalized name.
// Deletes evict their key and any successful refresh write purges the cache.
//
// Every eviction bumps gen. A lookup only fills the cache when gen is unchanged since
// its read began, so a row read before a write can never be cached after it.
type cachedCountryRepository struct {
	countries.Repository
	cache *lru.Cache

	mu  sync.Mutex
	gen uint64
}

func NewCachedCountryRepository(inner countries.Repository, size int) countries.Repository {
	if size <= 0 {
		size = config.DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		slog.Warn("Country cache disabled",
			slog.String("type", "db"),
			slog.Any("error", err))
		return inner
	}
	return &cachedCountryRepository{Repository: inner, cache: cache}
}

func (r *cachedCountryRepository) GetByName(ctx context.Context, name string) (*countries.Country, error) {
	key := countries.NormalizeName(name)
	if cached, ok := r.cache.Get(key); ok {
		if c, ok := cached.(countries.Country); ok {
			return &c, nil
		}
	}

	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	c, err := r.Repository.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.gen == gen {
		r.cache.Add(key, *c)
	}
	r.mu.Unlock()
	return c, nil
}

func (r *cachedCountryRepository) DeleteByName(ctx context.Context, name string) error {
	key := countries.NormalizeName(name)
	r.evict(key)
	err := r.Repository.DeleteByName(ctx, name)
	r.evict(key)
	return err
}

func (r *cachedCountryRepository) UpsertAll(ctx context.Context, records []countries.Country, opts countries.UpsertOptions) (countries.UpsertStats, error) {
	stats, err := r.Repository.UpsertAll(ctx, records, opts)
	if err == nil {
		r.evict("")
	}
	return stats, err
}

// evict drops key, or the whole cache when key is empty.
func (r *cachedCountryRepository) evict(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if key == "" {
		r.cache.Purge()
		return
	}
	r.cache.Remove(key)
}
