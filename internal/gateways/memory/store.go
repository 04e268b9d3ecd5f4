// Package memory is a process-local country store used by tests and by the
// "memory" db driver.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/countrycache/countrycache/internal/domain/countries"
)

type Store struct {
	mu          sync.RWMutex
	records     map[string]countries.Country
	nextID      int64
	refreshedAt *time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]countries.Country),
		nextID:  1,
	}
}

// Seed inserts records directly, bypassing refresh bookkeeping. Existing names are replaced.
func (s *Store) Seed(records ...countries.Country) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range records {
		key := countries.NormalizeName(c.Name)
		if prev, ok := s.records[key]; ok {
			c.ID = prev.ID
		} else {
			c.ID = s.nextID
			s.nextID++
		}
		s.records[key] = c
	}
}

// MarkRefreshed sets the dataset-level refresh timestamp.
func (s *Store) MarkRefreshed(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t = t.UTC()
	s.refreshedAt = &t
}

func (s *Store) List(_ context.Context, filter countries.Filter) ([]countries.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]countries.Country, 0, len(s.records))
	for _, c := range s.records {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	countries.SortCountries(out, filter.Sort)
	return out, nil
}

func (s *Store) GetByName(_ context.Context, name string) (*countries.Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.records[countries.NormalizeName(name)]
	if !ok {
		return nil, countries.ErrNotFound
	}
	return &c, nil
}

func (s *Store) DeleteByName(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := countries.NormalizeName(name)
	if _, ok := s.records[key]; !ok {
		return countries.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Store) TopByEstimate(_ context.Context, limit int) ([]countries.Country, error) {
	s.mu.RLock()
	out := make([]countries.Country, 0, len(s.records))
	for _, c := range s.records {
		if c.EstimatedGDP != nil {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	countries.SortCountries(out, countries.SortGDPDesc)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for _, c := range s.records {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Store) LastRefreshedAt(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.refreshedAt == nil {
		return nil, nil
	}
	t := *s.refreshedAt
	return &t, nil
}

// UpsertAll builds the next generation of the dataset aside and swaps it in only once
// every record has been validated, so readers see either the old or the new data.
func (s *Store) UpsertAll(ctx context.Context, records []countries.Country, opts countries.UpsertOptions) (countries.UpsertStats, error) {
	var stats countries.UpsertStats

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return stats, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	refreshedAt := opts.RefreshedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]countries.Country, len(s.records)+len(records))
	for k, v := range s.records {
		next[k] = v
	}
	nextID := s.nextID

	seen := make(map[string]struct{}, len(records))
	for _, c := range records {
		key := countries.NormalizeName(c.Name)
		c.LastRefreshedAt = refreshedAt
		if prev, ok := next[key]; ok {
			c.ID = prev.ID
			if _, dup := seen[key]; !dup {
				stats.Updated++
			}
		} else {
			c.ID = nextID
			nextID++
			stats.Inserted++
		}
		next[key] = c
		seen[key] = struct{}{}
	}

	if opts.PruneMissing {
		for key := range next {
			if _, ok := seen[key]; !ok {
				delete(next, key)
				stats.Deleted++
			}
		}
	}

	s.records = next
	s.nextID = nextID
	s.refreshedAt = &refreshedAt
	return stats, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

var _ countries.Repository = (*Store)(nil)
