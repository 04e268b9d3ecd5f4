package countries

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

type Service interface {
	List(ctx context.Context, filter Filter) ([]Country, error)
	Get(ctx context.Context, name string) (*Country, error)
	Delete(ctx context.Context, name string) error
	Status(ctx context.Context) (Status, error)
	Suggest(ctx context.Context, name string, limit int) []string
}

type service struct {
	repository Repository
}

func NewService(repository Repository) *service {
	return &service{
		repository: repository,
	}
}

func (s *service) List(ctx context.Context, filter Filter) ([]Country, error) {
	filter.Region = strings.TrimSpace(filter.Region)
	filter.Currency = strings.TrimSpace(filter.Currency)

	list, err := s.repository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	if list == nil {
		list = []Country{}
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, name string) (*Country, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	return s.repository.GetByName(ctx, name)
}

func (s *service) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNotFound
	}
	return s.repository.DeleteByName(ctx, name)
}

func (s *service) Status(ctx context.Context) (Status, error) {
	total, err := s.repository.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to count countries: %w", err)
	}
	last, err := s.repository.LastRefreshedAt(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read refresh status: %w", err)
	}
	return Status{TotalCountries: total, LastRefreshedAt: last}, nil
}

// Suggest returns up to limit stored names that fuzzily match name, best first.
// Lookup failures yield no suggestions rather than an error.
func (s *service) Suggest(ctx context.Context, name string, limit int) []string {
	name = strings.TrimSpace(name)
	if name == "" || limit <= 0 {
		return nil
	}
	names, err := s.repository.Names(ctx)
	if err != nil || len(names) == 0 {
		return nil
	}

	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	matches := fuzzy.Find(strings.ToLower(name), lowered)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	suggestions := make([]string, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, names[m.Index])
	}
	return suggestions
}
