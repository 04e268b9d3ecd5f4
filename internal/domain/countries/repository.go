package countries

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no country matches a name.
var ErrNotFound = errors.New("country not found")

type Repository interface {
	List(ctx context.Context, filter Filter) ([]Country, error)
	GetByName(ctx context.Context, name string) (*Country, error)
	DeleteByName(ctx context.Context, name string) error
	Count(ctx context.Context) (int, error)
	// TopByEstimate returns up to limit countries with a known estimate, highest first.
	TopByEstimate(ctx context.Context, limit int) ([]Country, error)
	Names(ctx context.Context) ([]string, error)
	LastRefreshedAt(ctx context.Context) (*time.Time, error)
	// UpsertAll writes records and the refresh status in one atomic unit. Either every
	// record is written or the store is left exactly as it was.
	UpsertAll(ctx context.Context, records []Country, opts UpsertOptions) (UpsertStats, error)
	Ping(ctx context.Context) error
}
