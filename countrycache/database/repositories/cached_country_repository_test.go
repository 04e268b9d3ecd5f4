package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/countrycache/countrycache/internal/domain/countries"
	"github.com/countrycache/countrycache/internal/domain/countries/mock"
)

func TestCachedCountryRepository_GetByNameHitsInnerOnce(t *testing.T) {
	inner := mock.NewMockRepository(gomock.NewController(t))
	inner.EXPECT().GetByName(gomock.Any(), "Testland").Return(&mock.Countries[0], nil).Times(1)

	repo := NewCachedCountryRepository(inner, 8)
	for _, name := range []string{"Testland", "testland", " TESTLAND "} {
		got, err := repo.GetByName(context.Background(), name)
		if err != nil {
			t.Fatalf("GetByName(%q) error = %v", name, err)
		}
		if got.Name != "Testland" {
			t.Errorf("GetByName(%q) = %q", name, got.Name)
		}
	}
}

func TestCachedCountryRepository_NotFoundIsNotCached(t *testing.T) {
	inner := mock.NewMockRepository(gomock.NewController(t))
	inner.EXPECT().GetByName(gomock.Any(), "Atlantis").Return(nil, countries.ErrNotFound).Times(2)

	repo := NewCachedCountryRepository(inner, 8)
	for i := 0; i < 2; i++ {
		if _, err := repo.GetByName(context.Background(), "Atlantis"); !errors.Is(err, countries.ErrNotFound) {
			t.Fatalf("GetByName() error = %v, want ErrNotFound", err)
		}
	}
}

func TestCachedCountryRepository_DeleteEvicts(t *testing.T) {
	inner := mock.NewMockRepository(gomock.NewController(t))
	gomock.InOrder(
		inner.EXPECT().GetByName(gomock.Any(), "Testland").Return(&mock.Countries[0], nil),
		inner.EXPECT().DeleteByName(gomock.Any(), "Testland").Return(nil),
		inner.EXPECT().GetByName(gomock.Any(), "Testland").Return(nil, countries.ErrNotFound),
	)

	repo := NewCachedCountryRepository(inner, 8)
	if _, err := repo.GetByName(context.Background(), "Testland"); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteByName(context.Background(), "Testland"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByName(context.Background(), "Testland"); !errors.Is(err, countries.ErrNotFound) {
		t.Fatalf("GetByName() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCachedCountryRepository_UpsertPurges(t *testing.T) {
	inner := mock.NewMockRepository(gomock.NewController(t))
	opts := countries.UpsertOptions{RefreshedAt: time.Now()}

	gomock.InOrder(
		inner.EXPECT().GetByName(gomock.Any(), "Testland").Return(&mock.Countries[0], nil),
		inner.EXPECT().UpsertAll(gomock.Any(), gomock.Any(), opts).Return(countries.UpsertStats{}, errors.New("tx aborted")),
		inner.EXPECT().UpsertAll(gomock.Any(), gomock.Any(), opts).Return(countries.UpsertStats{Updated: 1}, nil),
		inner.EXPECT().GetByName(gomock.Any(), "Testland").Return(&mock.Countries[0], nil),
	)

	repo := NewCachedCountryRepository(inner, 8)
	ctx := context.Background()
	_, _ = repo.GetByName(ctx, "Testland")

	// a failed write keeps the cache
	_, _ = repo.UpsertAll(ctx, nil, opts)
	_, _ = repo.GetByName(ctx, "Testland")

	if _, err := repo.UpsertAll(ctx, nil, opts); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByName(ctx, "Testland"); err != nil {
		t.Fatal(err)
	}
}

// blockedRead starts a GetByName whose inner read returns stale once release is closed.
// It returns after the inner read has begun.
func blockedRead(t *testing.T, repo countries.Repository, inner *mock.MockRepository, stale countries.Country) (release chan struct{}, done chan *countries.Country) {
	t.Helper()
	entered := make(chan struct{})
	release = make(chan struct{})
	done = make(chan *countries.Country, 1)

	inner.EXPECT().GetByName(gomock.Any(), "Testland").DoAndReturn(
		func(context.Context, string) (*countries.Country, error) {
			close(entered)
			<-release
			return &stale, nil
		})

	go func() {
		c, err := repo.GetByName(context.Background(), "Testland")
		if err != nil {
			t.Errorf("GetByName() error = %v", err)
		}
		done <- c
	}()
	<-entered
	return release, done
}

func TestCachedCountryRepository_ReadRacingUpsertIsNotCached(t *testing.T) {
	inner := mock.NewMockRepository(gomock.NewController(t))
	repo := NewCachedCountryRepository(inner, 8)
	ctx := context.Background()

	before := mock.Countries[0]
	before.Population = 1
	after := mock.Countries[0]
	after.Population = 2

	release, done := blockedRead(t, repo, inner, before)

	inner.EXPECT().UpsertAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(countries.UpsertStats{Updated: 1}, nil)
	if _, err := repo.UpsertAll(ctx, []countries.Country{after}, countries.UpsertOptions{}); err != nil {
		t.Fatal(err)
	}
	close(release)
	<-done

	inner.EXPECT().GetByName(gomock.Any(), "Testland").Return(&after, nil)
	got, err := repo.GetByName(ctx, "Testland")
	if err != nil {
		t.Fatal(err)
	}
	if got.Population != 2 {
		t.Errorf("population = %d after refresh, want 2", got.Population)
	}
}

func TestCachedCountryRepository_ReadRacingDeleteIsNotCached(t *testing.T) {
	inner := mock.NewMockRepository(gomock.NewController(t))
	repo := NewCachedCountryRepository(inner, 8)
	ctx := context.Background()

	release, done := blockedRead(t, repo, inner, mock.Countries[0])

	inner.EXPECT().DeleteByName(gomock.Any(), "Testland").Return(nil)
	if err := repo.DeleteByName(ctx, "Testland"); err != nil {
		t.Fatal(err)
	}
	close(release)
	<-done

	inner.EXPECT().GetByName(gomock.Any(), "Testland").Return(nil, countries.ErrNotFound)
	if _, err := repo.GetByName(ctx, "Testland"); !errors.Is(err, countries.ErrNotFound) {
		t.Fatalf("GetByName() after delete error = %v, want ErrNotFound", err)
	}
}
