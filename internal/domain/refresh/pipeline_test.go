package refresh_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/countrycache/countrycache/internal/domain/countries"
	"github.com/countrycache/countrycache/internal/domain/refresh"
	"github.com/countrycache/countrycache/internal/domain/refresh/mock"
	"github.com/countrycache/countrycache/internal/gateways/memory"
)

var fixedNow = time.Date(2025, 10, 22, 18, 30, 0, 0, time.UTC)

func pop(n int64) *int64 { return &n }

var catalog = []refresh.RawCountry{
	{Name: "Testland", Capital: "Test City", Region: "Africa", Population: pop(1000), FlagURL: "https://flags.example/t.svg", CurrencyCodes: []string{"TST", "USD"}},
	{Name: "Nocoin", Region: "Oceania", Population: pop(50)},
	{Name: "Mystery", Population: pop(10), CurrencyCodes: []string{"XXX"}},
	{Name: "  ", Population: pop(1)},
	{Name: "Ghostland", Population: nil, CurrencyCodes: []string{"TST"}},
	{Name: "Minus", Population: pop(-5), CurrencyCodes: []string{""}},
	{Name: "TESTLAND", Region: "Europe", Population: pop(4000), CurrencyCodes: []string{"TST"}},
}

var rates = map[string]float64{"TST": 2, "USD": 1}

type fixture struct {
	countries *mock.MockCountrySource
	rates     *mock.MockRateSource
	summary   *mock.MockSummaryGenerator
	store     *memory.Store
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	return &fixture{
		countries: mock.NewMockCountrySource(ctrl),
		rates:     mock.NewMockRateSource(ctrl),
		summary:   mock.NewMockSummaryGenerator(ctrl),
		store:     memory.NewStore(),
	}
}

func (f *fixture) pipeline(opts ...refresh.Option) *refresh.Pipeline {
	opts = append([]refresh.Option{refresh.WithClock(func() time.Time { return fixedNow })}, opts...)
	return refresh.NewPipeline(f.countries, f.rates, f.store, refresh.NewEstimator(refresh.FixedFactor(1500)), f.summary, opts...)
}

func TestPipeline_RefreshSuccess(t *testing.T) {
	f := newFixture(t)
	f.countries.EXPECT().FetchCountries(gomock.Any()).Return(catalog, nil)
	f.rates.EXPECT().FetchRates(gomock.Any()).Return(rates, nil)
	f.summary.EXPECT().Generate(gomock.Any()).Return(nil)

	p := f.pipeline()
	res, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Records != 5 || res.Skipped != 1 {
		t.Errorf("Refresh() records = %d skipped = %d, want 5 and 1", res.Records, res.Skipped)
	}
	if res.RunID == "" || !res.RefreshedAt.Equal(fixedNow) || len(res.Warnings) != 0 {
		t.Errorf("Refresh() result = %+v", res)
	}
	if p.State() != refresh.StateDone {
		t.Errorf("State() = %q, want done", p.State())
	}

	ctx := context.Background()
	tests := []struct {
		name     string
		gdp      *float64
		rate     *float64
		currency *string
		pop      int64
	}{
		// the later TESTLAND entry wins
		{name: "testland", gdp: ptr(3000000), rate: ptr(2), currency: str("TST"), pop: 4000},
		{name: "Nocoin", gdp: ptr(0), pop: 50},
		{name: "Mystery", gdp: nil, currency: str("XXX"), pop: 10},
		{name: "Ghostland", gdp: ptr(0), rate: ptr(2), currency: str("TST"), pop: 0},
		{name: "Minus", gdp: ptr(0), pop: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := f.store.GetByName(ctx, tt.name)
			if err != nil {
				t.Fatalf("GetByName(%q) error = %v", tt.name, err)
			}
			if !reflect.DeepEqual(c.EstimatedGDP, tt.gdp) {
				t.Errorf("EstimatedGDP = %v, want %v", deref(c.EstimatedGDP), deref(tt.gdp))
			}
			if !reflect.DeepEqual(c.ExchangeRate, tt.rate) {
				t.Errorf("ExchangeRate = %v, want %v", deref(c.ExchangeRate), deref(tt.rate))
			}
			if !reflect.DeepEqual(c.CurrencyCode, tt.currency) {
				t.Errorf("CurrencyCode = %v, want %v", c.CurrencyCode, tt.currency)
			}
			if c.Population != tt.pop {
				t.Errorf("Population = %d, want %d", c.Population, tt.pop)
			}
			if !c.LastRefreshedAt.Equal(fixedNow) {
				t.Errorf("LastRefreshedAt = %v", c.LastRefreshedAt)
			}
		})
	}

	if n, _ := f.store.Count(ctx); n != 5 {
		t.Errorf("Count() = %d, want 5", n)
	}
	if last, _ := f.store.LastRefreshedAt(ctx); last == nil || !last.Equal(fixedNow) {
		t.Errorf("LastRefreshedAt() = %v", last)
	}
}

func TestPipeline_FetchFailureLeavesStoreUntouched(t *testing.T) {
	tests := []struct {
		name       string
		countryErr error
		rateErr    error
		emptyRates bool
		wantSource string
	}{
		{name: "Catalog down", countryErr: errors.New("503 Service Unavailable"), wantSource: refresh.SourceCountries},
		{name: "Rates timeout", rateErr: context.DeadlineExceeded, wantSource: refresh.SourceRates},
		{name: "Rates empty", emptyRates: true, wantSource: refresh.SourceRates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.Seed(countries.Country{Name: "Oldland", Population: 7})

			if tt.countryErr != nil {
				f.countries.EXPECT().FetchCountries(gomock.Any()).Return(nil, tt.countryErr)
			} else {
				f.countries.EXPECT().FetchCountries(gomock.Any()).Return(catalog, nil)
			}
			switch {
			case tt.rateErr != nil:
				f.rates.EXPECT().FetchRates(gomock.Any()).Return(nil, tt.rateErr)
			case tt.emptyRates:
				f.rates.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{}, nil)
			default:
				f.rates.EXPECT().FetchRates(gomock.Any()).Return(rates, nil).AnyTimes()
			}

			p := f.pipeline()
			res, err := p.Refresh(context.Background())
			if res != nil {
				t.Errorf("Refresh() result = %+v, want nil", res)
			}
			if !errors.Is(err, refresh.ErrExternalSourceUnavailable) {
				t.Fatalf("Refresh() error = %v, want ErrExternalSourceUnavailable", err)
			}
			var srcErr *refresh.SourceUnavailableError
			if !errors.As(err, &srcErr) || srcErr.Source != tt.wantSource {
				t.Errorf("Refresh() error source = %v, want %q", err, tt.wantSource)
			}
			if tt.rateErr != nil && !errors.Is(err, tt.rateErr) {
				t.Errorf("Refresh() lost the cause: %v", err)
			}
			if p.State() != refresh.StateFailed {
				t.Errorf("State() = %q, want failed", p.State())
			}

			list, _ := f.store.List(context.Background(), countries.Filter{})
			if len(list) != 1 || list[0].Name != "Oldland" {
				t.Errorf("store changed after failed fetch: %+v", list)
			}
			if last, _ := f.store.LastRefreshedAt(context.Background()); last != nil {
				t.Errorf("LastRefreshedAt() = %v, want nil", last)
			}
		})
	}
}

func TestPipeline_CommitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	countrySrc := mock.NewMockCountrySource(ctrl)
	rateSrc := mock.NewMockRateSource(ctrl)
	store := mock.NewMockStore(ctrl)
	summary := mock.NewMockSummaryGenerator(ctrl)

	countrySrc.EXPECT().FetchCountries(gomock.Any()).Return(catalog, nil)
	rateSrc.EXPECT().FetchRates(gomock.Any()).Return(rates, nil)
	dbErr := errors.New("deadlock detected")
	store.EXPECT().
		UpsertAll(gomock.Any(), gomock.Len(5), countries.UpsertOptions{RefreshedAt: fixedNow, PruneMissing: false}).
		Return(countries.UpsertStats{}, dbErr)
	// summary must not run after a failed commit
	summary.EXPECT().Generate(gomock.Any()).Times(0)

	p := refresh.NewPipeline(countrySrc, rateSrc, store, refresh.NewEstimator(refresh.FixedFactor(1000)), summary,
		refresh.WithClock(func() time.Time { return fixedNow }),
		refresh.WithPruneMissing(false))

	_, err := p.Refresh(context.Background())
	if !errors.Is(err, refresh.ErrPersistence) || !errors.Is(err, dbErr) {
		t.Fatalf("Refresh() error = %v, want ErrPersistence wrapping %v", err, dbErr)
	}
	if p.State() != refresh.StateFailed {
		t.Errorf("State() = %q, want failed", p.State())
	}
}

func TestPipeline_SummaryFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	notifier := mock.NewMockNotifier(gomock.NewController(t))

	f.countries.EXPECT().FetchCountries(gomock.Any()).Return(catalog, nil)
	f.rates.EXPECT().FetchRates(gomock.Any()).Return(rates, nil)
	f.summary.EXPECT().Generate(gomock.Any()).Return(errors.New("disk full"))
	notifier.EXPECT().RefreshCompleted(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r refresh.Result) error {
			if r.Records != 5 || len(r.Warnings) != 1 {
				t.Errorf("notifier got %+v", r)
			}
			return errors.New("webhook 404")
		})

	res, err := f.pipeline(refresh.WithNotifier(notifier)).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("Warnings = %v, want summary and notification warnings", res.Warnings)
	}
	if n, _ := f.store.Count(context.Background()); n != 5 {
		t.Errorf("data not committed: Count() = %d", n)
	}
}

func TestPipeline_RejectsOverlappingRefresh(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})

	f.countries.EXPECT().FetchCountries(gomock.Any()).
		DoAndReturn(func(context.Context) ([]refresh.RawCountry, error) {
			close(started)
			<-release
			return catalog, nil
		})
	f.rates.EXPECT().FetchRates(gomock.Any()).Return(rates, nil)
	f.summary.EXPECT().Generate(gomock.Any()).Return(nil)

	p := f.pipeline()
	done := make(chan error, 1)
	go func() {
		_, err := p.Refresh(context.Background())
		done <- err
	}()

	<-started
	if p.State() != refresh.StateFetching {
		t.Errorf("State() = %q, want fetching", p.State())
	}
	if _, err := p.Refresh(context.Background()); !errors.Is(err, refresh.ErrRefreshInProgress) {
		t.Errorf("second Refresh() error = %v, want ErrRefreshInProgress", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
}

func TestPipeline_PrunesMissingRecords(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(countries.Country{Name: "Oldland"}, countries.Country{Name: "Testland", Population: 1})
	before, _ := f.store.GetByName(context.Background(), "Testland")

	f.countries.EXPECT().FetchCountries(gomock.Any()).Return(catalog, nil)
	f.rates.EXPECT().FetchRates(gomock.Any()).Return(rates, nil)
	f.summary.EXPECT().Generate(gomock.Any()).Return(nil)

	res, err := f.pipeline().Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Deleted != 1 || res.Stats.Updated != 1 || res.Stats.Inserted != 4 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if _, err := f.store.GetByName(context.Background(), "Oldland"); !errors.Is(err, countries.ErrNotFound) {
		t.Errorf("Oldland survived pruning: %v", err)
	}
	after, _ := f.store.GetByName(context.Background(), "Testland")
	if after.ID != before.ID {
		t.Errorf("Testland id changed %d -> %d", before.ID, after.ID)
	}
}

func ptr(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
