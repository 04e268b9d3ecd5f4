package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/countrycache/logger"
	"github.com/countrycache/countrycache/internal/domain/countries"
)

type State string

const (
	StateIdle         State = "idle"
	StateFetching     State = "fetching"
	StateTransforming State = "transforming"
	StateCommitting   State = "committing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// RawCountry is one catalog entry as delivered upstream, before normalization.
type RawCountry struct {
	Name          string
	Capital       string
	Region        string
	Population    *int64
	FlagURL       string
	CurrencyCodes []string
}

type CountrySource interface {
	FetchCountries(ctx context.Context) ([]RawCountry, error)
}

type RateSource interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

type Store interface {
	UpsertAll(ctx context.Context, records []countries.Country, opts countries.UpsertOptions) (countries.UpsertStats, error)
}

type SummaryGenerator interface {
	Generate(ctx context.Context) error
}

type Notifier interface {
	RefreshCompleted(ctx context.Context, result Result) error
}

// Result describes one successful refresh cycle.
type Result struct {
	RunID       string
	Records     int
	Skipped     int
	Stats       countries.UpsertStats
	RefreshedAt time.Time
	Took        time.Duration
	// Warnings holds post-commit failures. The data was committed regardless.
	Warnings []string
}

type Option func(*Pipeline)

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithPruneMissing(prune bool) Option {
	return func(p *Pipeline) { p.prune = prune }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

type Pipeline struct {
	countries CountrySource
	rates     RateSource
	store     Store
	estimator *Estimator
	summary   SummaryGenerator
	notifier  Notifier
	prune     bool
	now       func() time.Time

	sem   *semaphore.Weighted
	mu    sync.RWMutex
	state State
}

func NewPipeline(countrySource CountrySource, rateSource RateSource, store Store, estimator *Estimator, summary SummaryGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{
		countries: countrySource,
		rates:     rateSource,
		store:     store,
		estimator: estimator,
		summary:   summary,
		prune:     true,
		now:       time.Now,
		sem:       semaphore.NewWeighted(1),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports the phase of the current or most recent cycle.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Refresh runs one full cycle. Only one cycle runs at a time; a call made while another is
// in flight fails with ErrRefreshInProgress. Nothing is written unless both upstream fetches
// succeed, and the write itself is a single atomic unit.
func (p *Pipeline) Refresh(ctx context.Context) (*Result, error) {
	if !p.sem.TryAcquire(1) {
		return nil, ErrRefreshInProgress
	}
	defer p.sem.Release(1)

	start := p.now()
	runID := snowflake.New(start).String()
	log := slog.With(slog.String("type", "refresh"), slog.String("run_id", runID))

	p.setState(StateFetching)
	log.Debug("Fetching upstream data")
	raw, rates, err := p.fetch(ctx)
	if err != nil {
		p.setState(StateFailed)
		logger.LogRefresh(runID, time.Since(start), 0, err)
		return nil, err
	}

	p.setState(StateTransforming)
	records, skipped := p.transform(raw, rates)
	if skipped > 0 {
		log.Warn("Skipped catalog entries", slog.Int("skipped", skipped))
	}

	p.setState(StateCommitting)
	refreshedAt := p.now().UTC()
	stats, err := p.store.UpsertAll(ctx, records, countries.UpsertOptions{
		RefreshedAt:  refreshedAt,
		PruneMissing: p.prune,
	})
	if err != nil {
		p.setState(StateFailed)
		err = &PersistenceError{Err: err}
		logger.LogRefresh(runID, time.Since(start), len(records), err)
		return nil, err
	}

	result := &Result{
		RunID:       runID,
		Records:     len(records),
		Skipped:     skipped,
		Stats:       stats,
		RefreshedAt: refreshedAt,
	}

	if p.summary != nil {
		if err := p.summary.Generate(ctx); err != nil {
			log.Warn("Summary image not regenerated", slog.Any("error", err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("summary image not regenerated: %v", err))
		}
	}

	result.Took = time.Since(start)
	p.setState(StateDone)
	logger.LogRefresh(runID, result.Took, result.Records, nil)

	if p.notifier != nil {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.NotifyTimeout)
		if err := p.notifier.RefreshCompleted(nctx, *result); err != nil {
			log.Warn("Refresh notification failed", slog.Any("error", err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("notification not delivered: %v", err))
		}
		cancel()
	}

	return result, nil
}

// fetch loads both upstream datasets concurrently. The first failure cancels the other call.
func (p *Pipeline) fetch(ctx context.Context) ([]RawCountry, map[string]float64, error) {
	var (
		raw   []RawCountry
		rates map[string]float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := p.countries.FetchCountries(gctx)
		if err != nil {
			return &SourceUnavailableError{Source: SourceCountries, Err: err}
		}
		if len(list) == 0 {
			return &SourceUnavailableError{Source: SourceCountries, Err: errors.New("catalog is empty")}
		}
		raw = list
		return nil
	})
	g.Go(func() error {
		table, err := p.rates.FetchRates(gctx)
		if err != nil {
			return &SourceUnavailableError{Source: SourceRates, Err: err}
		}
		if len(table) == 0 {
			return &SourceUnavailableError{Source: SourceRates, Err: errors.New("rate table is empty")}
		}
		rates = table
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return raw, rates, nil
}

// transform normalizes catalog entries into records. Entries without a name are skipped and
// names repeated under different case collapse into the later entry.
func (p *Pipeline) transform(raw []RawCountry, rates map[string]float64) ([]countries.Country, int) {
	records := make([]countries.Country, 0, len(raw))
	index := make(map[string]int, len(raw))
	skipped := 0

	for _, rc := range raw {
		c, ok := p.normalize(rc, rates)
		if !ok {
			skipped++
			continue
		}
		key := countries.NormalizeName(c.Name)
		if i, dup := index[key]; dup {
			records[i] = c
			continue
		}
		index[key] = len(records)
		records = append(records, c)
	}
	return records, skipped
}

func (p *Pipeline) normalize(rc RawCountry, rates map[string]float64) (countries.Country, bool) {
	name := strings.TrimSpace(rc.Name)
	if name == "" || len(name) > config.MaxNameLength {
		return countries.Country{}, false
	}

	c := countries.Country{
		Name:    name,
		Capital: optional(rc.Capital),
		Region:  optional(rc.Region),
		FlagURL: optional(rc.FlagURL),
	}
	if rc.Population != nil && *rc.Population > 0 {
		c.Population = *rc.Population
	}

	if len(rc.CurrencyCodes) > 0 {
		code := strings.TrimSpace(rc.CurrencyCodes[0])
		if code != "" && len(code) <= config.MaxCurrencyCodeLength {
			c.CurrencyCode = &code
		}
	}
	if c.CurrencyCode != nil {
		if rate, ok := LookupRate(*c.CurrencyCode, rates); ok {
			c.ExchangeRate = &rate
		}
	}
	c.EstimatedGDP = p.estimator.Estimate(c.Population, c.CurrencyCode, rates)
	return c, true
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
