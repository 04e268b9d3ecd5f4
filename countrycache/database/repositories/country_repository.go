package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/countrycache/countrycache/countrycache/database/models"
	"github.com/countrycache/countrycache/internal/domain/countries"
	"github.com/countrycache/countrycache/internal/domain/logger"
)

const entityCountry = "country"

type countryRepository struct {
	*BaseRepository
}

func NewCountryRepository(db *bun.DB) countries.Repository {
	return &countryRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *countryRepository) List(ctx context.Context, filter countries.Filter) (result []countries.Country, err error) {
	ql := logger.NewQueryLogger("list", entityCountry)
	defer func() { ql.Log(err, int64(len(result))) }()

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []models.Country
	q := r.db.NewSelect().Model(&rows)
	if filter.Region != "" {
		q = q.Where("LOWER(c.region) = LOWER(?)", filter.Region)
	}
	if filter.Currency != "" {
		q = q.Where("LOWER(c.currency_code) = LOWER(?)", filter.Currency)
	}
	switch filter.Sort {
	case countries.SortGDPDesc:
		q = q.OrderExpr("c.estimated_gdp DESC NULLS LAST").OrderExpr("c.id ASC")
	case countries.SortGDPAsc:
		q = q.OrderExpr("c.estimated_gdp ASC NULLS LAST").OrderExpr("c.id ASC")
	case countries.SortName:
		q = q.OrderExpr("LOWER(c.name) ASC")
	default:
		q = q.Order("c.id")
	}

	if err = q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, r.HandleError("list", entityCountry, err)
	}
	return toDomainList(rows), nil
}

func (r *countryRepository) GetByName(ctx context.Context, name string) (c *countries.Country, err error) {
	ql := logger.NewQueryLogger("get_by_name", entityCountry)
	defer func() { ql.Log(err, 0) }()

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	row := new(models.Country)
	err = r.db.NewSelect().
		Model(row).
		Where("LOWER(c.name) = LOWER(?)", strings.TrimSpace(name)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("get_by_name", entityCountry, err)
	}
	out := toDomain(*row)
	return &out, nil
}

func (r *countryRepository) DeleteByName(ctx context.Context, name string) (err error) {
	var affected int64
	ql := logger.NewQueryLogger("delete_by_name", entityCountry)
	defer func() { ql.Log(err, affected) }()

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.Country)(nil)).
		Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).
		Exec(ctx)
	if err != nil {
		return r.HandleError("delete_by_name", entityCountry, err)
	}
	if affected, err = res.RowsAffected(); err != nil {
		return r.HandleError("delete_by_name", entityCountry, err)
	}
	if affected == 0 {
		return countries.ErrNotFound
	}
	return nil
}

func (r *countryRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	n, err := r.db.NewSelect().Model((*models.Country)(nil)).Count(ctx)
	return n, r.HandleError("count", entityCountry, err)
}

func (r *countryRepository) TopByEstimate(ctx context.Context, limit int) ([]countries.Country, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []models.Country
	err := r.db.NewSelect().
		Model(&rows).
		Where("c.estimated_gdp IS NOT NULL").
		OrderExpr("c.estimated_gdp DESC").
		OrderExpr("c.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, r.HandleError("top_by_estimate", entityCountry, err)
	}
	return toDomainList(rows), nil
}

func (r *countryRepository) Names(ctx context.Context) ([]string, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var names []string
	err := r.db.NewSelect().
		Model((*models.Country)(nil)).
		Column("name").
		Order("name").
		Scan(ctx, &names)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, r.HandleError("names", entityCountry, err)
	}
	return names, nil
}

func (r *countryRepository) LastRefreshedAt(ctx context.Context) (*time.Time, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	status := new(models.RefreshStatus)
	err := r.db.NewSelect().
		Model(status).
		Where("rs.id = ?", models.RefreshStatusID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, r.HandleError("last_refreshed_at", "refresh_status", err)
	}
	t := status.LastRefreshedAt.UTC()
	return &t, nil
}

// UpsertAll matches records to existing rows by case-insensitive name, updating in place so
// ids survive a refresh. Pruning and the refresh_status row are written in the same transaction.
func (r *countryRepository) UpsertAll(ctx context.Context, records []countries.Country, opts countries.UpsertOptions) (stats countries.UpsertStats, err error) {
	ql := logger.NewQueryLogger("upsert_all", entityCountry)
	defer func() { ql.Log(err, int64(stats.Inserted+stats.Updated+stats.Deleted)) }()

	for i := range records {
		if err = records[i].Validate(); err != nil {
			return stats, fmt.Errorf("record %d: %w", i, err)
		}
	}
	refreshedAt := opts.RefreshedAt.UTC()

	err = r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		var txStats countries.UpsertStats
		keep := make([]int64, 0, len(records))
		written := make(map[string]int64, len(records))

		for _, rec := range records {
			row := toModel(rec)
			row.LastRefreshedAt = refreshedAt
			key := countries.NormalizeName(row.Name)

			if id, ok := written[key]; ok {
				row.ID = id
				if _, err := tx.NewUpdate().Model(&row).WherePK().Exec(ctx); err != nil {
					return r.HandleError("update", entityCountry, err)
				}
				continue
			}

			existing := new(models.Country)
			err := tx.NewSelect().
				Model(existing).
				Column("id").
				Where("LOWER(c.name) = LOWER(?)", row.Name).
				For("UPDATE").
				Limit(1).
				Scan(ctx)
			switch {
			case err == nil:
				row.ID = existing.ID
				if _, err := tx.NewUpdate().Model(&row).WherePK().Exec(ctx); err != nil {
					return r.HandleError("update", entityCountry, err)
				}
				txStats.Updated++
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
					return r.HandleError("insert", entityCountry, err)
				}
				txStats.Inserted++
			default:
				return r.HandleError("lock", entityCountry, err)
			}

			written[key] = row.ID
			keep = append(keep, row.ID)
		}

		if opts.PruneMissing && len(keep) > 0 {
			res, err := tx.NewDelete().
				Model((*models.Country)(nil)).
				Where("id NOT IN (?)", bun.In(keep)).
				Exec(ctx)
			if err != nil {
				return r.HandleError("prune", entityCountry, err)
			}
			n, _ := res.RowsAffected()
			txStats.Deleted = int(n)
		}

		status := &models.RefreshStatus{ID: models.RefreshStatusID, LastRefreshedAt: refreshedAt}
		if _, err := tx.NewInsert().
			Model(status).
			On("CONFLICT (id) DO UPDATE").
			Set("last_refreshed_at = EXCLUDED.last_refreshed_at").
			Exec(ctx); err != nil {
			return r.HandleError("upsert", "refresh_status", err)
		}

		stats = txStats
		return nil
	})
	if err != nil {
		return countries.UpsertStats{}, err
	}
	return stats, nil
}

func (r *countryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toModel(c countries.Country) models.Country {
	return models.Country{
		ID:              c.ID,
		Name:            strings.TrimSpace(c.Name),
		Capital:         c.Capital,
		Region:          c.Region,
		Population:      c.Population,
		CurrencyCode:    c.CurrencyCode,
		ExchangeRate:    c.ExchangeRate,
		EstimatedGDP:    c.EstimatedGDP,
		FlagURL:         c.FlagURL,
		LastRefreshedAt: c.LastRefreshedAt,
	}
}

func toDomain(m models.Country) countries.Country {
	return countries.Country{
		ID:              m.ID,
		Name:            m.Name,
		Capital:         m.Capital,
		Region:          m.Region,
		Population:      m.Population,
		CurrencyCode:    m.CurrencyCode,
		ExchangeRate:    m.ExchangeRate,
		EstimatedGDP:    m.EstimatedGDP,
		FlagURL:         m.FlagURL,
		LastRefreshedAt: m.LastRefreshedAt.UTC(),
	}
}

func toDomainList(rows []models.Country) []countries.Country {
	out := make([]countries.Country, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out
}
