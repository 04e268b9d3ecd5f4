package countries

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/countrycache/countrycache/countrycache/config"
)

// Country is one cached country record. Name is the identity and is unique under
// case-insensitive comparison.
type Country struct {
	ID              int64
	Name            string
	Capital         *string
	Region          *string
	Population      int64
	CurrencyCode    *string
	ExchangeRate    *float64
	EstimatedGDP    *float64
	FlagURL         *string
	LastRefreshedAt time.Time
}

type SortOrder string

const (
	SortDefault SortOrder = ""
	SortGDPDesc SortOrder = "gdp_desc"
	SortGDPAsc  SortOrder = "gdp_asc"
	SortName    SortOrder = "name"
)

// ParseSortOrder accepts the values of the ?sort= query parameter.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortDefault:
		return SortDefault, nil
	case SortGDPDesc:
		return SortGDPDesc, nil
	case SortGDPAsc:
		return SortGDPAsc, nil
	case SortName:
		return SortName, nil
	}
	return SortDefault, fmt.Errorf("unsupported sort %q (use gdp_desc, gdp_asc or name)", s)
}

// Filter narrows a listing. Region and Currency match exactly, ignoring case.
type Filter struct {
	Region   string
	Currency string
	Sort     SortOrder
}

// Matches reports whether c passes the region and currency filters.
func (f Filter) Matches(c Country) bool {
	if f.Region != "" && (c.Region == nil || !strings.EqualFold(*c.Region, f.Region)) {
		return false
	}
	if f.Currency != "" && (c.CurrencyCode == nil || !strings.EqualFold(*c.CurrencyCode, f.Currency)) {
		return false
	}
	return true
}

// SortCountries orders list in place. Countries without an estimate always go last.
func SortCountries(list []Country, order SortOrder) {
	switch order {
	case SortGDPDesc:
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i].EstimatedGDP, list[j].EstimatedGDP
			if a == nil || b == nil {
				return gdpLess(a, b)
			}
			return *a > *b
		})
	case SortGDPAsc:
		sort.SliceStable(list, func(i, j int) bool {
			return gdpLess(list[i].EstimatedGDP, list[j].EstimatedGDP)
		})
	case SortName:
		sort.SliceStable(list, func(i, j int) bool {
			return NormalizeName(list[i].Name) < NormalizeName(list[j].Name)
		})
	default:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].ID < list[j].ID
		})
	}
}

// gdpLess orders known values ascending, with nil sorting after any value
// regardless of direction.
func gdpLess(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return *a < *b
}

// NormalizeName is the key under which names are compared.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks the field limits enforced by every store.
func (c Country) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("country name is required")
	}
	if len(name) > config.MaxNameLength {
		return fmt.Errorf("country name %q exceeds %d characters", name, config.MaxNameLength)
	}
	if c.Population < 0 {
		return fmt.Errorf("country %q has negative population %d", name, c.Population)
	}
	if c.CurrencyCode != nil && len(*c.CurrencyCode) > config.MaxCurrencyCodeLength {
		return fmt.Errorf("country %q currency code %q exceeds %d characters", name, *c.CurrencyCode, config.MaxCurrencyCodeLength)
	}
	return nil
}

// Status summarizes the dataset.
type Status struct {
	TotalCountries  int
	LastRefreshedAt *time.Time
}

// UpsertOptions controls one atomic refresh write.
type UpsertOptions struct {
	RefreshedAt  time.Time
	PruneMissing bool
}

// UpsertStats reports what a refresh write changed.
type UpsertStats struct {
	Inserted int
	Updated  int
	Deleted  int
}
