package mock

import (
	"time"

	countries "github.com/countrycache/countrycache/internal/domain/countries"
)

func ptr[T any](v T) *T { return &v }

var RefreshedAt = time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)

var Countries = []countries.Country{
	{
		ID:              1,
		Name:            "Testland",
		Capital:         ptr("Test City"),
		Region:          ptr("Africa"),
		Population:      1000,
		CurrencyCode:    ptr("TST"),
		ExchangeRate:    ptr(2.0),
		EstimatedGDP:    ptr(750000.0),
		FlagURL:         ptr("https://flags.example/testland.svg"),
		LastRefreshedAt: RefreshedAt,
	},
	{
		ID:              2,
		Name:            "Samplestan",
		Region:          ptr("Asia"),
		Population:      500,
		CurrencyCode:    ptr("SMP"),
		LastRefreshedAt: RefreshedAt,
	},
}
