package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Country struct {
	bun.BaseModel `bun:"table:countries,alias:c"`

	ID              int64     `bun:"id,pk,autoincrement"`
	Name            string    `bun:"name,notnull,type:varchar(255)"`
	Capital         *string   `bun:"capital,type:varchar(255)"`
	Region          *string   `bun:"region,type:varchar(255)"`
	Population      int64     `bun:"population,notnull,default:0"`
	CurrencyCode    *string   `bun:"currency_code,type:varchar(10)"`
	ExchangeRate    *float64  `bun:"exchange_rate,type:double precision"`
	EstimatedGDP    *float64  `bun:"estimated_gdp,type:double precision"`
	FlagURL         *string   `bun:"flag_url,type:text"`
	LastRefreshedAt time.Time `bun:"last_refreshed_at,notnull,default:current_timestamp"`
}

// RefreshStatusID is the primary key of the single refresh_status row.
const RefreshStatusID = 1

type RefreshStatus struct {
	bun.BaseModel `bun:"table:refresh_status,alias:rs"`

	ID              int       `bun:"id,pk"`
	LastRefreshedAt time.Time `bun:"last_refreshed_at,notnull"`
}
