package models

import (
	"time"

	"github.com/countrycache/countrycache/internal/domain/countries"
)

// ErrorResponse is the shape shared by every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// CountryResponse is the public representation of a cached country
type CountryResponse struct {
	Name            string    `json:"name"`
	Capital         *string   `json:"capital"`
	Region          *string   `json:"region"`
	Population      int64     `json:"population"`
	CurrencyCode    *string   `json:"currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate"`
	EstimatedGDP    *float64  `json:"estimated_gdp"`
	FlagURL         *string   `json:"flag_url"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

func NewCountryResponse(c countries.Country) CountryResponse {
	return CountryResponse{
		Name:            c.Name,
		Capital:         c.Capital,
		Region:          c.Region,
		Population:      c.Population,
		CurrencyCode:    c.CurrencyCode,
		ExchangeRate:    c.ExchangeRate,
		EstimatedGDP:    c.EstimatedGDP,
		FlagURL:         c.FlagURL,
		LastRefreshedAt: c.LastRefreshedAt.UTC(),
	}
}

// NewCountryList never returns nil so an empty store encodes as []
func NewCountryList(list []countries.Country) []CountryResponse {
	out := make([]CountryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, NewCountryResponse(c))
	}
	return out
}

// StatusResponse summarizes the cached dataset
type StatusResponse struct {
	TotalCountries  int        `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

func NewStatusResponse(s countries.Status) StatusResponse {
	resp := StatusResponse{TotalCountries: s.TotalCountries}
	if s.LastRefreshedAt != nil {
		t := s.LastRefreshedAt.UTC()
		resp.LastRefreshedAt = &t
	}
	return resp
}

// RefreshResponse reports a committed refresh. Warnings list post-commit steps that failed.
type RefreshResponse struct {
	Message         string    `json:"message"`
	RunID           string    `json:"run_id"`
	TotalCountries  int       `json:"total_countries"`
	Skipped         int       `json:"skipped,omitempty"`
	Inserted        int       `json:"inserted"`
	Updated         int       `json:"updated"`
	Deleted         int       `json:"deleted"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
	Warnings        []string  `json:"warnings,omitempty"`
}

// HealthCheck represents a health check response
type HealthCheck struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
}

type ComponentHealth struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func NewHealthCheck(version string) *HealthCheck {
	return &HealthCheck{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Version:    version,
		Components: make(map[string]ComponentHealth),
	}
}

// AddComponent records a component; any unhealthy component marks the whole check unhealthy
func (h *HealthCheck) AddComponent(name, status, message string, details map[string]any) {
	h.Components[name] = ComponentHealth{
		Status:  status,
		Message: message,
		Details: details,
	}
	if status != "healthy" && h.Status == "healthy" {
		h.Status = "unhealthy"
	}
}
