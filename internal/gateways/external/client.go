// Package external talks to the country catalog and exchange-rate upstreams.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/internal/domain/refresh"
)

const maxErrorBody = 512

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

type Client struct {
	httpClient   *http.Client
	countriesURL string
	ratesURL     string
	timeout      time.Duration
}

func NewClient(countriesURL, ratesURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.DefaultSourceTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		countriesURL: countriesURL,
		ratesURL:     ratesURL,
		timeout:      timeout,
	}
}

type catalogEntry struct {
	Name       string          `json:"name"`
	Capital    json.RawMessage `json:"capital"`
	Region     string          `json:"region"`
	Population *int64          `json:"population"`
	Flag       string          `json:"flag"`
	Currencies []struct {
		Code string `json:"code"`
	} `json:"currencies"`
}

// FetchCountries downloads the full catalog.
func (c *Client) FetchCountries(ctx context.Context) ([]refresh.RawCountry, error) {
	var entries []catalogEntry
	if err := c.getJSON(ctx, c.countriesURL, &entries); err != nil {
		return nil, err
	}

	out := make([]refresh.RawCountry, 0, len(entries))
	for _, e := range entries {
		rc := refresh.RawCountry{
			Name:       e.Name,
			Capital:    firstString(e.Capital),
			Region:     e.Region,
			Population: e.Population,
			FlagURL:    e.Flag,
		}
		for _, cur := range e.Currencies {
			rc.CurrencyCodes = append(rc.CurrencyCodes, cur.Code)
		}
		out = append(out, rc)
	}
	return out, nil
}

type ratesResponse struct {
	Result    string             `json:"result"`
	ErrorType string             `json:"error-type"`
	Rates     map[string]float64 `json:"rates"`
}

// FetchRates downloads the currency code to rate table.
func (c *Client) FetchRates(ctx context.Context) (map[string]float64, error) {
	var resp ratesResponse
	if err := c.getJSON(ctx, c.ratesURL, &resp); err != nil {
		return nil, err
	}
	if resp.Result == "error" {
		return nil, fmt.Errorf("GET %s: upstream reported %q", c.ratesURL, resp.ErrorType)
	}
	if len(resp.Rates) == 0 {
		return nil, fmt.Errorf("GET %s: response carries no rates", c.ratesURL)
	}
	return resp.Rates, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: failed to decode response: %w", url, err)
	}
	return nil
}

// firstString accepts either a JSON string or an array of strings.
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
