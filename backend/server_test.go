package backend_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/countrycache/countrycache/backend"
	"github.com/countrycache/countrycache/backend/handlers"
	"github.com/countrycache/countrycache/backend/models"
	"github.com/countrycache/countrycache/countrycache"
	"github.com/countrycache/countrycache/countrycache/services"
	"github.com/countrycache/countrycache/internal/domain/countries"
	"github.com/countrycache/countrycache/internal/domain/refresh"
	"github.com/countrycache/countrycache/internal/domain/refresh/mock"
	"github.com/countrycache/countrycache/internal/gateways/memory"
)

var seededAt = time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type testServer struct {
	store     *memory.Store
	countries *mock.MockCountrySource
	rates     *mock.MockRateSource
	webApp    *handlers.WebApp
	imagePath string
}

func newTestServer(t *testing.T) *testServer {
	ctrl := gomock.NewController(t)
	s := &testServer{
		store:     memory.NewStore(),
		countries: mock.NewMockCountrySource(ctrl),
		rates:     mock.NewMockRateSource(ctrl),
		imagePath: filepath.Join(t.TempDir(), "cache", "summary.png"),
	}

	summary := services.NewSummaryImageService(s.store, services.NewRasterRenderer(), s.imagePath, 5)
	pipeline := refresh.NewPipeline(s.countries, s.rates, s.store,
		refresh.NewEstimator(refresh.FixedFactor(1000)), summary)

	s.webApp = &handlers.WebApp{
		Countries: countries.NewService(s.store),
		Refresher: pipeline,
		Summary:   summary,
		Store:     s.store,
		Version:   "test",
	}
	return s
}

// seed loads the two-country dataset used by the end to end scenario
func (s *testServer) seed() {
	s.store.Seed(
		countries.Country{
			Name:            "Testland",
			Region:          ptr("Test Region"),
			Population:      1000,
			CurrencyCode:    ptr("TST"),
			ExchangeRate:    ptr(2.0),
			EstimatedGDP:    ptr(500.0),
			LastRefreshedAt: seededAt,
		},
		countries.Country{
			Name:            "Samplestan",
			Region:          ptr("Sample Region"),
			Population:      2000,
			CurrencyCode:    ptr("SMP"),
			ExchangeRate:    ptr(2.0),
			EstimatedGDP:    ptr(1000.0),
			LastRefreshedAt: seededAt,
		},
	)
}

func (s *testServer) do(t *testing.T, method, target string) (int, []byte, http.Header) {
	t.Helper()
	app := backend.NewApp(s.webApp, countrycache.WebConfig{})
	resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body, resp.Header
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func names(list []models.CountryResponse) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Name)
	}
	return out
}

func TestListCountries(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"region filter", "/countries?region=Sample%20Region", []string{"Samplestan"}},
		{"region is case-insensitive", "/countries?region=sample%20region", []string{"Samplestan"}},
		{"region is not a substring match", "/countries?region=Sample", []string{}},
		{"currency filter", "/countries?currency=tst", []string{"Testland"}},
		{"gdp descending", "/countries?sort=gdp_desc", []string{"Samplestan", "Testland"}},
		{"gdp ascending", "/countries?sort=gdp_asc", []string{"Testland", "Samplestan"}},
		{"unfiltered", "/countries", []string{"Testland", "Samplestan"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body, _ := s.do(t, http.MethodGet, tt.target)
			if code != http.StatusOK {
				t.Fatalf("status = %d, body %s", code, body)
			}
			got := names(decode[[]models.CountryResponse](t, body))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestListCountries_GDPValues(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	_, body, _ := s.do(t, http.MethodGet, "/countries?sort=gdp_desc")
	list := decode[[]models.CountryResponse](t, body)
	if len(list) != 2 {
		t.Fatalf("got %d countries", len(list))
	}
	if *list[0].EstimatedGDP != 1000.0 || *list[1].EstimatedGDP != 500.0 {
		t.Errorf("estimates = %v, %v", *list[0].EstimatedGDP, *list[1].EstimatedGDP)
	}
}

func TestListCountries_UnknownEstimateSortsLast(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.store.Seed(countries.Country{
		Name:            "Mystery",
		Region:          ptr("Test Region"),
		Population:      10,
		CurrencyCode:    ptr("XXX"),
		LastRefreshedAt: seededAt,
	})

	for _, target := range []string{"/countries?sort=gdp_desc", "/countries?sort=gdp_asc"} {
		_, body, _ := s.do(t, http.MethodGet, target)
		got := names(decode[[]models.CountryResponse](t, body))
		if len(got) != 3 || got[2] != "Mystery" {
			t.Errorf("%s order = %v, want Mystery last", target, got)
		}
	}
}

func TestListCountries_InvalidSort(t *testing.T) {
	s := newTestServer(t)

	code, body, _ := s.do(t, http.MethodGet, "/countries?sort=population")
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	if resp := decode[models.ErrorResponse](t, body); resp.Error == "" {
		t.Error("missing error field")
	}
}

func TestListCountries_EmptyStoreIsArray(t *testing.T) {
	s := newTestServer(t)

	_, body, _ := s.do(t, http.MethodGet, "/countries")
	if string(bytes.TrimSpace(body)) != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestGetCountry(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	code, body, _ := s.do(t, http.MethodGet, "/countries/TESTLAND")
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %s", code, body)
	}
	got := decode[map[string]any](t, body)
	for _, field := range []string{"name", "capital", "region", "population", "currency_code",
		"exchange_rate", "estimated_gdp", "flag_url", "last_refreshed_at"} {
		if _, ok := got[field]; !ok {
			t.Errorf("field %q missing from %s", field, body)
		}
	}
	if _, ok := got["id"]; ok {
		t.Error("id must not be exposed")
	}
	if got["name"] != "Testland" {
		t.Errorf("name = %v", got["name"])
	}
}

func TestGetCountry_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	code, body, _ := s.do(t, http.MethodGet, "/countries/Testlnd")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	resp := decode[models.ErrorResponse](t, body)
	if resp.Error != "Country not found" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Details == nil {
		t.Error("expected suggestions in details")
	}
}

func TestDeleteCountry_Twice(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	if code, body, _ := s.do(t, http.MethodDelete, "/countries/samplestan"); code != http.StatusNoContent {
		t.Fatalf("first delete status = %d, body %s", code, body)
	}
	code, body, _ := s.do(t, http.MethodDelete, "/countries/samplestan")
	if code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", code)
	}
	if resp := decode[models.ErrorResponse](t, body); resp.Error != "Country not found" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	code, body, _ := s.do(t, http.MethodGet, "/status")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	got := decode[map[string]any](t, body)
	if got["total_countries"] != 2.0 {
		t.Errorf("total_countries = %v", got["total_countries"])
	}
	if v, ok := got["last_refreshed_at"]; !ok || v != nil {
		t.Errorf("last_refreshed_at = %v, want null before any refresh", v)
	}
}

func TestStatus_AfterRefreshMark(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.store.MarkRefreshed(seededAt)

	_, body, _ := s.do(t, http.MethodGet, "/status")
	got := decode[models.StatusResponse](t, body)
	if got.LastRefreshedAt == nil || !got.LastRefreshedAt.Equal(seededAt) {
		t.Errorf("last_refreshed_at = %v, want %v", got.LastRefreshedAt, seededAt)
	}
}

func TestSummaryImage_BeforeRefresh(t *testing.T) {
	s := newTestServer(t)

	code, body, _ := s.do(t, http.MethodGet, "/countries/image")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if resp := decode[models.ErrorResponse](t, body); resp.Error != "Summary image not found" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestRefresh_ThenImage(t *testing.T) {
	s := newTestServer(t)
	s.countries.EXPECT().FetchCountries(gomock.Any()).Return([]refresh.RawCountry{
		{Name: "Testland", Region: "Africa", Population: ptr(int64(1000)), CurrencyCodes: []string{"TST"}},
		{Name: "Nocoin", Region: "Oceania", Population: ptr(int64(10))},
	}, nil)
	s.rates.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"TST": 2}, nil)

	code, body, _ := s.do(t, http.MethodPost, "/countries/refresh")
	if code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", code, body)
	}
	resp := decode[models.RefreshResponse](t, body)
	if resp.Message != "Countries refreshed successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.TotalCountries != 2 || resp.RunID == "" {
		t.Errorf("unexpected response %+v", resp)
	}

	code, body, header := s.do(t, http.MethodGet, "/countries/image")
	if code != http.StatusOK {
		t.Fatalf("image status = %d, body %s", code, body)
	}
	if ct := header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	_, body, _ = s.do(t, http.MethodGet, "/countries/testland")
	country := decode[models.CountryResponse](t, body)
	if country.EstimatedGDP == nil || *country.EstimatedGDP != 500000 {
		t.Errorf("estimated_gdp = %v, want 500000", country.EstimatedGDP)
	}

	_, body, _ = s.do(t, http.MethodGet, "/status")
	if status := decode[map[string]any](t, body); status["last_refreshed_at"] == nil {
		t.Error("last_refreshed_at not set after refresh")
	}
}

func TestRefresh_SourceUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.countries.EXPECT().FetchCountries(gomock.Any()).Return([]refresh.RawCountry{
		{Name: "Newland", Population: ptr(int64(1))},
	}, nil).AnyTimes()
	s.rates.EXPECT().FetchRates(gomock.Any()).Return(nil, errors.New("connection refused"))

	code, body, _ := s.do(t, http.MethodPost, "/countries/refresh")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	resp := decode[models.ErrorResponse](t, body)
	if resp.Error != "External data source unavailable" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Details != "Could not fetch data from exchange rates: connection refused" {
		t.Errorf("details = %v", resp.Details)
	}

	_, body, _ = s.do(t, http.MethodGet, "/countries")
	if got := names(decode[[]models.CountryResponse](t, body)); len(got) != 2 {
		t.Errorf("store changed after failed refresh: %v", got)
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	code, body, _ := s.do(t, http.MethodGet, "/health")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	health := decode[models.HealthCheck](t, body)
	if health.Status != "healthy" {
		t.Errorf("status = %q", health.Status)
	}
	if health.Components["refresh"].Details["state"] != string(refresh.StateIdle) {
		t.Errorf("refresh component = %+v", health.Components["refresh"])
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	code, body, _ := s.do(t, http.MethodGet, "/nope")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
	if resp := decode[models.ErrorResponse](t, body); resp.Error == "" {
		t.Error("missing error field")
	}
}

func TestRefresh_RateLimited(t *testing.T) {
	s := newTestServer(t)
	s.countries.EXPECT().FetchCountries(gomock.Any()).Return([]refresh.RawCountry{
		{Name: "Testland", Population: ptr(int64(1))},
	}, nil)
	s.rates.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"USD": 1}, nil)

	app := backend.NewApp(s.webApp, countrycache.WebConfig{RefreshRateLimit: 1})

	first, err := app.Test(httptest.NewRequest(http.MethodPost, "/countries/refresh", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first refresh status = %d", first.StatusCode)
	}

	second, err := app.Test(httptest.NewRequest(http.MethodPost, "/countries/refresh", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second refresh status = %d, want 429", second.StatusCode)
	}
	if second.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestRefresh_RateLimitIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t)
	s.countries.EXPECT().FetchCountries(gomock.Any()).Return([]refresh.RawCountry{
		{Name: "Testland", Population: ptr(int64(1))},
	}, nil)
	s.rates.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"USD": 1}, nil)

	app := backend.NewApp(s.webApp, countrycache.WebConfig{RefreshRateLimit: 1})

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/countries/refresh", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want [200 429]", codes)
	}
}
