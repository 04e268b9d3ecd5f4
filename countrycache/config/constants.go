package config

import "time"

// Application-wide constants organized by domain

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout   = 30 * time.Second
	RefreshCommitTimeout  = 60 * time.Second
	DefaultSourceTimeout  = 10 * time.Second
	SummaryRenderTimeout  = 15 * time.Second
	PublishTimeout        = 30 * time.Second
	NotifyTimeout         = 10 * time.Second
	HealthCheckTimeout    = 2 * time.Second
	NetworkDialTimeout    = 5 * time.Second
	ServerShutdownTimeout = 15 * time.Second

	// Cache settings
	DefaultCacheSize = 512
)

// Upstream data sources
const (
	DefaultCountriesURL = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"
	DefaultRatesURL     = "https://open.er-api.com/v6/latest/USD"
)

// GDP estimate multiplier range
const (
	DefaultFactorMin = 1000
	DefaultFactorMax = 2000
)

// Summary image
const (
	DefaultSummaryPath = "cache/summary.png"
	DefaultSummaryTopN = 5
	SummaryImageWidth  = 600
	SummaryImageHeight = 400
	SummaryTimeLayout  = "2006-01-02 15:04:05 UTC"
	SummaryContentType = "image/png"
	RendererRaster     = "raster"
	RendererChromedp   = "chromedp"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Web defaults
const (
	DefaultWebPort          = 8080
	DefaultLogFormat        = "text"
	DefaultRefreshRateLimit = 10
	RefreshRateWindow       = time.Minute
)

// Country field limits
const (
	MaxNameLength         = 255
	MaxCurrencyCodeLength = 10
)
