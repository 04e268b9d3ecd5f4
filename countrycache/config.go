package countrycache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/countrycache/countrycache/countrycache/config"
)

const envPrefix = "COUNTRYCACHE_"

// LoadConfig reads the TOML file at path, fills defaults for anything left unset and applies
// COUNTRYCACHE_* environment overrides. A missing file is not an error: the service can run
// from defaults and environment alone.
func LoadConfig(path string) (*Config, error) {
	// .env is optional, real environment variables always win
	_ = godotenv.Load()

	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("Config file not found, running with defaults",
			slog.String("type", "sys"),
			slog.String("path", path))
	default:
		return nil, fmt.Errorf("failed to open config: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	Web     WebConfig     `toml:"web"`
	DB      DBConfig      `toml:"db"`
	Sources SourcesConfig `toml:"sources"`
	GDP     GDPConfig     `toml:"gdp"`
	Summary SummaryConfig `toml:"summary"`
	Refresh RefreshConfig `toml:"refresh"`
	Cache   CacheConfig   `toml:"cache"`
	Spaces  SpacesConfig  `toml:"spaces"`
	Notify  NotifyConfig  `toml:"notify"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type WebConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// RefreshRateLimit caps POST /countries/refresh per client per minute. Negative disables it.
	RefreshRateLimit int `toml:"refresh_rate_limit"`
	// ProxyHeader carries the client address, and is only honored for requests from TrustedProxies.
	ProxyHeader    string   `toml:"proxy_header"`
	TrustedProxies []string `toml:"trusted_proxies"`
}

// Address returns host:port for the HTTP listener.
func (w WebConfig) Address() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

type DBConfig struct {
	Driver       string `toml:"driver"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type SourcesConfig struct {
	CountriesURL   string `toml:"countries_url"`
	RatesURL       string `toml:"rates_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout is the per-request budget for each upstream fetch.
func (s SourcesConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// GDPConfig bounds the random multiplier used by the GDP estimate.
type GDPConfig struct {
	FactorMin int `toml:"factor_min"`
	FactorMax int `toml:"factor_max"`
}

type SummaryConfig struct {
	Path     string `toml:"path"`
	Renderer string `toml:"renderer"`
	TopN     int    `toml:"top_n"`
}

type RefreshConfig struct {
	// PruneMissing deletes stored countries that are absent from the fetched catalog.
	PruneMissing *bool `toml:"prune_missing"`
}

type CacheConfig struct {
	Size int `toml:"size"`
}

// SpacesConfig configures the optional upload of the summary image to an S3 compatible bucket.
type SpacesConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Endpoint string `toml:"endpoint"`
	Prefix   string `toml:"prefix"`
}

// Enabled reports whether enough is configured to publish.
func (s SpacesConfig) Enabled() bool {
	return s.Key != "" && s.Secret != "" && s.Bucket != ""
}

type NotifyConfig struct {
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// Default returns a Config holding every default value.
func Default() Config {
	var cfg Config
	cfg.Log.Level = slog.LevelInfo
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Log.Format == "" {
		c.Log.Format = config.DefaultLogFormat
	}
	if c.Web.Port == 0 {
		c.Web.Port = config.DefaultWebPort
	}
	if c.Web.RefreshRateLimit == 0 {
		c.Web.RefreshRateLimit = config.DefaultRefreshRateLimit
	}
	if c.DB.Driver == "" {
		c.DB.Driver = config.DriverPostgres
	}
	if c.DB.Host == "" {
		c.DB.Host = "localhost"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.Sources.CountriesURL == "" {
		c.Sources.CountriesURL = config.DefaultCountriesURL
	}
	if c.Sources.RatesURL == "" {
		c.Sources.RatesURL = config.DefaultRatesURL
	}
	if c.Sources.TimeoutSeconds == 0 {
		c.Sources.TimeoutSeconds = int(config.DefaultSourceTimeout / time.Second)
	}
	if c.GDP.FactorMin == 0 && c.GDP.FactorMax == 0 {
		c.GDP.FactorMin = config.DefaultFactorMin
		c.GDP.FactorMax = config.DefaultFactorMax
	}
	if c.Summary.Path == "" {
		c.Summary.Path = config.DefaultSummaryPath
	}
	if c.Summary.Renderer == "" {
		c.Summary.Renderer = config.RendererRaster
	}
	if c.Summary.TopN == 0 {
		c.Summary.TopN = config.DefaultSummaryTopN
	}
	if c.Refresh.PruneMissing == nil {
		prune := true
		c.Refresh.PruneMissing = &prune
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = config.DefaultCacheSize
	}
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DB_DRIVER":           &c.DB.Driver,
		"DB_HOST":             &c.DB.Host,
		"DB_USER":             &c.DB.User,
		"DB_PASSWORD":         &c.DB.Password,
		"DB_NAME":             &c.DB.Database,
		"WEB_HOST":            &c.Web.Host,
		"WEB_PROXY_HEADER":    &c.Web.ProxyHeader,
		"COUNTRIES_URL":       &c.Sources.CountriesURL,
		"RATES_URL":           &c.Sources.RatesURL,
		"SUMMARY_PATH":        &c.Summary.Path,
		"SPACES_KEY":          &c.Spaces.Key,
		"SPACES_SECRET":       &c.Spaces.Secret,
		"DISCORD_WEBHOOK_URL": &c.Notify.DiscordWebhookURL,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DB_PORT":    &c.DB.Port,
		"WEB_PORT":   &c.Web.Port,
		"FACTOR_MIN": &c.GDP.FactorMin,
		"FACTOR_MAX": &c.GDP.FactorMax,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s value %q: %w", envPrefix, name, v, err)
		}
		*dst = n
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case config.DriverPostgres, config.DriverMemory:
	default:
		return fmt.Errorf("unknown db driver %q", c.DB.Driver)
	}
	switch c.Summary.Renderer {
	case config.RendererRaster, config.RendererChromedp:
	default:
		return fmt.Errorf("unknown summary renderer %q", c.Summary.Renderer)
	}
	if c.GDP.FactorMin <= 0 || c.GDP.FactorMin > c.GDP.FactorMax {
		return fmt.Errorf("invalid gdp factor range [%d, %d]", c.GDP.FactorMin, c.GDP.FactorMax)
	}
	if c.Sources.TimeoutSeconds <= 0 {
		return fmt.Errorf("sources.timeout_seconds must be positive, got %d", c.Sources.TimeoutSeconds)
	}
	if c.Summary.TopN <= 0 {
		return fmt.Errorf("summary.top_n must be positive, got %d", c.Summary.TopN)
	}
	return nil
}
