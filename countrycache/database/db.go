package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/countrycache/countrycache/countrycache"
	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/countrycache/database/models"
	"github.com/countrycache/countrycache/countrycache/logger"
)

const (
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
	schemaVersion        = 1 // bump when tables or indexes change
)

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg countrycache.DBConfig) (*DB, error) {
	var conn net.Conn
	var err error

	tryDial := func() (net.Conn, error) {
		addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		if os.Getenv("DB_DIAL_FORCE_IPV6") == "1" {
			return net.DialTimeout("tcp6", addr, config.NetworkDialTimeout)
		}
		if c, e := net.DialTimeout("tcp4", addr, config.NetworkDialTimeout); e == nil {
			return c, nil
		}
		return net.DialTimeout("tcp", addr, config.NetworkDialTimeout)
	}

	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = tryDial()
		if err == nil {
			break
		}
		slog.Warn("Database not reachable yet",
			slog.String("type", "db"),
			slog.Int("attempt", i+1),
			slog.Any("error", err))
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg, "connect_timeout=5"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(buildConnString(cfg, "sslmode="+sslMode))))
	if cfg.PoolSize > 0 {
		sqldb.SetMaxOpenConns(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	return &DB{pool: pool, bunDB: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func buildConnString(cfg countrycache.DBConfig, params string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: params,
	}
	return u.String()
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	result, err := db.pool.Exec(ctx, sql, args...)
	logger.LogQuery(sql, time.Since(start), err)
	return result, err
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// InitializeSchema creates the countries and refresh_status tables and their indexes.
// Running it again is a no-op.
func (db *DB) InitializeSchema(ctx context.Context) error {
	if os.Getenv("DB_FAST_INIT") == "1" {
		if err := db.ensureAppMeta(ctx); err == nil {
			if v, _ := db.getAppMeta(ctx, "schema_version"); v == strconv.Itoa(schemaVersion) {
				slog.Info("Schema up to date, skipping initialization",
					slog.String("type", "db"),
					slog.Int("schema_version", schemaVersion))
				return nil
			}
		}
	}

	tables := []any{
		(*models.Country)(nil),
		(*models.RefreshStatus)(nil),
	}
	for _, model := range tables {
		if _, err := db.bunDB.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_countries_name_lower ON countries (LOWER(name));",
		"CREATE INDEX IF NOT EXISTS idx_countries_region_lower ON countries (LOWER(region));",
		"CREATE INDEX IF NOT EXISTS idx_countries_currency_lower ON countries (LOWER(currency_code));",
		"CREATE INDEX IF NOT EXISTS idx_countries_estimated_gdp ON countries (estimated_gdp DESC NULLS LAST);",
	}
	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := db.ensureAppMeta(ctx); err == nil {
		_ = db.setAppMeta(ctx, "schema_version", strconv.Itoa(schemaVersion))
	}
	return nil
}

func (db *DB) ensureAppMeta(ctx context.Context) error {
	_, err := db.ExecWithLog(ctx, `CREATE TABLE IF NOT EXISTS app_meta (key TEXT PRIMARY KEY, value TEXT)`)
	return err
}

func (db *DB) getAppMeta(ctx context.Context, key string) (string, error) {
	var v string
	if err := db.pool.QueryRow(ctx, `SELECT value FROM app_meta WHERE key = $1`, key).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

func (db *DB) setAppMeta(ctx context.Context, key, value string) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO app_meta(key, value) VALUES($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

// Ping verifies both database connections are working.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pgxpool ping failed: %w", err)
	}
	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}
	return nil
}
