package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/OkanBey11/ToDoApiWithGemini/config"
)

const (
	driverName  = "postgres"
	pingTimeout = 5 * time.Second

	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
)

// DSN returns the Postgres connection string for cfg. cfg.URL wins when set.
func DSN(cfg config.DatabaseConfig) string {
	if dsn := strings.TrimSpace(cfg.URL); dsn != "" {
		return dsn
	}

	q := url.Values{}
	q.Set("sslmode", "disable")
	if cfg.UseSSL {
		q.Set("sslmode", "require")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:     cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// PoolSettings holds connection pool limits. Zero values select defaults.
type PoolSettings struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func (p PoolSettings) withDefaults() PoolSettings {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = defaultMaxOpenConns
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = defaultMaxIdleConns
	}
	if p.MaxIdleConns > p.MaxOpenConns {
		p.MaxIdleConns = p.MaxOpenConns
	}
	if p.ConnMaxIdleTime <= 0 {
		p.ConnMaxIdleTime = defaultConnMaxIdle
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = defaultConnMaxLife
	}
	return p
}

// Open connects to Postgres, applies the pool limits from cfg and verifies
// the connection with a ping bounded by ctx.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	conn, err := sql.Open(driverName, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool := PoolSettings{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}.withDefaults()
	conn.SetMaxOpenConns(pool.MaxOpenConns)
	conn.SetMaxIdleConns(pool.MaxIdleConns)
	conn.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	conn.SetConnMaxLifetime(pool.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}
