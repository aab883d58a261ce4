package clickhouse

import (
	"context"
	"database/sql"
	"fmt"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Client owns the connection pool shared by the report store and health checks.
type Client struct {
	db   *sql.DB
	addr string
}

// NewClient opens the pool and pings the server once within the dial timeout.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	db := ch.OpenDB(cfg.options())
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", cfg.addr(), err)
	}
	return &Client{db: db, addr: cfg.addr()}, nil
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Health(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("clickhouse %s: %w", c.addr, err)
	}
	return nil
}

// InitSchema runs idempotent DDL statements in order and stops at the first failure.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: statement %d: %w", i+1, err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
