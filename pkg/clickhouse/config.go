package clickhouse

import (
	"errors"
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Config describes the report database connection.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	// UseHTTP switches from the native protocol to HTTP, usually on port 8123.
	UseHTTP bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration

	// AsyncInsert lets the server buffer small report inserts. With WaitForAsync the
	// insert returns only after the buffer is flushed.
	AsyncInsert  bool
	WaitForAsync bool
	MaxExecTime  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 9000
		if c.UseHTTP {
			c.Port = 8123
		}
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 || c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns / 2
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	return c
}

func (c Config) validate() error {
	if c.Host == "" {
		return errors.New("clickhouse: host is required")
	}
	if c.Database == "" {
		return errors.New("clickhouse: database is required")
	}
	return nil
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// options maps the config onto the driver options. Server side settings apply to every
// query of the pool.
func (c Config) options() *ch.Options {
	opts := &ch.Options{
		Addr:     []string{c.addr()},
		Protocol: ch.Native,
		Auth: ch.Auth{
			Database: c.Database,
			Username: c.User,
			Password: c.Password,
		},
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.ReadTimeout,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		Compression:     &ch.Compression{Method: ch.CompressionLZ4},
		Settings:        ch.Settings{},
	}
	if c.UseHTTP {
		opts.Protocol = ch.HTTP
		opts.Compression = &ch.Compression{Method: ch.CompressionGZIP}
	}
	if c.MaxExecTime > 0 {
		opts.Settings["max_execution_time"] = int(c.MaxExecTime.Seconds())
	}
	if c.AsyncInsert {
		opts.Settings["async_insert"] = 1
		wait := 0
		if c.WaitForAsync {
			wait = 1
		}
		opts.Settings["wait_for_async_insert"] = wait
	}
	return opts
}
