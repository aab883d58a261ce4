package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

func TestOptionsNative(t *testing.T) {
	cfg := Config{
		Host:         "ch.local",
		Database:     "nichescope",
		User:         "default",
		Password:     "p@ss",
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	}.withDefaults()
	opts := cfg.options()
	if len(opts.Addr) != 1 || opts.Addr[0] != "ch.local:9000" || opts.Protocol != ch.Native {
		t.Fatalf("unexpected address %v / protocol %v", opts.Addr, opts.Protocol)
	}
	if opts.Auth.Database != "nichescope" || opts.Auth.Password != "p@ss" {
		t.Fatalf("unexpected auth %+v", opts.Auth)
	}
	if opts.Settings["max_execution_time"] != 30 || opts.Settings["async_insert"] != 1 || opts.Settings["wait_for_async_insert"] != 1 {
		t.Fatalf("unexpected settings %v", opts.Settings)
	}
	if opts.MaxOpenConns != 10 || opts.MaxIdleConns != 5 || opts.DialTimeout != 5*time.Second {
		t.Fatalf("pool defaults not applied: %+v", opts)
	}
}

func TestOptionsHTTP(t *testing.T) {
	opts := Config{Host: "localhost", Database: "db", UseHTTP: true}.withDefaults().options()
	if opts.Addr[0] != "localhost:8123" || opts.Protocol != ch.HTTP {
		t.Fatalf("unexpected http options %v %v", opts.Addr, opts.Protocol)
	}
	if len(opts.Settings) != 0 {
		t.Fatalf("no server settings expected, got %v", opts.Settings)
	}
	if opts.Compression == nil || opts.Compression.Method != ch.CompressionGZIP {
		t.Fatalf("http uses gzip compression")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Database: "db"}).validate(); err == nil {
		t.Fatalf("expected missing host error")
	}
	if err := (Config{Host: "h"}).validate(); err == nil {
		t.Fatalf("expected missing database error")
	}
}
