package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 8080 || c.Cache.Type != "memory" || c.Trends.BatchSize != 5 {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.Trends.BatchDelay != 2*time.Second || c.Cache.KeepaTTL != time.Hour {
		t.Fatalf("duration defaults not applied: %v %v", c.Trends.BatchDelay, c.Cache.KeepaTTL)
	}
	if c.Engine.MaxExpandedKeywords != 200 || c.Engine.MaxAnalyzedKeywords != 50 || c.Engine.MaxCompetitionLookups != 20 {
		t.Fatalf("engine bounds not applied: %+v", c.Engine)
	}
	if c.Log.Level != "info" {
		t.Fatalf("log level default: %q", c.Log.Level)
	}
}

func TestParseYAMLOverridesDefaults(t *testing.T) {
	src := `
environment: prod
cache:
  type: redis
  trends_ttl: 2h
engine:
  min_profitability: 65
  max_competition: LOW
`
	c, err := Parse([]byte(src), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Cache.Type != "redis" || c.Cache.TrendsTTL != 2*time.Hour || c.Engine.MinProfitability != 65 {
		t.Fatalf("yaml values not applied: %+v", c)
	}
	if c.Cache.Redis.Addr != "localhost:6379" {
		t.Fatalf("nested default lost: %q", c.Cache.Redis.Addr)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	env := map[string]string{
		"KEEPA_API_KEY":           "k-123",
		"KAFKA_BROKERS":           "a:9092,b:9092",
		"MIN_PROFITABILITY_SCORE": "70",
		"MAX_COMPETITION_LEVEL":   "high",
		"LOG_LEVEL":               "debug",
	}
	c, err := Parse([]byte("environment: test\n"), func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Keepa.APIKey != "k-123" || len(c.Kafka.Brokers) != 2 || c.Engine.MinProfitability != 70 {
		t.Fatalf("env overrides not applied: %+v", c)
	}
	if c.Engine.MaxCompetition != "high" || c.Log.Level != "debug" {
		t.Fatalf("env overrides not applied: %+v", c.Engine)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"weights":     "engine:\n  weights:\n    trend: 0.5\n",
		"competition": "engine:\n  max_competition: extreme\n",
		"cache type":  "cache:\n  type: file\n",
		"timeframe":   "trends:\n  timeframe: forever\n",
		"kafka":       "kafka:\n  enabled: true\n",
		"log level":   "log:\n  level: loud\n",
	}
	for name, src := range cases {
		if _, err := Parse([]byte("environment: test\n"+src), nil); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestParseBadEnvNumber(t *testing.T) {
	_, err := Parse([]byte("environment: test\n"), func(k string) string {
		if k == "MIN_PROFITABILITY_SCORE" {
			return "lots"
		}
		return ""
	})
	if err == nil || !strings.Contains(err.Error(), "MIN_PROFITABILITY_SCORE") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}

func TestLoadWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(cfgPath, []byte("environment: test\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(envPath, []byte("TRENDS_BASE_URL=http://trends.internal\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRENDS_BASE_URL", "")
	os.Unsetenv("TRENDS_BASE_URL")

	c, err := LoadWithEnv(cfgPath, envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Trends.BaseURL != "http://trends.internal" {
		t.Fatalf("expected .env value, got %q", c.Trends.BaseURL)
	}
	if _, err := LoadWithEnv(cfgPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing env file must be ignored: %v", err)
	}
}
