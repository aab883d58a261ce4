package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nichescope/pkg/logger"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
		BodyLimit       string        `yaml:"body_limit" default:"1M"`
	} `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"5s"`
	} `yaml:"metrics"`
	Cache struct {
		Type          string        `yaml:"type" default:"memory" validate:"oneof=memory redis layered"`
		TrendsTTL     time.Duration `yaml:"trends_ttl" default:"24h"`
		KeepaTTL      time.Duration `yaml:"keepa_ttl" default:"1h"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"5000" validate:"gt=0"`
		MemoryTTL     time.Duration `yaml:"memory_ttl" default:"5m"`
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"1m" validate:"gt=0"`
		Redis         struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"nichescope"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Trends struct {
		BaseURL           string        `yaml:"base_url" default:"http://localhost:8090"`
		Geo               string        `yaml:"geo" default:"US"`
		Timeframe         string        `yaml:"timeframe" default:"today 12-m"`
		RequestsPerMinute int           `yaml:"requests_per_minute" default:"30" validate:"gt=0"`
		BatchSize         int           `yaml:"batch_size" default:"5" validate:"gt=0"`
		BatchDelay        time.Duration `yaml:"batch_delay" default:"2s"`
		Timeout           time.Duration `yaml:"timeout" default:"30s"`
		Retries           int           `yaml:"retries" default:"2" validate:"gte=0,lte=5"`
	} `yaml:"trends"`
	Keepa struct {
		BaseURL           string        `yaml:"base_url" default:"https://api.keepa.com"`
		APIKey            string        `yaml:"api_key"`
		Domain            int           `yaml:"domain" default:"1"`
		RequestsPerMinute int           `yaml:"requests_per_minute" default:"60" validate:"gt=0"`
		Timeout           time.Duration `yaml:"timeout" default:"30s"`
		Retries           int           `yaml:"retries" default:"2" validate:"gte=0,lte=5"`
	} `yaml:"keepa"`
	Scraper struct {
		Enabled           bool          `yaml:"enabled" default:"false"`
		Country           string        `yaml:"country" default:"US"`
		RequestsPerMinute int           `yaml:"requests_per_minute" default:"10" validate:"gt=0"`
		Timeout           time.Duration `yaml:"timeout" default:"20s"`
	} `yaml:"scraper"`
	Engine struct {
		Weights struct {
			Trend       float64 `yaml:"trend" default:"0.25"`
			Competition float64 `yaml:"competition" default:"0.30"`
			Market      float64 `yaml:"market" default:"0.20"`
			Seasonality float64 `yaml:"seasonality" default:"0.15"`
			ContentGap  float64 `yaml:"content_gap" default:"0.10"`
		} `yaml:"weights"`
		MaxExpandedKeywords   int     `yaml:"max_expanded_keywords" default:"200" validate:"gt=0"`
		MaxAnalyzedKeywords   int     `yaml:"max_analyzed_keywords" default:"50" validate:"gt=0"`
		MaxCompetitionLookups int     `yaml:"max_competition_lookups" default:"20" validate:"gt=0"`
		ProductsPerKeyword    int     `yaml:"products_per_keyword" default:"20" validate:"gt=0,lte=100"`
		MinProfitability      float64 `yaml:"min_profitability" default:"60" validate:"gte=0,lte=100"`
		MaxCompetition        string  `yaml:"max_competition" default:"medium"`
		MaxNiches             int     `yaml:"max_niches" default:"10" validate:"gt=0"`
	} `yaml:"engine"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled" default:"false"`
		Brokers     []string `yaml:"brokers"`
		Compression string   `yaml:"compression" default:"snappy"`
		Topics      struct {
			Reports  string `yaml:"reports" default:"nichescope.reports"`
			Requests string `yaml:"requests" default:"nichescope.evaluation-requests"`
		} `yaml:"topics"`
		Producer struct {
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
			Async        bool          `yaml:"async"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"nichescope"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
			Offset     string        `yaml:"auto_offset_reset" default:"earliest" validate:"oneof=earliest latest"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled" default:"false"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"nichescope"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		WaitForAsync bool          `yaml:"wait_for_async" default:"true"`
		MaxExecTime  time.Duration `yaml:"max_execution_time" default:"60s"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Reports struct {
		BufferSize   int           `yaml:"buffer_size" default:"256" validate:"gt=0"`
		DedupeWindow time.Duration `yaml:"dedupe_window" default:"10m"`
		MemoryMax    int           `yaml:"memory_max" default:"200" validate:"gt=0"`
	} `yaml:"reports"`
	Queue struct {
		Enabled    bool          `yaml:"enabled" default:"false"`
		Mode       string        `yaml:"mode" default:"both" validate:"oneof=both producer consumer"`
		Workers    int           `yaml:"workers" default:"2" validate:"gt=0"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		Prefix     string        `yaml:"prefix" default:"nichescope:queue"`
	} `yaml:"queue"`
	API struct {
		RateLimit struct {
			Capacity     float64 `yaml:"capacity" default:"20"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
		} `yaml:"rate_limit"`
	} `yaml:"api"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file. Missing fields take their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, nil)
}

// LoadWithEnv loads an optional .env file, then the YAML config, then applies
// environment overrides before validating.
func LoadWithEnv(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, os.Getenv)
}

// Parse decodes YAML bytes, applies defaults and validates. getenv, when set, supplies overrides.
func Parse(b []byte, getenv func(string) string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if getenv != nil {
		if err := c.applyEnv(getenv); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("KEEPA_API_KEY"); v != "" {
		c.Keepa.APIKey = v
	}
	if v := getenv("TRENDS_BASE_URL"); v != "" {
		c.Trends.BaseURL = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("CACHE_TYPE"); v != "" {
		c.Cache.Type = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("MIN_PROFITABILITY_SCORE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MIN_PROFITABILITY_SCORE: %w", err)
		}
		c.Engine.MinProfitability = f
	}
	if v := getenv("MAX_COMPETITION_LEVEL"); v != "" {
		c.Engine.MaxCompetition = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	w := c.Engine.Weights
	if sum := w.Trend + w.Competition + w.Market + w.Seasonality + w.ContentGap; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("engine.weights must sum to 1, got %.6f", sum)
	}
	switch strings.ToLower(c.Engine.MaxCompetition) {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("engine.max_competition must be low, medium or high, got %q", c.Engine.MaxCompetition)
	}
	if _, ok := validTimeframes[c.Trends.Timeframe]; !ok {
		return fmt.Errorf("trends.timeframe %q is not supported", c.Trends.Timeframe)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Type != "memory" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for cache type %s", c.Cache.Type)
	}
	return nil
}

var validTimeframes = map[string]struct{}{
	"today 3-m":  {},
	"today 12-m": {},
	"today 24-m": {},
	"today 5-y":  {},
}
