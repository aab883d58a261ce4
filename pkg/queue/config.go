package queue

import (
	"fmt"
	"time"
)

// Mode decides which side of the queue a node runs.
type Mode string

const (
	ModeBoth     Mode = "both"
	ModeProducer Mode = "producer"
	ModeConsumer Mode = "consumer"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeBoth, ModeProducer, ModeConsumer:
		return m, nil
	case "":
		return ModeBoth, nil
	}
	return "", fmt.Errorf("queue: unknown mode %q", s)
}

func (m Mode) consumes() bool { return m != ModeProducer }

type Config struct {
	Mode       Mode
	Workers    int
	RetryLimit int
	// RetryDelay is the first retry delay. It doubles per attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// Poll bounds how long a worker blocks on an empty queue and how often due retries
	// are promoted.
	Poll   time.Duration
	Prefix string
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeBoth
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = 10 * c.RetryDelay
	}
	if c.Poll <= 0 {
		c.Poll = time.Second
	}
	if c.Prefix == "" {
		c.Prefix = "nichescope:queue"
	}
	return c
}

// retryAt schedules attempt n (1-based) after a failure at now, or reports that the task
// has used up its retries.
func (c Config) retryAt(now time.Time, attempt int) (time.Time, bool) {
	if attempt > c.RetryLimit {
		return time.Time{}, false
	}
	d := c.RetryDelay
	for i := 1; i < attempt && d < c.MaxRetryDelay; i++ {
		d *= 2
	}
	if d > c.MaxRetryDelay {
		d = c.MaxRetryDelay
	}
	return now.Add(d), true
}

func (c Config) pendingKey() string { return c.Prefix + ":pending" }
func (c Config) retryKey() string   { return c.Prefix + ":retry" }
func (c Config) deadKey() string    { return c.Prefix + ":dead" }
