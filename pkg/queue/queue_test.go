package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

type payload struct {
	Keyword string   `json:"keyword"`
	Names   []string `json:"names"`
}

func TestTaskDecode(t *testing.T) {
	raw, _ := json.Marshal(payload{Keyword: "journal", Names: []string{"a", "b"}})
	task := Task{ID: "t-1", Type: "stress_test", Payload: raw}
	var got payload
	if err := task.Decode(&got); err != nil || got.Keyword != "journal" || len(got.Names) != 2 {
		t.Fatalf("decode: %+v, %v", got, err)
	}
	if err := (Task{ID: "t-2"}).Decode(&got); err == nil {
		t.Fatalf("expected empty payload error")
	}
	if err := (Task{ID: "t-3", Payload: json.RawMessage(`"text"`)}).Decode(&got); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("niche not found")
	err := fmt.Errorf("job: %w", Permanent(base))
	if !IsPermanent(err) || !errors.Is(err, base) {
		t.Fatalf("wrapped permanent error lost its marks: %v", err)
	}
	if IsPermanent(base) || Permanent(nil) != nil {
		t.Fatalf("plain errors are retryable and nil stays nil")
	}
}

func TestRetrySchedule(t *testing.T) {
	cfg := Config{RetryLimit: 4, RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second}.withDefaults()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, w := range want {
		at, ok := cfg.retryAt(now, i+1)
		if !ok || at.Sub(now) != w {
			t.Fatalf("attempt %d: got %v, %v want %v", i+1, at.Sub(now), ok, w)
		}
	}
	if _, ok := cfg.retryAt(now, 5); ok {
		t.Fatalf("attempt past the limit must not be retried")
	}
}

func TestConfigDefaultsAndKeys(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Mode != ModeBoth || cfg.Workers != 1 || cfg.MaxRetryDelay != 100*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.pendingKey() != "nichescope:queue:pending" || cfg.deadKey() != "nichescope:queue:dead" {
		t.Fatalf("unexpected keys %s %s", cfg.pendingKey(), cfg.deadKey())
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("consumer"); err != nil || m.consumes() != true {
		t.Fatalf("consumer: %v %v", m, err)
	}
	if m, _ := ParseMode("producer"); m.consumes() {
		t.Fatalf("producers do not consume")
	}
	if m, _ := ParseMode(""); m != ModeBoth {
		t.Fatalf("empty mode defaults to both, got %q", m)
	}
	if _, err := ParseMode("worker"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}

func TestMessageID(t *testing.T) {
	if id := MessageID(context.Background()); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
	if id := MessageID(WithMessageID(context.Background(), "m-1")); id != "m-1" {
		t.Fatalf("expected m-1, got %q", id)
	}
}
