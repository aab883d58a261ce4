package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nichescope/internal/domain/models"
	"nichescope/pkg/metrics"
)

type flakyProc struct {
	mu       sync.Mutex
	failures int
	got      []string
}

func (f *flakyProc) Process(_ context.Context, r *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sink down")
	}
	f.got = append(f.got, r.ID())
	return nil
}

func (f *flakyProc) processed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.got...)
}

func stressReport(id string) *models.Report {
	return &models.Report{Stress: &models.StressTestReport{ID: id, NicheKeyword: "journal"}}
}

func TestPipelineRejectsInvalidReports(t *testing.T) {
	p := NewReportPipeline(&flakyProc{}, metrics.Nop{})
	cases := []*models.Report{
		nil,
		{},
		{Stress: &models.StressTestReport{}},
		{Stress: &models.StressTestReport{ID: "a"}, Evaluation: &models.EvaluationResult{RunID: "b"}},
	}
	for i, r := range cases {
		if err := p.Process(context.Background(), r); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestPipelineDropsDuplicates(t *testing.T) {
	proc := &flakyProc{}
	p := NewReportPipeline(proc, metrics.Nop{})
	for i := 0; i < 3; i++ {
		if err := p.Process(context.Background(), stressReport("r1")); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if got := proc.processed(); len(got) != 1 {
		t.Fatalf("expected one delivery, got %v", got)
	}
}

func TestPipelineBuffersAndRetries(t *testing.T) {
	proc := &flakyProc{failures: 2}
	p := NewReportPipeline(proc, metrics.Nop{}, WithBufferSize(4))

	if err := p.Process(context.Background(), stressReport("r1")); err == nil {
		t.Fatalf("expected downstream error")
	}
	if p.Buffered() != 1 {
		t.Fatalf("expected the report to be buffered, got %d", p.Buffered())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := proc.processed(); len(got) == 1 && got[0] == "r1" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("buffered report was not flushed, got %v", proc.processed())
}
