package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nichescope/internal/domain/models"
	domrepo "nichescope/internal/domain/repository"
	"nichescope/pkg/logger"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, r *models.Report) error
}

// ReportPipeline sits between the engine and the report sinks.
// It validates and de-duplicates reports, and buffers them while the sinks are unavailable.
type ReportPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	log     *logger.Logger
	bufSize int
	dedupe  time.Duration
	bufCh   chan *models.Report
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
	seen    map[string]time.Time // report id -> first accepted
}

type PipelineOption func(*ReportPipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *ReportPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithDedupeWindow sets how long a report ID is remembered. Zero disables de-duplication.
func WithDedupeWindow(d time.Duration) PipelineOption {
	return func(p *ReportPipeline) {
		if d >= 0 {
			p.dedupe = d
		}
	}
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *ReportPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewReportPipeline creates a new pipeline.
func NewReportPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ReportPipeline {
	p := &ReportPipeline{
		proc:    proc,
		metrics: metrics,
		log:     logger.Nop(),
		bufSize: 256,
		dedupe:  10 * time.Minute,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		seen:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Report, p.bufSize)
	return p
}

// Start launches background flushing of buffered reports.
func (p *ReportPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case r := <-p.bufCh:
				if err := p.proc.Process(ctx, r); err != nil {
					p.metrics.RecordError("pipeline_flush")
					p.log.Warn("report flush failed",
						logger.String("kind", r.Kind()),
						logger.String("id", r.ID()),
						logger.Duration("backoff", backoff),
						logger.Error(err))
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					case <-ctx.Done():
						return
					}
					if backoff < 2*time.Second {
						backoff *= 2
					}
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- r:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Stop stops the background flushing and waits for it to exit.
func (p *ReportPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
	if n := len(p.bufCh); n > 0 {
		p.log.Warn("report pipeline stopped with buffered reports", logger.Int("buffered", n))
	}
}

// Buffered returns the number of reports waiting for a retry.
func (p *ReportPipeline) Buffered() int { return len(p.bufCh) }

// Process validates, de-duplicates and forwards a report, buffering it on downstream errors.
func (p *ReportPipeline) Process(ctx context.Context, r *models.Report) error {
	start := time.Now()
	if err := validateReport(r); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.firstSeen(r.ID(), start) {
		p.metrics.RecordError("pipeline_duplicate")
		return nil
	}

	if err := p.proc.Process(ctx, r); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- r:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

var errEmptyReport = errors.New("report has no payload")

func validateReport(r *models.Report) error {
	if r == nil || (r.Evaluation == nil && r.Stress == nil) {
		return errEmptyReport
	}
	if r.Evaluation != nil && r.Stress != nil {
		return fmt.Errorf("report carries both an evaluation and a stress report")
	}
	if r.ID() == "" {
		return fmt.Errorf("%s report without id", r.Kind())
	}
	return nil
}

func (p *ReportPipeline) firstSeen(id string, now time.Time) bool {
	if p.dedupe <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, t := range p.seen {
		if now.Sub(t) > p.dedupe {
			delete(p.seen, k)
		}
	}
	if _, ok := p.seen[id]; ok {
		return false
	}
	p.seen[id] = now
	return true
}
