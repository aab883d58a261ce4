package usecase

import (
	"context"

	"nichescope/internal/domain/models"
	drepo "nichescope/internal/domain/repository"
	mid "nichescope/internal/middleware"
)

// ReportCollector routes finished reports to the processor, through the buffering
// pipeline when one is configured.
type ReportCollector struct {
	proc    *ReportProcessor
	metrics drepo.Metrics
	pipe    *mid.ReportPipeline
}

// NewReportCollector creates a new ReportCollector. pipe may be nil.
func NewReportCollector(proc *ReportProcessor, metrics drepo.Metrics, pipe *mid.ReportPipeline) *ReportCollector {
	return &ReportCollector{proc: proc, metrics: metrics, pipe: pipe}
}

func (c *ReportCollector) Start(ctx context.Context) {
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
}

func (c *ReportCollector) Process(ctx context.Context, r *models.Report) error {
	if c.pipe != nil {
		return c.pipe.Process(ctx, r)
	}
	if err := c.proc.Process(ctx, r); err != nil {
		c.metrics.RecordError("report_sink")
		return err
	}
	return nil
}

// Shutdown flushes the pipeline and closes the processor's store and publisher.
func (c *ReportCollector) Shutdown(_ context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	c.proc.Close()
	return nil
}

var _ ReportSink = (*ReportCollector)(nil)
