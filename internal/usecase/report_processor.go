package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nichescope/internal/domain/models"
	drepo "nichescope/internal/domain/repository"
)

// ReportProcessor writes finished reports to the store and, when configured, to the stream.
type ReportProcessor struct {
	store   drepo.ReportStore
	pub     drepo.ReportPublisher
	metrics drepo.Metrics
}

// NewReportProcessor creates a new ReportProcessor. pub may be nil.
func NewReportProcessor(store drepo.ReportStore, pub drepo.ReportPublisher, metrics drepo.Metrics) *ReportProcessor {
	return &ReportProcessor{store: store, pub: pub, metrics: metrics}
}

// Process stores the report, then publishes it. Both sinks are attempted and their errors joined.
func (p *ReportProcessor) Process(ctx context.Context, r *models.Report) error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	start := time.Now()

	var storeErr, pubErr error
	switch {
	case r.Evaluation != nil:
		storeErr = p.store.SaveEvaluation(ctx, r.Evaluation)
		if p.pub != nil {
			pubErr = p.pub.PublishEvaluation(ctx, r.Evaluation)
		}
	case r.Stress != nil:
		storeErr = p.store.SaveStressReport(ctx, r.Stress)
		if p.pub != nil {
			pubErr = p.pub.PublishStressReport(ctx, r.Stress)
		}
	default:
		return fmt.Errorf("report has no payload")
	}

	if storeErr != nil {
		p.metrics.RecordError("report_store")
		storeErr = fmt.Errorf("store %s report: %w", r.Kind(), storeErr)
	}
	if pubErr != nil {
		p.metrics.RecordError("report_publish")
		pubErr = fmt.Errorf("publish %s report: %w", r.Kind(), pubErr)
	}
	if err := errors.Join(storeErr, pubErr); err != nil {
		return err
	}
	p.metrics.RecordLatency("report_"+r.Kind(), time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *ReportProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
