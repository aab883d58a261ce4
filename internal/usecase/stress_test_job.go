package usecase

import (
	"context"
	"errors"
	"fmt"

	"nichescope/internal/domain/models"
	"nichescope/pkg/logger"
	"nichescope/pkg/queue"
)

// StressTestJob runs queued stress tests. The report carries the queue message ID.
type StressTestJob struct {
	svc *NicheService
	log *logger.Logger
}

func NewStressTestJob(svc *NicheService, l *logger.Logger) *StressTestJob {
	if l == nil {
		l = logger.Nop()
	}
	return &StressTestJob{svc: svc, log: l}
}

func (j *StressTestJob) Type() string { return StressTestJobType }

// Handle returns a retryable error only for infrastructure failures. Invalid requests and
// niches without usable scenarios are final and land in the dead list.
func (j *StressTestJob) Handle(ctx context.Context, t queue.Task) error {
	ctx = queue.WithMessageID(ctx, t.ID)
	var req models.StressTestRequest
	if err := t.Decode(&req); err != nil {
		return queue.Permanent(err)
	}
	report, err := j.svc.StressTest(ctx, req)
	switch {
	case err == nil:
		j.log.Info("stress job finished",
			logger.String("id", report.ID),
			logger.String("niche", report.NicheKeyword),
			logger.Int("attempt", t.Attempt),
			logger.Float64("resilience", report.OverallResilience))
		return nil
	case models.IsValidation(err), errors.Is(err, models.ErrNoUsableScenarios), errors.Is(err, models.ErrNicheNotFound):
		return queue.Permanent(fmt.Errorf("stress test %q: %w", req.Keyword, err))
	default:
		return fmt.Errorf("stress job %s: %w", t.ID, err)
	}
}

var _ queue.Job = (*StressTestJob)(nil)
