package repository

import (
	"context"
	"strings"
	"sync"

	"nichescope/internal/domain/models"
	domrepo "nichescope/internal/domain/repository"
)

// MemoryReportStore keeps the most recent reports in process. It backs the
// report endpoints when ClickHouse is disabled.
type MemoryReportStore struct {
	mu          sync.RWMutex
	max         int
	evaluations []*models.EvaluationResult
	stress      []domrepo.StressReportRow
}

func NewMemoryReportStore(max int) *MemoryReportStore {
	if max <= 0 {
		max = 200
	}
	return &MemoryReportStore{max: max}
}

func (s *MemoryReportStore) Init(context.Context) error { return nil }

func (s *MemoryReportStore) SaveEvaluation(_ context.Context, r *models.EvaluationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations = append(s.evaluations, r)
	if over := len(s.evaluations) - s.max; over > 0 {
		s.evaluations = s.evaluations[over:]
	}
	return nil
}

func (s *MemoryReportStore) SaveStressReport(_ context.Context, r *models.StressTestReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stress = append(s.stress, stressRow(r))
	if over := len(s.stress) - s.max; over > 0 {
		s.stress = s.stress[over:]
	}
	return nil
}

func (s *MemoryReportStore) RecentStressReports(_ context.Context, keyword string, limit int) ([]domrepo.StressReportRow, error) {
	if limit <= 0 {
		limit = 20
	}
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domrepo.StressReportRow, 0, limit)
	for i := len(s.stress) - 1; i >= 0 && len(out) < limit; i-- {
		if keyword == "" || s.stress[i].Keyword == keyword {
			out = append(out, s.stress[i])
		}
	}
	return out, nil
}

// Evaluations returns the number of stored evaluation runs.
func (s *MemoryReportStore) Evaluations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.evaluations)
}

func (s *MemoryReportStore) Health(context.Context) error { return nil }

func (s *MemoryReportStore) Close() error { return nil }

var _ domrepo.ReportStore = (*MemoryReportStore)(nil)
