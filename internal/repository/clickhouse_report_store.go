package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nichescope/internal/domain/models"
	domrepo "nichescope/internal/domain/repository"
	pkgch "nichescope/pkg/clickhouse"
	applogger "nichescope/pkg/logger"
)

// nicheChunkSize bounds the rows of one multi-row insert.
const nicheChunkSize = 500

// CHReportStore implements ReportStore backed by ClickHouse.
// Full reports are kept as JSON payloads next to the columns used for filtering.
type CHReportStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHReportStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHReportStore {
	if l == nil {
		l = applogger.Nop()
	}
	if database == "" {
		database = "nichescope"
	}
	return &CHReportStore{ch: ch, db: ch.DB(), database: database, l: l}
}

// Schema returns the idempotent DDL for database.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.evaluations (
			run_id String,
			seed_keywords Array(String),
			min_profitability Float64,
			max_competition LowCardinality(String),
			niches UInt32,
			errors UInt32,
			payload String,
			started_at DateTime64(3),
			finished_at DateTime64(3)
		) ENGINE = MergeTree ORDER BY (finished_at, run_id)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.evaluation_niches (
			run_id String,
			rank UInt16,
			keyword String,
			profitability Float64,
			competition Float64,
			market_size Float64,
			confidence Float64,
			overall Float64,
			competition_level LowCardinality(String),
			created_at DateTime64(3)
		) ENGINE = MergeTree ORDER BY (keyword, created_at)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.stress_reports (
			id String,
			keyword String,
			baseline_score Float64,
			overall_resilience Float64,
			risk_profile LowCardinality(String),
			scenarios UInt16,
			failed UInt16,
			confidence Float64,
			payload String,
			tested_at DateTime64(3)
		) ENGINE = MergeTree ORDER BY (keyword, tested_at)`, database),
	}
}

func (s *CHReportStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, Schema(s.database))
}

func (s *CHReportStore) SaveEvaluation(ctx context.Context, r *models.EvaluationResult) error {
	start := time.Now()
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s.evaluations
		(run_id, seed_keywords, min_profitability, max_competition, niches, errors, payload, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	if _, err := s.db.ExecContext(ctx, q,
		r.RunID,
		r.SeedKeywords,
		r.MinProfitability,
		string(r.MaxCompetition),
		uint32(len(r.Niches)),
		uint32(len(r.Errors)),
		string(payload),
		r.StartedAt,
		r.FinishedAt,
	); err != nil {
		s.l.Error("clickhouse save_evaluation error", applogger.String("run_id", r.RunID), applogger.Error(err))
		return fmt.Errorf("save evaluation: %w", err)
	}
	if err := s.saveNiches(ctx, r.RunID, r.Niches); err != nil {
		s.l.Error("clickhouse save_niches error", applogger.String("run_id", r.RunID), applogger.Error(err))
		return err
	}
	s.l.Debug("clickhouse save_evaluation ok",
		applogger.String("run_id", r.RunID),
		applogger.Int("niches", len(r.Niches)),
		applogger.Duration("duration_ms", time.Since(start)))
	return nil
}

// saveNiches writes one row per ranked niche using multi-row inserts.
func (s *CHReportStore) saveNiches(ctx context.Context, runID string, niches []*models.Niche) error {
	for start := 0; start < len(niches); start += nicheChunkSize {
		end := start + nicheChunkSize
		if end > len(niches) {
			end = len(niches)
		}
		q, args := nicheInsert(s.database, runID, start, niches[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("save niches: %w", err)
		}
	}
	return nil
}

func nicheInsert(database, runID string, offset int, niches []*models.Niche) (string, []interface{}) {
	values := make([]string, 0, len(niches))
	args := make([]interface{}, 0, len(niches)*10)
	for i, n := range niches {
		if n == nil || n.PrimaryKeyword == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			runID,
			uint16(offset+i+1),
			n.PrimaryKeyword,
			n.Scores.Profitability,
			n.Scores.Competition,
			n.Scores.MarketSize,
			n.Scores.Confidence,
			n.OverallScore(),
			string(n.CompetitionLevel()),
			n.CreatedAt,
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf(`INSERT INTO %s.evaluation_niches
		(run_id, rank, keyword, profitability, competition, market_size, confidence, overall, competition_level, created_at)
		VALUES %s`, database, strings.Join(values, ","))
	return q, args
}

func (s *CHReportStore) SaveStressReport(ctx context.Context, r *models.StressTestReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal stress report: %w", err)
	}
	row := stressRow(r)
	q := fmt.Sprintf(`INSERT INTO %s.stress_reports
		(id, keyword, baseline_score, overall_resilience, risk_profile, scenarios, failed, confidence, payload, tested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	if _, err := s.db.ExecContext(ctx, q,
		row.ID,
		row.Keyword,
		row.BaselineScore,
		row.OverallResilience,
		row.RiskProfile,
		uint16(row.Scenarios),
		uint16(row.Failed),
		row.Confidence,
		string(payload),
		row.TestedAt,
	); err != nil {
		s.l.Error("clickhouse save_stress_report error",
			applogger.String("id", row.ID),
			applogger.String("keyword", row.Keyword),
			applogger.Error(err))
		return fmt.Errorf("save stress report: %w", err)
	}
	return nil
}

// RecentStressReports returns the newest reports first. An empty keyword matches every niche.
func (s *CHReportStore) RecentStressReports(ctx context.Context, keyword string, limit int) ([]domrepo.StressReportRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := fmt.Sprintf(`
		SELECT id, keyword, baseline_score, overall_resilience, risk_profile, scenarios, failed, confidence, tested_at
		FROM %s.stress_reports
		WHERE (? = '' OR keyword = ?)
		ORDER BY tested_at DESC
		LIMIT ?`, s.database)
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	rows, err := s.db.QueryContext(ctx, q, keyword, keyword, limit)
	if err != nil {
		s.l.Error("clickhouse recent_stress_reports query error", applogger.String("keyword", keyword), applogger.Error(err))
		return nil, fmt.Errorf("query stress reports: %w", err)
	}
	defer rows.Close()

	out := make([]domrepo.StressReportRow, 0, limit)
	for rows.Next() {
		var (
			r                 domrepo.StressReportRow
			scenarios, failed uint16
		)
		if err := rows.Scan(&r.ID, &r.Keyword, &r.BaselineScore, &r.OverallResilience, &r.RiskProfile,
			&scenarios, &failed, &r.Confidence, &r.TestedAt); err != nil {
			return nil, fmt.Errorf("scan stress report: %w", err)
		}
		r.Scenarios, r.Failed = int(scenarios), int(failed)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHReportStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHReportStore) Close() error {
	return nil // connection pool is owned by pkg/clickhouse
}

// stressRow flattens a report into its queryable columns.
func stressRow(r *models.StressTestReport) domrepo.StressReportRow {
	return domrepo.StressReportRow{
		ID:                r.ID,
		Keyword:           strings.ToLower(strings.TrimSpace(r.NicheKeyword)),
		BaselineScore:     r.BaselineScore,
		OverallResilience: r.OverallResilience,
		RiskProfile:       string(r.RiskProfile),
		Scenarios:         len(r.Results) + len(r.FailedScenarios),
		Failed:            len(r.FailedScenarios),
		Confidence:        r.Confidence,
		TestedAt:          r.TestedAt,
	}
}

var _ domrepo.ReportStore = (*CHReportStore)(nil)
