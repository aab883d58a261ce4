package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
	"nichescope/pkg/logger"
)

const (
	maxStressImpact     = 0.95
	maxDurationFactor   = 1.5
	maxRecoveryFactor   = 1.2
	defaultSeasonalVol  = 0.5
	downturnPriceAnchor = 50.0
)

// StressTester simulates adverse scenarios against a scored niche. Each scenario is computed
// independently; a failing scenario is recorded and excluded from aggregation.
type StressTester struct {
	log   *logger.Logger
	now   func() time.Time
	newID func() string
}

type StressTesterOption func(*StressTester)

func WithStressLogger(l *logger.Logger) StressTesterOption {
	return func(s *StressTester) {
		if l != nil {
			s.log = l
		}
	}
}

func WithStressClock(now func() time.Time) StressTesterOption {
	return func(s *StressTester) { s.now = now }
}

// WithReportIDs overrides report ID generation.
func WithReportIDs(gen func() string) StressTesterOption {
	return func(s *StressTester) { s.newID = gen }
}

func NewStressTester(opts ...StressTesterOption) *StressTester {
	s := &StressTester{
		log:   logger.Nop(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run tests the niche against the given scenarios, or against every default scenario when
// none are given. When all scenarios fail the report is still returned, flagged with
// NoUsableResults, together with ErrNoUsableScenarios.
func (s *StressTester) Run(niche *models.Niche, scenarios []models.ScenarioParameters) (*models.StressTestReport, error) {
	if niche == nil {
		return nil, fmt.Errorf("stress test: %w", models.ErrNicheNotFound)
	}
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}

	baseline := niche.OverallScore()
	report := &models.StressTestReport{
		ID:            s.newID(),
		NicheKeyword:  niche.PrimaryKeyword,
		Baseline:      niche,
		BaselineScore: baseline,
		TestedAt:      s.now(),
	}

	for _, p := range scenarios {
		res, err := s.simulateSafe(niche, baseline, p)
		if err != nil {
			s.log.Warn("stress scenario failed",
				logger.String("niche", niche.PrimaryKeyword),
				logger.String("scenario", string(p.Scenario)),
				logger.Error(err))
			report.FailedScenarios = append(report.FailedScenarios, models.FailedScenario{
				Scenario: p.Scenario,
				Reason:   err.Error(),
			})
			continue
		}
		report.Results = append(report.Results, res)
	}

	report.DataCompleteness = dataCompleteness(niche)
	report.ContingencyPlans = contingencyPlans(report.Results)

	if len(report.Results) == 0 {
		report.NoUsableResults = true
		report.RiskProfile = models.RiskVeryHigh
		report.Confidence = testConfidence(niche, 0)
		return report, fmt.Errorf("stress test %q: %d scenario(s) failed: %w",
			niche.PrimaryKeyword, len(report.FailedScenarios), models.ErrNoUsableScenarios)
	}

	res := report.Results
	report.OverallResilience = overallResilience(res)
	report.RiskProfile = riskProfile(res, report.OverallResilience)
	report.CriticalVulnerabilities = criticalVulnerabilities(res)
	report.RecommendedMitigations = rankedMitigations(res)
	report.HighestRisk = highestRisk(res)
	report.LowestResilience = lowestResilience(res)
	report.Survival = survivalAnalysis(res)
	report.MonitoringPriorities = monitoringPriorities(res)
	report.Confidence = testConfidence(niche, len(res))
	return report, nil
}

// simulateSafe turns a panic inside one scenario into an error for that scenario only.
func (s *StressTester) simulateSafe(n *models.Niche, baseline float64, p models.ScenarioParameters) (res models.ScenarioResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario %s panicked: %v", p.Scenario, r)
		}
	}()
	return s.Simulate(n, baseline, p)
}

// Simulate computes one scenario outcome for a niche with the given baseline score.
func (s *StressTester) Simulate(n *models.Niche, baseline float64, p models.ScenarioParameters) (models.ScenarioResult, error) {
	if err := p.Validate(); err != nil {
		return models.ScenarioResult{}, err
	}
	if math.IsNaN(baseline) || baseline < 0 {
		return models.ScenarioResult{}, fmt.Errorf("scenario %s: invalid baseline %v", p.Scenario, baseline)
	}

	impact := stressImpact(n, p)
	stressed := math.Max(0, baseline*(1-impact))
	recovery := math.Min(baseline, stressed+(baseline-stressed)*recoveryFactor(n, p, impact))

	var resilience, impactPct float64
	if baseline > 0 {
		resilience = stressed / baseline * 100
		impactPct = (baseline - stressed) / baseline * 100
	}
	for _, v := range []float64{stressed, recovery, resilience, impactPct} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.ScenarioResult{}, errors.New("non-finite scenario result")
		}
	}

	return models.ScenarioResult{
		Scenario:            p.Scenario,
		Parameters:          p,
		InitialScore:        round(baseline, 1),
		StressedScore:       round(stressed, 1),
		RecoveryScore:       round(recovery, 1),
		ImpactPercentage:    round(clamp(impactPct, 0, 100), 1),
		ResilienceScore:     round(clamp(resilience, 0, 100), 1),
		SurvivalProbability: round(survivalProbability(stressed, recovery, p), 2),
		Vulnerabilities:     vulnerabilities(n, p, impact),
		Mitigations:         mitigations(n, p),
	}, nil
}

// stressImpact is severity/2 scaled by how exposed the niche is to the scenario and by
// duration, capped at 0.95.
func stressImpact(n *models.Niche, p models.ScenarioParameters) float64 {
	impact := p.Severity * 0.5
	sc := n.Scores

	switch p.Scenario {
	case models.ScenarioMarketSaturation:
		impact *= 1 + sc.Competition/100
	case models.ScenarioEconomicDownturn:
		if price, ok := n.AvgPrice(); ok {
			impact *= 1 + math.Min(1, price/downturnPriceAnchor)*0.5
		}
	case models.ScenarioCompetitiveFlooding:
		impact *= 1 + (100-sc.Competition)/100*0.8
	case models.ScenarioSeasonalCrash:
		vol, ok := n.Seasonal.Volatility()
		if !ok {
			vol = defaultSeasonalVol
		}
		impact *= 1 + vol
	case models.ScenarioTrendReversal:
		if n.Trend != nil {
			impact *= 1 + n.Trend.Score/100*0.7
		}
	case models.ScenarioConsumerShift:
		impact *= 1 + (100-sc.MarketSize)/100*0.6
	}

	impact *= math.Min(maxDurationFactor, float64(p.DurationMonths)/12)
	return clamp(impact, 0, maxStressImpact)
}

// recoveryFactor is the share of lost score regained after the scenario ends, within [0.1, 1].
func recoveryFactor(n *models.Niche, p models.ScenarioParameters, impact float64) float64 {
	sc := n.Scores
	f := 0.7
	f += sc.Profitability / 100 * 0.2
	f += (100 - sc.Competition) / 100 * 0.15
	f += sc.MarketSize / 100 * 0.1
	f *= math.Min(maxRecoveryFactor, float64(p.RecoveryMonths)/12)
	f *= 1 - impact*0.3
	return clamp(f, 0.1, 1)
}

func survivalProbability(stressed, recovery float64, p models.ScenarioParameters) float64 {
	var base float64
	switch {
	case stressed >= 60:
		base = 0.95
	case stressed >= 40:
		base = 0.8
	case stressed >= 20:
		base = 0.6
	case stressed >= 10:
		base = 0.3
	default:
		base = 0.1
	}
	base += recovery / 100 * 0.2
	base -= p.Severity * 0.15
	base -= math.Min(0.2, float64(p.DurationMonths)/24)
	return clamp(base, 0.05, 1)
}

var _ domsvc.StressTester = (*StressTester)(nil)
