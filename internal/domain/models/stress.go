package models

import (
	"strings"
	"time"
)

type StressScenario string

const (
	ScenarioMarketSaturation      StressScenario = "market_saturation"
	ScenarioEconomicDownturn      StressScenario = "economic_downturn"
	ScenarioCompetitiveFlooding   StressScenario = "competitive_flooding"
	ScenarioSeasonalCrash         StressScenario = "seasonal_crash"
	ScenarioPlatformChanges       StressScenario = "platform_changes"
	ScenarioTrendReversal         StressScenario = "trend_reversal"
	ScenarioConsumerShift         StressScenario = "consumer_shift"
	ScenarioSupplyChainDisruption StressScenario = "supply_chain_disruption"
)

// ParseStressScenario accepts any casing of the scenario name.
func ParseStressScenario(s string) (StressScenario, error) {
	sc := StressScenario(strings.ToLower(strings.TrimSpace(s)))
	switch sc {
	case ScenarioMarketSaturation, ScenarioEconomicDownturn, ScenarioCompetitiveFlooding,
		ScenarioSeasonalCrash, ScenarioPlatformChanges, ScenarioTrendReversal,
		ScenarioConsumerShift, ScenarioSupplyChainDisruption:
		return sc, nil
	}
	return "", invalid(ErrUnknownScenario, "scenario", "unknown scenario %q", s)
}

// ScenarioParameters are the fixed inputs of one adverse scenario.
type ScenarioParameters struct {
	Scenario       StressScenario `json:"scenario" validate:"required"`
	Severity       float64        `json:"severity" validate:"gt=0,lte=1"`
	DurationMonths int            `json:"duration_months" validate:"gte=1,lte=60"`
	RecoveryMonths int            `json:"recovery_months" validate:"gte=0,lte=120"`
	Probability    float64        `json:"probability" validate:"gte=0,lte=1"`
	Description    string         `json:"description"`
}

// Validate checks the parameter bounds.
func (p ScenarioParameters) Validate() error {
	if _, err := ParseStressScenario(string(p.Scenario)); err != nil {
		return err
	}
	if p.Severity <= 0 || p.Severity > 1 {
		return invalid(ErrInvalidScore, "severity", "must be within (0,1], got %.2f", p.Severity)
	}
	if p.DurationMonths <= 0 {
		return invalid(ErrInvalidScore, "duration_months", "must be positive, got %d", p.DurationMonths)
	}
	if p.RecoveryMonths < 0 {
		return invalid(ErrInvalidScore, "recovery_months", "must not be negative, got %d", p.RecoveryMonths)
	}
	if p.Probability < 0 || p.Probability > 1 {
		return invalid(ErrInvalidScore, "probability", "must be within [0,1], got %.2f", p.Probability)
	}
	return nil
}

// ScenarioResult is the simulated outcome of one scenario.
type ScenarioResult struct {
	Scenario            StressScenario     `json:"scenario"`
	Parameters          ScenarioParameters `json:"parameters"`
	InitialScore        float64            `json:"initial_score"`
	StressedScore       float64            `json:"stressed_score"`
	RecoveryScore       float64            `json:"recovery_score"`
	ImpactPercentage    float64            `json:"impact_percentage"`
	ResilienceScore     float64            `json:"resilience_score"`
	SurvivalProbability float64            `json:"survival_probability"`
	Vulnerabilities     []string           `json:"key_vulnerabilities"`
	Mitigations         []string           `json:"mitigation_strategies"`
}

// FailedScenario records a scenario excluded from aggregation.
type FailedScenario struct {
	Scenario StressScenario `json:"scenario"`
	Reason   string         `json:"reason"`
}

// ScenarioRisk ranks a scenario by impact times probability.
type ScenarioRisk struct {
	Scenario            StressScenario `json:"scenario"`
	RiskScore           float64        `json:"risk_score"`
	ImpactPercentage    float64        `json:"impact_percentage"`
	Probability         float64        `json:"probability"`
	ResilienceScore     float64        `json:"resilience_score"`
	SurvivalProbability float64        `json:"survival_probability"`
}

// SurvivalAnalysis summarises survival probabilities across scenarios.
type SurvivalAnalysis struct {
	Average    float64 `json:"average_survival_probability"`
	WorstCase  float64 `json:"worst_case_survival"`
	BestCase   float64 `json:"best_case_survival"`
	Below70Pct int     `json:"scenarios_below_70_percent"`
	Below50Pct int     `json:"scenarios_below_50_percent"`
}

// StressTestReport aggregates all scenario results for a niche.
// NoUsableResults is set when every scenario failed; Resilience is then 0.
type StressTestReport struct {
	ID                      string            `json:"id"`
	NicheKeyword            string            `json:"niche_keyword"`
	Baseline                *Niche            `json:"baseline_niche"`
	BaselineScore           float64           `json:"baseline_score"`
	Results                 []ScenarioResult  `json:"scenario_results"`
	FailedScenarios         []FailedScenario  `json:"failed_scenarios,omitempty"`
	NoUsableResults         bool              `json:"no_usable_results"`
	OverallResilience       float64           `json:"overall_resilience"`
	RiskProfile             RiskLevel         `json:"risk_profile"`
	CriticalVulnerabilities []string          `json:"critical_vulnerabilities"`
	RecommendedMitigations  []string          `json:"recommended_mitigations"`
	HighestRisk             []ScenarioRisk    `json:"highest_risk_scenarios"`
	LowestResilience        []ScenarioRisk    `json:"lowest_resilience_scenarios"`
	Survival                *SurvivalAnalysis `json:"survival_analysis,omitempty"`
	MonitoringPriorities    []string          `json:"monitoring_priorities"`
	ContingencyPlans        []string          `json:"contingency_plans"`
	DataCompleteness        float64           `json:"data_completeness"`
	Confidence              float64           `json:"confidence_level"`
	TestedAt                time.Time         `json:"tested_at"`
}
