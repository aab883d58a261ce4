package analytics

import (
	"fmt"

	"nichescope/internal/domain/models"
)

var defaultScenarios = []models.ScenarioParameters{
	{
		Scenario:       models.ScenarioMarketSaturation,
		Severity:       0.7,
		DurationMonths: 6,
		RecoveryMonths: 12,
		Probability:    0.3,
		Description:    "Market becomes oversaturated with similar products",
	},
	{
		Scenario:       models.ScenarioEconomicDownturn,
		Severity:       0.6,
		DurationMonths: 8,
		RecoveryMonths: 18,
		Probability:    0.2,
		Description:    "Economic recession reduces consumer spending",
	},
	{
		Scenario:       models.ScenarioCompetitiveFlooding,
		Severity:       0.8,
		DurationMonths: 4,
		RecoveryMonths: 8,
		Probability:    0.4,
		Description:    "Large number of competitors enter the niche rapidly",
	},
	{
		Scenario:       models.ScenarioSeasonalCrash,
		Severity:       0.9,
		DurationMonths: 3,
		RecoveryMonths: 6,
		Probability:    0.5,
		Description:    "Seasonal demand drops significantly below normal",
	},
	{
		Scenario:       models.ScenarioPlatformChanges,
		Severity:       0.5,
		DurationMonths: 3,
		RecoveryMonths: 9,
		Probability:    0.3,
		Description:    "Platform algorithm or policy changes affect visibility",
	},
	{
		Scenario:       models.ScenarioTrendReversal,
		Severity:       0.8,
		DurationMonths: 12,
		RecoveryMonths: 24,
		Probability:    0.25,
		Description:    "Current trend reverses and interest declines",
	},
	{
		Scenario:       models.ScenarioConsumerShift,
		Severity:       0.6,
		DurationMonths: 9,
		RecoveryMonths: 15,
		Probability:    0.35,
		Description:    "Consumer preferences shift away from niche",
	},
	{
		Scenario:       models.ScenarioSupplyChainDisruption,
		Severity:       0.4,
		DurationMonths: 2,
		RecoveryMonths: 4,
		Probability:    0.15,
		Description:    "Printing or distribution disruptions affect availability",
	},
}

// DefaultScenarios returns a copy of the built-in scenario library in its canonical order.
func DefaultScenarios() []models.ScenarioParameters {
	return append([]models.ScenarioParameters(nil), defaultScenarios...)
}

// DefaultScenario looks up the built-in parameters of one scenario.
func DefaultScenario(s models.StressScenario) (models.ScenarioParameters, bool) {
	for _, p := range defaultScenarios {
		if p.Scenario == s {
			return p, true
		}
	}
	return models.ScenarioParameters{}, false
}

// ScenariosByName resolves scenario names to their default parameters. An empty list selects
// every default scenario. Duplicates are ignored and unknown names are an error.
func ScenariosByName(names []string) ([]models.ScenarioParameters, error) {
	if len(names) == 0 {
		return DefaultScenarios(), nil
	}
	seen := make(map[models.StressScenario]struct{}, len(names))
	out := make([]models.ScenarioParameters, 0, len(names))
	for _, n := range names {
		s, err := models.ParseStressScenario(n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		p, ok := DefaultScenario(s)
		if !ok {
			return nil, fmt.Errorf("scenario %s: %w", s, models.ErrUnknownScenario)
		}
		out = append(out, p)
	}
	return out, nil
}
