package analytics

import (
	"sort"
	"strings"

	"nichescope/internal/domain/models"
)

const (
	maxScenarioMitigations = 5
	maxCriticalVulns       = 5
	maxReportMitigations   = 8
	maxRankedScenarios     = 3
	maxMonitoring          = 5
	maxContingency         = 6

	highSeasonalVolatility = 0.6
)

var scenarioMitigations = map[models.StressScenario][]string{
	models.ScenarioMarketSaturation: {
		"Develop unique content angles to differentiate from competitors",
		"Focus on sub-niches with less competition",
		"Build strong brand recognition early",
	},
	models.ScenarioEconomicDownturn: {
		"Consider lower-priced product options",
		"Emphasize value proposition and practical benefits",
		"Diversify into recession-resistant sub-topics",
	},
	models.ScenarioCompetitiveFlooding: {
		"Establish first-mover advantage quickly",
		"Create high-quality content that's hard to replicate",
		"Build customer loyalty through superior value",
	},
	models.ScenarioSeasonalCrash: {
		"Develop year-round content strategy",
		"Create evergreen content to smooth seasonal variations",
		"Plan inventory and marketing around seasonal patterns",
	},
	models.ScenarioPlatformChanges: {
		"Diversify across multiple platforms",
		"Stay updated on platform policy changes",
		"Build direct customer relationships",
	},
	models.ScenarioTrendReversal: {
		"Monitor trend indicators closely",
		"Prepare pivot strategies for related niches",
		"Build adaptable content frameworks",
	},
}

// vulnerabilities lists the weaknesses a scenario exposes in the niche.
func vulnerabilities(n *models.Niche, p models.ScenarioParameters, impact float64) []string {
	var out []string
	if impact > 0.7 {
		out = append(out, "High vulnerability to "+string(p.Scenario))
	}

	switch p.Scenario {
	case models.ScenarioMarketSaturation:
		if n.Scores.Competition > 70 {
			out = append(out, "Already high competition makes saturation more likely")
		}
		if n.Scores.MarketSize < 40 {
			out = append(out, "Small market size limits growth potential")
		}
	case models.ScenarioEconomicDownturn:
		if n.PriceRange != nil && n.PriceRange.Max > 30 {
			out = append(out, "Higher price point vulnerable to economic stress")
		}
		cat := strings.ToLower(n.Category)
		if strings.Contains(cat, "luxury") || strings.Contains(cat, "premium") {
			out = append(out, "Luxury/premium positioning vulnerable in downturns")
		}
	case models.ScenarioCompetitiveFlooding:
		if n.Scores.Competition < 50 {
			out = append(out, "Low competition barriers allow easy entry")
		}
		if len(n.ContentGaps) == 0 {
			out = append(out, "Limited content differentiation opportunities")
		}
	case models.ScenarioSeasonalCrash:
		if vol, ok := n.Seasonal.Volatility(); ok && vol > highSeasonalVolatility {
			out = append(out, "High seasonal volatility increases crash risk")
		}
	}

	if n.Scores.Confidence < 60 {
		out = append(out, "Low confidence in niche data increases uncertainty")
	}
	if n.Scores.Profitability < 50 {
		out = append(out, "Low profitability reduces stress resilience")
	}
	return out
}

func mitigations(n *models.Niche, p models.ScenarioParameters) []string {
	out := append([]string{}, scenarioMitigations[p.Scenario]...)
	if n.Scores.Profitability < 60 {
		out = append(out, "Focus on improving profit margins through premium positioning")
	}
	if n.Scores.MarketSize < 50 {
		out = append(out, "Expand target market through related keywords and topics")
	}
	if n.Scores.Competition > 70 {
		out = append(out, "Identify and exploit competitor weaknesses")
	}
	if len(out) > maxScenarioMitigations {
		out = out[:maxScenarioMitigations]
	}
	return out
}

// overallResilience is the probability-weighted mean resilience, or the plain mean when every
// scenario has zero probability.
func overallResilience(results []models.ScenarioResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var weighted, weight float64
	plain := make([]float64, 0, len(results))
	for _, r := range results {
		weighted += r.ResilienceScore * r.Parameters.Probability
		weight += r.Parameters.Probability
		plain = append(plain, r.ResilienceScore)
	}
	if weight == 0 {
		return round(mean(plain), 1)
	}
	return round(weighted/weight, 1)
}

func riskProfile(results []models.ScenarioResult, resilience float64) models.RiskLevel {
	highImpact := 0
	for _, r := range results {
		if r.ImpactPercentage > 50 {
			highImpact++
		}
	}
	switch {
	case resilience >= 80 && highImpact <= 1:
		return models.RiskLow
	case resilience >= 60 && highImpact <= 3:
		return models.RiskMedium
	case resilience >= 40:
		return models.RiskHigh
	default:
		return models.RiskVeryHigh
	}
}

// criticalVulnerabilities unions vulnerabilities seen in two or more scenarios with those of
// severe scenarios (impact above 60% or survival below 0.6). Ties keep first-seen order.
func criticalVulnerabilities(results []models.ScenarioResult) []string {
	counts := map[string]int{}
	var order []string
	severe := map[string]bool{}
	for _, r := range results {
		isSevere := r.ImpactPercentage > 60 || r.SurvivalProbability < 0.6
		for _, v := range r.Vulnerabilities {
			if _, ok := counts[v]; !ok {
				order = append(order, v)
			}
			counts[v]++
			if isSevere {
				severe[v] = true
			}
		}
	}
	var out []string
	for _, v := range order {
		if severe[v] || counts[v] >= 2 {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return counts[out[i]] > counts[out[j]] })
	if len(out) > maxCriticalVulns {
		out = out[:maxCriticalVulns]
	}
	return out
}

// rankedMitigations weights every mitigation by probability times impact fraction of the
// scenarios proposing it.
func rankedMitigations(results []models.ScenarioResult) []string {
	weights := map[string]float64{}
	var order []string
	for _, r := range results {
		w := r.Parameters.Probability * r.ImpactPercentage / 100
		for _, m := range r.Mitigations {
			if _, ok := weights[m]; !ok {
				order = append(order, m)
			}
			weights[m] += w
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return weights[order[i]] > weights[order[j]] })
	if len(order) > maxReportMitigations {
		order = order[:maxReportMitigations]
	}
	return order
}

func scenarioRisk(r models.ScenarioResult) models.ScenarioRisk {
	return models.ScenarioRisk{
		Scenario:            r.Scenario,
		RiskScore:           round(r.ImpactPercentage/100*r.Parameters.Probability, 3),
		ImpactPercentage:    r.ImpactPercentage,
		Probability:         r.Parameters.Probability,
		ResilienceScore:     r.ResilienceScore,
		SurvivalProbability: r.SurvivalProbability,
	}
}

func highestRisk(results []models.ScenarioResult) []models.ScenarioRisk {
	out := make([]models.ScenarioRisk, 0, len(results))
	for _, r := range results {
		out = append(out, scenarioRisk(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	if len(out) > maxRankedScenarios {
		out = out[:maxRankedScenarios]
	}
	return out
}

func lowestResilience(results []models.ScenarioResult) []models.ScenarioRisk {
	out := make([]models.ScenarioRisk, 0, len(results))
	for _, r := range results {
		out = append(out, scenarioRisk(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ResilienceScore < out[j].ResilienceScore })
	if len(out) > maxRankedScenarios {
		out = out[:maxRankedScenarios]
	}
	return out
}

func survivalAnalysis(results []models.ScenarioResult) *models.SurvivalAnalysis {
	if len(results) == 0 {
		return nil
	}
	probs := make([]float64, 0, len(results))
	out := &models.SurvivalAnalysis{WorstCase: 1}
	for _, r := range results {
		p := r.SurvivalProbability
		probs = append(probs, p)
		if p < out.WorstCase {
			out.WorstCase = p
		}
		if p > out.BestCase {
			out.BestCase = p
		}
		if p < 0.7 {
			out.Below70Pct++
		}
		if p < 0.5 {
			out.Below50Pct++
		}
	}
	out.Average = round(mean(probs), 3)
	out.WorstCase = round(out.WorstCase, 3)
	out.BestCase = round(out.BestCase, 3)
	return out
}

func monitoringPriorities(results []models.ScenarioResult) []string {
	var out []string
	for _, r := range results {
		if r.Parameters.Probability > 0.3 && r.ImpactPercentage > 40 {
			out = append(out, "Monitor indicators for "+string(r.Scenario))
		}
	}
	out = append(out,
		"Track competitor entry rates",
		"Monitor trend strength and direction",
		"Watch for seasonal pattern changes",
		"Track platform policy updates",
	)
	if len(out) > maxMonitoring {
		out = out[:maxMonitoring]
	}
	return out
}

func contingencyPlans(results []models.ScenarioResult) []string {
	out := []string{
		"Develop pivot strategies for related niches",
		"Maintain diversified content portfolio",
		"Build emergency fund for market downturns",
		"Create rapid response protocols for competitive threats",
		"Establish alternative revenue streams",
	}
	var reversal, flooding bool
	for _, r := range results {
		if r.ImpactPercentage <= 60 {
			continue
		}
		switch r.Scenario {
		case models.ScenarioTrendReversal:
			reversal = true
		case models.ScenarioCompetitiveFlooding:
			flooding = true
		}
	}
	if reversal {
		out = append(out, "Prepare trend reversal detection and response plan")
	}
	if flooding {
		out = append(out, "Develop competitive differentiation strategies")
	}
	if len(out) > maxContingency {
		out = out[:maxContingency]
	}
	return out
}

// dataCompleteness is the fraction of eight niche attributes that are populated.
func dataCompleteness(n *models.Niche) float64 {
	present := []bool{
		n.PrimaryKeyword != "",
		len(n.Keywords) > 1,
		n.Scores.Competition > 0,
		n.Scores.Profitability > 0,
		n.Scores.MarketSize > 0,
		n.Trend != nil,
		n.Competition != nil,
		n.PriceRange != nil,
	}
	var c float64
	for _, ok := range present {
		if ok {
			c++
		}
	}
	return round(c/float64(len(present)), 2)
}

// testConfidence grows with niche confidence, trend confidence and scenario coverage.
func testConfidence(n *models.Niche, tested int) float64 {
	c := 0.7 + n.Scores.Confidence/100*0.2
	if n.Trend != nil {
		c += n.Trend.Confidence * 0.15
	}
	c += clamp(float64(tested)/float64(len(defaultScenarios)), 0, 1) * 0.15
	return round(clamp(c, 0, 1), 2)
}
