package analytics

import (
	"fmt"
	"time"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
)

// Validation thresholds.
const (
	MinTrendScore      = 20.0
	MinHistoryPoints   = 12
	MaxVolatility      = 0.8
	MinTrendConfidence = 0.3
)

// TrendValidator checks trend strength, seasonality, forecasts and sustainability.
// It is pure apart from the clock, which only decides the current calendar month.
type TrendValidator struct {
	now func() time.Time
}

type TrendValidatorOption func(*TrendValidator)

// WithClock overrides the time source used for month-relative analysis.
func WithClock(now func() time.Time) TrendValidatorOption {
	return func(v *TrendValidator) { v.now = now }
}

func NewTrendValidator(opts ...TrendValidatorOption) *TrendValidator {
	v := &TrendValidator{now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate runs every check and assembles the report. A nil trend yields nil.
func (v *TrendValidator) Validate(trend *models.TrendAnalysis, history []models.TrendPoint, opts domsvc.ValidateOptions) *models.TrendValidation {
	if trend == nil {
		return nil
	}
	now := v.now()
	strength := v.ValidateStrength(trend, history)

	var seasonal *models.SeasonalAnalysis
	if opts.IncludeSeasonality {
		seasonal = v.AnalyzeSeasonality(trend, history)
	}
	var forecasts []models.TrendForecast
	if opts.IncludeForecasts {
		forecasts = v.Forecast(trend, history, seasonal)
	}
	sustainability := sustainabilityScore(trend, strength, seasonal, history)
	risks := riskFactors(trend, strength, seasonal, forecasts)

	return &models.TrendValidation{
		Keyword:               trend.Keyword,
		IsValid:               strength.IsStrong && sustainability >= 60,
		OverallScore:          round((strength.StrengthScore+sustainability)/2, 1),
		Trend:                 trend,
		Strength:              strength,
		SustainabilityScore:   round(sustainability, 1),
		SustainabilityFactors: sustainabilityFactors(sustainability),
		Seasonality:           seasonal,
		Forecasts:             forecasts,
		RiskFactors:           risks,
		OverallRisk:           overallRisk(risks, forecasts),
		Opportunities:         opportunities(trend, strength, seasonal, forecasts, now.Month()),
		Recommendations:       trendRecommendations(trend, strength, seasonal, forecasts, sustainability, now.Month()),
		HistoryPoints:         len(history),
		ValidatedAt:           now,
	}
}

// ValidateStrength adjusts the raw score by direction, strength band and history, then decides
// whether the trend is strong: adjusted score >= 1.5x the minimum and no more weaknesses than
// reliability factors.
func (v *TrendValidator) ValidateStrength(trend *models.TrendAnalysis, history []models.TrendPoint) models.StrengthValidation {
	out := models.StrengthValidation{
		StrengthScore:      trend.Score,
		ReliabilityFactors: []string{},
		WeaknessFactors:    []string{},
	}
	if trend.Score < MinTrendScore {
		out.WeaknessFactors = append(out.WeaknessFactors,
			fmt.Sprintf("Trend score %.1f below minimum threshold %.0f", trend.Score, MinTrendScore))
		return out
	}

	if trend.Confidence < MinTrendConfidence {
		out.WeaknessFactors = append(out.WeaknessFactors, fmt.Sprintf("Low confidence level: %.2f", trend.Confidence))
	} else {
		out.ReliabilityFactors = append(out.ReliabilityFactors, fmt.Sprintf("Good confidence level: %.2f", trend.Confidence))
	}

	score := trend.Score
	switch trend.Direction {
	case models.DirectionRising:
		out.ReliabilityFactors = append(out.ReliabilityFactors, "Positive trend direction")
		score *= 1.1
	case models.DirectionDeclining:
		out.WeaknessFactors = append(out.WeaknessFactors, "Declining trend direction")
		score *= 0.8
	}

	switch {
	case trend.Strength.IsStrong():
		out.ReliabilityFactors = append(out.ReliabilityFactors, "Strong trend classification: "+string(trend.Strength))
		score *= 1.2
	case trend.Strength == models.StrengthWeak:
		out.WeaknessFactors = append(out.WeaknessFactors, "Weak trend classification: "+string(trend.Strength))
		score *= 0.7
	}

	if len(history) >= MinHistoryPoints {
		strengths, weaknesses, mult := historicalConsistency(scoresOf(history))
		out.ReliabilityFactors = append(out.ReliabilityFactors, strengths...)
		out.WeaknessFactors = append(out.WeaknessFactors, weaknesses...)
		score *= mult
	}

	out.StrengthScore = round(clamp(score, 0, 100), 1)
	out.IsStrong = out.StrengthScore > MinTrendScore*1.5 && len(out.WeaknessFactors) <= len(out.ReliabilityFactors)
	return out
}

// historicalConsistency grades volatility (coefficient of variation) and recent-vs-older averages.
func historicalConsistency(scores []float64) (strengths, weaknesses []string, multiplier float64) {
	if len(scores) < 3 {
		return nil, []string{"Insufficient historical data"}, 0.8
	}
	multiplier = 1.0
	vol := coefVar(scores, 1)
	switch {
	case vol <= 0.2:
		strengths = append(strengths, "Very stable trend with low volatility")
		multiplier *= 1.1
	case vol <= 0.4:
		strengths = append(strengths, "Moderately stable trend")
	case vol <= MaxVolatility:
		weaknesses = append(weaknesses, "Moderate volatility in trend")
		multiplier *= 0.95
	default:
		weaknesses = append(weaknesses, fmt.Sprintf("High volatility: %.2f", vol))
		multiplier *= 0.8
	}

	if len(scores) >= 6 {
		recent := mean(scores[len(scores)-3:])
		older := mean(scores[:3])
		switch {
		case recent > older*1.1:
			strengths = append(strengths, "Improving trend over time")
			multiplier *= 1.1
		case recent < older*0.9:
			weaknesses = append(weaknesses, "Declining trend over time")
			multiplier *= 0.9
		}
	}
	return strengths, weaknesses, multiplier
}

func scoresOf(points []models.TrendPoint) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		out = append(out, p.Score)
	}
	return out
}

// sustainabilityScore starts at 50 and moves with strength, direction, confidence,
// seasonality and historical volatility.
func sustainabilityScore(trend *models.TrendAnalysis, strength models.StrengthValidation, seasonal *models.SeasonalAnalysis, history []models.TrendPoint) float64 {
	s := 50.0
	s += (strength.StrengthScore - 50) * 0.3
	switch trend.Direction {
	case models.DirectionRising:
		s += 15
	case models.DirectionDeclining:
		s -= 20
	}
	s += (trend.Confidence - 0.5) * 40
	if seasonal != nil {
		s -= seasonal.Strength * 20
	}
	if len(history) >= 6 {
		s -= coefVar(scoresOf(history), 1) * 30
	}
	return clamp(s, 0, 100)
}

func sustainabilityFactors(score float64) []string {
	switch {
	case score >= 80:
		return []string{"Highly sustainable trend with strong fundamentals"}
	case score >= 60:
		return []string{"Moderately sustainable with some risk factors"}
	case score >= 40:
		return []string{"Limited sustainability - requires careful monitoring"}
	default:
		return []string{"Low sustainability - high risk of trend decline"}
	}
}

func riskFactors(trend *models.TrendAnalysis, strength models.StrengthValidation, seasonal *models.SeasonalAnalysis, forecasts []models.TrendForecast) []string {
	risks := append([]string{}, strength.WeaknessFactors...)
	if seasonal != nil && seasonal.Risk == "high" {
		risks = append(risks, "High seasonal volatility may affect consistency")
	}
	declining, highRisk := 0, 0
	for _, f := range forecasts {
		if f.Direction == models.DirectionDeclining {
			declining++
		}
		if f.RiskLevel == "high" {
			highRisk++
		}
	}
	if declining >= 2 {
		risks = append(risks, "Multiple forecasts show declining trend")
	}
	if highRisk > 0 {
		risks = append(risks, fmt.Sprintf("High uncertainty in %d forecast(s)", highRisk))
	}
	if trend.Confidence < 0.4 {
		risks = append(risks, "Low confidence in trend data")
	}
	return risks
}

// overallRisk: 10 per risk factor, 15 per high-risk forecast, 10 per declining forecast.
func overallRisk(risks []string, forecasts []models.TrendForecast) string {
	score := len(risks) * 10
	for _, f := range forecasts {
		if f.RiskLevel == "high" {
			score += 15
		}
		if f.Direction == models.DirectionDeclining {
			score += 10
		}
	}
	switch {
	case score >= 50:
		return "high"
	case score >= 25:
		return "medium"
	default:
		return "low"
	}
}

func opportunities(trend *models.TrendAnalysis, strength models.StrengthValidation, seasonal *models.SeasonalAnalysis, forecasts []models.TrendForecast, current time.Month) []string {
	out := []string{}
	if strength.IsStrong {
		out = append(out, "Strong trend provides good market entry opportunity")
	}
	if trend.Direction == models.DirectionRising {
		out = append(out, "Rising trend suggests growing market interest")
	}
	if seasonal != nil && len(seasonal.PeakMonths) > 0 {
		if containsMonth(seasonal.PeakMonths, current) {
			out = append(out, "Currently in peak season for this trend")
		} else {
			out = append(out, fmt.Sprintf("Peak season approaching in %d month(s)", monthsUntil(seasonal.PeakMonths, current)))
		}
	}
	rising := 0
	for _, f := range forecasts {
		if f.Direction == models.DirectionRising {
			rising++
		}
	}
	if rising > 0 {
		out = append(out, fmt.Sprintf("Positive growth predicted in %d forecast period(s)", rising))
	}
	return out
}

func trendRecommendations(trend *models.TrendAnalysis, strength models.StrengthValidation, seasonal *models.SeasonalAnalysis, forecasts []models.TrendForecast, sustainability float64, current time.Month) []string {
	var out []string
	switch {
	case strength.IsStrong && sustainability >= 70:
		out = append(out, "Excellent trend - proceed with confidence")
	case strength.IsStrong:
		out = append(out, "Good trend but monitor sustainability factors")
	case sustainability >= 70:
		out = append(out, "Sustainable trend but consider strengthening market position")
	default:
		out = append(out, "Weak trend - consider alternative niches or wait for improvement")
	}

	if seasonal != nil && seasonal.HasSeasonality {
		if containsMonth(seasonal.PeakMonths, current) {
			out = append(out, "Optimal timing - launch during current peak season")
		} else if len(seasonal.PeakMonths) > 0 {
			out = append(out, "Plan launch timing around seasonal peaks for maximum impact")
		}
	}

	for _, f := range forecasts {
		if f.Horizon != models.Horizon3Months {
			continue
		}
		switch f.Direction {
		case models.DirectionRising:
			out = append(out, "Short-term growth expected - good time for market entry")
		case models.DirectionDeclining:
			out = append(out, "Short-term decline expected - consider delaying entry or focus on differentiation")
		}
	}

	if trend.Confidence < 0.5 {
		out = append(out, "Low data confidence - validate with additional market research")
	}
	if seasonal != nil && seasonal.Risk == "high" {
		out = append(out, "High seasonality - develop year-round content strategy")
	}
	return out
}

func containsMonth(months []time.Month, m time.Month) bool {
	for _, x := range months {
		if x == m {
			return true
		}
	}
	return false
}

// monthsUntil is the distance from current to the next peak month, wrapping the year.
func monthsUntil(peaks []time.Month, current time.Month) int {
	best := 12
	for _, p := range peaks {
		d := (int(p) - int(current) + 12) % 12
		if d == 0 {
			d = 12
		}
		if d < best {
			best = d
		}
	}
	return best
}

var _ domsvc.TrendValidator = (*TrendValidator)(nil)
