package analytics

import (
	"math"
	"time"

	"nichescope/internal/domain/models"
)

var forecastHorizons = []struct {
	name string
	days int
}{
	{models.Horizon1Month, 30},
	{models.Horizon3Months, 90},
	{models.Horizon6Months, 180},
	{models.Horizon12Months, 365},
}

// Forecast predicts the trend score for the 1, 3, 6 and 12 month horizons.
func (v *TrendValidator) Forecast(trend *models.TrendAnalysis, history []models.TrendPoint, seasonal *models.SeasonalAnalysis) []models.TrendForecast {
	now := v.now()
	historical := 1.0
	if len(history) >= 6 {
		historical = historicalTrendMultiplier(scoresOf(history))
	}
	out := make([]models.TrendForecast, 0, len(forecastHorizons))
	for _, h := range forecastHorizons {
		seasonalMult := 1.0
		if seasonal != nil && seasonal.HasSeasonality {
			seasonalMult = seasonalMultiplier(seasonal, now, h.days)
		}
		out = append(out, singleForecast(trend, h.name, h.days, historical, seasonalMult))
	}
	return out
}

// singleForecast applies direction, time decay, history and season to the current score.
// Uncertainty is (1-confidence)*20 points scaled by the fraction of a year elapsed.
func singleForecast(trend *models.TrendAnalysis, horizon string, days int, historical, seasonal float64) models.TrendForecast {
	current := trend.Score
	direction := 1.0
	switch trend.Direction {
	case models.DirectionRising:
		direction = 1.1
	case models.DirectionDeclining:
		direction = 0.9
	}
	years := float64(days) / 365
	decay := 1 - years*0.2

	predicted := clamp(current*direction*decay*historical*seasonal, 0, 100)
	uncertainty := (1 - trend.Confidence) * 20 * years

	dir := models.DirectionStable
	switch {
	case predicted > current*1.05:
		dir = models.DirectionRising
	case predicted < current*0.95:
		dir = models.DirectionDeclining
	}

	factors := []string{}
	if math.Abs(direction-1) > 0.05 {
		factors = append(factors, "Current trend direction: "+string(trend.Direction))
	}
	if math.Abs(historical-1) > 0.05 {
		factors = append(factors, "Historical trend pattern")
	}
	if math.Abs(seasonal-1) > 0.1 {
		factors = append(factors, "Seasonal effects")
	}

	risk := "low"
	switch {
	case uncertainty > 15:
		risk = "high"
	case uncertainty > 8:
		risk = "medium"
	}

	return models.TrendForecast{
		Horizon:        horizon,
		PredictedScore: round(predicted, 1),
		LowerBound:     round(math.Max(0, predicted-uncertainty), 1),
		UpperBound:     round(math.Min(100, predicted+uncertainty), 1),
		Direction:      dir,
		KeyFactors:     factors,
		RiskLevel:      risk,
	}
}

// historicalTrendMultiplier converts the least-squares slope, normalised by the mean,
// into a multiplier clamped to [0.5, 2].
func historicalTrendMultiplier(scores []float64) float64 {
	if len(scores) < 3 {
		return 1
	}
	slope, ok := linearSlope(scores)
	m := mean(scores)
	if !ok || m <= 0 {
		return 1
	}
	return clamp(1+slope/m*0.5, 0.5, 2)
}

// seasonalMultiplier compares the target month's average with the current month's,
// damped by half the seasonality strength. Months without data leave the score unchanged.
func seasonalMultiplier(seasonal *models.SeasonalAnalysis, now time.Time, days int) float64 {
	if len(seasonal.MonthlyAverages) == 0 {
		return 1
	}
	cur, ok := seasonal.MonthlyAverages[now.Month()]
	if !ok || cur == 0 {
		return 1
	}
	target, ok := seasonal.MonthlyAverages[now.AddDate(0, 0, days).Month()]
	if !ok {
		return 1
	}
	adj := 1 + (target/cur-1)*seasonal.Strength*0.5
	return clamp(adj, 0.5, 2)
}
