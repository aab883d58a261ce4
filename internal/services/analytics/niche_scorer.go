package analytics

import (
	"fmt"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
)

// Competition thresholds on competitor count, average reviews and average rating.
const (
	lowCompetitionCount    = 10
	mediumCompetitionCount = 50
	highCompetitionCount   = 100

	highReviewCount   = 1000
	mediumReviewCount = 100
	lowReviewCount    = 10

	lowRating  = 3.5
	highRating = 4.5

	neutralSeasonalityScore = 75.0
)

var strengthMultipliers = map[models.TrendStrength]float64{
	models.StrengthVeryStrong: 1.3,
	models.StrengthStrong:     1.1,
	models.StrengthModerate:   1.0,
	models.StrengthWeak:       0.8,
	models.StrengthVeryWeak:   0.5,
}

// NicheScorer computes the weighted profitability score. Weights are fixed at construction.
type NicheScorer struct {
	weights models.ScoringWeights
}

// NewNicheScorer rejects weights that fail validation, including the zero value.
func NewNicheScorer(w models.ScoringWeights) (*NicheScorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("niche scorer: %w", err)
	}
	return &NicheScorer{weights: w}, nil
}

func (s *NicheScorer) Weights() models.ScoringWeights { return s.weights }

// Profitability is the weighted mean of the available sub-scores. Missing sub-scores drop out
// and the remaining weights are renormalised, so the result stays within [0,100].
func (s *NicheScorer) Profitability(in models.ScoringInput) (float64, models.ComponentScores) {
	var c models.ComponentScores
	if in.Trend != nil {
		c.Trend = ptr(TrendSubScore(in.Trend))
	}
	if v, ok := s.CompetitionFavorability(in.Competition); ok {
		c.Competition = ptr(v)
	}
	if in.Market != nil {
		c.MarketSize = ptr(MarketSizeSubScore(*in.Market))
	}
	c.Seasonality = ptr(SeasonalitySubScore(in.Seasonality))
	if in.Content != nil {
		c.ContentGap = ptr(ContentGapSubScore(*in.Content))
	}

	parts := []struct {
		v *float64
		w float64
	}{
		{c.Trend, s.weights.Trend()},
		{c.Competition, s.weights.Competition()},
		{c.MarketSize, s.weights.MarketSize()},
		{c.Seasonality, s.weights.Seasonality()},
		{c.ContentGap, s.weights.ContentGap()},
	}
	var total, weight float64
	for _, p := range parts {
		if p.v == nil {
			continue
		}
		total += *p.v * p.w
		weight += p.w
	}
	if weight == 0 {
		return 0, c
	}
	return round(clamp(total/weight, 0, 100), 2), c
}

// TrendSubScore scales the trend score by direction and strength band, capped at 100.
func TrendSubScore(t *models.TrendAnalysis) float64 {
	v := t.Score
	switch t.Direction {
	case models.DirectionRising:
		v *= 1.2
	case models.DirectionDeclining:
		v *= 0.7
	}
	if m, ok := strengthMultipliers[t.Strength]; ok {
		v *= m
	}
	return clamp(v, 0, 100)
}

// CompetitionFavorability scores how open a market is: high when there are few, weakly
// reviewed or poorly rated competitors. It never increases with the competitor count.
func (s *NicheScorer) CompetitionFavorability(c *models.CompetitiveMarketSummary) (float64, bool) {
	if c == nil {
		return 0, false
	}
	var v float64
	switch n := c.CompetitorCount; {
	case n == 0:
		v = 100
	case n < lowCompetitionCount:
		v = 90
	case n < mediumCompetitionCount:
		v = 70
	case n < highCompetitionCount:
		v = 50
	default:
		v = 30
	}

	switch r := c.AvgReviewCount; {
	case r > highReviewCount:
		v *= 0.6
	case r > mediumReviewCount:
		v *= 0.8
	case r < lowReviewCount:
		v *= 1.2
	}

	if c.AvgRating > 0 {
		switch {
		case c.AvgRating < lowRating:
			v *= 1.3
		case c.AvgRating > highRating:
			v *= 0.9
		}
	}
	return clamp(v, 0, 100), true
}

// MarketSizeSubScore blends a search-volume tier (60%) with the category size (40%) and
// boosts by keyword diversity up to 1.5x.
func MarketSizeSubScore(m models.MarketMetrics) float64 {
	var volume float64
	switch {
	case m.SearchVolume > 10000:
		volume = 90
	case m.SearchVolume > 1000:
		volume = 70
	case m.SearchVolume > 100:
		volume = 50
	default:
		volume = 30
	}
	mult := 1 + float64(m.RelatedKeywords)/100
	if mult > 1.5 {
		mult = 1.5
	}
	return clamp((volume*0.6+m.CategorySize*0.4)*mult, 0, 100)
}

// SeasonalitySubScore favours stable demand. No seasonal signal scores a neutral 75.
func SeasonalitySubScore(m *models.SeasonalityMetrics) float64 {
	if m == nil {
		return neutralSeasonalityScore
	}
	var base float64
	switch {
	case m.Strength < 10:
		base = 95
	case m.Strength < 25:
		base = 80
	case m.Strength < 50:
		base = 60
	default:
		base = 40
	}
	return clamp(base*m.Consistency/100, 0, 100)
}

// ContentGapSubScore rewards many gaps and weak incumbent content.
func ContentGapSubScore(m models.ContentMetrics) float64 {
	var gap float64
	switch {
	case m.IdentifiedGaps > 10:
		gap = 90
	case m.IdentifiedGaps > 5:
		gap = 70
	case m.IdentifiedGaps > 2:
		gap = 50
	default:
		gap = 30
	}
	quality := (100 - m.AvgQuality) / 100
	return clamp((gap*0.6+m.Differentiation*0.4)*(1+quality), 0, 100)
}

// MarketSize estimates the market-size score of a niche from its trend and competition.
func (s *NicheScorer) MarketSize(t *models.TrendAnalysis, c *models.CompetitiveMarketSummary) float64 {
	if t == nil {
		return 0
	}
	count := 0
	if c != nil {
		count = c.CompetitorCount
	}
	comp := 0.8
	switch {
	case count == 0:
		comp = 1.5
	case count < lowCompetitionCount:
		comp = 1.2
	case count < mediumCompetitionCount:
		comp = 1.0
	}
	strength := 0.7
	switch {
	case t.Strength.IsStrong():
		strength = 1.3
	case t.Strength == models.StrengthModerate:
		strength = 1.0
	}
	return round(clamp(t.Score*comp*strength, 0, 100), 2)
}

var _ domsvc.NicheScorer = (*NicheScorer)(nil)
