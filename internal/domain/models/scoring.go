package models

// MarketMetrics feed the market-size sub-score.
type MarketMetrics struct {
	SearchVolume    float64
	RelatedKeywords int
	CategorySize    float64
}

// SeasonalityMetrics feed the seasonal-stability sub-score. Strength is on a 0-100 scale,
// Consistency is 0-100 where 100 means fully trusted.
type SeasonalityMetrics struct {
	Strength    float64
	Consistency float64
}

// ContentMetrics feed the content-gap sub-score.
type ContentMetrics struct {
	IdentifiedGaps  int
	AvgQuality      float64
	Differentiation float64
}

// ScoringInput is the raw material of one niche score. A nil field marks an unavailable
// sub-score, except Seasonality where nil means no seasonal signal (scored as neutral).
type ScoringInput struct {
	Trend       *TrendAnalysis
	Competition *CompetitiveMarketSummary
	Market      *MarketMetrics
	Seasonality *SeasonalityMetrics
	Content     *ContentMetrics
}

// ComponentScores exposes the individual sub-scores; nil means excluded from the weighting.
type ComponentScores struct {
	Trend       *float64 `json:"trend_score"`
	Competition *float64 `json:"competition_score"`
	MarketSize  *float64 `json:"market_size_score"`
	Seasonality *float64 `json:"seasonality_score"`
	ContentGap  *float64 `json:"content_gap_score"`
}
