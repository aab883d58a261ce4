package models

import "time"

// Sales trend labels derived from a best-seller-rank history.
const (
	SalesRising           = "rising"
	SalesStable           = "stable"
	SalesDeclining        = "declining"
	SalesInsufficientData = "insufficient_data"
)

// CompetitorMetrics are the derived figures for a single listing.
type CompetitorMetrics struct {
	Product
	EstimatedMonthlySales   float64  `json:"estimated_monthly_sales"`
	EstimatedMonthlyRevenue float64  `json:"estimated_monthly_revenue"`
	PriceStability          float64  `json:"price_stability"`
	SalesTrend              string   `json:"sales_trend"`
	CompetitiveStrength     float64  `json:"competitive_strength"`
	MarketPosition          string   `json:"market_position"`
	Insights                []string `json:"insights,omitempty"`
	Recommendations         []string `json:"recommendations,omitempty"`
}

// MarketGap kinds.
const (
	GapEmptyMarket = "empty_market"
	GapPrice       = "price_gap"
	GapQuality     = "quality_gap"
	GapReview      = "review_gap"
	GapContent     = "content_gap"
)

// MarketGap is a structural opportunity underserved by current competitors.
type MarketGap struct {
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Opportunity    string   `json:"opportunity"`
	SuggestedPrice float64  `json:"suggested_price,omitempty"`
	AvgRating      float64  `json:"avg_rating,omitempty"`
	AvgReviews     float64  `json:"avg_reviews,omitempty"`
	CommonKeywords []string `json:"common_keywords,omitempty"`
}

// MarketAnalysis aggregates competitor metrics for a keyword.
type MarketAnalysis struct {
	Keyword          string              `json:"keyword"`
	TotalProducts    int                 `json:"total_products"`
	AvgPrice         float64             `json:"avg_price"`
	MinPrice         float64             `json:"min_price"`
	MaxPrice         float64             `json:"max_price"`
	AvgReviews       float64             `json:"avg_reviews"`
	AvgRating        float64             `json:"avg_rating"`
	Saturation       string              `json:"market_saturation"`
	EntryBarriers    string              `json:"entry_barriers"`
	OpportunityScore float64             `json:"opportunity_score"`
	TopPerformers    []CompetitorMetrics `json:"top_performers"`
	Gaps             []MarketGap         `json:"market_gaps"`
	Insights         []string            `json:"insights"`
	Recommendations  []string            `json:"recommendations"`
	Estimated        bool                `json:"estimated"`
	AnalyzedAt       time.Time           `json:"analyzed_at"`
}
