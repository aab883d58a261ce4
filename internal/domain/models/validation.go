package models

import "time"

// Forecast horizons produced by the trend validator.
const (
	Horizon1Month   = "1_month"
	Horizon3Months  = "3_months"
	Horizon6Months  = "6_months"
	Horizon12Months = "12_months"
)

// StrengthValidation is the verdict on how strong and reliable a trend is.
type StrengthValidation struct {
	IsStrong           bool     `json:"is_strong"`
	StrengthScore      float64  `json:"strength_score"`
	ReliabilityFactors []string `json:"reliability_factors"`
	WeaknessFactors    []string `json:"weakness_factors"`
}

// SeasonalPattern summarises one quarter-season of monthly averages.
type SeasonalPattern struct {
	Season       string       `json:"season"`
	Months       []time.Month `json:"months"`
	AvgIntensity float64      `json:"avg_intensity"`
	PeakMonth    time.Month   `json:"peak_month"`
	Volatility   float64      `json:"volatility"`
	Reliability  float64      `json:"reliability_score"`
}

// SeasonalAnalysis is the seasonality decomposition of a trend.
type SeasonalAnalysis struct {
	HasSeasonality  bool                   `json:"has_seasonality"`
	Strength        float64                `json:"seasonality_strength"`
	MonthlyAverages map[time.Month]float64 `json:"monthly_averages,omitempty"`
	PeakMonths      []time.Month           `json:"peak_months,omitempty"`
	LowMonths       []time.Month           `json:"low_months,omitempty"`
	Patterns        []SeasonalPattern      `json:"seasonal_patterns,omitempty"`
	Risk            string                 `json:"seasonal_risk"`
}

// TrendForecast is a single-horizon prediction with a symmetric confidence interval.
type TrendForecast struct {
	Horizon        string         `json:"timeframe"`
	PredictedScore float64        `json:"predicted_score"`
	LowerBound     float64        `json:"lower_bound"`
	UpperBound     float64        `json:"upper_bound"`
	Direction      TrendDirection `json:"direction"`
	KeyFactors     []string       `json:"key_factors"`
	RiskLevel      string         `json:"risk_level"`
}

// TrendValidation is the full validation report for one keyword.
type TrendValidation struct {
	Keyword               string             `json:"keyword"`
	IsValid               bool               `json:"is_valid"`
	OverallScore          float64            `json:"overall_score"`
	Trend                 *TrendAnalysis     `json:"trend_analysis"`
	Strength              StrengthValidation `json:"strength_validation"`
	SustainabilityScore   float64            `json:"sustainability_score"`
	SustainabilityFactors []string           `json:"sustainability_factors"`
	Seasonality           *SeasonalAnalysis  `json:"seasonal_analysis,omitempty"`
	Forecasts             []TrendForecast    `json:"forecasts,omitempty"`
	RiskFactors           []string           `json:"risk_factors"`
	OverallRisk           string             `json:"overall_risk"`
	Opportunities         []string           `json:"opportunities"`
	Recommendations       []string           `json:"recommendations"`
	HistoryPoints         int                `json:"history_points"`
	ValidatedAt           time.Time          `json:"validated_at"`
}
