package models

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

// ForecastLength is the number of monthly values carried by a trend forecast.
const ForecastLength = 6

// MaxSeasonalFactor bounds a single month multiplier.
const MaxSeasonalFactor = 5.0

// TrendPoint is one observation of search interest.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
}

// SeasonalFactors maps a calendar month to its demand multiplier (1 is average).
type SeasonalFactors map[time.Month]float64

// TrendAnalysis is the per-keyword demand snapshot.
// Build it with NewTrendAnalysis; fields are read-only after construction.
type TrendAnalysis struct {
	Keyword        string          `json:"keyword"`
	Score          float64         `json:"trend_score"`
	Direction      TrendDirection  `json:"direction"`
	Strength       TrendStrength   `json:"strength"`
	Confidence     float64         `json:"confidence_level"`
	Seasonal       SeasonalFactors `json:"seasonal_patterns,omitempty"`
	Forecast       []float64       `json:"forecast_6_months,omitempty"`
	Volatility     float64         `json:"volatility_score"`
	DataPoints     int             `json:"data_points"`
	RelatedQueries []string        `json:"related_queries,omitempty"`
	Timeframe      string          `json:"analysis_period,omitempty"`
	AnalyzedAt     time.Time       `json:"analysis_date"`
}

// TrendAnalysisInput carries raw values for NewTrendAnalysis.
type TrendAnalysisInput struct {
	Keyword        string
	Score          float64
	Direction      TrendDirection
	Confidence     float64
	Seasonal       SeasonalFactors
	Forecast       []float64
	Volatility     float64
	DataPoints     int
	RelatedQueries []string
	Timeframe      string
	AnalyzedAt     time.Time
}

// NewTrendAnalysis validates the input and derives the strength band from the score.
// Forecast values are clamped to [0,100].
func NewTrendAnalysis(in TrendAnalysisInput) (*TrendAnalysis, error) {
	kw := strings.TrimSpace(in.Keyword)
	if kw == "" {
		return nil, invalid(ErrInvalidKeywords, "keyword", "must not be empty")
	}
	if in.Score < 0 || in.Score > 100 {
		return nil, invalid(ErrInvalidScore, "trend_score", "must be within [0,100], got %.2f", in.Score)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, invalid(ErrInvalidScore, "confidence_level", "must be within [0,1], got %.2f", in.Confidence)
	}
	if in.Volatility < 0 || in.Volatility > 100 {
		return nil, invalid(ErrInvalidScore, "volatility_score", "must be within [0,100], got %.2f", in.Volatility)
	}
	if n := len(in.Forecast); n != 0 && n != ForecastLength {
		return nil, invalid(ErrInvalidForecast, "forecast_6_months", "must have %d values, got %d", ForecastLength, n)
	}
	for m, f := range in.Seasonal {
		if m < time.January || m > time.December {
			return nil, invalid(ErrInvalidScore, "seasonal_patterns", "unknown month %d", m)
		}
		if f < 0 || f > MaxSeasonalFactor {
			return nil, invalid(ErrInvalidScore, "seasonal_patterns", "factor for %s must be within [0,5], got %.2f", m, f)
		}
	}

	dir := in.Direction
	if dir == "" {
		dir = DirectionStable
	}
	if !dir.Valid() {
		return nil, invalid(ErrInvalidScore, "direction", "unknown direction %q", dir)
	}

	var forecast []float64
	if len(in.Forecast) > 0 {
		forecast = make([]float64, len(in.Forecast))
		for i, v := range in.Forecast {
			forecast[i] = clamp(v, 0, 100)
		}
	}
	var seasonal SeasonalFactors
	if len(in.Seasonal) > 0 {
		seasonal = make(SeasonalFactors, len(in.Seasonal))
		for m, f := range in.Seasonal {
			seasonal[m] = f
		}
	}
	at := in.AnalyzedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	return &TrendAnalysis{
		Keyword:        kw,
		Score:          in.Score,
		Direction:      dir,
		Strength:       StrengthFromScore(in.Score),
		Confidence:     in.Confidence,
		Seasonal:       seasonal,
		Forecast:       forecast,
		Volatility:     in.Volatility,
		DataPoints:     in.DataPoints,
		RelatedQueries: append([]string(nil), in.RelatedQueries...),
		Timeframe:      in.Timeframe,
		AnalyzedAt:     at,
	}, nil
}

func (t *TrendAnalysis) IsRising() bool { return t.Direction == DirectionRising }

func (t *TrendAnalysis) IsSeasonal() bool {
	return t.Direction == DirectionSeasonal || len(t.Seasonal) > 0
}

// IsReliable requires confidence >= 0.7, at least 12 points and volatility <= 60.
func (t *TrendAnalysis) IsReliable() bool {
	return t.Confidence >= 0.7 && t.DataPoints >= 12 && t.Volatility <= 60
}

// RiskAssessment rates the snapshot from low to very_high by counting risk factors.
func (t *TrendAnalysis) RiskAssessment() RiskLevel {
	factors := 0
	switch {
	case t.Volatility > 70:
		factors += 2
	case t.Volatility > 50:
		factors++
	}
	switch t.Direction {
	case DirectionDeclining:
		factors += 2
	case DirectionVolatile:
		factors++
	}
	switch {
	case t.Confidence < 0.5:
		factors += 2
	case t.Confidence < 0.7:
		factors++
	}
	if t.Score < 30 {
		factors++
	}
	switch {
	case factors >= 5:
		return RiskVeryHigh
	case factors >= 3:
		return RiskHigh
	case factors >= 1:
		return RiskMedium
	default:
		return RiskLow
	}
}

// OpportunityScore blends score, direction, confidence and volatility into [0,100].
func (t *TrendAnalysis) OpportunityScore() float64 {
	bonus := 0.0
	switch t.Direction {
	case DirectionRising:
		bonus = 20
	case DirectionStable:
		bonus = 10
	}
	v := t.Score*0.4 + bonus + t.Confidence*100*0.3 - t.Volatility*0.1
	return Round(clamp(v, 0, 100), 1)
}

// ForecastTrend compares the two halves of the forecast: improving, stable, declining or unknown.
func (t *TrendAnalysis) ForecastTrend() string {
	if len(t.Forecast) < 2 {
		return "unknown"
	}
	half := len(t.Forecast) / 2
	first := meanOf(t.Forecast[:half])
	second := meanOf(t.Forecast[half:])
	if first <= 0 {
		return "stable"
	}
	change := (second - first) / first * 100
	switch {
	case change > 5:
		return "improving"
	case change < -5:
		return "declining"
	default:
		return "stable"
	}
}

// peakMonths bounds the seasonal rankings carried in JSON output.
const peakMonths = 3

// MarshalJSON adds the derived direction flags and seasonal rankings.
func (t *TrendAnalysis) MarshalJSON() ([]byte, error) {
	type alias TrendAnalysis
	return json.Marshal(struct {
		*alias
		IsRising   bool          `json:"is_rising"`
		IsSeasonal bool          `json:"is_seasonal"`
		PeakMonths []MonthFactor `json:"peak_months,omitempty"`
		LowMonths  []MonthFactor `json:"low_months,omitempty"`
	}{
		alias:      (*alias)(t),
		IsRising:   t.IsRising(),
		IsSeasonal: t.IsSeasonal(),
		PeakMonths: t.BestMonths(peakMonths),
		LowMonths:  t.WorstMonths(peakMonths),
	})
}

// MonthFactor is one entry of a sorted seasonal ranking.
type MonthFactor struct {
	Month  time.Month `json:"month"`
	Factor float64    `json:"factor"`
}

func (t *TrendAnalysis) BestMonths(limit int) []MonthFactor {
	return t.rankMonths(limit, true)
}

func (t *TrendAnalysis) WorstMonths(limit int) []MonthFactor {
	return t.rankMonths(limit, false)
}

func (t *TrendAnalysis) rankMonths(limit int, desc bool) []MonthFactor {
	if len(t.Seasonal) == 0 || limit <= 0 {
		return nil
	}
	out := make([]MonthFactor, 0, len(t.Seasonal))
	for m, f := range t.Seasonal {
		out = append(out, MonthFactor{Month: m, Factor: f})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Factor == out[j].Factor {
			return out[i].Month < out[j].Month
		}
		if desc {
			return out[i].Factor > out[j].Factor
		}
		return out[i].Factor < out[j].Factor
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Volatility is the coefficient of variation of the month factors, clamped to [0,1].
// ok is false when no seasonal data is attached.
func (s SeasonalFactors) Volatility() (v float64, ok bool) {
	if len(s) == 0 {
		return 0, false
	}
	vals := make([]float64, 0, len(s))
	for _, f := range s {
		vals = append(vals, f)
	}
	m := meanOf(vals)
	if m <= 0 {
		return 0, true
	}
	var ss float64
	for _, f := range vals {
		ss += (f - m) * (f - m)
	}
	std := 0.0
	if len(vals) > 1 {
		std = math.Sqrt(ss / float64(len(vals)-1))
	}
	return clamp(std/m, 0, 1), true
}
