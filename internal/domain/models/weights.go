package models

import (
	"encoding/json"
	"math"
)

const weightTolerance = 1e-6

// ScoringWeights holds the five component weights of the profitability score.
// The zero value is not usable; construct with NewScoringWeights or DefaultScoringWeights.
type ScoringWeights struct {
	trend       float64
	competition float64
	marketSize  float64
	seasonality float64
	contentGap  float64
}

// NewScoringWeights rejects negative weights and weights that do not sum to 1.
func NewScoringWeights(trend, competition, marketSize, seasonality, contentGap float64) (ScoringWeights, error) {
	w := ScoringWeights{trend, competition, marketSize, seasonality, contentGap}
	if err := w.Validate(); err != nil {
		return ScoringWeights{}, err
	}
	return w, nil
}

// Validate reports negative weights and weights that do not sum to 1. The zero value fails.
func (w ScoringWeights) Validate() error {
	for _, v := range w.values() {
		if v < 0 || math.IsNaN(v) {
			return invalid(ErrInvalidWeights, "weights", "weights must be non-negative, got %v", w.values())
		}
	}
	if sum := w.sum(); math.Abs(sum-1) > weightTolerance {
		return invalid(ErrInvalidWeights, "weights", "weights must sum to 1, got %.6f", sum)
	}
	return nil
}

// DefaultScoringWeights: trend .25, competition .30, market size .20, seasonality .15, content gap .10.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{trend: 0.25, competition: 0.30, marketSize: 0.20, seasonality: 0.15, contentGap: 0.10}
}

func (w ScoringWeights) Trend() float64       { return w.trend }
func (w ScoringWeights) Competition() float64 { return w.competition }
func (w ScoringWeights) MarketSize() float64  { return w.marketSize }
func (w ScoringWeights) Seasonality() float64 { return w.seasonality }
func (w ScoringWeights) ContentGap() float64  { return w.contentGap }

func (w ScoringWeights) values() []float64 {
	return []float64{w.trend, w.competition, w.marketSize, w.seasonality, w.contentGap}
}

func (w ScoringWeights) sum() float64 {
	var s float64
	for _, v := range w.values() {
		s += v
	}
	return s
}

// MarshalJSON exposes the weights read-only.
func (w ScoringWeights) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{
		"trend":       w.trend,
		"competition": w.competition,
		"market_size": w.marketSize,
		"seasonality": w.seasonality,
		"content_gap": w.contentGap,
	})
}
