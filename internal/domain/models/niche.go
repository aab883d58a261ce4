package models

import (
	"encoding/json"
	"strings"
	"time"
)

// MaxNicheKeywords bounds the keyword set of a niche.
const MaxNicheKeywords = 50

// NicheScores is the immutable score bundle produced by the scorer.
type NicheScores struct {
	Competition   float64 `json:"competition_score"`
	Profitability float64 `json:"profitability_score"`
	MarketSize    float64 `json:"market_size_score"`
	Confidence    float64 `json:"confidence_score"`
}

func (s NicheScores) validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"competition_score", s.Competition},
		{"profitability_score", s.Profitability},
		{"market_size_score", s.MarketSize},
		{"confidence_score", s.Confidence},
	} {
		if f.v < 0 || f.v > 100 {
			return invalid(ErrInvalidScore, f.name, "must be within [0,100], got %.2f", f.v)
		}
	}
	return nil
}

// NicheInput carries everything but the scores.
type NicheInput struct {
	ID             string
	Category       string
	PrimaryKeyword string
	Keywords       []string
	Trend          *TrendAnalysis
	Competition    *CompetitiveMarketSummary
	Seasonal       SeasonalFactors
	ContentGaps    []string
	PriceRange     *PriceRange
	TopCompetitors []string
	CreatedAt      time.Time
}

// Niche is a scored candidate opportunity. Tiers are derived from the scores on every read,
// so a niche never carries a stale tier.
type Niche struct {
	ID             string                    `json:"id"`
	Category       string                    `json:"category"`
	PrimaryKeyword string                    `json:"primary_keyword"`
	Keywords       []string                  `json:"keywords"`
	Scores         NicheScores               `json:"scores"`
	Trend          *TrendAnalysis            `json:"trend_analysis,omitempty"`
	Competition    *CompetitiveMarketSummary `json:"competition,omitempty"`
	Seasonal       SeasonalFactors           `json:"seasonal_factors,omitempty"`
	ContentGaps    []string                  `json:"content_gaps,omitempty"`
	PriceRange     *PriceRange               `json:"recommended_price_range,omitempty"`
	TopCompetitors []string                  `json:"top_competitors,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// NewNiche validates the input and attaches the score bundle.
func NewNiche(in NicheInput, scores NicheScores) (*Niche, error) {
	n := &Niche{
		ID:             in.ID,
		Category:       strings.TrimSpace(in.Category),
		PrimaryKeyword: strings.TrimSpace(in.PrimaryKeyword),
		Keywords:       dedupe(in.Keywords),
		Scores:         scores,
		Trend:          in.Trend,
		Competition:    in.Competition,
		Seasonal:       in.Seasonal,
		ContentGaps:    dedupe(in.ContentGaps),
		PriceRange:     in.PriceRange,
		TopCompetitors: dedupe(in.TopCompetitors),
		CreatedAt:      in.CreatedAt,
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Category == "" {
		n.Category = "Books & Journals"
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks the invariants of a niche, including one decoded from JSON.
func (n *Niche) Validate() error {
	if n.PrimaryKeyword == "" {
		return invalid(ErrInvalidKeywords, "primary_keyword", "must not be empty")
	}
	if len(n.Keywords) == 0 {
		return invalid(ErrInvalidKeywords, "keywords", "must not be empty")
	}
	if len(n.Keywords) > MaxNicheKeywords {
		return invalid(ErrInvalidKeywords, "keywords", "at most %d keywords, got %d", MaxNicheKeywords, len(n.Keywords))
	}
	for _, k := range n.Keywords {
		if strings.TrimSpace(k) == "" {
			return invalid(ErrInvalidKeywords, "keywords", "must be non-empty strings")
		}
	}
	if n.PriceRange != nil {
		if _, err := NewPriceRange(n.PriceRange.Min, n.PriceRange.Max); err != nil {
			return err
		}
	}
	for m, f := range n.Seasonal {
		if f < 0 || f > MaxSeasonalFactor {
			return invalid(ErrInvalidScore, "seasonal_factors", "factor for %s must be within [0,5], got %.2f", m, f)
		}
	}
	return n.Scores.validate()
}

// WithScores returns a copy carrying a recomputed score bundle.
func (n *Niche) WithScores(s NicheScores) (*Niche, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	cp := *n
	cp.Scores = s
	return &cp, nil
}

func (n *Niche) CompetitionLevel() CompetitionLevel {
	return CompetitionLevelFromScore(n.Scores.Competition)
}

func (n *Niche) ProfitabilityTier() ProfitabilityTier {
	return ProfitabilityTierFromScore(n.Scores.Profitability)
}

// OverallScore is the baseline used by stress testing:
// 0.4 profitability + 0.3 inverse competition + 0.2 market size + 0.1 confidence.
func (n *Niche) OverallScore() float64 {
	s := n.Scores
	v := s.Profitability*0.4 + (100-s.Competition)*0.3 + s.MarketSize*0.2 + s.Confidence*0.1
	return Round(v, 2)
}

func (n *Niche) RiskLevel() RiskLevel {
	s := n.Scores
	switch {
	case s.Competition <= 30 && s.Confidence >= 80:
		return RiskLow
	case s.Competition <= 60 && s.Confidence >= 60:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func (n *Niche) IsProfitable() bool {
	s := n.Scores
	return s.Profitability >= 50 && s.Competition <= 70 && s.Confidence >= 60
}

func (n *Niche) TopKeywords(limit int) []string {
	if limit <= 0 || limit >= len(n.Keywords) {
		return append([]string(nil), n.Keywords...)
	}
	return append([]string(nil), n.Keywords[:limit]...)
}

// AddCompetitor returns a copy with asin appended when it is new.
func (n *Niche) AddCompetitor(asin string) *Niche {
	cp := *n
	cp.TopCompetitors = appendUnique(n.TopCompetitors, asin)
	return &cp
}

// AddContentGap returns a copy with gap appended when it is new.
func (n *Niche) AddContentGap(gap string) *Niche {
	cp := *n
	cp.ContentGaps = appendUnique(n.ContentGaps, gap)
	return &cp
}

// AvgPrice is the midpoint of the recommended range, falling back to the observed market price.
func (n *Niche) AvgPrice() (float64, bool) {
	if n.PriceRange != nil {
		return n.PriceRange.Mid(), true
	}
	if n.Competition != nil && n.Competition.AvgPrice > 0 {
		return n.Competition.AvgPrice, true
	}
	return 0, false
}

func (n *Niche) MarshalJSON() ([]byte, error) {
	type alias Niche
	return json.Marshal(struct {
		*alias
		CompetitionLevel  CompetitionLevel  `json:"competition_level"`
		ProfitabilityTier ProfitabilityTier `json:"profitability_tier"`
		OverallScore      float64           `json:"overall_score"`
		RiskLevel         RiskLevel         `json:"risk_level"`
		IsProfitable      bool              `json:"is_profitable"`
	}{
		alias:             (*alias)(n),
		CompetitionLevel:  n.CompetitionLevel(),
		ProfitabilityTier: n.ProfitabilityTier(),
		OverallScore:      n.OverallScore(),
		RiskLevel:         n.RiskLevel(),
		IsProfitable:      n.IsProfitable(),
	})
}

func dedupe(in []string) []string {
	var out []string
	for _, s := range in {
		out = appendUnique(out, strings.TrimSpace(s))
	}
	return out
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, s := range list {
		if s == v {
			return list
		}
	}
	out := make([]string, len(list), len(list)+1)
	copy(out, list)
	return append(out, v)
}
