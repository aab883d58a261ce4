package models

import "time"

// Product is one marketplace listing returned by a competition data provider.
// Rank is the best-seller rank (0 when unknown).
type Product struct {
	ASIN         string    `json:"asin"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	Rank         int       `json:"rank"`
	ReviewCount  int       `json:"review_count"`
	Rating       float64   `json:"rating"`
	Category     string    `json:"category,omitempty"`
	PriceHistory []float64 `json:"price_history,omitempty"`
	RankHistory  []int     `json:"rank_history,omitempty"`
}

// PriceRange is a recommended or observed price window.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewPriceRange rejects non-positive bounds and min >= max.
func NewPriceRange(lo, hi float64) (PriceRange, error) {
	if lo <= 0 || hi <= 0 {
		return PriceRange{}, invalid(ErrInvalidPriceRange, "price_range", "bounds must be positive, got %.2f-%.2f", lo, hi)
	}
	if lo >= hi {
		return PriceRange{}, invalid(ErrInvalidPriceRange, "price_range", "min %.2f must be below max %.2f", lo, hi)
	}
	return PriceRange{Min: lo, Max: hi}, nil
}

func (p PriceRange) Mid() float64 { return (p.Min + p.Max) / 2 }

// CompetitiveMarketSummary condenses the competitor listings for one keyword.
// Estimated marks heuristic placeholder figures rather than measured data.
type CompetitiveMarketSummary struct {
	CompetitorCount int       `json:"competitor_count"`
	AvgReviewCount  float64   `json:"avg_review_count"`
	AvgRating       float64   `json:"avg_rating"`
	MinPrice        float64   `json:"min_price"`
	MaxPrice        float64   `json:"max_price"`
	AvgPrice        float64   `json:"avg_price"`
	TopASINs        []string  `json:"top_asins,omitempty"`
	GapCount        int       `json:"gap_count"`
	Estimated       bool      `json:"estimated"`
	CollectedAt     time.Time `json:"collected_at"`
}

// SummarizeProducts aggregates listings. An empty list is a market with no competition, not an error.
func SummarizeProducts(products []Product, now time.Time) CompetitiveMarketSummary {
	s := CompetitiveMarketSummary{CompetitorCount: len(products), CollectedAt: now}
	if len(products) == 0 {
		return s
	}
	var reviews, ratings, prices []float64
	for _, p := range products {
		if p.ReviewCount > 0 {
			reviews = append(reviews, float64(p.ReviewCount))
		}
		if p.Rating > 0 {
			ratings = append(ratings, p.Rating)
		}
		if p.Price > 0 {
			prices = append(prices, p.Price)
		}
		if p.ASIN != "" && len(s.TopASINs) < 10 {
			s.TopASINs = append(s.TopASINs, p.ASIN)
		}
	}
	s.AvgReviewCount = meanOf(reviews)
	s.AvgRating = meanOf(ratings)
	if len(prices) > 0 {
		s.MinPrice, s.MaxPrice = prices[0], prices[0]
		for _, v := range prices[1:] {
			if v < s.MinPrice {
				s.MinPrice = v
			}
			if v > s.MaxPrice {
				s.MaxPrice = v
			}
		}
		s.AvgPrice = meanOf(prices)
	}
	return s
}

// EstimatedSummary is the placeholder used when no product provider answered.
// The competitor count grows with keyword length.
func EstimatedSummary(keywordWords int, now time.Time) CompetitiveMarketSummary {
	if keywordWords < 1 {
		keywordWords = 1
	}
	return CompetitiveMarketSummary{
		CompetitorCount: keywordWords * 20,
		AvgReviewCount:  50,
		AvgRating:       4.0,
		MinPrice:        5.99,
		MaxPrice:        19.99,
		AvgPrice:        12.99,
		Estimated:       true,
		CollectedAt:     now,
	}
}

// PriceRange returns the observed price window, or false when it is not a valid range.
func (s CompetitiveMarketSummary) PriceRange() (PriceRange, bool) {
	pr, err := NewPriceRange(s.MinPrice, s.MaxPrice)
	return pr, err == nil
}
