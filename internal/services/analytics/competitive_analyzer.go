package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
)

// rankSales maps best-seller-rank ceilings to estimated monthly unit sales.
var rankSales = []struct {
	rank  int
	sales float64
}{
	{1, 3000},
	{10, 1500},
	{100, 300},
	{1000, 50},
	{10000, 10},
	{100000, 2},
	{1000000, 0.5},
}

// CompetitiveAnalyzer derives per-listing and market-level competition metrics.
type CompetitiveAnalyzer struct {
	now func() time.Time
}

func NewCompetitiveAnalyzer() *CompetitiveAnalyzer {
	return &CompetitiveAnalyzer{now: time.Now}
}

// EstimateMonthlySales converts a best-seller rank into unit sales. Ranks past the table
// extrapolate inversely from the last step. ok is false for unknown ranks.
func EstimateMonthlySales(rank int) (float64, bool) {
	if rank <= 0 {
		return 0, false
	}
	for _, s := range rankSales {
		if rank <= s.rank {
			return s.sales, true
		}
	}
	last := rankSales[len(rankSales)-1]
	return last.sales * float64(last.rank) / float64(rank), true
}

// PriceStability is 100 minus the price coefficient of variation in percent, within [0,100].
func PriceStability(prices []float64) float64 {
	if len(prices) < 2 {
		return 100
	}
	m := mean(prices)
	if m == 0 {
		return 0
	}
	cv := pstdev(prices) / m
	return clamp(100-cv*100, 0, 100)
}

// SalesTrend compares the mean rank of the most recent third of the history with the earliest
// third. Lower rank means better sales, so a 20% drop in rank is rising.
func SalesTrend(ranks []int) string {
	if len(ranks) < 3 {
		return models.SalesInsufficientData
	}
	third := len(ranks) / 3
	older := meanInts(ranks[:third])
	recent := meanInts(ranks[len(ranks)-third:])
	switch {
	case recent < older*0.8:
		return models.SalesRising
	case recent > older*1.2:
		return models.SalesDeclining
	default:
		return models.SalesStable
	}
}

func meanInts(vals []int) float64 {
	f := make([]float64, len(vals))
	for i, v := range vals {
		f[i] = float64(v)
	}
	return mean(f)
}

// CompetitiveStrength is the unweighted mean of the review, rating, sales, price-stability
// and sales-trend sub-scores.
func CompetitiveStrength(m models.CompetitorMetrics) float64 {
	var review float64
	switch {
	case m.ReviewCount >= 1000:
		review = 90
	case m.ReviewCount >= 100:
		review = 70
	case m.ReviewCount >= 10:
		review = 50
	default:
		review = 20
	}

	rating := 50.0
	if m.Rating > 0 {
		rating = m.Rating / 5 * 100
	}

	sales := 40.0
	if m.EstimatedMonthlySales > 0 {
		switch {
		case m.EstimatedMonthlySales >= 1000:
			sales = 95
		case m.EstimatedMonthlySales >= 100:
			sales = 80
		case m.EstimatedMonthlySales >= 10:
			sales = 60
		default:
			sales = 30
		}
	}

	trend := 50.0
	switch m.SalesTrend {
	case models.SalesRising:
		trend = 90
	case models.SalesStable:
		trend = 70
	case models.SalesDeclining:
		trend = 30
	}
	return mean([]float64{review, rating, sales, m.PriceStability, trend})
}

func marketPosition(strength float64) string {
	switch {
	case strength >= 80:
		return "dominant"
	case strength >= 60:
		return "strong"
	case strength >= 40:
		return "moderate"
	default:
		return "weak"
	}
}

// AnalyzeProduct computes every derived metric of one listing.
func (a *CompetitiveAnalyzer) AnalyzeProduct(p models.Product) models.CompetitorMetrics {
	m := models.CompetitorMetrics{Product: p}
	if sales, ok := EstimateMonthlySales(p.Rank); ok {
		m.EstimatedMonthlySales = sales
		if p.Price > 0 {
			m.EstimatedMonthlyRevenue = round(sales*p.Price, 2)
		}
	}
	m.PriceStability = PriceStability(p.PriceHistory)
	m.SalesTrend = SalesTrend(p.RankHistory)
	m.CompetitiveStrength = round(CompetitiveStrength(m), 2)
	m.MarketPosition = marketPosition(m.CompetitiveStrength)
	m.Insights = competitorInsights(m)
	m.Recommendations = competitorRecommendations(m)
	return m
}

// AnalyzeMarket aggregates listings for a keyword. With no listings the result is an
// estimated placeholder with a single empty-market gap.
func (a *CompetitiveAnalyzer) AnalyzeMarket(keyword string, products []models.Product) *models.MarketAnalysis {
	out := &models.MarketAnalysis{Keyword: keyword, AnalyzedAt: a.now()}
	if len(products) == 0 {
		out.Saturation = "unknown"
		out.EntryBarriers = "unknown"
		out.OpportunityScore = 50
		out.Gaps = MarketGaps(nil)
		out.Estimated = true
		out.TopPerformers = []models.CompetitorMetrics{}
		out.Insights = marketInsights(out)
		out.Recommendations = []string{}
		return out
	}

	metrics := make([]models.CompetitorMetrics, 0, len(products))
	for _, p := range products {
		metrics = append(metrics, a.AnalyzeProduct(p))
	}

	var prices, reviews, ratings []float64
	for _, m := range metrics {
		if m.Price > 0 {
			prices = append(prices, m.Price)
		}
		reviews = append(reviews, float64(m.ReviewCount))
		if m.Rating > 0 {
			ratings = append(ratings, m.Rating)
		}
	}
	out.TotalProducts = len(metrics)
	out.AvgPrice = round(mean(prices), 2)
	if len(prices) > 0 {
		sorted := append([]float64(nil), prices...)
		sort.Float64s(sorted)
		out.MinPrice, out.MaxPrice = sorted[0], sorted[len(sorted)-1]
	}
	out.AvgReviews = round(mean(reviews), 1)
	out.AvgRating = round(mean(ratings), 2)
	out.Saturation = saturation(metrics)
	out.EntryBarriers = entryBarriers(metrics)
	out.Gaps = MarketGaps(metrics)
	out.OpportunityScore = opportunityScore(metrics, out.Saturation, out.EntryBarriers, out.Gaps)

	top := append([]models.CompetitorMetrics(nil), metrics...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].CompetitiveStrength > top[j].CompetitiveStrength })
	if len(top) > 5 {
		top = top[:5]
	}
	out.TopPerformers = top
	out.Insights = marketInsights(out)
	out.Recommendations = marketRecommendations(metrics, out.Saturation, out.EntryBarriers)
	return out
}

// saturation is driven by the share of listings with at least 100 reviews.
func saturation(ms []models.CompetitorMetrics) string {
	n := 0
	for _, m := range ms {
		if m.ReviewCount >= 100 {
			n++
		}
	}
	share := float64(n) / float64(len(ms))
	switch {
	case share >= 0.7:
		return "high"
	case share >= 0.3:
		return "medium"
	default:
		return "low"
	}
}

// entryBarriers is driven by the share of listings with competitive strength >= 70.
func entryBarriers(ms []models.CompetitorMetrics) string {
	n := 0
	for _, m := range ms {
		if m.CompetitiveStrength >= 70 {
			n++
		}
	}
	share := float64(n) / float64(len(ms))
	switch {
	case share >= 0.5:
		return "high"
	case share >= 0.2:
		return "medium"
	default:
		return "low"
	}
}

func opportunityScore(ms []models.CompetitorMetrics, sat, barriers string, gaps []models.MarketGap) float64 {
	s := 50.0
	switch sat {
	case "low":
		s += 20
	case "high":
		s -= 20
	}
	switch barriers {
	case "low":
		s += 15
	case "high":
		s -= 15
	}
	strengths := make([]float64, len(ms))
	for i, m := range ms {
		strengths[i] = m.CompetitiveStrength
	}
	switch avg := mean(strengths); {
	case avg < 40:
		s += 15
	case avg > 70:
		s -= 10
	}
	for _, g := range gaps {
		if g.Opportunity == "high" {
			s += 5
		}
	}
	return clamp(s, 0, 100)
}

// MarketGaps finds price, quality, review and content gaps.
func MarketGaps(ms []models.CompetitorMetrics) []models.MarketGap {
	if len(ms) == 0 {
		return []models.MarketGap{{Type: models.GapEmptyMarket, Description: "No significant competition found", Opportunity: "high"}}
	}
	var gaps []models.MarketGap

	var prices []float64
	for _, m := range ms {
		if m.Price > 0 {
			prices = append(prices, m.Price)
		}
	}
	gaps = append(gaps, priceGaps(prices)...)

	// a zero rating is unknown, not poor
	var lowRated []float64
	for _, m := range ms {
		if m.Rating > 0 && m.Rating < 3.5 {
			lowRated = append(lowRated, m.Rating)
		}
	}
	if float64(len(lowRated)) >= float64(len(ms))*0.3 && len(lowRated) > 0 {
		gaps = append(gaps, models.MarketGap{
			Type:        models.GapQuality,
			Description: "Many competitors have poor ratings",
			Opportunity: "high",
			AvgRating:   round(mean(lowRated), 2),
		})
	}

	var fewReviews []float64
	for _, m := range ms {
		if m.ReviewCount < 50 {
			fewReviews = append(fewReviews, float64(m.ReviewCount))
		}
	}
	if float64(len(fewReviews)) >= float64(len(ms))*0.5 && len(fewReviews) > 0 {
		gaps = append(gaps, models.MarketGap{
			Type:        models.GapReview,
			Description: "Many competitors have few reviews",
			Opportunity: "medium",
			AvgReviews:  round(mean(fewReviews), 1),
		})
	}

	titles := make([]string, len(ms))
	for i, m := range ms {
		titles[i] = m.Title
	}
	if shared := sharedTitleKeywords(titles); len(shared) < 10 {
		if len(shared) > 5 {
			shared = shared[:5]
		}
		gaps = append(gaps, models.MarketGap{
			Type:           models.GapContent,
			Description:    "Limited keyword diversity in titles",
			Opportunity:    "medium",
			CommonKeywords: shared,
		})
	}
	return gaps
}

// priceGaps flags adjacent sorted prices more than 50% and $2 apart.
func priceGaps(prices []float64) []models.MarketGap {
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	var gaps []models.MarketGap
	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		gap := next - cur
		if gap > cur*0.5 && gap > 2 {
			opp := "high"
			if gap < cur {
				opp = "medium"
			}
			gaps = append(gaps, models.MarketGap{
				Type:           models.GapPrice,
				Description:    fmt.Sprintf("Price gap between $%.2f and $%.2f", cur, next),
				Opportunity:    opp,
				SuggestedPrice: round(cur+gap/2, 2),
			})
		}
	}
	return gaps
}

// sharedTitleKeywords returns words longer than two characters seen more than once across
// all titles, most frequent first.
func sharedTitleKeywords(titles []string) []string {
	counts := map[string]int{}
	for _, t := range titles {
		for _, w := range strings.Fields(strings.ToLower(t)) {
			w = strings.Map(func(r rune) rune {
				if unicode.IsLetter(r) || unicode.IsDigit(r) {
					return r
				}
				return -1
			}, w)
			if len([]rune(w)) > 2 {
				counts[w]++
			}
		}
	}
	var out []string
	for w, c := range counts {
		if c > 1 {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// SummaryFromAnalysis condenses a market analysis into the summary attached to a niche.
func SummaryFromAnalysis(products []models.Product, ma *models.MarketAnalysis, now time.Time) models.CompetitiveMarketSummary {
	s := models.SummarizeProducts(products, now)
	if ma != nil {
		for _, g := range ma.Gaps {
			if g.Type != models.GapEmptyMarket {
				s.GapCount++
			}
		}
	}
	return s
}

var _ domsvc.CompetitiveAnalyzer = (*CompetitiveAnalyzer)(nil)
