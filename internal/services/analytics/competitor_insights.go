package analytics

import (
	"fmt"

	"nichescope/internal/domain/models"
)

func competitorInsights(m models.CompetitorMetrics) []string {
	var out []string
	if m.EstimatedMonthlySales > 0 {
		switch {
		case m.EstimatedMonthlySales >= 1000:
			out = append(out, fmt.Sprintf("High-performing product with estimated %.0f monthly sales", m.EstimatedMonthlySales))
		case m.EstimatedMonthlySales >= 100:
			out = append(out, fmt.Sprintf("Moderate performer with estimated %.0f monthly sales", m.EstimatedMonthlySales))
		default:
			out = append(out, fmt.Sprintf("Low sales volume with estimated %.1f monthly sales", m.EstimatedMonthlySales))
		}
	}
	switch {
	case m.ReviewCount >= 1000:
		out = append(out, "Well-established product with strong review base")
	case m.ReviewCount >= 100:
		out = append(out, "Moderately established with decent review count")
	case m.ReviewCount < 10:
		out = append(out, "New or low-visibility product with few reviews")
	}
	switch {
	case m.Rating >= 4.5:
		out = append(out, "Excellent customer satisfaction with high ratings")
	case m.Rating >= 4.0:
		out = append(out, "Good customer satisfaction")
	case m.Rating > 0 && m.Rating < 3.5:
		out = append(out, "Poor customer satisfaction - potential opportunity")
	}
	switch {
	case m.Price >= 20:
		out = append(out, "Premium pricing strategy")
	case m.Price > 0 && m.Price <= 5:
		out = append(out, "Budget/low-cost positioning")
	}
	switch m.SalesTrend {
	case models.SalesRising:
		out = append(out, "Sales momentum is increasing")
	case models.SalesDeclining:
		out = append(out, "Sales appear to be declining")
	}
	return out
}

func competitorRecommendations(m models.CompetitorMetrics) []string {
	var out []string
	switch {
	case m.CompetitiveStrength < 50:
		out = append(out, "Weak competitor - consider direct competition with better quality/marketing")
	case m.CompetitiveStrength > 80:
		out = append(out, "Strong competitor - avoid direct competition, find differentiation angle")
	}
	switch {
	case m.Price > 15:
		out = append(out, "Consider lower-priced alternative to capture price-sensitive customers")
	case m.Price > 0 && m.Price < 8:
		out = append(out, "Opportunity for premium positioning with higher quality")
	}
	if m.Rating < 4.0 {
		out = append(out, "Focus on quality improvements to outperform this competitor")
	}
	if m.ReviewCount < 50 {
		out = append(out, "Low review count suggests market entry opportunity")
	}
	return out
}

func marketInsights(a *models.MarketAnalysis) []string {
	var out []string
	switch {
	case a.TotalProducts >= 50:
		out = append(out, fmt.Sprintf("Large market with %d competing products", a.TotalProducts))
	case a.TotalProducts >= 10:
		out = append(out, fmt.Sprintf("Moderate market size with %d competitors", a.TotalProducts))
	default:
		out = append(out, fmt.Sprintf("Small market with only %d competitors", a.TotalProducts))
	}
	switch {
	case a.AvgPrice >= 15:
		out = append(out, fmt.Sprintf("Premium market with average price of $%.2f", a.AvgPrice))
	case a.AvgPrice > 0 && a.AvgPrice <= 8:
		out = append(out, fmt.Sprintf("Budget market with average price of $%.2f", a.AvgPrice))
	}
	switch a.Saturation {
	case "high":
		out = append(out, "Highly saturated market with established competitors")
	case "low":
		out = append(out, "Emerging market with growth opportunities")
	}
	switch {
	case a.OpportunityScore >= 70:
		out = append(out, "High opportunity market with good entry potential")
	case a.OpportunityScore <= 40:
		out = append(out, "Challenging market with limited opportunities")
	}
	return out
}

func marketRecommendations(ms []models.CompetitorMetrics, sat, barriers string) []string {
	out := []string{}
	switch {
	case barriers == "low" && sat == "low":
		out = append(out, "Excellent market entry opportunity - move quickly to establish position")
	case barriers == "high":
		out = append(out, "Consider niche differentiation or unique value proposition")
	}

	lo, hi := 0.0, 0.0
	for _, m := range ms {
		if m.Price <= 0 {
			continue
		}
		if lo == 0 || m.Price < lo {
			lo = m.Price
		}
		if m.Price > hi {
			hi = m.Price
		}
	}
	if hi-lo > 10 {
		out = append(out, fmt.Sprintf("Wide price range ($%.2f-$%.2f) suggests segmentation opportunities", lo, hi))
	}

	lowRated := 0
	for _, m := range ms {
		if m.Rating < 4.0 {
			lowRated++
		}
	}
	if float64(lowRated) > float64(len(ms))*0.3 {
		out = append(out, "Focus on quality to differentiate from poorly-rated competitors")
	}

	switch sat {
	case "low":
		out = append(out, "Early market - focus on establishing brand and capturing market share")
	case "high":
		out = append(out, "Mature market - focus on differentiation and niche targeting")
	}
	return out
}
