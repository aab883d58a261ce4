package analytics

import (
	"fmt"

	"nichescope/internal/domain/models"
)

const (
	noNichesMessage = "No profitable niches found with current criteria"
	primaryKeywords = 5
)

// NicheRecommendations summarises a ranked result. top is the returned list in rank order;
// all is every scored candidate of the run, used for market-wide insights.
func NicheRecommendations(top, all []*models.Niche) models.NicheRecommendations {
	out := models.NicheRecommendations{
		QuickWins:             []models.NicheRef{},
		LongTermOpportunities: []models.NicheRef{},
	}
	if len(top) == 0 {
		out.Message = noNichesMessage
		return out
	}

	best := top[0]
	out.Primary = &models.NicheRef{
		Keyword:  best.PrimaryKeyword,
		Score:    best.Scores.Profitability,
		Reason:   fmt.Sprintf("Highest profitability score with %s competition", best.CompetitionLevel()),
		Keywords: best.TopKeywords(primaryKeywords),
	}

	for i, n := range top {
		if i >= 5 {
			break
		}
		if n.CompetitionLevel() == models.CompetitionLow && n.Scores.Profitability >= 60 {
			ref := models.NicheRef{Keyword: n.PrimaryKeyword, Score: n.Scores.Profitability}
			if n.Competition != nil {
				ref.Competitors = n.Competition.CompetitorCount
			}
			out.QuickWins = append(out.QuickWins, ref)
		}
	}

	for i, n := range top {
		if i >= 10 {
			break
		}
		if n.Scores.Profitability >= 75 && n.Trend != nil && n.Trend.Direction == models.DirectionRising {
			out.LongTermOpportunities = append(out.LongTermOpportunities, models.NicheRef{
				Keyword:        n.PrimaryKeyword,
				Score:          n.Scores.Profitability,
				TrendDirection: n.Trend.Direction,
			})
		}
	}

	if len(all) == 0 {
		all = top
	}
	dist := map[models.CompetitionLevel]int{
		models.CompetitionLow:    0,
		models.CompetitionMedium: 0,
		models.CompetitionHigh:   0,
	}
	var sum float64
	for _, n := range all {
		sum += n.Scores.Profitability
		dist[n.CompetitionLevel()]++
	}
	out.Insights = &models.MarketInsights{
		AvgProfitability:        round(sum/float64(len(all)), 2),
		CompetitionDistribution: dist,
	}
	return out
}
