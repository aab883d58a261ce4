package models

import "time"

// EvaluationCriteria drives one run of the niche evaluation pipeline.
type EvaluationCriteria struct {
	SeedKeywords     []string
	Category         string
	MinProfitability float64
	MaxCompetition   CompetitionLevel
	Limit            int
}

// EvaluationStats counts candidates at every pipeline stage.
type EvaluationStats struct {
	ExpandedKeywords  int `json:"expanded_keywords_count"`
	AnalyzedTrends    int `json:"analyzed_trends_count"`
	PromisingKeywords int `json:"promising_keywords_count"`
	CompetitionLooked int `json:"competition_lookups_count"`
	Candidates        int `json:"niche_candidates_count"`
	Qualified         int `json:"qualified_niches_count"`
	Returned          int `json:"final_niches_count"`
}

// NicheRef is a short reference to a niche used in recommendations.
type NicheRef struct {
	Keyword        string         `json:"niche"`
	Score          float64        `json:"score"`
	Competitors    int            `json:"competitors,omitempty"`
	TrendDirection TrendDirection `json:"trend_direction,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`
}

// MarketInsights summarises every qualified niche of a run.
type MarketInsights struct {
	AvgProfitability        float64                  `json:"avg_profitability_score"`
	CompetitionDistribution map[CompetitionLevel]int `json:"competition_distribution"`
}

// NicheRecommendations is the human-readable guidance for a run.
type NicheRecommendations struct {
	Message               string          `json:"message,omitempty"`
	Primary               *NicheRef       `json:"primary_recommendation,omitempty"`
	QuickWins             []NicheRef      `json:"quick_wins"`
	LongTermOpportunities []NicheRef      `json:"long_term_opportunities"`
	Insights              *MarketInsights `json:"market_insights,omitempty"`
}

// EvaluationResult is the ranked output of an evaluation run.
// Errors maps a keyword or stage to the failure that excluded it.
type EvaluationResult struct {
	RunID            string               `json:"run_id"`
	SeedKeywords     []string             `json:"base_keywords"`
	MinProfitability float64              `json:"min_profitability_score"`
	MaxCompetition   CompetitionLevel     `json:"max_competition_level"`
	Niches           []*Niche             `json:"niches"`
	Stats            EvaluationStats      `json:"analysis_metadata"`
	Recommendations  NicheRecommendations `json:"recommendations"`
	Errors           map[string]string    `json:"errors,omitempty"`
	StartedAt        time.Time            `json:"started_at"`
	FinishedAt       time.Time            `json:"finished_at"`
}

// Progress is a pipeline stage notification streamed to observers.
type Progress struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}
