package models

import "strings"

// Requests for niche HTTP endpoints. Defined in domain for consistency and reuse.

type EvaluateRequest struct {
	Keywords         []string `json:"base_keywords" validate:"required,min=1,max=10,dive,keyword"`
	Category         string   `json:"category" validate:"max=100"`
	MinProfitability float64  `json:"min_profitability_score" default:"60" validate:"gte=0,lte=100"`
	MaxCompetition   string   `json:"max_competition_level" default:"medium" validate:"oneofci=low medium high"`
	Limit            int      `json:"limit" default:"10" validate:"gte=1,lte=50"`
}

type StressTestRequest struct {
	Keyword   string               `json:"niche_keyword" validate:"required_without=Niche,max=100"`
	Niche     *Niche               `json:"niche"`
	Scenarios []string             `json:"scenarios" validate:"max=8,dive,required"`
	Custom    []ScenarioParameters `json:"custom_scenarios" validate:"max=8,dive"`
	Async     bool                 `json:"async"`
}

type ExpandRequest struct {
	Keywords        []string `json:"base_keywords" validate:"required,min=1,max=10,dive,keyword"`
	MaxCombinations int      `json:"max_combinations" default:"100" validate:"gte=1,lte=500"`
}

type TrendValidateRequest struct {
	Keyword            string `json:"keyword" validate:"required,keyword"`
	Timeframe          string `json:"timeframe" default:"today 12-m" validate:"oneof='today 3-m' 'today 12-m' 'today 24-m' 'today 5-y'"`
	IncludeForecasts   *bool  `json:"include_forecasts"`
	IncludeSeasonality *bool  `json:"include_seasonality"`
}

type CompetitorRequest struct {
	Keyword     string `json:"keyword" validate:"required,keyword"`
	MaxProducts int    `json:"max_products" default:"20" validate:"gte=1,lte=100"`
	MinReviews  int    `json:"min_reviews" default:"0" validate:"gte=0"`
}

type ListingRequest struct {
	Keyword        string `json:"niche_keyword" validate:"required_without=Niche,max=100"`
	Niche          *Niche `json:"niche"`
	ContentType    string `json:"content_type" default:"journal" validate:"oneofci=journal planner workbook notebook log_book"`
	Audience       string `json:"target_audience" default:"adults" validate:"oneofci=children teens adults seniors professionals students general"`
	Style          string `json:"style" default:"professional" validate:"oneofci=professional creative educational inspirational practical"`
	UniqueAngle    string `json:"unique_angle" validate:"max=200"`
	IncludePricing *bool  `json:"include_pricing"`
}

// Options converts the request into generator options.
func (r ListingRequest) Options() (ListingOptions, error) {
	style, err := ParseListingStyle(r.Style)
	if err != nil {
		return ListingOptions{}, err
	}
	ct := ContentType(strings.ToLower(strings.TrimSpace(r.ContentType)))
	if ct == "" {
		ct = ContentJournal
	}
	aud := Audience(strings.ToLower(strings.TrimSpace(r.Audience)))
	if aud == "" {
		aud = AudienceAdults
	}
	return ListingOptions{
		ContentType: ct,
		Audience:    aud,
		Style:       style,
		UniqueAngle: strings.TrimSpace(r.UniqueAngle),
	}, nil
}
