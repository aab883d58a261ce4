package models

import (
	"strings"
	"time"
)

// Marketplace limits on a listing.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 4000
	MaxListingKeywords   = 7
	MaxListingCategories = 2
)

type ContentType string

const (
	ContentJournal  ContentType = "journal"
	ContentPlanner  ContentType = "planner"
	ContentWorkbook ContentType = "workbook"
	ContentNotebook ContentType = "notebook"
	ContentLogBook  ContentType = "log_book"
)

// BookType is the word used for the content type in titles.
func (c ContentType) BookType() string {
	switch c {
	case ContentJournal:
		return "Journal"
	case ContentPlanner:
		return "Planner"
	case ContentWorkbook:
		return "Workbook"
	case ContentNotebook:
		return "Notebook"
	case ContentLogBook:
		return "Log Book"
	}
	return "Book"
}

type Audience string

const (
	AudienceChildren      Audience = "children"
	AudienceTeens         Audience = "teens"
	AudienceAdults        Audience = "adults"
	AudienceSeniors       Audience = "seniors"
	AudienceProfessionals Audience = "professionals"
	AudienceStudents      Audience = "students"
	AudienceGeneral       Audience = "general"
)

// Label is the audience as written in a title.
func (a Audience) Label() string {
	switch a {
	case AudienceChildren:
		return "Kids"
	case AudienceTeens:
		return "Teens"
	case AudienceSeniors:
		return "Seniors"
	case AudienceProfessionals:
		return "Professionals"
	case AudienceStudents:
		return "Students"
	case AudienceGeneral:
		return "Everyone"
	}
	return "Adults"
}

type ListingStyle string

const (
	StyleProfessional  ListingStyle = "professional"
	StyleCreative      ListingStyle = "creative"
	StyleEducational   ListingStyle = "educational"
	StyleInspirational ListingStyle = "inspirational"
	StylePractical     ListingStyle = "practical"
)

// ParseListingStyle accepts any casing; empty selects the professional style.
func ParseListingStyle(s string) (ListingStyle, error) {
	st := ListingStyle(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case "":
		return StyleProfessional, nil
	case StyleProfessional, StyleCreative, StyleEducational, StyleInspirational, StylePractical:
		return st, nil
	}
	return "", invalid(ErrInvalidListing, "style", "unknown style %q", s)
}

// ListingOptions shape a generated listing.
type ListingOptions struct {
	ContentType ContentType
	Audience    Audience
	Style       ListingStyle
	UniqueAngle string
}

// ListingMarket is the market data a listing is priced and keyed against.
// Products are comparable listings; TrendScores holds trend scores of listing keywords.
type ListingMarket struct {
	Products    []Product
	TrendScores map[string]float64
	WithPricing bool
}

// TitleOption is one candidate title with its search-optimisation metrics.
type TitleOption struct {
	Title          string       `json:"title"`
	Style          ListingStyle `json:"template_style"`
	SEOScore       float64      `json:"seo_score"`
	CharacterCount int          `json:"character_count"`
	KeywordDensity float64      `json:"keyword_density"`
	Readability    string       `json:"readability"`
}

// ComplianceCheck records the marketplace content rules a description meets.
type ComplianceCheck struct {
	LengthCompliant  bool `json:"length_compliant"`
	NoProhibited     bool `json:"no_prohibited_content"`
	ProperFormatting bool `json:"proper_formatting"`
	CallToAction     bool `json:"call_to_action_present"`
}

// Passed reports whether every rule holds.
func (c ComplianceCheck) Passed() bool {
	return c.LengthCompliant && c.NoProhibited && c.ProperFormatting && c.CallToAction
}

type DescriptionAnalysis struct {
	WordCount          int             `json:"word_count"`
	CharacterCount     int             `json:"character_count"`
	SEOScore           float64         `json:"seo_score"`
	ReadabilityScore   float64         `json:"readability_score"`
	ConversionElements []string        `json:"conversion_elements"`
	Compliance         ComplianceCheck `json:"compliance_check"`
}

type KeywordPlan struct {
	Primary          []string           `json:"primary_keywords"`
	TrendScores      map[string]float64 `json:"trend_scores"`
	ContentKeywords  []string           `json:"content_type_keywords"`
	AudienceKeywords []string           `json:"audience_keywords"`
	NicheKeywords    []string           `json:"niche_keywords"`
}

type CategoryPlan struct {
	Primary     []string `json:"primary_categories"`
	Alternative []string `json:"alternative_categories"`
	Rationale   string   `json:"category_rationale"`
}

// Pricing tiers of a recommended list price.
const (
	PricingBudget  = "budget"
	PricingMedium  = "medium"
	PricingPremium = "premium"
)

type PricingPlan struct {
	Recommended float64     `json:"recommended_price"`
	Tier        string      `json:"pricing_tier"`
	Range       *PriceRange `json:"price_range,omitempty"`
	Average     float64     `json:"market_average,omitempty"`
	Median      float64     `json:"market_median,omitempty"`
	Analyzed    int         `json:"analyzed_products"`
	Confidence  string      `json:"confidence"`
	Note        string      `json:"note,omitempty"`
}

// Listing is the publishable part of a generated listing.
type Listing struct {
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Keywords       []string     `json:"keywords"`
	Categories     []string     `json:"categories"`
	ContentType    ContentType  `json:"content_type"`
	Audience       Audience     `json:"target_audience"`
	PricingTier    string       `json:"pricing_tier"`
	SuggestedPrice float64      `json:"suggested_price,omitempty"`
	SellingPoints  []string     `json:"unique_selling_points"`
	Style          ListingStyle `json:"style"`
}

// ListingResult is a listing plus the analysis behind it.
type ListingResult struct {
	NicheKeyword string              `json:"niche_keyword"`
	Listing      Listing             `json:"listing"`
	TitleOptions []TitleOption       `json:"title_options"`
	Description  DescriptionAnalysis `json:"description_analysis"`
	Keywords     KeywordPlan         `json:"keyword_analysis"`
	Categories   CategoryPlan        `json:"category_recommendations"`
	Pricing      *PricingPlan        `json:"pricing_analysis,omitempty"`
	Suggestions  []string            `json:"optimization_suggestions"`
	GeneratedAt  time.Time           `json:"generated_at"`
}
