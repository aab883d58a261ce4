package models

import "strings"

type CompetitionLevel string

const (
	CompetitionLow    CompetitionLevel = "low"
	CompetitionMedium CompetitionLevel = "medium"
	CompetitionHigh   CompetitionLevel = "high"
)

// CompetitionLevelFromScore maps a competition score to its tier.
// <=30 low, <=60 medium, else high.
func CompetitionLevelFromScore(score float64) CompetitionLevel {
	switch {
	case score <= 30:
		return CompetitionLow
	case score <= 60:
		return CompetitionMedium
	default:
		return CompetitionHigh
	}
}

// Rank orders levels so that callers can compare against a ceiling.
func (l CompetitionLevel) Rank() int {
	switch l {
	case CompetitionLow:
		return 1
	case CompetitionMedium:
		return 2
	case CompetitionHigh:
		return 3
	default:
		return 0
	}
}

// ParseCompetitionLevel accepts any casing of low/medium/high.
func ParseCompetitionLevel(s string) (CompetitionLevel, error) {
	l := CompetitionLevel(strings.ToLower(strings.TrimSpace(s)))
	if l.Rank() == 0 {
		return "", invalid(ErrInvalidCompetition, "max_competition", "unknown level %q", s)
	}
	return l, nil
}

type ProfitabilityTier string

const (
	ProfitabilityLow    ProfitabilityTier = "low"
	ProfitabilityMedium ProfitabilityTier = "medium"
	ProfitabilityHigh   ProfitabilityTier = "high"
)

// ProfitabilityTierFromScore: >=80 high, >=60 medium, else low.
func ProfitabilityTierFromScore(score float64) ProfitabilityTier {
	switch {
	case score >= 80:
		return ProfitabilityHigh
	case score >= 60:
		return ProfitabilityMedium
	default:
		return ProfitabilityLow
	}
}

// RiskLevel is shared by niche risk and stress-test risk profiles.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

type TrendDirection string

const (
	DirectionRising    TrendDirection = "rising"
	DirectionStable    TrendDirection = "stable"
	DirectionDeclining TrendDirection = "declining"
	DirectionVolatile  TrendDirection = "volatile"
	DirectionSeasonal  TrendDirection = "seasonal"
)

func (d TrendDirection) Valid() bool {
	switch d {
	case DirectionRising, DirectionStable, DirectionDeclining, DirectionVolatile, DirectionSeasonal:
		return true
	}
	return false
}

type TrendStrength string

const (
	StrengthVeryWeak   TrendStrength = "very_weak"
	StrengthWeak       TrendStrength = "weak"
	StrengthModerate   TrendStrength = "moderate"
	StrengthStrong     TrendStrength = "strong"
	StrengthVeryStrong TrendStrength = "very_strong"
)

// StrengthFromScore derives the strength band from a trend score in 20-point steps.
func StrengthFromScore(score float64) TrendStrength {
	switch {
	case score <= 20:
		return StrengthVeryWeak
	case score <= 40:
		return StrengthWeak
	case score <= 60:
		return StrengthModerate
	case score <= 80:
		return StrengthStrong
	default:
		return StrengthVeryStrong
	}
}

func (s TrendStrength) IsStrong() bool {
	return s == StrengthStrong || s == StrengthVeryStrong
}
