package analytics

import "nichescope/internal/domain/models"

type titleTemplate struct {
	pattern string
	style   models.ListingStyle
}

// Title patterns by content type. Placeholders are filled by fillTitle.
var titleTemplates = map[models.ContentType][]titleTemplate{
	models.ContentJournal: {
		{"{keyword} Journal: {angle} for {audience}", models.StylePractical},
		{"The Ultimate {keyword} {book_type}: {benefit} in {timeframe}", models.StyleProfessional},
		{"{adjective} {keyword} {book_type} for {audience}: {angle}", models.StyleCreative},
	},
	models.ContentPlanner: {
		{"{year} {keyword} Planner: {angle} for {audience}", models.StylePractical},
		{"The {adjective} {keyword} Planner: {benefit} System", models.StyleProfessional},
	},
	models.ContentWorkbook: {
		{"{keyword} Workbook: {angle} for {audience}", models.StyleEducational},
		{"Master {keyword}: {benefit} Workbook with {feature}", models.StyleProfessional},
	},
}

var fallbackTitle = titleTemplate{"{keyword} {book_type}: {angle}", models.StylePractical}

var titleAdjectives = map[models.ListingStyle]string{
	models.StyleProfessional:  "Complete",
	models.StyleCreative:      "Beautiful",
	models.StyleEducational:   "Essential",
	models.StyleInspirational: "Transformative",
	models.StylePractical:     "Daily",
}

var uniqueAngles = map[models.ContentType]string{
	models.ContentJournal:  "Daily Prompts and Reflections",
	models.ContentPlanner:  "Monthly and Weekly Planning",
	models.ContentWorkbook: "Step-by-Step Exercises",
}

const (
	defaultAngle     = "Comprehensive Guide"
	defaultBenefit   = "Enhanced Productivity"
	defaultTimeframe = "30 Days"
	defaultFeature   = "Practice Exercises"
)

type descriptionTemplate struct {
	sections   []string
	conversion []string
}

var descriptionTemplates = map[models.ListingStyle]descriptionTemplate{
	models.StyleProfessional: {
		sections:   []string{"hook", "problem", "solution", "features", "benefits", "audience", "cta"},
		conversion: []string{"social_proof", "urgency", "guarantee"},
	},
	models.StyleCreative: {
		sections:   []string{"emotional_hook", "story", "transformation", "features", "emotional_benefits", "cta"},
		conversion: []string{"emotional_appeal", "visualization", "community"},
	},
	models.StyleEducational: {
		sections:   []string{"objective", "curriculum", "features", "benefits", "audience", "cta"},
		conversion: []string{"credibility", "progress_tracking", "results"},
	},
}

var hooks = map[models.ContentType]string{
	models.ContentJournal: "Transform your daily routine with intentional reflection and mindful living.",
	models.ContentPlanner: "Take control of your time and achieve your biggest goals with strategic planning.",
}

var solutions = map[models.ContentType]string{
	models.ContentJournal: "This thoughtfully designed journal provides the structure and guidance you need.",
	models.ContentPlanner: "This comprehensive planner system breaks down complex goals into manageable steps.",
}

var benefits = map[models.ContentType][]string{
	models.ContentJournal: {
		"Develop greater self-awareness and emotional intelligence",
		"Build consistent reflection habits that stick",
		"Track your progress and celebrate your growth",
		"Reduce stress and increase mental clarity",
	},
	models.ContentPlanner: {
		"Achieve your goals faster with strategic planning",
		"Improve time management and productivity",
		"Reduce overwhelm and increase focus",
		"Create better work-life balance",
	},
	models.ContentWorkbook: {
		"Master new skills through hands-on practice",
		"Build confidence with step-by-step guidance",
		"Track your learning progress effectively",
		"Apply knowledge immediately for better retention",
	},
}

var audienceLines = map[models.Audience]string{
	models.AudienceProfessionals: "Perfect for busy professionals seeking to optimize their productivity and achieve career goals.",
	models.AudienceStudents:      "Ideal for students looking to improve study habits and academic performance.",
	models.AudienceAdults:        "Designed for adults ready to take control of their personal development journey.",
	models.AudienceGeneral:       "Suitable for anyone committed to personal growth and positive change.",
}

const callToAction = "Start your transformation today. Order now and begin your journey to success!"

// keywordAnchor is the phrase missing listing keywords are woven in front of.
const keywordAnchor = "personal development"

// Phrases the marketplace rejects in descriptions.
var prohibitedPhrases = []string{"best seller", "#1 bestseller", "award winning", "reviews", "rating", "customer feedback"}

var contentKeywords = map[models.ContentType][]string{
	models.ContentJournal:  {"journal", "diary", "notebook", "reflection", "mindfulness"},
	models.ContentPlanner:  {"planner", "organizer", "schedule", "productivity", "goals"},
	models.ContentWorkbook: {"workbook", "exercises", "practice", "learning", "skills"},
}

var audienceKeywords = map[models.Audience][]string{
	models.AudienceProfessionals: {"professional", "business", "career", "workplace"},
	models.AudienceStudents:      {"student", "study", "academic", "learning"},
	models.AudienceChildren:      {"kids", "children", "fun", "colorful"},
}

const officeOrganizers = "Office Products > Office & School Supplies > Calendars, Planners & Personal Organizers"

var baseCategories = map[models.ContentType][]string{
	models.ContentJournal: {
		"Books > Self-Help > Journal Writing",
		"Books > Health, Fitness & Dieting > Mental Health",
		officeOrganizers,
	},
	models.ContentPlanner: {
		officeOrganizers,
		"Books > Business & Money > Management & Leadership",
		"Books > Self-Help > Time Management",
	},
	models.ContentWorkbook: {
		"Books > Education & Teaching > Schools & Teaching",
		"Books > Children's Books > Education & Reference",
		"Books > Test Preparation",
	},
}

var fallbackCategories = []string{"Books > Self-Help", "Office Products > Office & School Supplies"}

// Pricing bounds in USD.
const (
	minListPrice      = 5.99
	fallbackListPrice = 9.99
	fallbackMaxPrice  = 14.99
	budgetPriceCap    = 7.99
	mediumPriceCap    = 12.99
	medianUndercut    = 0.95
	highConfidenceMin = 10
)
