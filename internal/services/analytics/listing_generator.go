package analytics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
)

const (
	titleOptionCount  = 3
	titleKeywordCount = 5
	descKeywordCount  = 7
	placedKeywords    = 3
)

var prohibitedRe = func() *regexp.Regexp {
	quoted := make([]string, len(prohibitedPhrases))
	for i, p := range prohibitedPhrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}()

type ListingGeneratorOption func(*ListingGenerator)

func WithListingClock(now func() time.Time) ListingGeneratorOption {
	return func(g *ListingGenerator) { g.now = now }
}

// ListingGenerator drafts a marketplace listing for an evaluated niche: title options,
// description, keywords, categories and a list price.
type ListingGenerator struct {
	now func() time.Time
}

func NewListingGenerator(opts ...ListingGeneratorOption) *ListingGenerator {
	g := &ListingGenerator{now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Keywords returns the backend keywords of a listing: the niche keywords, then content and
// audience terms, deduplicated and capped at MaxListingKeywords.
func (g *ListingGenerator) Keywords(n *models.Niche, opts models.ListingOptions) []string {
	var all []string
	all = append(all, n.PrimaryKeyword)
	all = append(all, top(n.Keywords, 6)...)
	all = append(all, contentKeywords[opts.ContentType]...)
	all = append(all, audienceKeywords[opts.Audience]...)
	return top(dedupeFold(all), models.MaxListingKeywords)
}

// Generate drafts the listing. It fails only on a missing niche or unknown options.
func (g *ListingGenerator) Generate(n *models.Niche, opts models.ListingOptions, market models.ListingMarket) (*models.ListingResult, error) {
	if n == nil || strings.TrimSpace(n.PrimaryKeyword) == "" {
		return nil, &models.ValidationError{Field: "niche", Reason: "an evaluated niche is required", Err: models.ErrInvalidListing}
	}
	if err := validateListingOptions(&opts); err != nil {
		return nil, err
	}

	titles := g.titleOptions(n, opts)
	features := g.features(opts)
	desc, analysis := describe(n, opts, features)

	keywords := g.Keywords(n, opts)
	scores := map[string]float64{}
	for _, kw := range keywords {
		if v, ok := market.TrendScores[kw]; ok {
			scores[kw] = v
		}
	}

	listing := models.Listing{
		Title:         titles[0].Title,
		Description:   desc,
		Keywords:      keywords,
		ContentType:   opts.ContentType,
		Audience:      opts.Audience,
		PricingTier:   models.PricingMedium,
		SellingPoints: top(dedupeFold(features), 4),
		Style:         opts.Style,
	}
	cats := categories(opts, n.Category)
	listing.Categories = cats.Primary

	var pricing *models.PricingPlan
	if market.WithPricing {
		pricing = priceListing(market.Products, n)
		listing.SuggestedPrice = pricing.Recommended
		listing.PricingTier = pricing.Tier
	}

	return &models.ListingResult{
		NicheKeyword: n.PrimaryKeyword,
		Listing:      listing,
		TitleOptions: titles,
		Description:  analysis,
		Keywords: models.KeywordPlan{
			Primary:          keywords,
			TrendScores:      scores,
			ContentKeywords:  nonNil(contentKeywords[opts.ContentType]),
			AudienceKeywords: nonNil(audienceKeywords[opts.Audience]),
			NicheKeywords:    top(n.Keywords, 10),
		},
		Categories:  cats,
		Pricing:     pricing,
		Suggestions: suggestions(listing, n, analysis),
		GeneratedAt: g.now(),
	}, nil
}

func validateListingOptions(opts *models.ListingOptions) error {
	switch opts.ContentType {
	case models.ContentJournal, models.ContentPlanner, models.ContentWorkbook, models.ContentNotebook, models.ContentLogBook:
	default:
		return &models.ValidationError{Field: "content_type", Reason: fmt.Sprintf("unknown content type %q", opts.ContentType), Err: models.ErrInvalidListing}
	}
	switch opts.Audience {
	case models.AudienceChildren, models.AudienceTeens, models.AudienceAdults, models.AudienceSeniors,
		models.AudienceProfessionals, models.AudienceStudents, models.AudienceGeneral:
	default:
		return &models.ValidationError{Field: "target_audience", Reason: fmt.Sprintf("unknown audience %q", opts.Audience), Err: models.ErrInvalidListing}
	}
	style, err := models.ParseListingStyle(string(opts.Style))
	if err != nil {
		return err
	}
	opts.Style = style
	return nil
}

func (g *ListingGenerator) features(opts models.ListingOptions) []string {
	return []string{
		angleFor(opts),
		"Optimized for " + strings.ReplaceAll(string(opts.Audience), "_", " "),
		"High-quality design and layout",
		"Proven methodology and structure",
	}
}

// angleFor prefers the caller's angle over the content type's stock one.
func angleFor(opts models.ListingOptions) string {
	if opts.UniqueAngle != "" {
		return opts.UniqueAngle
	}
	if a, ok := uniqueAngles[opts.ContentType]; ok {
		return a
	}
	return defaultAngle
}

// titleOptions fills every template of the content type. Templates in the preferred style
// come first, then the rest by SEO score.
func (g *ListingGenerator) titleOptions(n *models.Niche, opts models.ListingOptions) []models.TitleOption {
	templates := titleTemplates[opts.ContentType]
	if len(templates) == 0 {
		templates = []titleTemplate{fallbackTitle}
	}
	extra := top(n.Keywords, titleKeywordCount)
	out := make([]models.TitleOption, 0, len(templates))
	for _, t := range templates {
		title := fitTitle(g.fillTitle(t, n.PrimaryKeyword, opts))
		out = append(out, models.TitleOption{
			Title:          title,
			Style:          t.style,
			SEOScore:       titleSEOScore(title, n.PrimaryKeyword, extra),
			CharacterCount: len(title),
			KeywordDensity: round(keywordDensity(title, n.PrimaryKeyword), 2),
			Readability:    titleReadability(title),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Style == opts.Style, out[j].Style == opts.Style
		if pi != pj {
			return pi
		}
		return out[i].SEOScore > out[j].SEOScore
	})
	if len(out) > titleOptionCount {
		out = out[:titleOptionCount]
	}
	return out
}

func (g *ListingGenerator) fillTitle(t titleTemplate, keyword string, opts models.ListingOptions) string {
	adjective, ok := titleAdjectives[t.style]
	if !ok {
		adjective = titleAdjectives[models.StylePractical]
	}
	r := strings.NewReplacer(
		"{keyword}", titleCase(keyword),
		"{adjective}", adjective,
		"{angle}", angleFor(opts),
		"{book_type}", opts.ContentType.BookType(),
		"{audience}", opts.Audience.Label(),
		"{year}", strconv.Itoa(g.now().Year()),
		"{benefit}", defaultBenefit,
		"{timeframe}", defaultTimeframe,
		"{feature}", defaultFeature,
	)
	return collapseRepeats(r.Replace(t.pattern))
}

// collapseRepeats drops a word repeated back to back, so a keyword ending in the book type
// does not read "Gratitude Journal Journal".
func collapseRepeats(s string) string {
	var out []string
	for _, w := range strings.Fields(s) {
		if n := len(out); n > 0 && strings.EqualFold(out[n-1], strings.TrimRight(w, ":,")) {
			out[n-1] = w
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// fitTitle truncates at a word boundary to the marketplace limit.
func fitTitle(title string) string {
	if len(title) <= models.MaxTitleLength {
		return title
	}
	var b strings.Builder
	for _, w := range strings.Fields(title) {
		if b.Len()+1+len(w) > models.MaxTitleLength-3 {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	return b.String() + "..."
}

// titleSEOScore: primary keyword 40 (+10 leading), extra keywords up to 30, length up to 20,
// word count up to 10.
func titleSEOScore(title, keyword string, extra []string) float64 {
	lower := strings.ToLower(title)
	kw := strings.ToLower(strings.TrimSpace(keyword))
	var score float64
	if kw != "" && strings.Contains(lower, kw) {
		score += 40
		if strings.HasPrefix(lower, kw) {
			score += 10
		}
	}
	hits := 0
	for _, e := range extra {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" && strings.Contains(lower, e) {
			hits++
		}
	}
	score += minFloat(30, float64(hits*10))

	switch l := len(title); {
	case l >= 30 && l <= 60:
		score += 20
	case l >= 20 && l <= 80:
		score += 15
	default:
		score += 5
	}
	switch w := len(strings.Fields(title)); {
	case w >= 3 && w <= 8:
		score += 10
	case w <= 12:
		score += 5
	}
	return minFloat(100, score)
}

// keywordDensity is the share of title words taken by occurrences of keyword, in percent.
func keywordDensity(title, keyword string) float64 {
	words := wordsOf(title)
	kw := wordsOf(keyword)
	if len(words) == 0 || len(kw) == 0 {
		return 0
	}
	count := 0
	for i := 0; i+len(kw) <= len(words); i++ {
		match := true
		for j := range kw {
			if words[i+j] != kw[j] {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return float64(count*len(kw)) / float64(len(words)) * 100
}

func titleReadability(title string) string {
	words := strings.Fields(title)
	if len(words) == 0 {
		return "poor"
	}
	chars := 0
	for _, w := range words {
		chars += len(w)
	}
	avg := float64(chars) / float64(len(words))
	switch n := len(words); {
	case n <= 6 && avg <= 6:
		return "excellent"
	case n <= 8 && avg <= 8:
		return "good"
	case n <= 12:
		return "fair"
	}
	return "poor"
}

// describe assembles the description sections of the style, weaves in missing keywords and
// strips phrases the marketplace rejects.
func describe(n *models.Niche, opts models.ListingOptions, features []string) (string, models.DescriptionAnalysis) {
	tmpl, ok := descriptionTemplates[opts.Style]
	if !ok {
		tmpl = descriptionTemplates[models.StyleProfessional]
	}
	var parts []string
	for _, s := range tmpl.sections {
		if text := section(s, n.PrimaryKeyword, opts, features); text != "" {
			parts = append(parts, text)
		}
	}
	desc := strings.Join(parts, "\n\n")

	keywords := top(n.Keywords, descKeywordCount)
	desc = placeKeywords(desc, keywords)
	desc = sanitizeDescription(desc)

	seo, readability := descriptionMetrics(desc, n.PrimaryKeyword, keywords)
	return desc, models.DescriptionAnalysis{
		WordCount:          len(strings.Fields(desc)),
		CharacterCount:     len(desc),
		SEOScore:           seo,
		ReadabilityScore:   readability,
		ConversionElements: tmpl.conversion,
		Compliance:         checkCompliance(desc),
	}
}

func section(kind, keyword string, opts models.ListingOptions, features []string) string {
	kw := strings.ToLower(keyword)
	book := strings.ToLower(strings.ReplaceAll(string(opts.ContentType), "_", " "))
	switch kind {
	case "hook":
		if h, ok := hooks[opts.ContentType]; ok {
			return h
		}
		return fmt.Sprintf("Discover the power of %s to transform your daily routine.", kw)
	case "emotional_hook":
		return fmt.Sprintf("Imagine ending every day with a moment that is truly yours, guided by this %s %s.", kw, book)
	case "problem":
		return "Feeling overwhelmed by daily tasks and long-term goals?"
	case "story":
		return fmt.Sprintf("Every page of this %s was shaped around one idea: small, steady steps lead to real change.", book)
	case "solution":
		if s, ok := solutions[opts.ContentType]; ok {
			return s
		}
		return fmt.Sprintf("This comprehensive %s provides everything you need.", book)
	case "transformation":
		return "Watch scattered thoughts turn into clear intentions, and intentions into habits."
	case "objective":
		return fmt.Sprintf("Build real %s skills with a clear, structured path from first page to last.", kw)
	case "curriculum":
		return "Each section introduces one concept, practices it and revisits it before moving on."
	case "features":
		if len(features) == 0 {
			return "Designed with your success in mind, featuring intuitive layouts and proven methodologies."
		}
		return "Key Features:\n" + bullets(top(features, 5))
	case "benefits", "emotional_benefits":
		b, ok := benefits[opts.ContentType]
		if !ok {
			b = []string{"Achieve your goals with this comprehensive resource"}
		}
		return "What You'll Gain:\n" + bullets(top(b, 4))
	case "audience":
		if line, ok := audienceLines[opts.Audience]; ok {
			return line
		}
		return fmt.Sprintf("Perfect for anyone interested in %s and %s.", book, keywordAnchor)
	case "cta":
		return callToAction
	}
	return ""
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "• " + it
	}
	return strings.Join(lines, "\n")
}

// placeKeywords puts up to three absent keywords in front of the anchor phrase, once each.
func placeKeywords(desc string, keywords []string) string {
	for _, kw := range top(keywords, placedKeywords) {
		kw = strings.TrimSpace(kw)
		if kw == "" || strings.Contains(strings.ToLower(desc), strings.ToLower(kw)) {
			continue
		}
		desc = strings.Replace(desc, keywordAnchor, kw+" and "+keywordAnchor, 1)
	}
	return desc
}

func sanitizeDescription(desc string) string {
	desc = prohibitedRe.ReplaceAllString(desc, "")
	if len(desc) > models.MaxDescriptionLength {
		cut := models.MaxDescriptionLength - 3
		for cut > 0 && !utf8.RuneStart(desc[cut]) {
			cut--
		}
		desc = desc[:cut] + "..."
	}
	return strings.TrimSpace(desc)
}

// descriptionMetrics scores keyword coverage, length and structure, and penalises long words
// and long sentences.
func descriptionMetrics(desc, keyword string, keywords []string) (seo, readability float64) {
	lower := strings.ToLower(desc)
	words := strings.Fields(desc)
	if strings.Contains(lower, strings.ToLower(keyword)) {
		seo += 30
	}
	hits := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	seo += minFloat(40, float64(hits*10))
	switch n := len(words); {
	case n >= 150 && n <= 250:
		seo += 20
	case n >= 100 && n <= 300:
		seo += 15
	}
	if strings.Contains(desc, "•") {
		seo += 10
	}

	readability = 100
	if len(words) > 0 {
		chars := 0
		for _, w := range words {
			chars += len(w)
		}
		if float64(chars)/float64(len(words)) > 6 {
			readability -= 10
		}
		sentences := strings.Count(desc, ".") + strings.Count(desc, "!") + strings.Count(desc, "?")
		perSentence := float64(len(words))
		if sentences > 0 {
			perSentence /= float64(sentences)
		}
		if perSentence > 20 {
			readability -= 15
		}
	}
	return minFloat(100, seo), readability
}

func checkCompliance(desc string) models.ComplianceCheck {
	lower := strings.ToLower(desc)
	return models.ComplianceCheck{
		LengthCompliant:  len(desc) <= models.MaxDescriptionLength,
		NoProhibited:     !containsAny(lower, "best seller", "#1", "award", "review", "rating"),
		ProperFormatting: strings.Contains(desc, "\n"),
		CallToAction:     containsAny(lower, "order", "buy", "get", "start", "begin"),
	}
}

// categories picks two marketplace categories for the content type, narrowed by audience.
func categories(opts models.ListingOptions, nicheCategory string) models.CategoryPlan {
	all, ok := baseCategories[opts.ContentType]
	if !ok {
		all = fallbackCategories
	}
	all = append([]string(nil), all...)
	switch opts.Audience {
	case models.AudienceChildren:
		var kids []string
		for _, c := range all {
			if strings.Contains(c, "Children") || strings.Contains(c, "Education") {
				kids = append(kids, c)
			}
		}
		if len(kids) == 0 {
			kids = []string{"Books > Children's Books"}
		}
		all = kids
	case models.AudienceProfessionals:
		var biz []string
		for _, c := range all {
			if strings.Contains(c, "Business") || strings.Contains(c, "Management") {
				biz = append(biz, c)
			}
		}
		if len(biz) > 0 {
			all = dedupeFold(append(biz, all...))
		}
	}

	rationale := fmt.Sprintf("Selected based on %s type and %s audience", opts.ContentType, opts.Audience)
	if c := strings.TrimSpace(nicheCategory); c != "" {
		rationale += " in the " + c + " niche"
	}
	alt := []string{}
	if len(all) > models.MaxListingCategories {
		alt = top(all[models.MaxListingCategories:], 3)
	}
	return models.CategoryPlan{
		Primary:     top(all, models.MaxListingCategories),
		Alternative: alt,
		Rationale:   rationale,
	}
}

// priceListing undercuts the median comparable price. Without comparable prices it falls
// back to the niche's measured average price, then to a fixed default.
func priceListing(products []models.Product, n *models.Niche) *models.PricingPlan {
	var prices []float64
	for _, p := range products {
		if p.Price > 0 {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) == 0 {
		if c := n.Competition; c != nil && !c.Estimated && c.AvgPrice > 0 {
			rec := round(maxFloat(minListPrice, c.AvgPrice*medianUndercut), 2)
			plan := &models.PricingPlan{
				Recommended: rec,
				Tier:        pricingTier(rec),
				Average:     round(c.AvgPrice, 2),
				Confidence:  "low",
				Note:        "No comparable listings found; priced from the niche competition summary",
			}
			if c.MinPrice > 0 && c.MaxPrice > 0 {
				plan.Range = &models.PriceRange{Min: round(c.MinPrice, 2), Max: round(c.MaxPrice, 2)}
			}
			return plan
		}
		return &models.PricingPlan{
			Recommended: fallbackListPrice,
			Tier:        models.PricingMedium,
			Range:       &models.PriceRange{Min: minListPrice, Max: fallbackMaxPrice},
			Confidence:  "low",
			Note:        "No market data available; using default pricing",
		}
	}

	sort.Float64s(prices)
	median := prices[len(prices)/2]
	rec := round(maxFloat(minListPrice, median*medianUndercut), 2)
	confidence := "medium"
	if len(prices) >= highConfidenceMin {
		confidence = "high"
	}
	return &models.PricingPlan{
		Recommended: rec,
		Tier:        pricingTier(rec),
		Range:       &models.PriceRange{Min: round(prices[0], 2), Max: round(prices[len(prices)-1], 2)},
		Average:     round(mean(prices), 2),
		Median:      round(median, 2),
		Analyzed:    len(prices),
		Confidence:  confidence,
		Note:        "Competitive positioning below the median price",
	}
}

func pricingTier(price float64) string {
	switch {
	case price <= budgetPriceCap:
		return models.PricingBudget
	case price <= mediumPriceCap:
		return models.PricingMedium
	}
	return models.PricingPremium
}

func suggestions(l models.Listing, n *models.Niche, d models.DescriptionAnalysis) []string {
	out := []string{}
	switch {
	case len(l.Title) < 30:
		out = append(out, "Consider expanding the title to include more relevant keywords")
	case len(l.Title) > 100:
		out = append(out, "Consider shortening the title for better readability")
	}
	if d.SEOScore < 70 {
		out = append(out, "Improve SEO by incorporating more relevant keywords naturally")
	}
	if d.ReadabilityScore < 70 {
		out = append(out, "Improve readability by using shorter sentences and simpler words")
	}
	if len(l.Keywords) < models.MaxListingKeywords {
		out = append(out, "Add more relevant keywords to maximize discoverability")
	}
	if l.SuggestedPrice > 19.99 {
		out = append(out, "Consider lower pricing to improve accessibility")
	}
	if n.CompetitionLevel() == models.CompetitionHigh {
		out = append(out, "Focus on unique differentiation due to high competition")
	}
	if n.Scores.Profitability < 70 {
		out = append(out, "Consider targeting a more profitable niche or improving positioning")
	}
	return out
}

// titleCase upper-cases the first letter of every letter run, as in "Self-Care Journal".
func titleCase(s string) string {
	rs := []rune(strings.ToLower(strings.TrimSpace(s)))
	prevLetter := false
	for i, r := range rs {
		if unicode.IsLetter(r) {
			if !prevLetter {
				rs[i] = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(rs)
}

func wordsOf(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func dedupeFold(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

var _ domsvc.ListingGenerator = (*ListingGenerator)(nil)
