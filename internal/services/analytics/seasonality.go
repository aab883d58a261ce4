package analytics

import (
	"sort"
	"time"

	"nichescope/internal/domain/models"
)

// minSeasonalMonths is the number of distinct calendar months needed to decompose seasonality.
const minSeasonalMonths = 6

var quarterSeasons = []struct {
	name   string
	months []time.Month
}{
	{"spring", []time.Month{time.March, time.April, time.May}},
	{"summer", []time.Month{time.June, time.July, time.August}},
	{"fall", []time.Month{time.September, time.October, time.November}},
	{"winter", []time.Month{time.December, time.January, time.February}},
}

// AnalyzeSeasonality starts from the seasonal factors carried by the trend snapshot and
// replaces them with a decomposition of the history when it spans enough months.
func (v *TrendValidator) AnalyzeSeasonality(trend *models.TrendAnalysis, history []models.TrendPoint) *models.SeasonalAnalysis {
	out := &models.SeasonalAnalysis{Risk: "low"}

	if len(trend.Seasonal) > 0 {
		avgs := make(map[time.Month]float64, len(trend.Seasonal))
		for m, f := range trend.Seasonal {
			avgs[m] = f
		}
		applyMonthlyAverages(out, avgs)
	}

	if avgs := monthlyAverages(history); len(avgs) >= minSeasonalMonths {
		applyMonthlyAverages(out, avgs)
	}

	switch {
	case out.Strength > 0.7:
		out.Risk = "high"
	case out.Strength > 0.4:
		out.Risk = "medium"
	}
	return out
}

func monthlyAverages(history []models.TrendPoint) map[time.Month]float64 {
	buckets := map[time.Month][]float64{}
	for _, p := range history {
		if p.Date.IsZero() {
			continue
		}
		buckets[p.Date.Month()] = append(buckets[p.Date.Month()], p.Score)
	}
	out := make(map[time.Month]float64, len(buckets))
	for m, vals := range buckets {
		out[m] = mean(vals)
	}
	return out
}

func applyMonthlyAverages(out *models.SeasonalAnalysis, avgs map[time.Month]float64) {
	months := sortedMonths(avgs)
	vals := make([]float64, 0, len(months))
	for _, m := range months {
		vals = append(vals, avgs[m])
	}
	hi, lo := vals[0], vals[0]
	for _, x := range vals {
		if x > hi {
			hi = x
		}
		if x < lo {
			lo = x
		}
	}

	out.HasSeasonality = true
	out.MonthlyAverages = avgs
	out.Strength = round(clamp(coefVar(vals, 0), 0, 1), 3)
	out.PeakMonths, out.LowMonths = nil, nil
	for _, m := range months {
		if avgs[m] >= hi*0.9 {
			out.PeakMonths = append(out.PeakMonths, m)
		}
		if avgs[m] <= lo*1.1 {
			out.LowMonths = append(out.LowMonths, m)
		}
	}
	out.Patterns = seasonalPatterns(avgs)
}

// seasonalPatterns builds one pattern per quarter-season that has data. Reliability grows
// with data availability and shrinks with intra-season volatility.
func seasonalPatterns(avgs map[time.Month]float64) []models.SeasonalPattern {
	var out []models.SeasonalPattern
	for _, s := range quarterSeasons {
		var scores []float64
		var peak time.Month
		peakScore := -1.0
		for _, m := range s.months {
			v, ok := avgs[m]
			if !ok {
				continue
			}
			scores = append(scores, v)
			if v > peakScore {
				peak, peakScore = m, v
			}
		}
		if len(scores) == 0 {
			continue
		}
		avg := mean(scores)
		vol := 0.0
		if len(scores) > 1 && avg > 0 {
			vol = stdev(scores) / avg
		}
		reliability := clamp(float64(len(scores))/3*(1-clamp(vol, 0, 1)), 0, 1)
		out = append(out, models.SeasonalPattern{
			Season:       s.name,
			Months:       s.months,
			AvgIntensity: round(avg, 2),
			PeakMonth:    peak,
			Volatility:   round(vol, 3),
			Reliability:  round(reliability, 3),
		})
	}
	return out
}

func sortedMonths(m map[time.Month]float64) []time.Month {
	out := make([]time.Month, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
