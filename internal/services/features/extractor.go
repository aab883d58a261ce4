package features

import (
	"math"
	"sort"
	"time"

	"nichescope/internal/domain/models"
)

const (
	// MinSeasonalPoints is the series length needed to derive month factors.
	MinSeasonalPoints = 12
	// MaxRelatedQueries bounds the related queries kept on a snapshot.
	MaxRelatedQueries = 20

	directionSlope = 1.0
)

// ExtractTrendAnalysis turns an interest-over-time series into a trend snapshot.
// An empty series means no data and yields (nil, nil).
func ExtractTrendAnalysis(keyword string, points []models.TrendPoint, related []string, tf models.Timeframe, now time.Time) (*models.TrendAnalysis, error) {
	if len(points) == 0 {
		return nil, nil
	}
	sorted := append([]models.TrendPoint(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	values := make([]float64, len(sorted))
	for i, p := range sorted {
		values[i] = clamp(p.Score, 0, 100)
	}

	if len(related) > MaxRelatedQueries {
		related = related[:MaxRelatedQueries]
	}

	var seasonal models.SeasonalFactors
	if len(sorted) >= MinSeasonalPoints {
		seasonal = SeasonalFactors(sorted)
	}

	return models.NewTrendAnalysis(models.TrendAnalysisInput{
		Keyword:        keyword,
		Score:          round(mean(values), 2),
		Direction:      Direction(values),
		Confidence:     round(Confidence(values), 3),
		Seasonal:       seasonal,
		Forecast:       Forecast(values, models.ForecastLength),
		Volatility:     round(Volatility(values), 2),
		DataPoints:     len(values),
		RelatedQueries: related,
		Timeframe:      string(tf),
		AnalyzedAt:     now,
	})
}

// Direction classifies the least-squares slope: above one point per sample is rising,
// below minus one is declining.
func Direction(values []float64) models.TrendDirection {
	slope, ok := Slope(values)
	switch {
	case !ok:
		return models.DirectionStable
	case slope > directionSlope:
		return models.DirectionRising
	case slope < -directionSlope:
		return models.DirectionDeclining
	default:
		return models.DirectionStable
	}
}

// Confidence is the share of nonzero samples scaled by the peak interest, within [0,1].
func Confidence(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	nonzero := 0
	peak := 0.0
	for _, v := range values {
		if v != 0 {
			nonzero++
		}
		peak = math.Max(peak, v)
	}
	return clamp(float64(nonzero)/float64(len(values))*peak/100, 0, 1)
}

// Volatility is the coefficient of variation in percent, within [0,100].
func Volatility(values []float64) float64 {
	m := mean(values)
	if len(values) < 2 || m <= 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	sd := math.Sqrt(ss / float64(len(values)))
	return clamp(sd/m*100, 0, 100)
}

// SeasonalFactors is each calendar month's mean interest relative to the overall mean.
func SeasonalFactors(points []models.TrendPoint) models.SeasonalFactors {
	buckets := map[time.Month][]float64{}
	var all []float64
	for _, p := range points {
		if p.Date.IsZero() {
			continue
		}
		buckets[p.Date.Month()] = append(buckets[p.Date.Month()], p.Score)
		all = append(all, p.Score)
	}
	overall := mean(all)
	if overall <= 0 {
		return nil
	}
	out := make(models.SeasonalFactors, len(buckets))
	for m, vals := range buckets {
		out[m] = round(clamp(mean(vals)/overall, 0, models.MaxSeasonalFactor), 3)
	}
	return out
}

// Forecast extrapolates a least-squares polynomial (quadratic, or linear for three points)
// for the given number of steps, clamped to [0,100]. Fewer than three points yield nil.
func Forecast(values []float64, steps int) []float64 {
	if len(values) < 3 || steps <= 0 {
		return nil
	}
	eval, ok := fitQuadratic(values)
	if len(values) == 3 || !ok {
		eval, ok = fitLinear(values)
	}
	if !ok {
		return nil
	}
	out := make([]float64, steps)
	for i := range out {
		out[i] = round(clamp(eval(float64(len(values)+i)), 0, 100), 2)
	}
	return out
}

// Slope is the least-squares slope of values against their index.
func Slope(values []float64) (float64, bool) {
	n := len(values)
	if n < 2 {
		return 0, false
	}
	xm := float64(n-1) / 2
	ym := mean(values)
	var num, den float64
	for i, y := range values {
		dx := float64(i) - xm
		num += dx * (y - ym)
		den += dx * dx
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

func fitLinear(values []float64) (func(float64) float64, bool) {
	slope, ok := Slope(values)
	if !ok {
		return nil, false
	}
	intercept := mean(values) - slope*float64(len(values)-1)/2
	return func(x float64) float64 { return slope*x + intercept }, true
}

// fitQuadratic solves the 3x3 normal equations of y = a + bx + cx² with Cramer's rule.
func fitQuadratic(values []float64) (func(float64) float64, bool) {
	var s [5]float64 // sums of x^0..x^4
	var t [3]float64 // sums of y, xy, x²y
	for i, y := range values {
		x := float64(i)
		p := 1.0
		for k := 0; k < 5; k++ {
			s[k] += p
			if k < 3 {
				t[k] += p * y
			}
			p *= x
		}
	}
	m := [3][3]float64{
		{s[0], s[1], s[2]},
		{s[1], s[2], s[3]},
		{s[2], s[3], s[4]},
	}
	d := det3(m)
	if math.Abs(d) < 1e-9 {
		return nil, false
	}
	var coef [3]float64
	for c := 0; c < 3; c++ {
		mc := m
		for r := 0; r < 3; r++ {
			mc[r][c] = t[r]
		}
		coef[c] = det3(mc) / d
	}
	return func(x float64) float64 { return coef[0] + coef[1]*x + coef[2]*x*x }, true
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
