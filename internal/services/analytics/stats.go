package analytics

import "math"

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

// stdev is the sample standard deviation (n-1); 0 for fewer than two values.
func stdev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var ss float64
	for _, v := range vals {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

// pstdev is the population standard deviation.
func pstdev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := mean(vals)
	var ss float64
	for _, v := range vals {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(vals)))
}

// coefVar is stdev/mean, or fallback when the mean is not positive.
func coefVar(vals []float64, fallback float64) float64 {
	m := mean(vals)
	if m <= 0 {
		return fallback
	}
	return stdev(vals) / m
}

// linearSlope is the least-squares slope of vals against their index.
func linearSlope(vals []float64) (float64, bool) {
	n := len(vals)
	if n < 2 {
		return 0, false
	}
	xm := float64(n-1) / 2
	ym := mean(vals)
	var num, den float64
	for i, y := range vals {
		dx := float64(i) - xm
		num += dx * (y - ym)
		den += dx * dx
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func ptr(v float64) *float64 { return &v }
