// Package algo holds the numeric building blocks used by the engine.
package algo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// PopMeanStdDev returns the mean and population standard deviation.
func PopMeanStdDev(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	if len(values) == 1 {
		return values[0], 0
	}
	return stat.PopMeanStdDev(values, nil)
}

// SampleMeanStdDev returns the mean and unbiased sample standard deviation.
func SampleMeanStdDev(values []float64) (mean, std float64) {
	if len(values) < 2 {
		return Mean(values), math.NaN()
	}
	return stat.MeanStdDev(values, nil)
}

// Percentile returns the p-th percentile (0..100) with linear interpolation between
// closest ranks, or NaN for an empty slice. The input is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Median returns the 50th percentile.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// LinearSlope returns the least-squares slope of y against x.
// ok is false when fewer than two points exist or x has no spread.
func LinearSlope(x, y []float64) (slope float64, ok bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}
	_, xStd := PopMeanStdDev(x)
	if xStd == 0 {
		return 0, false
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return beta, true
}

// PositiveTrapezoid integrates max(y-base, 0) over x with the trapezoid rule.
// Segments below base contribute zero.
func PositiveTrapezoid(x, y []float64, base float64) float64 {
	area := 0.0
	for i := 1; i < len(x) && i < len(y); i++ {
		left := math.Max(y[i-1]-base, 0)
		right := math.Max(y[i]-base, 0)
		area += (left + right) / 2 * (x[i] - x[i-1])
	}
	return area
}

// CohensD returns the pooled standardized mean difference between a and b.
// ok is false when either group has fewer than two values or pooled variance is zero.
func CohensD(a, b []float64) (d float64, ok bool) {
	if len(a) < 2 || len(b) < 2 {
		return 0, false
	}
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))
	pooled := ((na-1)*varA + (nb-1)*varB) / (na + nb - 2)
	if pooled <= 0 {
		return 0, false
	}
	return (meanA - meanB) / math.Sqrt(pooled), true
}

// HarmonicMean2 returns the harmonic mean of two positive counts.
func HarmonicMean2(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return 2 / (1/float64(a) + 1/float64(b))
}

// Clamp01 clamps v to [0,1]; NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
