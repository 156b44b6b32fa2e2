package common

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Basic statistical and pitch-interval helpers shared across algorithms,
// using gonum where it applies

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation calculates the sample standard deviation using gonum
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return math.Sqrt(stat.Variance(data, nil))
}

// CoefficientOfVariation calculates stddev/mean, the scale-free spread
// measure behind the dynamics metric. Returns 0 for empty, near-constant,
// or near-silent data.
func CoefficientOfVariation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	mean := Mean(data)
	if mean < 1e-10 {
		return 0.0
	}
	return StandardDeviation(data) / mean
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, val := range data {
		sumSquares += val * val
	}

	return math.Sqrt(sumSquares / float64(len(data)))
}

// CentsBetween returns the signed pitch interval from ref to freq in cents
// (100 cents = 1 semitone). Returns 0 when either frequency is non-positive.
func CentsBetween(freq, ref float64) float64 {
	if freq <= 0 || ref <= 0 {
		return 0.0
	}
	return 1200.0 * math.Log2(freq/ref)
}

// DBFS converts a linear amplitude to dB relative to full scale, clamped
// at the given floor
func DBFS(amplitude, floorDB float64) float64 {
	db := 20.0 * math.Log10(math.Max(amplitude, 1e-10))
	return math.Max(db, floorDB)
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
