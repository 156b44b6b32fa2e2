package common

// ParabolicPeak refines a discrete peak location by fitting a parabola
// through the values at peakIdx-1, peakIdx, peakIdx+1. Returns the
// fractional index of the fitted maximum. Edge peaks are returned
// unrefined, so callers may pass the raw argmax unconditionally.
func ParabolicPeak(data []float64, peakIdx int) float64 {
	if peakIdx <= 0 || peakIdx >= len(data)-1 {
		return float64(peakIdx)
	}

	y1 := data[peakIdx-1]
	y2 := data[peakIdx]
	y3 := data[peakIdx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2

	if a == 0 {
		return float64(peakIdx)
	}

	offset := -b / (2 * a)

	// A fit landing outside the neighboring samples means the three points
	// do not bracket a maximum; keep the discrete peak
	if offset < -1 || offset > 1 {
		return float64(peakIdx)
	}

	return float64(peakIdx) + offset
}
