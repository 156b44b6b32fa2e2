package spectral

import (
	"math"
)

// FormantEstimate holds the first four formant frequencies picked from the
// spectrum. Detected is a monotonicity sanity check (F1 < F2 < F3 with F1
// nonzero), not a phonetic validation: these are best-effort spectral
// peaks, not calibrated LPC formants.
type FormantEstimate struct {
	F1       float64 `json:"f1"`
	F2       float64 `json:"f2"`
	F3       float64 `json:"f3"`
	F4       float64 `json:"f4"`
	Detected bool    `json:"detected"`
}

// FormantBands locates likely formant frequencies by peak-picking inside
// four canonical bands over FFT bins already computed this hop by the
// spectrum analyzer. Typical adult-voice bands:
//
//	F1 200-900 Hz   (vowel height)
//	F2 900-2500 Hz  (vowel frontness)
//	F3 2500-3500 Hz (speaker identity)
//	F4 3500-5000 Hz (voice quality)
type FormantBands struct {
	sampleRate int
	fftSize    int
	// edges[i]..edges[i+1] bounds band i+1
	edges []float64
}

// NewFormantBands creates a formant estimator for spectra of the given FFT
// size. bandEdges must hold five increasing frequencies bounding the four
// bands; nil selects the canonical bands above.
func NewFormantBands(sampleRate, fftSize int, bandEdges []float64) *FormantBands {
	if len(bandEdges) != 5 {
		bandEdges = []float64{200, 900, 2500, 3500, 5000}
	}
	return &FormantBands{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		edges:      bandEdges,
	}
}

// Estimate scans each band for its maximum-magnitude bin and reports the
// bin center frequencies as F1..F4
func (fb *FormantBands) Estimate(bins []complex128) FormantEstimate {
	var est FormantEstimate
	if len(bins) == 0 {
		return est
	}

	freqs := [4]float64{}
	binHz := float64(fb.sampleRate) / float64(fb.fftSize)

	for band := range 4 {
		lo := int(math.Ceil(fb.edges[band] / binHz))
		hi := int(math.Floor(fb.edges[band+1] / binHz))
		if lo < 1 {
			lo = 1
		}
		if hi >= len(bins) {
			hi = len(bins) - 1
		}

		bestBin := -1
		bestMag := 0.0
		for bin := lo; bin <= hi; bin++ {
			re := real(bins[bin])
			im := imag(bins[bin])
			mag := math.Sqrt(re*re + im*im)
			if mag > bestMag {
				bestMag = mag
				bestBin = bin
			}
		}

		if bestBin >= 0 {
			freqs[band] = float64(bestBin) * binHz
		}
	}

	est.F1, est.F2, est.F3, est.F4 = freqs[0], freqs[1], freqs[2], freqs[3]
	est.Detected = est.F1 > 0 && est.F2 > est.F1 && est.F3 > est.F2
	return est
}
