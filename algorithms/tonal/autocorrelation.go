package tonal

import (
	"math"

	"github.com/magicat777/vocal-prime/algorithms/common"
)

// PitchParams contains parameters for autocorrelation pitch tracking
type PitchParams struct {
	SampleRate       int     `json:"sample_rate"`
	WindowSize       int     `json:"window_size"`
	MinFreq          float64 `json:"min_freq"` // Lowest reportable pitch (Hz)
	MaxFreq          float64 `json:"max_freq"` // Highest reportable pitch (Hz)
	VoicingThreshold float64 `json:"voicing_threshold"`
}

// DefaultPitchParams returns pitch tracking parameters covering the sung
// vocal range at the given sample rate
func DefaultPitchParams(sampleRate int) PitchParams {
	return PitchParams{
		SampleRate:       sampleRate,
		WindowSize:       2048,
		MinFreq:          75.0,
		MaxFreq:          600.0,
		VoicingThreshold: 0.45,
	}
}

// PitchEstimate is one fundamental frequency estimate. Frequency is 0 when
// unvoiced; Period is the refined lag in samples, 0 when unvoiced.
type PitchEstimate struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
	Voiced     bool    `json:"voiced"`
	Period     float64 `json:"period"`
}

// AutocorrTracker estimates fundamental frequency and voicing from a short
// time-domain window via normalized autocorrelation:
//
//	r(lag) = sum(x[i]*x[i+lag]) / sqrt(sum(x[i]^2) * sum(x[i+lag]^2))
//
// The lag maximizing r is the candidate period, refined by parabolic
// interpolation when interior to the search range.
//
// References:
//   - Rabiner, L.R. (1977). "On the use of autocorrelation analysis for pitch detection"
//   - Boersma, P. (1993). "Accurate short-term analysis of the fundamental frequency"
type AutocorrTracker struct {
	params PitchParams

	minLag int
	maxLag int

	// Scratch correlation values indexed by lag, reused across calls
	corr []float64
}

// NewAutocorrTracker creates a pitch tracker with the given parameters
func NewAutocorrTracker(params PitchParams) *AutocorrTracker {
	minLag := int(float64(params.SampleRate) / params.MaxFreq)
	maxLag := int(float64(params.SampleRate) / params.MinFreq)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= params.WindowSize {
		maxLag = params.WindowSize - 1
	}

	return &AutocorrTracker{
		params: params,
		minLag: minLag,
		maxLag: maxLag,
		corr:   make([]float64, maxLag+2),
	}
}

// Track estimates pitch over the given window. Silence and degenerate
// input return a zero estimate; no pitch is ever reported outside
// [MinFreq, MaxFreq] regardless of correlation strength.
func (t *AutocorrTracker) Track(window []float64) PitchEstimate {
	if len(window) < t.maxLag+1 {
		return PitchEstimate{}
	}

	energy := 0.0
	for _, s := range window {
		energy += s * s
	}
	if energy < 1e-10 {
		return PitchEstimate{}
	}

	bestLag := 0
	bestCorr := 0.0

	for lag := t.minLag; lag <= t.maxLag; lag++ {
		t.corr[lag] = t.normalizedCorrelation(window, lag)
		if t.corr[lag] > bestCorr {
			bestCorr = t.corr[lag]
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return PitchEstimate{}
	}

	// Sub-sample refinement only when the peak is strictly interior to the
	// search range
	period := float64(bestLag)
	if bestLag > t.minLag && bestLag < t.maxLag {
		period = common.ParabolicPeak(t.corr[:t.maxLag+1], bestLag)
	}

	frequency := float64(t.params.SampleRate) / period
	confidence := common.Clamp(bestCorr, 0.0, 1.0)

	voiced := confidence > t.params.VoicingThreshold &&
		frequency >= t.params.MinFreq && frequency <= t.params.MaxFreq

	if !voiced {
		return PitchEstimate{Confidence: confidence}
	}

	return PitchEstimate{
		Frequency:  frequency,
		Confidence: confidence,
		Voiced:     true,
		Period:     period,
	}
}

// CorrelationAt returns the normalized autocorrelation of the window at a
// known period (in samples), without re-searching. The quality clarity
// metric reuses the authoritative pitch period through this.
func (t *AutocorrTracker) CorrelationAt(window []float64, period float64) float64 {
	lag := int(math.Round(period))
	if lag < 1 || lag >= len(window) {
		return 0.0
	}

	energy := 0.0
	for _, s := range window {
		energy += s * s
	}
	if energy < 1e-10 {
		return 0.0
	}

	return common.Clamp(t.normalizedCorrelation(window, lag), 0.0, 1.0)
}

func (t *AutocorrTracker) normalizedCorrelation(window []float64, lag int) float64 {
	n := len(window) - lag

	cross := 0.0
	e0 := 0.0
	eLag := 0.0
	for i := range n {
		a := window[i]
		b := window[i+lag]
		cross += a * b
		e0 += a * a
		eLag += b * b
	}

	denom := math.Sqrt(e0 * eLag)
	if denom < 1e-10 {
		return 0.0
	}
	return cross / denom
}
