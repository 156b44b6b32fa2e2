package spectral

import (
	"math"

	"github.com/magicat777/vocal-prime/algorithms/common"
	"github.com/magicat777/vocal-prime/algorithms/windowing"
)

// SpectrumParams contains parameters for the display spectrum pipeline
type SpectrumParams struct {
	SampleRate int     `json:"sample_rate"`
	FFTSize    int     `json:"fft_size"`
	NumBars    int     `json:"num_bars"`
	MinFreq    float64 `json:"min_freq"` // Lowest bar frequency (Hz)
	MaxFreq    float64 `json:"max_freq"` // Highest bar frequency (Hz)
	FloorDB    float64 `json:"floor_db"` // dB mapped to bar value 0
	CeilDB     float64 `json:"ceil_db"`  // dB mapped to bar value 1
	Smoothing  float64 `json:"smoothing"`
	MinGainDB  float64 `json:"min_gain_db"`
	MaxGainDB  float64 `json:"max_gain_db"`
}

// DefaultSpectrumParams returns display spectrum parameters for the given
// sample rate
func DefaultSpectrumParams(sampleRate int) SpectrumParams {
	return SpectrumParams{
		SampleRate: sampleRate,
		FFTSize:    2048,
		NumBars:    512,
		MinFreq:    20.0,
		MaxFreq:    20000.0,
		FloorDB:    -96.0,
		CeilDB:     0.0,
		Smoothing:  0.7,
		MinGainDB:  -20.0,
		MaxGainDB:  20.0,
	}
}

// SpectrumResult is one analyzed frame: log-frequency display bars in 0..1
// plus scalar levels. Bins holds the raw complex FFT output up to Nyquist
// for same-hop reuse by formant and presence calculations; it is not
// serialized and not smoothed.
type SpectrumResult struct {
	Bars   []float64    `json:"bars"`
	Peak   float64      `json:"peak"`
	RMS    float64      `json:"rms"`
	GainDB float64      `json:"gain_db"`
	Bins   []complex128 `json:"-"`
}

// SpectrumAnalyzer produces a stable log-frequency magnitude spectrum from
// the most recent FFT window of mono samples, expressed in dB relative to
// full scale and normalized to 0..1.
//
// Bars are exponentially smoothed across frames (previous*smoothing +
// new*(1-smoothing)), trading responsiveness for visual stability. The raw
// complex bins of each frame are exposed unsmoothed.
type SpectrumAnalyzer struct {
	params SpectrumParams

	fft    *FFT
	window *windowing.Hann

	// Precomputed nearest FFT bin per display bar
	barBins []int

	bars   []float64
	gainDB float64
}

// NewSpectrumAnalyzer creates a spectrum analyzer with the given parameters
func NewSpectrumAnalyzer(params SpectrumParams) *SpectrumAnalyzer {
	sa := &SpectrumAnalyzer{
		params: params,
		fft:    NewFFT(),
		window: windowing.NewHann(params.FFTSize),
		bars:   make([]float64, params.NumBars),
	}
	sa.mapBarBins()
	return sa
}

// mapBarBins precomputes the logarithmic frequency target of each display
// bar and its nearest FFT bin
func (sa *SpectrumAnalyzer) mapBarBins() {
	sa.barBins = make([]int, sa.params.NumBars)
	nyquistBin := sa.params.FFTSize / 2
	logMin := math.Log(sa.params.MinFreq)
	logMax := math.Log(sa.params.MaxFreq)

	for i := range sa.params.NumBars {
		frac := 0.0
		if sa.params.NumBars > 1 {
			frac = float64(i) / float64(sa.params.NumBars-1)
		}
		freq := math.Exp(logMin + frac*(logMax-logMin))
		bin := int(math.Round(freq * float64(sa.params.FFTSize) / float64(sa.params.SampleRate)))
		if bin < 0 {
			bin = 0
		}
		if bin > nyquistBin {
			bin = nyquistBin
		}
		sa.barBins[i] = bin
	}
}

// SetGain sets the display gain in dB, clamped to the configured range.
// Gain affects magnitude scaling from the next frame on; it is applied
// per-frame, never accumulated.
func (sa *SpectrumAnalyzer) SetGain(gainDB float64) {
	sa.gainDB = common.Clamp(gainDB, sa.params.MinGainDB, sa.params.MaxGainDB)
}

// Gain returns the active display gain in dB
func (sa *SpectrumAnalyzer) Gain() float64 {
	return sa.gainDB
}

// Analyze windows the given FFT-size frame, transforms it, and folds the
// result into the smoothed display bars. Degenerate all-zero input yields
// floor-valued output deterministically; no input shape respecting the
// window size produces an error.
func (sa *SpectrumAnalyzer) Analyze(frame []float64) *SpectrumResult {
	result := &SpectrumResult{
		Bars:   make([]float64, sa.params.NumBars),
		GainDB: sa.gainDB,
	}

	if len(frame) != sa.params.FFTSize {
		copy(result.Bars, sa.bars)
		return result
	}

	peak := 0.0
	for _, s := range frame {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	result.Peak = peak
	result.RMS = common.RMS(frame)

	windowed := sa.window.Apply(frame)
	bins := sa.fft.Compute(windowed)
	result.Bins = bins[:sa.params.FFTSize/2+1]

	gainLinear := math.Pow(10.0, sa.gainDB/20.0)
	scale := 2.0 / float64(sa.params.FFTSize)

	for i, bin := range sa.barBins {
		re := real(bins[bin])
		im := imag(bins[bin])
		magnitude := math.Sqrt(re*re+im*im) * scale * gainLinear

		db := 20.0 * math.Log10(math.Max(magnitude, 1e-10))
		norm := common.Clamp((db-sa.params.FloorDB)/(sa.params.CeilDB-sa.params.FloorDB), 0.0, 1.0)

		sa.bars[i] = sa.params.Smoothing*sa.bars[i] + (1.0-sa.params.Smoothing)*norm
	}

	copy(result.Bars, sa.bars)
	return result
}

// Reset zeroes the smoothed bars and the gain
func (sa *SpectrumAnalyzer) Reset() {
	for i := range sa.bars {
		sa.bars[i] = 0
	}
	sa.gainDB = 0
}
