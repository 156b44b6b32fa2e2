package tonal

import (
	"math"
	"sort"

	"github.com/magicat777/vocal-prime/algorithms/common"
	"github.com/magicat777/vocal-prime/algorithms/spectral"
	"github.com/magicat777/vocal-prime/algorithms/windowing"
)

// VibratoParams contains parameters for vibrato detection
type VibratoParams struct {
	// HistorySize is the pitch contour length; also the FFT length
	HistorySize int `json:"history_size"`
	// AnalysisRate is the fixed local pitch analysis cadence in Hz. The
	// contour FFT frequency resolution is AnalysisRate/HistorySize.
	AnalysisRate float64 `json:"analysis_rate"`

	MinRate   float64 `json:"min_rate"`   // Lowest vibrato rate (Hz)
	MaxRate   float64 `json:"max_rate"`   // Highest vibrato rate (Hz)
	MinExtent float64 `json:"min_extent"` // Lowest extent (semitones peak-to-peak)
	MaxExtent float64 `json:"max_extent"` // Highest extent (semitones peak-to-peak)

	// MaxJumpCents bounds sample-to-sample pitch movement; larger jumps
	// are tracking glitches or octave errors, not vibrato motion
	MaxJumpCents float64 `json:"max_jump_cents"`
	// LocalMeanWindow is the centered high-pass window in contour samples
	LocalMeanWindow int     `json:"local_mean_window"`
	MinPeakiness    float64 `json:"min_peakiness"`

	AttackCoeff float64 `json:"attack_coeff"`
	DecayCoeff  float64 `json:"decay_coeff"`
}

// DefaultVibratoParams returns vibrato detection parameters for the given
// local voice analysis rate
func DefaultVibratoParams(analysisRate float64) VibratoParams {
	return VibratoParams{
		HistorySize:     128,
		AnalysisRate:    analysisRate,
		MinRate:         3.0,
		MaxRate:         10.0,
		MinExtent:       0.1,
		MaxExtent:       4.0,
		MaxJumpCents:    50.0,
		LocalMeanWindow: 16,
		MinPeakiness:    1.2,
		AttackCoeff:     0.6,
		DecayCoeff:      0.92,
	}
}

// VibratoEstimate reports quasi-periodic pitch modulation. Rate and Extent
// carry the smoothed values; Detected holds only while the smoothed rate
// stays >= MinRate and the smoothed extent >= MinExtent (hysteresis
// against flicker).
type VibratoEstimate struct {
	Rate     float64 `json:"rate"`   // Hz
	Extent   float64 `json:"extent"` // semitones, peak-to-peak
	Detected bool    `json:"detected"`
}

// VibratoDetector detects singing vibrato in a pitch contour, distinct
// from melodic pitch movement. Raw melody contours carry far more
// low-frequency energy (the melody itself) than the 3-10 Hz vibrato band,
// so the contour passes two filters before the spectral search: rejection
// of glitch jumps, then removal of melodic drift as deviation from a local
// sliding mean in cents. Without the drift removal any melisma or
// portamento would register as false vibrato.
//
// The detector must only ever be fed the local autocorrelation contour:
// external polyphonic trackers follow the melody at their own cadence and
// would corrupt the band mapping, which assumes the fixed local rate.
type VibratoDetector struct {
	params VibratoParams

	window *windowing.Hann
	fft    *spectral.FFT

	smoothedRate   float64
	smoothedExtent float64

	// Scratch buffers reused across calls
	accepted []float64
	cents    []float64
}

// NewVibratoDetector creates a vibrato detector with the given parameters
func NewVibratoDetector(params VibratoParams) *VibratoDetector {
	return &VibratoDetector{
		params:   params,
		window:   windowing.NewHann(params.HistorySize),
		fft:      spectral.NewFFT(),
		accepted: make([]float64, params.HistorySize),
		cents:    make([]float64, params.HistorySize),
	}
}

// Analyze examines a pitch contour ordered oldest to newest, with 0
// marking unvoiced slots. The contour length must equal HistorySize.
func (vd *VibratoDetector) Analyze(contour []float64) VibratoEstimate {
	if len(contour) != vd.params.HistorySize {
		return vd.decay()
	}

	// Step 1: enough of the history must be voiced at all
	voiced := 0
	for _, f := range contour {
		if f > 0 {
			voiced++
		}
	}
	if voiced*4 < len(contour) {
		return vd.decay()
	}

	// Step 2: reject octave/tracking-error jumps. A glitch stands apart
	// from its local context, so each voiced sample is checked against two
	// raw-contour medians: a tight bound on the immediate neighbors and a
	// coarse bound on a wider window that catches runs of consecutive
	// tracking errors (octave and fifth errors sit at 1200 and 700 cents,
	// far past the coarse bound). Deep fast vibrato stays inside both
	// bounds at every phase, so legitimate modulation is never rejected.
	survivors := 0
	for i, f := range contour {
		vd.accepted[i] = 0
		if f <= 0 {
			continue
		}
		tight := common.CentsBetween(f, localMedian(contour, i, 1))
		coarse := common.CentsBetween(f, localMedian(contour, i, 3))
		if math.Abs(tight) > vd.params.MaxJumpCents ||
			math.Abs(coarse) > 6*vd.params.MaxJumpCents {
			continue
		}
		vd.accepted[i] = f
		survivors++
	}
	if survivors*5 < len(contour) {
		return vd.decay()
	}

	// Rebuild rejected voiced slots by geometric interpolation between
	// surviving neighbors, so the extent and the spectrum see a gap-free
	// signal across discarded glitches
	lastIdx := -1
	for i, f := range vd.accepted {
		if f <= 0 {
			continue
		}
		if lastIdx >= 0 && i-lastIdx > 1 {
			span := float64(i - lastIdx)
			for j := lastIdx + 1; j < i; j++ {
				if contour[j] <= 0 {
					continue
				}
				t := float64(j-lastIdx) / span
				vd.accepted[j] = vd.accepted[lastIdx] * math.Pow(f/vd.accepted[lastIdx], t)
				survivors++
			}
		}
		lastIdx = i
	}

	// Step 3: high-pass by expressing each survivor as its deviation in
	// cents from the local mean of nearby survivors, removing slow melodic
	// drift while preserving faster oscillation
	half := vd.params.LocalMeanWindow / 2
	for i := range vd.accepted {
		vd.cents[i] = 0
		if vd.accepted[i] <= 0 {
			continue
		}

		sum := 0.0
		count := 0
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(vd.accepted) || j == i || vd.accepted[j] <= 0 {
				continue
			}
			sum += vd.accepted[j]
			count++
		}
		if count == 0 {
			continue
		}
		vd.cents[i] = common.CentsBetween(vd.accepted[i], sum/float64(count))
	}

	// Step 4: window the residual (gaps stay zero) and transform
	windowed := vd.window.Apply(vd.cents)
	mags := vd.fft.ComputeMagnitudes(windowed)

	// Step 5: peak search in the vibrato band using the fixed local
	// analysis rate, refined by parabolic interpolation
	resolution := vd.params.AnalysisRate / float64(vd.params.HistorySize)
	binLo := int(math.Ceil(vd.params.MinRate / resolution))
	binHi := int(math.Floor(vd.params.MaxRate / resolution))
	if binLo < 1 {
		binLo = 1
	}
	if binHi >= len(mags) {
		binHi = len(mags) - 1
	}
	if binHi < binLo {
		return vd.decay()
	}

	peakBin := binLo
	peakMag := mags[binLo]
	bandSum := 0.0
	for bin := binLo; bin <= binHi; bin++ {
		bandSum += mags[bin]
		if mags[bin] > peakMag {
			peakMag = mags[bin]
			peakBin = bin
		}
	}
	rate := common.ParabolicPeak(mags, peakBin) * resolution

	// Step 6: extent from RMS of the cents residual over valid samples,
	// converted to peak-to-peak semitones by the sinusoid factor 2.83.
	// The local-mean removal has a rate-dependent gain (above unity near
	// the low band edge, below it near the high edge), so the RMS is
	// divided by that gain at the detected rate
	sumSquares := 0.0
	for _, c := range vd.cents {
		sumSquares += c * c
	}
	rmsCents := math.Sqrt(sumSquares / float64(survivors))
	extent := rmsCents * 2.83 / 100.0 / vd.highPassGain(rate)

	// Step 7: peak must stand out from the band floor
	meanMag := bandSum / float64(binHi-binLo+1)
	peakiness := 0.0
	if meanMag > 1e-10 {
		peakiness = peakMag / meanMag
	}

	// Step 8: acceptance gates on the instantaneous values
	accepted := rate >= vd.params.MinRate && rate <= vd.params.MaxRate &&
		extent >= vd.params.MinExtent && extent <= vd.params.MaxExtent &&
		peakiness >= vd.params.MinPeakiness

	// Step 9: asymmetric smoothing, fast attack / slow decay toward zero
	if accepted {
		vd.smoothedRate = vd.params.AttackCoeff*vd.smoothedRate + (1-vd.params.AttackCoeff)*rate
		vd.smoothedExtent = vd.params.AttackCoeff*vd.smoothedExtent + (1-vd.params.AttackCoeff)*extent
	} else {
		vd.smoothedRate *= vd.params.DecayCoeff
		vd.smoothedExtent *= vd.params.DecayCoeff
	}

	return vd.estimate()
}

// localMedian returns the median of the voiced contour samples in the
// window [i-half, i+half], the sample at i included. An isolated voiced
// sample is its own median and always passes the jump check.
func localMedian(contour []float64, i, half int) float64 {
	var buf [7]float64
	vals := buf[:0]
	for j := i - half; j <= i+half; j++ {
		if j < 0 || j >= len(contour) || contour[j] <= 0 {
			continue
		}
		vals = append(vals, contour[j])
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// highPassGain returns the magnitude response of the centered local-mean
// removal at the given modulation frequency. The step-3 residual of a
// sinusoid at freq carries this gain, so dividing it back out makes the
// extent estimate flat across the vibrato band.
func (vd *VibratoDetector) highPassGain(freq float64) float64 {
	n := float64(vd.params.LocalMeanWindow + 1)
	omega := 2 * math.Pi * freq / vd.params.AnalysisRate

	s := math.Sin(omega / 2)
	if math.Abs(s) < 1e-12 {
		return 1.0
	}

	// Moving-average response over the full centered window, then with
	// the center sample excluded, matching the step-3 neighbor mean
	ma := math.Sin(n*omega/2) / (n * s)
	neighborMean := (n*ma - 1) / (n - 1)

	gain := 1 - neighborMean
	if gain < 0.1 {
		gain = 0.1
	}
	return gain
}

// decay pulls the smoothed state toward zero when the contour cannot be
// analyzed at all, and reports not-detected
func (vd *VibratoDetector) decay() VibratoEstimate {
	vd.smoothedRate *= 0.9
	vd.smoothedExtent *= 0.9
	return VibratoEstimate{
		Rate:   vd.smoothedRate,
		Extent: vd.smoothedExtent,
	}
}

func (vd *VibratoDetector) estimate() VibratoEstimate {
	return VibratoEstimate{
		Rate:     vd.smoothedRate,
		Extent:   vd.smoothedExtent,
		Detected: vd.smoothedRate >= vd.params.MinRate && vd.smoothedExtent >= vd.params.MinExtent,
	}
}

// Reset clears smoothing state. Called only on explicit capture stop;
// source switches keep the state to avoid visual discontinuity.
func (vd *VibratoDetector) Reset() {
	vd.smoothedRate = 0
	vd.smoothedExtent = 0
}
