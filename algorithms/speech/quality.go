package speech

import (
	"math"

	"github.com/magicat777/vocal-prime/algorithms/common"
)

// QualityParams contains parameters for the composite voice quality metrics
type QualityParams struct {
	SampleRate int `json:"sample_rate"`
	FFTSize    int `json:"fft_size"`

	// Presence band (Hz)
	PresenceMinFreq float64 `json:"presence_min_freq"`
	PresenceMaxFreq float64 `json:"presence_max_freq"`

	// Dynamics rolling RMS buffer
	RMSHistorySize   int     `json:"rms_history_size"`
	MinValidRMSSlots int     `json:"min_valid_rms_slots"`
	SilenceRMS       float64 `json:"silence_rms"`

	// Intensity dBFS to percent mapping
	IntensityFloorDB float64 `json:"intensity_floor_db"`
	IntensityCeilDB  float64 `json:"intensity_ceil_db"`

	Smoothing float64 `json:"smoothing"`

	// RMS voice-activity threshold used when an external pitch source is
	// authoritative
	VoiceRMSThreshold float64 `json:"voice_rms_threshold"`
}

// DefaultQualityParams returns quality metric parameters for the given
// sample rate and FFT size
func DefaultQualityParams(sampleRate, fftSize int) QualityParams {
	return QualityParams{
		SampleRate:        sampleRate,
		FFTSize:           fftSize,
		PresenceMinFreq:   1000.0,
		PresenceMaxFreq:   5000.0,
		RMSHistorySize:    25,
		MinValidRMSSlots:  5,
		SilenceRMS:        0.001,
		IntensityFloorDB:  -60.0,
		IntensityCeilDB:   -6.0,
		Smoothing:         0.85,
		VoiceRMSThreshold: 0.01,
	}
}

// QualityEstimate holds the composite metrics, each in 0..100 percent.
// Presence, dynamics, and intensity are exponentially smoothed; clarity is
// recomputed fresh each hop from the current pitch period.
type QualityEstimate struct {
	Presence     float64 `json:"presence"`
	Dynamics     float64 `json:"dynamics"`
	Intensity    float64 `json:"intensity"`
	Clarity      float64 `json:"clarity"`
	VoicePresent bool    `json:"voice_present"`
}

// QualityInput carries the per-hop signals the metrics derive from. Bins is
// the raw complex FFT output of the same hop (reused, not recomputed);
// Clarity is the normalized autocorrelation of Window at Period, supplied
// by the pitch tracker so the period is not re-searched here.
type QualityInput struct {
	Bins    []complex128
	Window  []float64
	Period  float64
	Clarity float64
	Voiced  bool
	// ExternalPitch marks that an external source is authoritative for
	// pitch this hop; voice activity then falls back to the RMS gate for
	// responsiveness
	ExternalPitch bool
}

// QualityAnalyzer derives presence (band energy ratio), dynamics
// (coefficient of variation of short-term loudness), intensity (level to
// percent), and clarity (autocorrelation strength at the pitch period)
// from buffered RMS history and the hop's FFT and pitch outputs
type QualityAnalyzer struct {
	params QualityParams

	rmsHistory *common.RingBuffer

	smoothedPresence  float64
	smoothedDynamics  float64
	smoothedIntensity float64
}

// NewQualityAnalyzer creates a quality analyzer with the given parameters
func NewQualityAnalyzer(params QualityParams) *QualityAnalyzer {
	return &QualityAnalyzer{
		params:     params,
		rmsHistory: common.NewRingBuffer(params.RMSHistorySize),
	}
}

// Analyze recomputes all four metrics for one hop
func (qa *QualityAnalyzer) Analyze(in QualityInput) QualityEstimate {
	rms := common.RMS(in.Window)
	qa.rmsHistory.Write(rms)

	presence := qa.computePresence(in.Bins)
	dynamics := qa.computeDynamics()
	intensity := qa.computeIntensity(rms)

	clarity := 0.0
	if in.Period > 0 {
		clarity = common.Clamp(in.Clarity*100.0, 0.0, 100.0)
	}

	s := qa.params.Smoothing
	qa.smoothedPresence = s*qa.smoothedPresence + (1-s)*presence
	qa.smoothedDynamics = s*qa.smoothedDynamics + (1-s)*dynamics
	qa.smoothedIntensity = s*qa.smoothedIntensity + (1-s)*intensity

	voicePresent := in.Voiced
	if in.ExternalPitch {
		voicePresent = rms > qa.params.VoiceRMSThreshold
	}

	return QualityEstimate{
		Presence:     qa.smoothedPresence,
		Dynamics:     qa.smoothedDynamics,
		Intensity:    qa.smoothedIntensity,
		Clarity:      clarity,
		VoicePresent: voicePresent,
	}
}

// computePresence returns the energy ratio of the presence band to the
// whole spectrum (bins 1..Nyquist), scaled to percent
func (qa *QualityAnalyzer) computePresence(bins []complex128) float64 {
	if len(bins) < 2 {
		return 0.0
	}

	binHz := float64(qa.params.SampleRate) / float64(qa.params.FFTSize)
	lo := int(math.Ceil(qa.params.PresenceMinFreq / binHz))
	hi := int(math.Floor(qa.params.PresenceMaxFreq / binHz))
	if lo < 1 {
		lo = 1
	}
	if hi >= len(bins) {
		hi = len(bins) - 1
	}

	total := 0.0
	band := 0.0
	for bin := 1; bin < len(bins); bin++ {
		re := real(bins[bin])
		im := imag(bins[bin])
		energy := re*re + im*im
		total += energy
		if bin >= lo && bin <= hi {
			band += energy
		}
	}

	if total < 1e-10 {
		return 0.0
	}
	return common.Clamp(band/total*200.0, 0.0, 100.0)
}

// computeDynamics returns the coefficient of variation of recent
// short-window loudness, counting only non-silent slots
func (qa *QualityAnalyzer) computeDynamics() float64 {
	history := qa.rmsHistory.Last(qa.rmsHistory.Capacity())

	valid := make([]float64, 0, len(history))
	for _, v := range history {
		if v > qa.params.SilenceRMS {
			valid = append(valid, v)
		}
	}
	if len(valid) < qa.params.MinValidRMSSlots {
		return 0.0
	}

	return common.Clamp(common.CoefficientOfVariation(valid)*200.0, 0.0, 100.0)
}

// computeIntensity maps the current window RMS level in dBFS onto percent
func (qa *QualityAnalyzer) computeIntensity(rms float64) float64 {
	db := common.DBFS(rms, -96.0)
	span := qa.params.IntensityCeilDB - qa.params.IntensityFloorDB
	return common.Clamp((db-qa.params.IntensityFloorDB)/span*100.0, 0.0, 100.0)
}

// Reset clears the RMS history and smoothing state
func (qa *QualityAnalyzer) Reset() {
	qa.rmsHistory.Reset()
	qa.smoothedPresence = 0
	qa.smoothedDynamics = 0
	qa.smoothedIntensity = 0
}
