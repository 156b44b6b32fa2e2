package engine

import (
	"fmt"
	"sync"

	"github.com/magicat777/vocal-prime/algorithms/common"
	"github.com/magicat777/vocal-prime/algorithms/spectral"
	"github.com/magicat777/vocal-prime/algorithms/speech"
	"github.com/magicat777/vocal-prime/algorithms/tonal"
	"github.com/magicat777/vocal-prime/configs"
	"github.com/magicat777/vocal-prime/logging"
)

// Engine coordinates the full analysis pipeline: it owns every ring buffer
// and all smoothing state, ingests interleaved stereo samples, and drives
// the fixed-hop scheduling of spectral and voice analysis. Multiple
// engines are independently constructible and share no hidden state.
//
// Ingestion and analysis run synchronously on the caller's goroutine.
// Asynchronous arrivals (external pitch samples, separated-vocal audio)
// and snapshot reads are serialized against ingestion by an internal
// mutex; the OnHop callback runs inline during ingestion and must not call
// back into the engine.
type Engine struct {
	mu sync.Mutex

	cfg    *configs.Config
	logger logging.Logger

	// Per-channel sample rings, written only during ingestion
	left      *common.RingBuffer
	right     *common.RingBuffer
	mono      *common.RingBuffer
	separated *common.RingBuffer

	// Display pitch history (may carry external values) and the
	// independent vibrato history (always local autocorrelation)
	displayHistory *common.RingBuffer
	vibratoHistory *common.RingBuffer

	spectrum *spectral.SpectrumAnalyzer
	formants *spectral.FormantBands
	pitch    *tonal.AutocorrTracker
	vibrato  *tonal.VibratoDetector
	quality  *speech.QualityAnalyzer

	// Hop bookkeeping in mono samples
	sinceSpectral int
	sinceVoice    int
	totalIngested uint64

	// Separated-audio freshness, measured in ingested mono samples
	separatedAt    uint64
	separatedSeen  bool
	separatedStale uint64

	pitchSource   PitchSource
	externalPitch tonal.PitchEstimate
	externalSeen  bool

	state EngineState

	lastSpectrum *spectral.SpectrumResult
	lastFormants spectral.FormantEstimate
	lastPitch    tonal.PitchEstimate
	lastVibrato  tonal.VibratoEstimate
	lastQuality  speech.QualityEstimate

	// Scratch windows reused across hops
	fftFrame    []float64
	voiceWindow []float64

	onHop func(*Snapshot)
}

// NewEngine creates an engine from the given configuration. A nil config
// selects the defaults.
func NewEngine(cfg *configs.Config) (*Engine, error) {
	if cfg == nil {
		cfg = configs.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine configuration rejected: %w", err)
	}

	ringCapacity := int(float64(cfg.Audio.SampleRate) * cfg.Audio.RingSeconds)
	if ringCapacity < cfg.Spectrum.FFTSize {
		ringCapacity = cfg.Spectrum.FFTSize
	}
	if ringCapacity < cfg.Pitch.WindowSize {
		ringCapacity = cfg.Pitch.WindowSize
	}

	spectrumParams := spectral.SpectrumParams{
		SampleRate: cfg.Audio.SampleRate,
		FFTSize:    cfg.Spectrum.FFTSize,
		NumBars:    cfg.Spectrum.NumBars,
		MinFreq:    cfg.Spectrum.MinFreq,
		MaxFreq:    cfg.Spectrum.MaxFreq,
		FloorDB:    cfg.Spectrum.FloorDB,
		CeilDB:     cfg.Spectrum.CeilDB,
		Smoothing:  cfg.Spectrum.Smoothing,
		MinGainDB:  cfg.Spectrum.MinGainDB,
		MaxGainDB:  cfg.Spectrum.MaxGainDB,
	}

	pitchParams := tonal.PitchParams{
		SampleRate:       cfg.Audio.SampleRate,
		WindowSize:       cfg.Pitch.WindowSize,
		MinFreq:          cfg.Pitch.MinFreq,
		MaxFreq:          cfg.Pitch.MaxFreq,
		VoicingThreshold: cfg.Pitch.VoicingThreshold,
	}

	vibratoParams := tonal.VibratoParams{
		HistorySize:     cfg.Vibrato.HistorySize,
		AnalysisRate:    cfg.VoiceAnalysisRate(),
		MinRate:         cfg.Vibrato.MinRate,
		MaxRate:         cfg.Vibrato.MaxRate,
		MinExtent:       cfg.Vibrato.MinExtent,
		MaxExtent:       cfg.Vibrato.MaxExtent,
		MaxJumpCents:    cfg.Vibrato.MaxJumpCents,
		LocalMeanWindow: cfg.Vibrato.LocalMeanWindow,
		MinPeakiness:    cfg.Vibrato.MinPeakiness,
		AttackCoeff:     cfg.Vibrato.AttackCoeff,
		DecayCoeff:      cfg.Vibrato.DecayCoeff,
	}

	qualityParams := speech.QualityParams{
		SampleRate:        cfg.Audio.SampleRate,
		FFTSize:           cfg.Spectrum.FFTSize,
		PresenceMinFreq:   cfg.Quality.PresenceMinFreq,
		PresenceMaxFreq:   cfg.Quality.PresenceMaxFreq,
		RMSHistorySize:    cfg.Quality.RMSHistorySize,
		MinValidRMSSlots:  cfg.Quality.MinValidRMSSlots,
		SilenceRMS:        cfg.Quality.SilenceRMS,
		IntensityFloorDB:  cfg.Quality.IntensityFloorDB,
		IntensityCeilDB:   cfg.Quality.IntensityCeilDB,
		Smoothing:         cfg.Quality.Smoothing,
		VoiceRMSThreshold: cfg.Quality.VoiceRMSThreshold,
	}

	e := &Engine{
		cfg: cfg,
		logger: logging.WithFields(logging.Fields{
			"component":   "vocal_engine",
			"sample_rate": cfg.Audio.SampleRate,
		}),
		left:           common.NewRingBuffer(ringCapacity),
		right:          common.NewRingBuffer(ringCapacity),
		mono:           common.NewRingBuffer(ringCapacity),
		separated:      common.NewRingBuffer(ringCapacity),
		displayHistory: common.NewRingBuffer(cfg.Pitch.HistorySize),
		vibratoHistory: common.NewRingBuffer(cfg.Vibrato.HistorySize),
		spectrum:       spectral.NewSpectrumAnalyzer(spectrumParams),
		formants:       spectral.NewFormantBands(cfg.Audio.SampleRate, cfg.Spectrum.FFTSize, cfg.Formant.BandEdges),
		pitch:          tonal.NewAutocorrTracker(pitchParams),
		vibrato:        tonal.NewVibratoDetector(vibratoParams),
		quality:        speech.NewQualityAnalyzer(qualityParams),
		separatedStale: uint64(float64(cfg.Audio.SampleRate) * cfg.Audio.SeparatedStaleSeconds),
		fftFrame:       make([]float64, cfg.Spectrum.FFTSize),
		voiceWindow:    make([]float64, cfg.Pitch.WindowSize),
	}

	return e, nil
}

// SetOnHop registers a callback invoked once per completed voice analysis
// hop with a fresh snapshot. Pass nil to clear. The callback runs on the
// ingestion goroutine and must not call engine methods.
func (e *Engine) SetOnHop(fn func(*Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onHop = fn
}

// ProcessAudio ingests a chunk of interleaved stereo samples (L,R,L,R,...)
// of arbitrary length, synchronously running each spectral and voice
// analysis hop at the exact sample position where it completes. Analysis
// windows therefore land on hop boundaries regardless of how the input is
// chunked. A trailing unpaired sample is dropped.
func (e *Engine) ProcessAudio(samples []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	frames := len(samples) / 2
	for i := range frames {
		l := float64(samples[2*i])
		r := float64(samples[2*i+1])
		e.left.Write(l)
		e.right.Write(r)
		e.mono.Write((l + r) * 0.5)

		e.totalIngested++
		e.sinceSpectral++
		e.sinceVoice++

		if e.sinceSpectral >= e.cfg.Spectrum.HopSize {
			e.sinceSpectral -= e.cfg.Spectrum.HopSize
			e.runSpectralHop()
		}
		if e.sinceVoice >= e.cfg.Pitch.HopSize {
			e.sinceVoice -= e.cfg.Pitch.HopSize
			e.runVoiceHop()
		}
	}
}

// ProcessSeparated ingests a chunk of mono separated-vocal samples
// produced asynchronously by an external separation process. The separated
// ring simply becomes the preferred read source for subsequent hops while
// it stays fresh; analysis cadence is unaffected.
func (e *Engine) ProcessSeparated(samples []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range samples {
		e.separated.Write(float64(s))
	}
	e.separatedAt = e.totalIngested
	e.separatedSeen = true
}

// SubmitExternalPitch replaces the display pitch estimate and its last
// history slot with an externally supplied sample, whenever it arrives and
// independent of hop cadence. The vibrato history is never touched.
func (e *Engine) SubmitExternalPitch(p ExternalPitch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	est := tonal.PitchEstimate{
		Confidence: p.Confidence,
	}
	if p.Voiced && p.Frequency > 0 {
		est.Frequency = p.Frequency
		est.Voiced = true
		est.Period = float64(e.cfg.Audio.SampleRate) / p.Frequency
	}

	e.externalPitch = est
	e.externalSeen = true

	if e.pitchSource == SourceExternal {
		e.lastPitch = est
		e.displayHistory.OverwriteLast(est.Frequency)
	}
}

// SetPitchSource switches the authoritative display pitch source.
// Switching does not reset the vibrato history or any smoothing state, so
// detection continues uninterrupted across the switch.
func (e *Engine) SetPitchSource(source PitchSource) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pitchSource != source {
		e.logger.Info("pitch source changed", logging.Fields{
			"from": e.pitchSource.String(),
			"to":   source.String(),
		})
	}
	e.pitchSource = source
	e.state.PitchSource = source
}

// SetSpectrumGain sets the display gain in dB, clamped to the configured
// range. Gain applies per hop from the next frame on, never cumulatively.
func (e *Engine) SetSpectrumGain(gainDB float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spectrum.SetGain(gainDB)
}

// SpectrumGain returns the active display gain in dB after clamping
func (e *Engine) SpectrumGain() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spectrum.Gain()
}

// StartCapture marks a capture session active
func (e *Engine) StartCapture() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Capturing = true
	e.logger.Info("capture started")
}

// StopCapture ends the capture session and resets all buffered audio,
// histories, smoothing state, and external-source flags so stale data is
// never reused on the next start
func (e *Engine) StopCapture() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Capturing = false
	e.resetSessionLocked()
	e.logger.Info("capture stopped")
}

// StartStreaming marks an external streaming session (separated audio
// and/or external pitch) active
func (e *Engine) StartStreaming() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Streaming = true
	e.logger.Info("streaming started")
}

// StopStreaming ends the streaming session and resets the external-source
// state: separated audio, external pitch, and the source selection. Local
// analysis state is kept.
func (e *Engine) StopStreaming() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Streaming = false
	e.separated.Reset()
	e.separatedSeen = false
	e.externalSeen = false
	e.externalPitch = tonal.PitchEstimate{}
	e.pitchSource = SourceLocal
	e.state.PitchSource = SourceLocal
	e.state.UsingSeparated = false
	e.logger.Info("streaming stopped")
}

// State returns the current source-mode and activity flags
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns a deep copy of every output contract as of the most
// recently completed hop
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		Pitch:        e.lastPitch,
		PitchHistory: e.displayHistory.Last(e.displayHistory.Capacity()),
		Formants:     e.lastFormants,
		Quality: QualityReport{
			QualityEstimate: e.lastQuality,
			Vibrato:         e.lastVibrato,
		},
		State: e.state,
	}

	if e.lastSpectrum != nil {
		snap.Spectrum = SpectrumFrame{
			Bars:   append([]float64(nil), e.lastSpectrum.Bars...),
			Peak:   e.lastSpectrum.Peak,
			RMS:    e.lastSpectrum.RMS,
			GainDB: e.lastSpectrum.GainDB,
		}
	} else {
		snap.Spectrum = SpectrumFrame{
			Bars:   make([]float64, e.cfg.Spectrum.NumBars),
			GainDB: e.spectrum.Gain(),
		}
	}

	return snap
}

// runSpectralHop computes the display spectrum from the mixed mono signal
// and reuses its raw bins for the formant estimate
func (e *Engine) runSpectralHop() {
	e.mono.ReadLast(e.fftFrame)
	e.lastSpectrum = e.spectrum.Analyze(e.fftFrame)
	e.lastFormants = e.formants.Estimate(e.lastSpectrum.Bins)
}

// runVoiceHop runs pitch, vibrato, and quality analysis for one hop
func (e *Engine) runVoiceHop() {
	// Separated-vocal audio, when present and non-stale, is the preferred
	// source for both pitch invocations
	useSeparated := e.separatedSeen && e.totalIngested-e.separatedAt <= e.separatedStale
	if useSeparated {
		e.separated.ReadLast(e.voiceWindow)
	} else {
		e.mono.ReadLast(e.voiceWindow)
	}
	e.state.UsingSeparated = useSeparated

	// The local tracker always runs: it exclusively feeds the vibrato
	// pipeline, which must never depend on an external tracker's
	// melody-following behavior or update rate
	local := e.pitch.Track(e.voiceWindow)
	if local.Voiced {
		e.vibratoHistory.Write(local.Frequency)
	} else {
		e.vibratoHistory.Write(0)
	}

	// Single merge step for the display estimate
	display := local
	externalActive := false
	if e.pitchSource == SourceExternal && e.externalSeen {
		display = e.externalPitch
		externalActive = true
	}
	e.lastPitch = display
	e.displayHistory.Write(display.Frequency)

	e.lastVibrato = e.vibrato.Analyze(e.vibratoHistory.Last(e.vibratoHistory.Capacity()))

	clarity := 0.0
	if display.Period > 0 {
		clarity = e.pitch.CorrelationAt(e.voiceWindow, display.Period)
	}

	var bins []complex128
	if e.lastSpectrum != nil {
		bins = e.lastSpectrum.Bins
	}
	e.lastQuality = e.quality.Analyze(speech.QualityInput{
		Bins:          bins,
		Window:        e.voiceWindow,
		Period:        display.Period,
		Clarity:       clarity,
		Voiced:        display.Voiced,
		ExternalPitch: externalActive,
	})

	if e.onHop != nil {
		e.onHop(e.snapshotLocked())
	}
}

// resetSessionLocked zeroes every buffer and smoothing scalar
func (e *Engine) resetSessionLocked() {
	e.left.Reset()
	e.right.Reset()
	e.mono.Reset()
	e.separated.Reset()
	e.displayHistory.Reset()
	e.vibratoHistory.Reset()
	e.spectrum.Reset()
	e.vibrato.Reset()
	e.quality.Reset()

	e.sinceSpectral = 0
	e.sinceVoice = 0
	e.totalIngested = 0
	e.separatedAt = 0
	e.separatedSeen = false
	e.externalSeen = false
	e.externalPitch = tonal.PitchEstimate{}
	e.pitchSource = SourceLocal

	e.lastSpectrum = nil
	e.lastFormants = spectral.FormantEstimate{}
	e.lastPitch = tonal.PitchEstimate{}
	e.lastVibrato = tonal.VibratoEstimate{}
	e.lastQuality = speech.QualityEstimate{}

	e.state.PitchSource = SourceLocal
	e.state.UsingSeparated = false
}
