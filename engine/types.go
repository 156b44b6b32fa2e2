package engine

import (
	"github.com/magicat777/vocal-prime/algorithms/spectral"
	"github.com/magicat777/vocal-prime/algorithms/speech"
	"github.com/magicat777/vocal-prime/algorithms/tonal"
)

// PitchSource selects which stream is authoritative for the display pitch
// estimate. The vibrato pipeline always runs on the local autocorrelation
// contour regardless of this setting.
type PitchSource int

const (
	// SourceLocal uses the engine's own autocorrelation tracker
	SourceLocal PitchSource = iota
	// SourceExternal substitutes the most recent externally supplied
	// estimate (e.g. a neural pitch tracker running out of process)
	SourceExternal
)

func (s PitchSource) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ExternalPitch is one pitch sample supplied by an out-of-process tracker.
// LatencyMS is display-only metadata and takes no part in analysis.
type ExternalPitch struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
	Voiced     bool    `json:"voiced"`
	Algorithm  string  `json:"algorithm"`
	LatencyMS  float64 `json:"latency_ms"`
}

// SpectrumFrame is the display spectrum contract: normalized log-frequency
// bars plus scalar levels and the gain that produced them
type SpectrumFrame struct {
	Bars   []float64 `json:"bars"`
	Peak   float64   `json:"peak"`
	RMS    float64   `json:"rms"`
	GainDB float64   `json:"gain_db"`
}

// QualityReport bundles the composite quality metrics with the vibrato
// estimate derived the same hop
type QualityReport struct {
	speech.QualityEstimate
	Vibrato tonal.VibratoEstimate `json:"vibrato"`
}

// EngineState holds the source-mode and activity flags. It changes only on
// explicit mode calls, never per hop (except UsingSeparated, which tracks
// whether separated audio was fresh enough to analyze).
type EngineState struct {
	PitchSource    PitchSource `json:"pitch_source"`
	UsingSeparated bool        `json:"using_separated"`
	Capturing      bool        `json:"capturing"`
	Streaming      bool        `json:"streaming"`
}

// Snapshot is a read-only copy of every output contract, taken at a hop
// boundary so a consumer never observes a half-updated structure. Slices
// are copies, never views into engine buffers.
type Snapshot struct {
	Spectrum     SpectrumFrame            `json:"spectrum"`
	Pitch        tonal.PitchEstimate      `json:"pitch"`
	PitchHistory []float64                `json:"pitch_history"`
	Formants     spectral.FormantEstimate `json:"formants"`
	Quality      QualityReport            `json:"quality"`
	State        EngineState              `json:"state"`
}
