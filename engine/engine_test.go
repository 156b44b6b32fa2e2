package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicat777/vocal-prime/configs"
)

// stereoSine generates interleaved stereo samples of a steady sine tone
func stereoSine(freq, amp float64, frames int) []float32 {
	samples := make([]float32, frames*2)
	for i := range frames {
		s := float32(amp * math.Sin(2*math.Pi*freq*float64(i)/48000.0))
		samples[2*i] = s
		samples[2*i+1] = s
	}
	return samples
}

// vibratoSine generates a stereo tone whose pitch oscillates around f0 by
// ampCents at modRate Hz, via phase integration so the waveform stays
// continuous
func vibratoSine(f0, ampCents, modRate, amp float64, frames int) []float32 {
	samples := make([]float32, frames*2)
	phase := 0.0
	for i := range frames {
		cents := ampCents * math.Sin(2*math.Pi*modRate*float64(i)/48000.0)
		freq := f0 * math.Pow(2, cents/1200.0)
		phase += 2 * math.Pi * freq / 48000.0
		s := float32(amp * math.Sin(phase))
		samples[2*i] = s
		samples[2*i+1] = s
	}
	return samples
}

// monoSine generates mono samples for the separated-vocal path
func monoSine(freq, amp float64, frames int) []float32 {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/48000.0))
	}
	return samples
}

// feedChunks pushes samples through ProcessAudio in fixed-size chunks,
// deliberately unaligned with any hop size
func feedChunks(e *Engine, samples []float32, chunkFrames int) {
	step := chunkFrames * 2
	for off := 0; off < len(samples); off += step {
		end := off + step
		if end > len(samples) {
			end = len(samples)
		}
		e.ProcessAudio(samples[off:end])
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil)
	require.NoError(t, err)
	return e
}

func TestEngineRejectsBadConfig(t *testing.T) {
	cfg := configs.Default()
	cfg.Spectrum.FFTSize = 1000

	_, err := NewEngine(cfg)
	assert.Error(t, err)
}

func TestEngineSilence(t *testing.T) {
	e := newTestEngine(t)
	feedChunks(e, make([]float32, 48000*2), 960)

	snap := e.Snapshot()
	assert.False(t, snap.Pitch.Voiced)
	assert.Equal(t, 0.0, snap.Pitch.Frequency)
	assert.Equal(t, 0.0, snap.Quality.Intensity)
	assert.Equal(t, 0.0, snap.Quality.Clarity)
	assert.False(t, snap.Quality.VoicePresent)
	assert.False(t, snap.Formants.Detected)

	require.Len(t, snap.Spectrum.Bars, 512)
	for _, bar := range snap.Spectrum.Bars {
		assert.Equal(t, 0.0, bar)
	}
	for _, f := range snap.PitchHistory {
		assert.Equal(t, 0.0, f)
	}
}

func TestEnginePitchTracking(t *testing.T) {
	e := newTestEngine(t)
	feedChunks(e, stereoSine(220, 0.5, 24000), 960)

	snap := e.Snapshot()
	require.True(t, snap.Pitch.Voiced)
	assert.InDelta(t, 220.0, snap.Pitch.Frequency, 2.2)
	assert.Greater(t, snap.Pitch.Confidence, 0.45)
	assert.Greater(t, snap.Quality.Clarity, 80.0)
	assert.Greater(t, snap.Quality.Intensity, 50.0)
	assert.True(t, snap.Quality.VoicePresent)

	// The most recent history slot carries the current frequency
	last := snap.PitchHistory[len(snap.PitchHistory)-1]
	assert.InDelta(t, 220.0, last, 2.2)
}

func TestEngineDeterminism(t *testing.T) {
	audio := vibratoSine(220, 50, 5.5, 0.5, 48000)

	a := newTestEngine(t)
	b := newTestEngine(t)

	// Identical chunk sequences must produce byte-identical snapshots:
	// no wall-clock or allocation-order dependence anywhere
	feedChunks(a, audio, 960)
	feedChunks(b, audio, 960)

	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestEngineChunkSizeInvariance(t *testing.T) {
	audio := vibratoSine(220, 50, 5.5, 0.5, 48000)

	// Hops fire at exact sample positions, so the same samples split into
	// small chunks, large multi-hop chunks, or one single call must yield
	// identical analysis windows and identical snapshots
	small := newTestEngine(t)
	large := newTestEngine(t)
	whole := newTestEngine(t)

	feedChunks(small, audio, 240)
	feedChunks(large, audio, 7000)
	whole.ProcessAudio(audio)

	assert.Equal(t, small.Snapshot(), large.Snapshot())
	assert.Equal(t, small.Snapshot(), whole.Snapshot())
}

func TestEngineVibratoAcrossSourceSwitch(t *testing.T) {
	e := newTestEngine(t)
	feedChunks(e, vibratoSine(220, 50, 5.5, 0.5, 48000*4), 960)

	snap := e.Snapshot()
	require.True(t, snap.Quality.Vibrato.Detected)
	assert.InDelta(t, 5.5, snap.Quality.Vibrato.Rate, 0.5)
	assert.Greater(t, snap.Quality.Vibrato.Extent, 0.4)
	assert.Less(t, snap.Quality.Vibrato.Extent, 1.6)

	// Switching to an external pitch source substitutes the display
	// estimate but leaves the vibrato pipeline on the local contour
	e.SetPitchSource(SourceExternal)
	e.SubmitExternalPitch(ExternalPitch{
		Frequency:  300,
		Confidence: 0.9,
		Voiced:     true,
		Algorithm:  "crepe",
	})

	snap = e.Snapshot()
	assert.Equal(t, SourceExternal, snap.State.PitchSource)
	assert.Equal(t, 300.0, snap.Pitch.Frequency)
	assert.Equal(t, 300.0, snap.PitchHistory[len(snap.PitchHistory)-1])

	feedChunks(e, vibratoSine(220, 50, 5.5, 0.5, 24000), 960)
	snap = e.Snapshot()
	assert.True(t, snap.Quality.Vibrato.Detected, "source switch must not disturb vibrato detection")
	assert.Equal(t, 300.0, snap.Pitch.Frequency, "external estimate stays authoritative between submissions")
}

func TestEngineExternalVoiceActivity(t *testing.T) {
	e := newTestEngine(t)
	e.SetPitchSource(SourceExternal)
	e.SubmitExternalPitch(ExternalPitch{Frequency: 250, Confidence: 0.9, Voiced: true})

	// Audible input with an external source: voice activity comes from
	// the RMS gate
	feedChunks(e, stereoSine(220, 0.5, 24000), 960)
	snap := e.Snapshot()
	assert.True(t, snap.Quality.VoicePresent)
	assert.Equal(t, 250.0, snap.Pitch.Frequency)
	assert.InDelta(t, 48000.0/250.0, snap.Pitch.Period, 1e-9)
}

func TestEngineSeparatedPreferred(t *testing.T) {
	e := newTestEngine(t)

	// Separated vocals carry a tone while the mix is silent: pitch must
	// come from the separated ring while it is fresh
	e.ProcessSeparated(monoSine(220, 0.5, 24000))
	feedChunks(e, make([]float32, 24000*2), 960)

	snap := e.Snapshot()
	assert.True(t, snap.State.UsingSeparated)
	require.True(t, snap.Pitch.Voiced)
	assert.InDelta(t, 220.0, snap.Pitch.Frequency, 2.2)

	// Once no separated audio has arrived for longer than the staleness
	// bound, analysis falls back to the mix
	feedChunks(e, make([]float32, 96000*2), 960)
	snap = e.Snapshot()
	assert.False(t, snap.State.UsingSeparated)
	assert.False(t, snap.Pitch.Voiced)
}

func TestEngineGainClamp(t *testing.T) {
	e := newTestEngine(t)

	e.SetSpectrumGain(100)
	assert.Equal(t, 20.0, e.SpectrumGain())

	e.SetSpectrumGain(-100)
	assert.Equal(t, -20.0, e.SpectrumGain())

	e.SetSpectrumGain(6)
	assert.Equal(t, 6.0, e.SpectrumGain())
}

func TestEngineOnHopCadence(t *testing.T) {
	e := newTestEngine(t)

	hops := 0
	e.SetOnHop(func(snap *Snapshot) {
		hops++
		assert.NotNil(t, snap)
	})

	// 4800 frames complete exactly 4 voice hops at hop size 1024
	feedChunks(e, make([]float32, 4800*2), 333)
	assert.Equal(t, 4, hops)

	e.ProcessAudio(make([]float32, 1024*2))
	assert.Equal(t, 5, hops)

	e.SetOnHop(nil)
	e.ProcessAudio(make([]float32, 1024*2))
	assert.Equal(t, 5, hops)
}

func TestEngineStopCaptureResets(t *testing.T) {
	e := newTestEngine(t)
	e.StartCapture()
	e.SetPitchSource(SourceExternal)
	e.SubmitExternalPitch(ExternalPitch{Frequency: 250, Confidence: 0.9, Voiced: true})
	feedChunks(e, stereoSine(220, 0.5, 48000), 960)

	assert.True(t, e.State().Capturing)

	e.StopCapture()
	state := e.State()
	assert.False(t, state.Capturing)
	assert.Equal(t, SourceLocal, state.PitchSource)

	snap := e.Snapshot()
	assert.Equal(t, 0.0, snap.Pitch.Frequency)
	assert.False(t, snap.Pitch.Voiced)
	for _, f := range snap.PitchHistory {
		assert.Equal(t, 0.0, f)
	}
	for _, bar := range snap.Spectrum.Bars {
		assert.Equal(t, 0.0, bar)
	}
}

func TestEngineStopStreamingKeepsLocalState(t *testing.T) {
	e := newTestEngine(t)
	e.StartStreaming()
	e.SetPitchSource(SourceExternal)
	e.SubmitExternalPitch(ExternalPitch{Frequency: 250, Confidence: 0.9, Voiced: true})
	feedChunks(e, stereoSine(220, 0.5, 24000), 960)

	e.StopStreaming()
	state := e.State()
	assert.False(t, state.Streaming)
	assert.Equal(t, SourceLocal, state.PitchSource)
	assert.False(t, state.UsingSeparated)

	// Local analysis resumes immediately on buffered audio
	e.ProcessAudio(make([]float32, 1024*2))
	snap := e.Snapshot()
	require.True(t, snap.Pitch.Voiced)
	assert.InDelta(t, 220.0, snap.Pitch.Frequency, 2.2)
}

func TestEngineSnapshotIsolation(t *testing.T) {
	e := newTestEngine(t)
	feedChunks(e, stereoSine(220, 0.5, 24000), 960)

	snap := e.Snapshot()
	snap.Spectrum.Bars[0] = 42
	snap.PitchHistory[0] = 42

	fresh := e.Snapshot()
	assert.NotEqual(t, 42.0, fresh.Spectrum.Bars[0])
	assert.NotEqual(t, 42.0, fresh.PitchHistory[0])
}

func TestEngineSnapshotBeforeAudio(t *testing.T) {
	e := newTestEngine(t)

	snap := e.Snapshot()
	require.Len(t, snap.Spectrum.Bars, 512)
	assert.Len(t, snap.PitchHistory, 128)
	assert.False(t, snap.Pitch.Voiced)
}
