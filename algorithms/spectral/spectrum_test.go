package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 48000

func sineFrame(freq, amp float64, size int) []float64 {
	frame := make([]float64, size)
	for i := range frame {
		frame[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return frame
}

// barFrequency recomputes the logarithmic target frequency of a display bar
func barFrequency(params SpectrumParams, bar int) float64 {
	frac := float64(bar) / float64(params.NumBars-1)
	return math.Exp(math.Log(params.MinFreq) + frac*(math.Log(params.MaxFreq)-math.Log(params.MinFreq)))
}

func TestSpectrumSilence(t *testing.T) {
	sa := NewSpectrumAnalyzer(DefaultSpectrumParams(testSampleRate))

	result := sa.Analyze(make([]float64, 2048))
	require.Len(t, result.Bars, 512)

	for _, bar := range result.Bars {
		assert.Equal(t, 0.0, bar)
	}
	assert.Equal(t, 0.0, result.Peak)
	assert.Equal(t, 0.0, result.RMS)
	assert.Len(t, result.Bins, 1025)
}

func TestSpectrumSinePeakBar(t *testing.T) {
	params := DefaultSpectrumParams(testSampleRate)
	sa := NewSpectrumAnalyzer(params)

	frame := sineFrame(1000, 0.5, 2048)
	var result *SpectrumResult
	for range 20 {
		result = sa.Analyze(frame)
	}

	maxBar := 0
	for i, v := range result.Bars {
		if v > result.Bars[maxBar] {
			maxBar = i
		}
	}

	assert.InDelta(t, 1000.0, barFrequency(params, maxBar), 50.0)
	assert.InDelta(t, 0.5, result.Peak, 0.01)
	assert.InDelta(t, 0.5/math.Sqrt2, result.RMS, 0.01)
}

func TestSpectrumGainClamp(t *testing.T) {
	sa := NewSpectrumAnalyzer(DefaultSpectrumParams(testSampleRate))

	sa.SetGain(100)
	assert.Equal(t, 20.0, sa.Gain())

	sa.SetGain(-100)
	assert.Equal(t, -20.0, sa.Gain())

	sa.SetGain(5)
	assert.Equal(t, 5.0, sa.Gain())
}

func TestSpectrumGainNotCumulative(t *testing.T) {
	frame := sineFrame(1000, 0.5, 2048)

	// Excursions through +20 and -20 dB followed by a long run at 0 dB
	// must converge to the same bars as a fresh analyzer held at 0 dB
	// throughout: gain applies per frame, never accumulating
	excursion := NewSpectrumAnalyzer(DefaultSpectrumParams(testSampleRate))
	excursion.SetGain(20)
	excursion.Analyze(frame)
	excursion.SetGain(-20)
	excursion.Analyze(frame)
	excursion.SetGain(0)

	fresh := NewSpectrumAnalyzer(DefaultSpectrumParams(testSampleRate))

	var a, b *SpectrumResult
	for range 80 {
		a = excursion.Analyze(frame)
		b = fresh.Analyze(frame)
	}

	for i := range a.Bars {
		assert.InDelta(t, b.Bars[i], a.Bars[i], 1e-9)
	}
}

func TestSpectrumWrongFrameSize(t *testing.T) {
	sa := NewSpectrumAnalyzer(DefaultSpectrumParams(testSampleRate))

	frame := sineFrame(1000, 0.5, 2048)
	expected := sa.Analyze(frame)

	// A wrong-size frame yields the previous bars unchanged, with no bins
	result := sa.Analyze(make([]float64, 100))
	assert.Equal(t, expected.Bars, result.Bars)
	assert.Nil(t, result.Bins)
}

func TestSpectrumReset(t *testing.T) {
	sa := NewSpectrumAnalyzer(DefaultSpectrumParams(testSampleRate))
	sa.SetGain(10)
	sa.Analyze(sineFrame(1000, 0.5, 2048))

	sa.Reset()
	assert.Equal(t, 0.0, sa.Gain())

	result := sa.Analyze(make([]float64, 2048))
	for _, bar := range result.Bars {
		assert.Equal(t, 0.0, bar)
	}
}
