package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 2, cfg.Audio.Channels)
	assert.Equal(t, 2048, cfg.Spectrum.FFTSize)
	assert.Equal(t, 512, cfg.Spectrum.NumBars)
	assert.Equal(t, 2048, cfg.Pitch.WindowSize)
	assert.Equal(t, 128, cfg.Vibrato.HistorySize)
	assert.Equal(t, []float64{200, 900, 2500, 3500, 5000}, cfg.Formant.BandEdges)
}

func TestVoiceAnalysisRate(t *testing.T) {
	cfg := Default()
	assert.InDelta(t, 46.875, cfg.VoiceAnalysisRate(), 1e-9)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non power of two fft", func(c *Config) { c.Spectrum.FFTSize = 1000 }},
		{"mono input", func(c *Config) { c.Audio.Channels = 1 }},
		{"inverted spectrum bounds", func(c *Config) { c.Spectrum.MinFreq = 30000 }},
		{"inverted pitch bounds", func(c *Config) { c.Pitch.MaxFreq = 50 }},
		{"pitch window too small", func(c *Config) { c.Pitch.WindowSize = 256 }},
		{"zero pitch hop", func(c *Config) { c.Pitch.HopSize = 0 }},
		{"odd vibrato history", func(c *Config) { c.Vibrato.HistorySize = 100 }},
		{"wrong edge count", func(c *Config) { c.Formant.BandEdges = []float64{200, 900} }},
		{"unordered edges", func(c *Config) { c.Formant.BandEdges = []float64{200, 900, 900, 3500, 5000} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
spectrum:
  smoothing: 0.5
pitch:
  max_freq: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// File values override defaults, untouched sections keep defaults
	assert.Equal(t, 0.5, cfg.Spectrum.Smoothing)
	assert.Equal(t, 500.0, cfg.Pitch.MaxFreq)
	assert.Equal(t, 2048, cfg.Spectrum.FFTSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
