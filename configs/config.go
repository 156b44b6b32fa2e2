package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the full engine configuration
type Config struct {
	// Application settings
	Verbose  bool   `mapstructure:"verbose"`
	LogLevel string `mapstructure:"log_level"`

	// Audio input settings
	Audio AudioConfig `mapstructure:"audio"`

	// Spectrum display settings
	Spectrum SpectrumConfig `mapstructure:"spectrum"`

	// Pitch tracking settings
	Pitch PitchConfig `mapstructure:"pitch"`

	// Vibrato detection settings
	Vibrato VibratoConfig `mapstructure:"vibrato"`

	// Voice quality settings
	Quality QualityConfig `mapstructure:"quality"`

	// Formant estimation settings
	Formant FormantConfig `mapstructure:"formant"`
}

// AudioConfig contains sample stream settings
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	Channels   int `mapstructure:"channels"`
	// RingSeconds sizes every per-channel ring buffer
	RingSeconds float64 `mapstructure:"ring_seconds"`
	// SeparatedStaleSeconds bounds how old separated-vocal audio may be
	// before the engine falls back to the mixed signal
	SeparatedStaleSeconds float64 `mapstructure:"separated_stale_seconds"`
}

// SpectrumConfig contains windowed FFT display settings
type SpectrumConfig struct {
	FFTSize   int     `mapstructure:"fft_size"`
	HopSize   int     `mapstructure:"hop_size"`
	NumBars   int     `mapstructure:"num_bars"`
	MinFreq   float64 `mapstructure:"min_freq"`
	MaxFreq   float64 `mapstructure:"max_freq"`
	FloorDB   float64 `mapstructure:"floor_db"`
	CeilDB    float64 `mapstructure:"ceil_db"`
	Smoothing float64 `mapstructure:"smoothing"`
	MinGainDB float64 `mapstructure:"min_gain_db"`
	MaxGainDB float64 `mapstructure:"max_gain_db"`
}

// PitchConfig contains autocorrelation pitch tracking settings
type PitchConfig struct {
	WindowSize       int     `mapstructure:"window_size"`
	HopSize          int     `mapstructure:"hop_size"`
	MinFreq          float64 `mapstructure:"min_freq"`
	MaxFreq          float64 `mapstructure:"max_freq"`
	VoicingThreshold float64 `mapstructure:"voicing_threshold"`
	HistorySize      int     `mapstructure:"history_size"`
}

// VibratoConfig contains vibrato detection settings
type VibratoConfig struct {
	HistorySize     int     `mapstructure:"history_size"`
	MinRate         float64 `mapstructure:"min_rate"`
	MaxRate         float64 `mapstructure:"max_rate"`
	MinExtent       float64 `mapstructure:"min_extent"`
	MaxExtent       float64 `mapstructure:"max_extent"`
	MaxJumpCents    float64 `mapstructure:"max_jump_cents"`
	LocalMeanWindow int     `mapstructure:"local_mean_window"`
	MinPeakiness    float64 `mapstructure:"min_peakiness"`
	AttackCoeff     float64 `mapstructure:"attack_coeff"`
	DecayCoeff      float64 `mapstructure:"decay_coeff"`
}

// QualityConfig contains voice quality metric settings
type QualityConfig struct {
	PresenceMinFreq   float64 `mapstructure:"presence_min_freq"`
	PresenceMaxFreq   float64 `mapstructure:"presence_max_freq"`
	RMSHistorySize    int     `mapstructure:"rms_history_size"`
	MinValidRMSSlots  int     `mapstructure:"min_valid_rms_slots"`
	SilenceRMS        float64 `mapstructure:"silence_rms"`
	IntensityFloorDB  float64 `mapstructure:"intensity_floor_db"`
	IntensityCeilDB   float64 `mapstructure:"intensity_ceil_db"`
	Smoothing         float64 `mapstructure:"smoothing"`
	VoiceRMSThreshold float64 `mapstructure:"voice_rms_threshold"`
}

// FormantConfig contains formant band settings
type FormantConfig struct {
	// Band edges in Hz, low to high: F1 low, F1/F2 edge, F2/F3 edge,
	// F3/F4 edge, F4 high
	BandEdges []float64 `mapstructure:"band_edges"`
}

// Load reads configuration from the given file (optional) plus environment
// variables, applying defaults for anything unset
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix("VOCAL_PRIME")
	v.AutomaticEnv()

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the default configuration without touching the filesystem
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// Unmarshal of pure defaults cannot fail
	_ = v.Unmarshal(&config)

	return &config
}

// Validate checks configuration invariants that clamping cannot repair
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 2 {
		return fmt.Errorf("audio.channels must be 2 (interleaved stereo), got %d", c.Audio.Channels)
	}
	if c.Spectrum.FFTSize <= 0 || c.Spectrum.FFTSize&(c.Spectrum.FFTSize-1) != 0 {
		return fmt.Errorf("spectrum.fft_size must be a positive power of two, got %d", c.Spectrum.FFTSize)
	}
	if c.Spectrum.HopSize <= 0 || c.Spectrum.HopSize > c.Spectrum.FFTSize {
		return fmt.Errorf("spectrum.hop_size must be in (0, fft_size], got %d", c.Spectrum.HopSize)
	}
	if c.Spectrum.NumBars <= 0 {
		return fmt.Errorf("spectrum.num_bars must be positive, got %d", c.Spectrum.NumBars)
	}
	if c.Spectrum.MinFreq <= 0 || c.Spectrum.MaxFreq <= c.Spectrum.MinFreq {
		return fmt.Errorf("spectrum frequency bounds invalid: [%f, %f]", c.Spectrum.MinFreq, c.Spectrum.MaxFreq)
	}
	if c.Pitch.MinFreq <= 0 || c.Pitch.MaxFreq <= c.Pitch.MinFreq {
		return fmt.Errorf("pitch frequency bounds invalid: [%f, %f]", c.Pitch.MinFreq, c.Pitch.MaxFreq)
	}
	if c.Pitch.WindowSize < int(float64(c.Audio.SampleRate)/c.Pitch.MinFreq)*2 {
		return fmt.Errorf("pitch.window_size %d too small for min_freq %.1f Hz at %d Hz",
			c.Pitch.WindowSize, c.Pitch.MinFreq, c.Audio.SampleRate)
	}
	if c.Pitch.HopSize <= 0 {
		return fmt.Errorf("pitch.hop_size must be positive, got %d", c.Pitch.HopSize)
	}
	if c.Vibrato.HistorySize <= 0 || c.Vibrato.HistorySize&(c.Vibrato.HistorySize-1) != 0 {
		return fmt.Errorf("vibrato.history_size must be a positive power of two, got %d", c.Vibrato.HistorySize)
	}
	if len(c.Formant.BandEdges) != 5 {
		return fmt.Errorf("formant.band_edges must have 5 entries, got %d", len(c.Formant.BandEdges))
	}
	for i := 1; i < len(c.Formant.BandEdges); i++ {
		if c.Formant.BandEdges[i] <= c.Formant.BandEdges[i-1] {
			return fmt.Errorf("formant.band_edges must be strictly increasing")
		}
	}
	return nil
}

// VoiceAnalysisRate returns the voice analysis cadence in Hz
func (c *Config) VoiceAnalysisRate() float64 {
	return float64(c.Audio.SampleRate) / float64(c.Pitch.HopSize)
}
