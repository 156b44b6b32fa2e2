package configs

import (
	"github.com/spf13/viper"
)

// setDefaults sets default configuration values for all components.
// Values follow 48 kHz capture: a 512-sample spectral hop (~93.8 Hz display
// updates) and a 1024-sample voice hop (~46.9 Hz, enough to resolve vibrato
// up to 10 Hz over a 128-slot, ~2.7 s pitch history).
func setDefaults(v *viper.Viper) {
	if !v.IsSet("verbose") {
		v.Set("verbose", false)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", "info")
	}

	// Audio defaults
	if !v.IsSet("audio.sample_rate") {
		v.Set("audio.sample_rate", 48000)
	}
	if !v.IsSet("audio.channels") {
		v.Set("audio.channels", 2)
	}
	if !v.IsSet("audio.ring_seconds") {
		v.Set("audio.ring_seconds", 2.0)
	}
	if !v.IsSet("audio.separated_stale_seconds") {
		v.Set("audio.separated_stale_seconds", 1.0)
	}

	// Spectrum defaults
	if !v.IsSet("spectrum.fft_size") {
		v.Set("spectrum.fft_size", 2048)
	}
	if !v.IsSet("spectrum.hop_size") {
		v.Set("spectrum.hop_size", 512)
	}
	if !v.IsSet("spectrum.num_bars") {
		v.Set("spectrum.num_bars", 512)
	}
	if !v.IsSet("spectrum.min_freq") {
		v.Set("spectrum.min_freq", 20.0)
	}
	if !v.IsSet("spectrum.max_freq") {
		v.Set("spectrum.max_freq", 20000.0)
	}
	if !v.IsSet("spectrum.floor_db") {
		v.Set("spectrum.floor_db", -96.0)
	}
	if !v.IsSet("spectrum.ceil_db") {
		v.Set("spectrum.ceil_db", 0.0)
	}
	if !v.IsSet("spectrum.smoothing") {
		v.Set("spectrum.smoothing", 0.7)
	}
	if !v.IsSet("spectrum.min_gain_db") {
		v.Set("spectrum.min_gain_db", -20.0)
	}
	if !v.IsSet("spectrum.max_gain_db") {
		v.Set("spectrum.max_gain_db", 20.0)
	}

	// Pitch defaults
	if !v.IsSet("pitch.window_size") {
		v.Set("pitch.window_size", 2048)
	}
	if !v.IsSet("pitch.hop_size") {
		v.Set("pitch.hop_size", 1024)
	}
	if !v.IsSet("pitch.min_freq") {
		v.Set("pitch.min_freq", 75.0)
	}
	if !v.IsSet("pitch.max_freq") {
		v.Set("pitch.max_freq", 600.0)
	}
	if !v.IsSet("pitch.voicing_threshold") {
		v.Set("pitch.voicing_threshold", 0.45)
	}
	if !v.IsSet("pitch.history_size") {
		v.Set("pitch.history_size", 128)
	}

	// Vibrato defaults
	if !v.IsSet("vibrato.history_size") {
		v.Set("vibrato.history_size", 128)
	}
	if !v.IsSet("vibrato.min_rate") {
		v.Set("vibrato.min_rate", 3.0)
	}
	if !v.IsSet("vibrato.max_rate") {
		v.Set("vibrato.max_rate", 10.0)
	}
	if !v.IsSet("vibrato.min_extent") {
		v.Set("vibrato.min_extent", 0.1)
	}
	if !v.IsSet("vibrato.max_extent") {
		v.Set("vibrato.max_extent", 4.0)
	}
	if !v.IsSet("vibrato.max_jump_cents") {
		v.Set("vibrato.max_jump_cents", 50.0)
	}
	if !v.IsSet("vibrato.local_mean_window") {
		v.Set("vibrato.local_mean_window", 16)
	}
	if !v.IsSet("vibrato.min_peakiness") {
		v.Set("vibrato.min_peakiness", 1.2)
	}
	if !v.IsSet("vibrato.attack_coeff") {
		v.Set("vibrato.attack_coeff", 0.6)
	}
	if !v.IsSet("vibrato.decay_coeff") {
		v.Set("vibrato.decay_coeff", 0.92)
	}

	// Quality defaults
	if !v.IsSet("quality.presence_min_freq") {
		v.Set("quality.presence_min_freq", 1000.0)
	}
	if !v.IsSet("quality.presence_max_freq") {
		v.Set("quality.presence_max_freq", 5000.0)
	}
	if !v.IsSet("quality.rms_history_size") {
		v.Set("quality.rms_history_size", 25)
	}
	if !v.IsSet("quality.min_valid_rms_slots") {
		v.Set("quality.min_valid_rms_slots", 5)
	}
	if !v.IsSet("quality.silence_rms") {
		v.Set("quality.silence_rms", 0.001)
	}
	if !v.IsSet("quality.intensity_floor_db") {
		v.Set("quality.intensity_floor_db", -60.0)
	}
	if !v.IsSet("quality.intensity_ceil_db") {
		v.Set("quality.intensity_ceil_db", -6.0)
	}
	if !v.IsSet("quality.smoothing") {
		v.Set("quality.smoothing", 0.85)
	}
	if !v.IsSet("quality.voice_rms_threshold") {
		v.Set("quality.voice_rms_threshold", 0.01)
	}

	// Formant band edges: F1 200-900, F2 900-2500, F3 2500-3500, F4 3500-5000
	if !v.IsSet("formant.band_edges") {
		v.Set("formant.band_edges", []float64{200, 900, 2500, 3500, 5000})
	}
}
