package spectral

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides forward Fast Fourier Transform functionality over real
// input, shared by the spectrum analyzer and the vibrato contour analysis
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the forward transform of a real signal using
// mjibson/go-dsp. Handles any input length, including non-power-of-2.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// ComputeMagnitudes computes the forward transform and returns bin
// magnitudes up to and including Nyquist
func (f *FFT) ComputeMagnitudes(x []float64) []float64 {
	bins := f.Compute(x)
	if len(bins) == 0 {
		return []float64{}
	}

	n := len(bins)/2 + 1
	mags := make([]float64, n)
	for i := range n {
		re := real(bins[i])
		im := imag(bins[i])
		mags[i] = math.Sqrt(re*re + im*im)
	}
	return mags
}
