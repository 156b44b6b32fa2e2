package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentsBetween(t *testing.T) {
	assert.InDelta(t, 1200.0, CentsBetween(440, 220), 1e-9)
	assert.InDelta(t, -1200.0, CentsBetween(220, 440), 1e-9)
	assert.InDelta(t, 100.0, CentsBetween(440*math.Pow(2, 1.0/12), 440), 1e-9)
	assert.Equal(t, 0.0, CentsBetween(0, 440))
	assert.Equal(t, 0.0, CentsBetween(440, -1))
}

func TestRMS(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.InDelta(t, 2.0, RMS([]float64{2, -2, 2, -2}), 1e-12)

	// RMS of a full-cycle sine is amplitude/sqrt(2)
	sine := make([]float64, 1000)
	for i := range sine {
		sine[i] = 0.5 * math.Sin(2*math.Pi*float64(i)/100)
	}
	assert.InDelta(t, 0.5/math.Sqrt2, RMS(sine), 1e-3)
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, 0.0, CoefficientOfVariation([]float64{5}))
	assert.Equal(t, 0.0, CoefficientOfVariation([]float64{0, 0, 0}))

	cv := CoefficientOfVariation([]float64{1, 2, 3, 4, 5})
	assert.InDelta(t, math.Sqrt(2.5)/3.0, cv, 1e-12)
}

func TestDBFS(t *testing.T) {
	assert.InDelta(t, 0.0, DBFS(1.0, -96), 1e-12)
	assert.InDelta(t, -20.0, DBFS(0.1, -96), 1e-9)
	assert.Equal(t, -96.0, DBFS(0, -96))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3.0, Clamp(5, 0, 3))
	assert.Equal(t, 0.0, Clamp(-2, 0, 3))
	assert.Equal(t, 1.5, Clamp(1.5, 0, 3))
}

func TestParabolicPeak(t *testing.T) {
	// Symmetric neighbors leave the peak at the discrete index
	data := []float64{0, 1, 0}
	assert.Equal(t, 1.0, ParabolicPeak(data, 1))

	// A heavier right neighbor pulls the fit right
	data = []float64{0, 1, 0.5}
	refined := ParabolicPeak(data, 1)
	assert.Greater(t, refined, 1.0)
	assert.Less(t, refined, 2.0)

	// Edge peaks come back unrefined
	assert.Equal(t, 0.0, ParabolicPeak([]float64{2, 1, 0}, 0))
	assert.Equal(t, 2.0, ParabolicPeak([]float64{0, 1, 2}, 2))
}
