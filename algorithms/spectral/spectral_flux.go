package spectral

import (
	"math"
)

// SpectralFlux measures frame-to-frame spectral change. The rectified
// variant responds only to energy increases, which makes it the usual
// choice for onset detection.
type SpectralFlux struct{}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{}
}

// Compute calculates half-wave rectified spectral flux for a spectrogram.
// Returns one value per frame transition (len(spectrogram)-1 values).
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	if len(spectrogram) < 2 {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram)-1)

	for t := 1; t < len(spectrogram); t++ {
		sum := 0.0
		for f := 0; f < len(spectrogram[t]); f++ {
			diff := spectrogram[t][f] - spectrogram[t-1][f]
			if diff > 0 {
				sum += diff * diff
			}
		}
		flux[t-1] = math.Sqrt(sum)
	}

	return flux
}

// ComputeAllChanges calculates spectral flux including both positive and
// negative changes.
func (sf *SpectralFlux) ComputeAllChanges(spectrogram [][]float64) []float64 {
	if len(spectrogram) < 2 {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram)-1)

	for t := 1; t < len(spectrogram); t++ {
		sum := 0.0
		for f := 0; f < len(spectrogram[t]); f++ {
			diff := spectrogram[t][f] - spectrogram[t-1][f]
			sum += diff * diff
		}
		flux[t-1] = math.Sqrt(sum)
	}

	return flux
}
