package common

import (
	"math"
)

// NormalizationType defines normalization method
type NormalizationType int

const (
	ZScore NormalizationType = iota
	MinMax
	Energy
	Peak
	RMSNorm
)

// Normalizer provides various signal normalization methods
type Normalizer struct {
	method NormalizationType
}

// NewNormalizer creates a new normalizer
func NewNormalizer(method NormalizationType) *Normalizer {
	return &Normalizer{
		method: method,
	}
}

// Normalize normalizes signal using the specified method
func (n *Normalizer) Normalize(signal []float64) []float64 {
	switch n.method {
	case ZScore:
		return n.zScoreNormalize(signal)
	case MinMax:
		return n.minMaxNormalize(signal)
	case Energy:
		return n.energyNormalize(signal)
	case Peak:
		return n.peakNormalize(signal)
	case RMSNorm:
		return n.rmsNormalize(signal)
	default:
		return n.zScoreNormalize(signal)
	}
}

// zScoreNormalize normalizes to zero mean and unit variance
func (n *Normalizer) zScoreNormalize(signal []float64) []float64 {
	return Normalize(signal)
}

// minMaxNormalize normalizes to [0, 1] range
func (n *Normalizer) minMaxNormalize(signal []float64) []float64 {
	return MinMaxNormalize(signal)
}

// energyNormalize normalizes by total energy (L2 norm)
func (n *Normalizer) energyNormalize(signal []float64) []float64 {
	if len(signal) == 0 {
		return signal
	}

	energy := 0.0
	for _, val := range signal {
		energy += val * val
	}

	if energy < 1e-10 {
		return signal // Nothing to scale
	}

	energyNorm := math.Sqrt(energy)
	normalized := make([]float64, len(signal))
	for i, val := range signal {
		normalized[i] = val / energyNorm
	}

	return normalized
}

// peakNormalize normalizes by peak absolute value
func (n *Normalizer) peakNormalize(signal []float64) []float64 {
	if len(signal) == 0 {
		return signal
	}

	peak := 0.0
	for _, val := range signal {
		abs := math.Abs(val)
		if abs > peak {
			peak = abs
		}
	}

	if peak < 1e-10 {
		return signal // Silent signal stays as-is
	}

	normalized := make([]float64, len(signal))
	for i, val := range signal {
		normalized[i] = val / peak
	}

	return normalized
}

// rmsNormalize normalizes by RMS value
func (n *Normalizer) rmsNormalize(signal []float64) []float64 {
	if len(signal) == 0 {
		return signal
	}

	rms := RMS(signal)

	if rms < 1e-10 {
		return signal
	}

	normalized := make([]float64, len(signal))
	for i, val := range signal {
		normalized[i] = val / rms
	}

	return normalized
}

// NormalizeInPlace normalizes signal in-place
func (n *Normalizer) NormalizeInPlace(signal []float64) {
	normalized := n.Normalize(signal)
	copy(signal, normalized)
}
