package harmonic

import (
	"fmt"
	"math"

	"github.com/Skymero/lavoe/algorithms/common"
)

// HPSS separates a magnitude spectrogram into harmonic and percussive
// components by median filtering. Harmonic content forms horizontal
// ridges (stable across time), percussive content vertical ones (spread
// across frequency), so a median filter along each axis enhances one
// component while suppressing the other. Soft Wiener masks built from
// the enhanced spectrograms split the original magnitudes.
type HPSS struct {
	harmonicKernel   int     // median window across time frames
	percussiveKernel int     // median window across frequency bins
	power            float64 // mask exponent
}

// HPSSResult contains the separated components and their energy split
type HPSSResult struct {
	Harmonic         [][]float64 `json:"harmonic"`          // harmonic-masked magnitude
	Percussive       [][]float64 `json:"percussive"`        // percussive-masked magnitude
	HarmonicEnergy   float64     `json:"harmonic_energy"`   // sum of squared harmonic magnitudes
	PercussiveEnergy float64     `json:"percussive_energy"` // sum of squared percussive magnitudes
	HarmonicRatio    float64     `json:"harmonic_ratio"`    // harmonic share of total energy
	PercussiveRatio  float64     `json:"percussive_ratio"`  // percussive share of total energy
}

// NewHPSS creates a separator with standard kernel sizes (31 frames by
// 31 bins) and quadratic masks.
func NewHPSS() *HPSS {
	return NewHPSSWithParams(31, 31, 2.0)
}

// NewHPSSWithParams creates a separator with custom median kernel sizes
// and mask exponent.
func NewHPSSWithParams(harmonicKernel, percussiveKernel int, power float64) *HPSS {
	if harmonicKernel < 3 {
		harmonicKernel = 3
	}
	if percussiveKernel < 3 {
		percussiveKernel = 3
	}
	if power <= 0 {
		power = 2.0
	}
	return &HPSS{
		harmonicKernel:   harmonicKernel,
		percussiveKernel: percussiveKernel,
		power:            power,
	}
}

// Separate splits a magnitude spectrogram indexed [frame][bin] into
// harmonic and percussive components.
func (h *HPSS) Separate(magnitude [][]float64) (*HPSSResult, error) {
	if len(magnitude) == 0 || len(magnitude[0]) == 0 {
		return nil, fmt.Errorf("empty magnitude spectrogram")
	}

	numFrames := len(magnitude)
	numBins := len(magnitude[0])

	// Harmonic enhancement: median across time per frequency bin
	harmonicEnhanced := make([][]float64, numFrames)
	for t := range harmonicEnhanced {
		harmonicEnhanced[t] = make([]float64, numBins)
	}
	binSeries := make([]float64, numFrames)
	for f := 0; f < numBins; f++ {
		for t := 0; t < numFrames; t++ {
			binSeries[t] = magnitude[t][f]
		}
		filtered := common.MedianFilter(binSeries, h.harmonicKernel)
		for t := 0; t < numFrames; t++ {
			harmonicEnhanced[t][f] = filtered[t]
		}
	}

	// Percussive enhancement: median across frequency per frame
	percussiveEnhanced := make([][]float64, numFrames)
	for t := 0; t < numFrames; t++ {
		percussiveEnhanced[t] = common.MedianFilter(magnitude[t], h.percussiveKernel)
	}

	// Wiener soft masks and energy split
	harmonic := make([][]float64, numFrames)
	percussive := make([][]float64, numFrames)
	harmonicEnergy := 0.0
	percussiveEnergy := 0.0

	for t := 0; t < numFrames; t++ {
		harmonic[t] = make([]float64, numBins)
		percussive[t] = make([]float64, numBins)

		for f := 0; f < numBins; f++ {
			hp := math.Pow(harmonicEnhanced[t][f], h.power)
			pp := math.Pow(percussiveEnhanced[t][f], h.power)

			harmonicMask := 0.5
			if hp+pp > 1e-10 {
				harmonicMask = hp / (hp + pp)
			}

			harmonicMag := magnitude[t][f] * harmonicMask
			percussiveMag := magnitude[t][f] * (1.0 - harmonicMask)

			harmonic[t][f] = harmonicMag
			percussive[t][f] = percussiveMag

			harmonicEnergy += harmonicMag * harmonicMag
			percussiveEnergy += percussiveMag * percussiveMag
		}
	}

	totalEnergy := harmonicEnergy + percussiveEnergy + 1e-9

	return &HPSSResult{
		Harmonic:         harmonic,
		Percussive:       percussive,
		HarmonicEnergy:   harmonicEnergy,
		PercussiveEnergy: percussiveEnergy,
		HarmonicRatio:    harmonicEnergy / totalEnergy,
		PercussiveRatio:  percussiveEnergy / totalEnergy,
	}, nil
}
