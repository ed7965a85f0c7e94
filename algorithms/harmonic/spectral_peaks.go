package harmonic

import (
	"math"
	"sort"
)

// SpectralPeak represents a detected spectral peak
type SpectralPeak struct {
	Frequency float64 // Peak frequency in Hz
	Magnitude float64 // Peak magnitude
	BinIndex  int     // Original FFT bin index
	Harmonic  int     // Harmonic number (0 = fundamental), -1 if unassigned
}

// SpectralPeaks provides harmonic-aware peak detection and analysis
type SpectralPeaks struct {
	sampleRate      int
	minPeakHeight   float64
	minPeakDistance float64 // Minimum distance between peaks in Hz
	maxPeaks        int
}

// NewSpectralPeaks creates a new spectral peaks analyzer
func NewSpectralPeaks(sampleRate int, minPeakHeight, minPeakDistance float64, maxPeaks int) *SpectralPeaks {
	return &SpectralPeaks{
		sampleRate:      sampleRate,
		minPeakHeight:   minPeakHeight,
		minPeakDistance: minPeakDistance,
		maxPeaks:        maxPeaks,
	}
}

// DetectPeaks detects spectral peaks in a magnitude spectrum, keeping the
// strongest peak within each minimum-distance neighborhood. Returned
// peaks are sorted by magnitude descending.
func (sp *SpectralPeaks) DetectPeaks(magnitudeSpectrum []float64, windowSize int) []SpectralPeak {
	if len(magnitudeSpectrum) == 0 {
		return []SpectralPeak{}
	}

	freqResolution := float64(sp.sampleRate) / float64(windowSize)
	minDistanceBins := max(int(sp.minPeakDistance/freqResolution), 1)

	var peaks []SpectralPeak

	for i := 1; i < len(magnitudeSpectrum)-1; i++ {
		if magnitudeSpectrum[i] > magnitudeSpectrum[i-1] &&
			magnitudeSpectrum[i] > magnitudeSpectrum[i+1] &&
			magnitudeSpectrum[i] >= sp.minPeakHeight {

			validPeak := true
			for j := 0; j < len(peaks); j++ {
				binDistance := i - peaks[j].BinIndex
				if binDistance < 0 {
					binDistance = -binDistance
				}
				if binDistance < minDistanceBins {
					if magnitudeSpectrum[i] > peaks[j].Magnitude {
						peaks = append(peaks[:j], peaks[j+1:]...)
					} else {
						validPeak = false
					}
					break
				}
			}

			if validPeak {
				peaks = append(peaks, SpectralPeak{
					Frequency: float64(i) * freqResolution,
					Magnitude: magnitudeSpectrum[i],
					BinIndex:  i,
					Harmonic:  -1,
				})
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})

	if len(peaks) > sp.maxPeaks {
		peaks = peaks[:sp.maxPeaks]
	}

	return peaks
}

// RefineWithInterpolation refines peak locations using parabolic
// interpolation for sub-bin frequency accuracy.
func (sp *SpectralPeaks) RefineWithInterpolation(magnitudeSpectrum []float64, peaks []SpectralPeak, windowSize int) []SpectralPeak {
	freqResolution := float64(sp.sampleRate) / float64(windowSize)
	refinedPeaks := make([]SpectralPeak, len(peaks))

	for i, peak := range peaks {
		refinedPeak := peak
		binIdx := peak.BinIndex

		if binIdx > 0 && binIdx < len(magnitudeSpectrum)-1 {
			y1 := magnitudeSpectrum[binIdx-1]
			y2 := magnitudeSpectrum[binIdx]
			y3 := magnitudeSpectrum[binIdx+1]

			denom := 2.0 * (2.0*y2 - y1 - y3)
			if math.Abs(denom) > 1e-10 {
				offset := (y3 - y1) / denom

				a := 0.5 * (y1 - 2.0*y2 + y3)
				b := 0.5 * (y3 - y1)

				refinedPeak.Frequency = (float64(binIdx) + offset) * freqResolution
				refinedPeak.Magnitude = y2 + a*offset*offset + b*offset
			}
		}

		refinedPeaks[i] = refinedPeak
	}

	return refinedPeaks
}

// AssignHarmonics assigns harmonic numbers to peaks based on the
// fundamental frequency. tolerance is relative (e.g. 0.05 for 5%).
func (sp *SpectralPeaks) AssignHarmonics(peaks []SpectralPeak, f0 float64, tolerance float64) []SpectralPeak {
	assignedPeaks := make([]SpectralPeak, len(peaks))
	copy(assignedPeaks, peaks)

	if f0 <= 0 {
		return assignedPeaks
	}

	for i := range assignedPeaks {
		bestHarmonic := -1
		bestError := math.Inf(1)

		for harmonic := 1; harmonic <= 20; harmonic++ {
			expectedFreq := f0 * float64(harmonic)
			absError := math.Abs(assignedPeaks[i].Frequency - expectedFreq)
			relativeError := absError / expectedFreq

			if relativeError < tolerance && absError < bestError {
				bestError = absError
				bestHarmonic = harmonic
			}
		}

		if bestHarmonic > 0 {
			assignedPeaks[i].Harmonic = bestHarmonic - 1
		}
	}

	return assignedPeaks
}

// FilterHarmonicPeaks keeps only peaks assigned to harmonics, sorted by
// harmonic number.
func (sp *SpectralPeaks) FilterHarmonicPeaks(peaks []SpectralPeak) []SpectralPeak {
	var harmonicPeaks []SpectralPeak

	for _, peak := range peaks {
		if peak.Harmonic >= 0 {
			harmonicPeaks = append(harmonicPeaks, peak)
		}
	}

	sort.Slice(harmonicPeaks, func(i, j int) bool {
		return harmonicPeaks[i].Harmonic < harmonicPeaks[j].Harmonic
	})

	return harmonicPeaks
}

// HarmonicEnergyRatio returns the fraction of total peak energy carried
// by peaks assigned to harmonics. Returns 0 when no peaks were found.
func (sp *SpectralPeaks) HarmonicEnergyRatio(peaks []SpectralPeak) float64 {
	totalEnergy := 0.0
	harmonicEnergy := 0.0

	for _, peak := range peaks {
		energy := peak.Magnitude * peak.Magnitude
		totalEnergy += energy
		if peak.Harmonic >= 0 {
			harmonicEnergy += energy
		}
	}

	if totalEnergy <= 1e-10 {
		return 0.0
	}

	return harmonicEnergy / totalEnergy
}

// ComputeInharmonicity measures how far harmonic peaks deviate from
// exact integer multiples of f0, energy-weighted and normalized by f0.
// Returns 0 for a perfectly harmonic series.
func (sp *SpectralPeaks) ComputeInharmonicity(peaks []SpectralPeak, f0 float64) float64 {
	if f0 <= 0 {
		return 0.0
	}

	harmonicPeaks := sp.FilterHarmonicPeaks(peaks)
	if len(harmonicPeaks) == 0 {
		return 0.0
	}

	totalEnergy := 0.0
	weightedDeviation := 0.0

	for _, peak := range harmonicPeaks {
		energy := peak.Magnitude * peak.Magnitude
		expectedFreq := f0 * float64(peak.Harmonic+1)

		totalEnergy += energy
		weightedDeviation += math.Abs(peak.Frequency-expectedFreq) * energy
	}

	if totalEnergy <= 1e-10 {
		return 0.0
	}

	return weightedDeviation / (f0 * totalEnergy)
}

// AnalyzeHarmonicSeries summarizes the harmonic series structure
func (sp *SpectralPeaks) AnalyzeHarmonicSeries(peaks []SpectralPeak, f0 float64) map[string]float64 {
	analysis := make(map[string]float64)

	harmonicPeaks := sp.FilterHarmonicPeaks(peaks)
	if len(harmonicPeaks) == 0 {
		return analysis
	}

	analysis["num_harmonics"] = float64(len(harmonicPeaks))

	fundamentalMag := 0.0
	for _, peak := range harmonicPeaks {
		if peak.Harmonic == 0 {
			fundamentalMag = peak.Magnitude
			break
		}
	}
	analysis["fundamental_magnitude"] = fundamentalMag

	totalEnergy := 0.0
	for _, peak := range harmonicPeaks {
		totalEnergy += peak.Magnitude * peak.Magnitude
	}
	analysis["total_harmonic_energy"] = totalEnergy

	oddEnergy := 0.0
	evenEnergy := 0.0
	for _, peak := range harmonicPeaks {
		energy := peak.Magnitude * peak.Magnitude
		if (peak.Harmonic+1)%2 == 1 {
			oddEnergy += energy
		} else {
			evenEnergy += energy
		}
	}
	// Floor keeps the ratio finite for series with no even harmonics
	analysis["odd_even_ratio"] = oddEnergy / math.Max(evenEnergy, 1e-10)

	if len(harmonicPeaks) >= 2 {
		// Linear regression on log(magnitude) vs harmonic number
		var sumX, sumY, sumXY, sumXX float64
		n := float64(len(harmonicPeaks))

		for _, peak := range harmonicPeaks {
			x := float64(peak.Harmonic + 1)
			y := math.Log(peak.Magnitude + 1e-10)

			sumX += x
			sumY += y
			sumXY += x * y
			sumXX += x * x
		}

		slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
		analysis["harmonic_decay_slope"] = slope
	}

	return analysis
}
