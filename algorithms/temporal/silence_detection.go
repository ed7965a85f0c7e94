package temporal

import (
	"math"
)

// SilenceDetection finds silent stretches in the signal.
type SilenceDetection struct {
	envelopeExtractor *Envelope
}

// NewSilenceDetection creates a new silence detector
func NewSilenceDetection() *SilenceDetection {
	return &SilenceDetection{
		envelopeExtractor: NewEnvelope(),
	}
}

// DetectSilence detects silent segments in the signal. Returns
// [start, end) sample index pairs for every silent stretch at least
// minSilenceDuration seconds long.
func (sd *SilenceDetection) DetectSilence(signal []float64, sampleRate int, energyThreshold float64, minSilenceDuration float64) [][]int {
	if len(signal) == 0 {
		return [][]int{}
	}

	frameSize := int(0.025 * float64(sampleRate)) // 25ms frames
	hopSize := frameSize / 2

	energies := sd.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(energies) == 0 {
		return [][]int{}
	}

	minSilenceFrames := int(minSilenceDuration * float64(sampleRate) / float64(hopSize))

	silentFrames := make([]bool, len(energies))
	for i, energy := range energies {
		silentFrames[i] = energy < energyThreshold
	}

	var silenceSegments [][]int
	currentStart := -1

	for i, isSilent := range silentFrames {
		if isSilent && currentStart == -1 {
			currentStart = i
		} else if !isSilent && currentStart != -1 {
			segmentLength := i - currentStart
			if segmentLength >= minSilenceFrames {
				silenceSegments = append(silenceSegments, []int{currentStart * hopSize, i * hopSize})
			}
			currentStart = -1
		}
	}

	if currentStart != -1 {
		segmentLength := len(silentFrames) - currentStart
		if segmentLength >= minSilenceFrames {
			silenceSegments = append(silenceSegments, []int{currentStart * hopSize, len(signal)})
		}
	}

	return silenceSegments
}

// ComputeSilenceRatio calculates the fraction of frames below threshold
func (sd *SilenceDetection) ComputeSilenceRatio(signal []float64, sampleRate int, energyThreshold float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	frameSize := int(0.025 * float64(sampleRate))
	hopSize := frameSize / 2

	energies := sd.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(energies) == 0 {
		return 0.0
	}

	silentFrames := 0
	for _, energy := range energies {
		if energy < energyThreshold {
			silentFrames++
		}
	}

	return float64(silentFrames) / float64(len(energies))
}

// AdaptiveThreshold derives an energy threshold from signal statistics
func (sd *SilenceDetection) AdaptiveThreshold(signal []float64, sampleRate int) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	frameSize := int(0.025 * float64(sampleRate))
	hopSize := frameSize / 2

	energies := sd.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(energies) == 0 {
		return 0.0
	}

	mean := 0.0
	for _, energy := range energies {
		mean += energy
	}
	mean /= float64(len(energies))

	variance := 0.0
	for _, energy := range energies {
		diff := energy - mean
		variance += diff * diff
	}
	variance /= float64(len(energies))

	threshold := mean - 2.0*math.Sqrt(variance)
	if threshold < 0 {
		threshold = mean * 0.1
	}

	return threshold
}
