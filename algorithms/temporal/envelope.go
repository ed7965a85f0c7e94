package temporal

import (
	"math"
)

// Envelope provides amplitude envelope extraction
type Envelope struct{}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes RMS envelope with given frame and hop sizes
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		startIdx := i * hopSize
		endIdx := startIdx + frameSize

		if endIdx > len(signal) {
			break
		}

		sumSquares := 0.0
		for j := startIdx; j < endIdx; j++ {
			sumSquares += signal[j] * signal[j]
		}
		envelope[i] = math.Sqrt(sumSquares / float64(frameSize))
	}

	return envelope
}

// ComputePeak computes peak envelope (maximum absolute value per frame)
func (e *Envelope) ComputePeak(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		startIdx := i * hopSize
		endIdx := startIdx + frameSize

		if endIdx > len(signal) {
			break
		}

		peak := 0.0
		for j := startIdx; j < endIdx; j++ {
			abs := math.Abs(signal[j])
			if abs > peak {
				peak = abs
			}
		}
		envelope[i] = peak
	}

	return envelope
}

// ComputeSmoothed computes smoothed envelope using a centered moving average
func (e *Envelope) ComputeSmoothed(envelope []float64, windowSize int) []float64 {
	if len(envelope) == 0 || windowSize <= 0 {
		return envelope
	}

	if windowSize > len(envelope) {
		windowSize = len(envelope)
	}

	smoothed := make([]float64, len(envelope))
	halfWindow := windowSize / 2

	for i := range envelope {
		sum := 0.0
		count := 0

		for j := i - halfWindow; j <= i+halfWindow; j++ {
			if j >= 0 && j < len(envelope) {
				sum += envelope[j]
				count++
			}
		}

		if count > 0 {
			smoothed[i] = sum / float64(count)
		}
	}

	return smoothed
}

// NormalizeToPeak scales the envelope so its maximum is 1. A silent
// envelope is returned unchanged.
func (e *Envelope) NormalizeToPeak(envelope []float64) []float64 {
	peak := 0.0
	for _, v := range envelope {
		if v > peak {
			peak = v
		}
	}

	normalized := make([]float64, len(envelope))
	if peak <= 1e-10 {
		copy(normalized, envelope)
		return normalized
	}

	for i, v := range envelope {
		normalized[i] = v / peak
	}
	return normalized
}
