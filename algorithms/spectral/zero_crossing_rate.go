package spectral

import (
	"gonum.org/v1/gonum/stat"
)

// ZeroCrossingRate counts sign changes in the time-domain signal. Noisy
// and percussive material crosses zero far more often than sustained
// pitched material.
type ZeroCrossingRate struct {
	sampleRate int
	frameSize  int
	hopSize    int
}

// NewZeroCrossingRate creates a calculator with default framing
// (1024-sample frames, 50% overlap).
func NewZeroCrossingRate(sampleRate int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
		frameSize:  1024,
		hopSize:    512,
	}
}

// NewZeroCrossingRateWithParams creates calculator with custom parameters
func NewZeroCrossingRateWithParams(sampleRate, frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
	}
}

// Compute calculates ZCR for a single frame as crossings per second
func (zcr *ZeroCrossingRate) Compute(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := countCrossings(frame)

	frameDuration := float64(len(frame)) / float64(zcr.sampleRate)
	return float64(crossings) / frameDuration
}

// ComputeNormalized calculates ZCR as a fraction of the maximum possible
// crossings, giving a 0-1 range independent of frame size and sample rate.
func (zcr *ZeroCrossingRate) ComputeNormalized(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	maxCrossings := len(frame) - 1
	return float64(countCrossings(frame)) / float64(maxCrossings)
}

func countCrossings(frame []float64) int {
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0 && frame[i] < 0) || (frame[i-1] < 0 && frame[i] >= 0) {
			crossings++
		}
	}
	return crossings
}

// ComputeFramesNormalized calculates normalized ZCR for overlapping frames
func (zcr *ZeroCrossingRate) ComputeFramesNormalized(signal []float64) []float64 {
	if len(signal) < zcr.frameSize {
		return []float64{}
	}

	numFrames := (len(signal)-zcr.frameSize)/zcr.hopSize + 1
	zcrValues := make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		startIdx := i * zcr.hopSize
		endIdx := startIdx + zcr.frameSize

		if endIdx > len(signal) {
			break
		}

		zcrValues[i] = zcr.ComputeNormalized(signal[startIdx:endIdx])
	}

	return zcrValues
}

// ComputeStatistics calculates ZCR statistics using gonum
func (zcr *ZeroCrossingRate) ComputeStatistics(zcrValues []float64) (mean, variance, min, max float64) {
	if len(zcrValues) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(zcrValues, nil)
	variance = stat.Variance(zcrValues, nil)

	min = zcrValues[0]
	max = zcrValues[0]
	for _, value := range zcrValues {
		if value < min {
			min = value
		}
		if value > max {
			max = value
		}
	}

	return mean, variance, min, max
}
