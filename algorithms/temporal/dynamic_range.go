package temporal

import (
	"math"
	"sort"
)

// DynamicRange analyzes amplitude dynamics and statistics
type DynamicRange struct {
	envelopeExtractor *Envelope
}

// NewDynamicRange creates a new dynamic range analyzer
func NewDynamicRange() *DynamicRange {
	return &DynamicRange{
		envelopeExtractor: NewEnvelope(),
	}
}

// ComputeRange calculates dynamic range in dB between RMS percentiles
func (dr *DynamicRange) ComputeRange(signal []float64, lowPercentile, highPercentile float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	frameSize := 1024
	hopSize := 512
	rmsValues := dr.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(rmsValues) == 0 {
		return 0.0
	}

	return dr.calculatePercentileRange(rmsValues, lowPercentile, highPercentile)
}

// ComputePeakRange calculates dynamic range in dB between peak percentiles
func (dr *DynamicRange) ComputePeakRange(signal []float64, lowPercentile, highPercentile float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	frameSize := 1024
	hopSize := 512
	peakValues := dr.envelopeExtractor.ComputePeak(signal, frameSize, hopSize)

	if len(peakValues) == 0 {
		return 0.0
	}

	return dr.calculatePercentileRange(peakValues, lowPercentile, highPercentile)
}

func (dr *DynamicRange) calculatePercentileRange(values []float64, lowPercentile, highPercentile float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	lowIdx := int(lowPercentile * float64(len(sorted)-1))
	highIdx := int(highPercentile * float64(len(sorted)-1))

	lowValue := sorted[lowIdx]
	highValue := sorted[highIdx]

	if lowValue <= 0.0 {
		lowValue = 1e-10
	}
	if highValue <= 0.0 {
		return 0.0
	}

	return 20.0 * math.Log10(highValue/lowValue)
}

// ComputeCrestFactor calculates crest factor (peak-to-RMS ratio)
func (dr *DynamicRange) ComputeCrestFactor(signal []float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	peak := 0.0
	sumSquares := 0.0

	for _, sample := range signal {
		abs := math.Abs(sample)
		if abs > peak {
			peak = abs
		}
		sumSquares += sample * sample
	}

	rms := math.Sqrt(sumSquares / float64(len(signal)))

	if rms == 0.0 {
		return 0.0
	}

	return peak / rms
}

// ComputeLoudnessRange calculates loudness range in the style of EBU R128
// (momentary loudness over 400ms windows, 10th to 95th percentile spread).
func (dr *DynamicRange) ComputeLoudnessRange(signal []float64, sampleRate int) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	windowSize := int(0.4 * float64(sampleRate))
	hopSize := windowSize / 4

	loudnessValues := dr.envelopeExtractor.ComputeRMS(signal, windowSize, hopSize)

	if len(loudnessValues) == 0 {
		return 0.0
	}

	for i := range loudnessValues {
		if loudnessValues[i] > 0 {
			loudnessValues[i] = -0.691 + 10.0*math.Log10(loudnessValues[i]*loudnessValues[i])
		} else {
			loudnessValues[i] = -70.0
		}
	}

	return dr.calculatePercentileRange(loudnessValues, 0.10, 0.95)
}

// ComputeStatistics calculates summary dynamics statistics
func (dr *DynamicRange) ComputeStatistics(signal []float64) map[string]float64 {
	stats := make(map[string]float64)

	if len(signal) == 0 {
		return stats
	}

	peak := 0.0
	sumSquares := 0.0
	sumAbs := 0.0

	for _, sample := range signal {
		abs := math.Abs(sample)
		if abs > peak {
			peak = abs
		}
		sumSquares += sample * sample
		sumAbs += abs
	}

	rms := math.Sqrt(sumSquares / float64(len(signal)))
	mean := sumAbs / float64(len(signal))

	stats["peak_amplitude"] = peak
	stats["rms_amplitude"] = rms
	stats["mean_amplitude"] = mean
	stats["crest_factor"] = dr.ComputeCrestFactor(signal)

	stats["dynamic_range_10_90"] = dr.ComputeRange(signal, 0.10, 0.90)
	stats["dynamic_range_5_95"] = dr.ComputeRange(signal, 0.05, 0.95)
	stats["peak_range_10_90"] = dr.ComputePeakRange(signal, 0.10, 0.90)

	return stats
}
