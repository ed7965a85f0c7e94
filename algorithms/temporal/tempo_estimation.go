package temporal

import (
	"math"
)

// TempoEstimation estimates tempo from onset spacing or envelope
// periodicity.
type TempoEstimation struct {
	onsetDetector     *OnsetDetection
	envelopeExtractor *Envelope
}

// NewTempoEstimation creates a new tempo estimator
func NewTempoEstimation() *TempoEstimation {
	return &TempoEstimation{
		onsetDetector:     NewOnsetDetection(),
		envelopeExtractor: NewEnvelope(),
	}
}

// EstimateTempo estimates tempo in BPM from inter-onset intervals
func (te *TempoEstimation) EstimateTempo(signal []float64, sampleRate int) (float64, error) {
	if len(signal) == 0 {
		return 0.0, nil
	}

	onsets, err := te.onsetDetector.DetectOnsetsComplex(signal, sampleRate)
	if err != nil {
		return 0.0, err
	}

	if len(onsets) < 2 {
		return 0.0, nil
	}

	intervals := make([]float64, len(onsets)-1)
	for i := 0; i < len(intervals); i++ {
		intervalSamples := onsets[i+1] - onsets[i]
		intervals[i] = float64(intervalSamples) / float64(sampleRate)
	}

	return te.findTempoFromIntervals(intervals), nil
}

// EstimateTempoAutocorrelation estimates tempo from periodicity of the
// RMS envelope. Returns 0 when the signal is too short to analyze.
func (te *TempoEstimation) EstimateTempoAutocorrelation(signal []float64, sampleRate int) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	// 100ms frames track beat-scale energy movement
	frameSize := int(0.1 * float64(sampleRate))
	hopSize := frameSize / 4

	envelope := te.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(envelope) < 10 {
		return 0.0
	}

	maxLag := len(envelope) / 2
	autocorr := te.calculateAutocorrelation(envelope, maxLag)

	return te.findTempoFromAutocorrelation(autocorr, hopSize, sampleRate)
}

// findTempoFromIntervals picks the most common tempo bin among the
// intervals, within the 30-300 BPM plausible range.
func (te *TempoEstimation) findTempoFromIntervals(intervals []float64) float64 {
	if len(intervals) == 0 {
		return 0.0
	}

	tempoRange := []float64{60, 70, 80, 90, 100, 110, 120, 130, 140, 150, 160, 170, 180, 200}
	tempoCounts := make([]int, len(tempoRange))

	for _, interval := range intervals {
		if interval > 0.2 && interval < 2.0 {
			tempo := 60.0 / interval

			bestIdx := 0
			bestDiff := math.Abs(tempo - tempoRange[0])
			for i, refTempo := range tempoRange {
				diff := math.Abs(tempo - refTempo)
				if diff < bestDiff {
					bestDiff = diff
					bestIdx = i
				}
			}

			if bestDiff < 10.0 {
				tempoCounts[bestIdx]++
			}
		}
	}

	maxCount := 0
	bestTempo := 120.0
	for i, count := range tempoCounts {
		if count > maxCount {
			maxCount = count
			bestTempo = tempoRange[i]
		}
	}

	return bestTempo
}

func (te *TempoEstimation) calculateAutocorrelation(signal []float64, maxLag int) []float64 {
	if maxLag > len(signal) {
		maxLag = len(signal)
	}

	autocorr := make([]float64, maxLag)

	for lag := 0; lag < maxLag; lag++ {
		sum := 0.0
		count := 0

		for i := 0; i < len(signal)-lag; i++ {
			sum += signal[i] * signal[i+lag]
			count++
		}

		if count > 0 {
			autocorr[lag] = sum / float64(count)
		}
	}

	if len(autocorr) > 0 && autocorr[0] > 0 {
		for i := range autocorr {
			autocorr[i] /= autocorr[0]
		}
	}

	return autocorr
}

// findTempoFromAutocorrelation locates the strongest periodicity peak in
// the 60-180 BPM range.
func (te *TempoEstimation) findTempoFromAutocorrelation(autocorr []float64, hopSize int, sampleRate int) float64 {
	if len(autocorr) < 10 {
		return 0.0
	}

	timePerFrame := float64(hopSize) / float64(sampleRate)

	minPeriodSec := 60.0 / 180.0
	maxPeriodSec := 1.0

	minLag := int(minPeriodSec / timePerFrame)
	maxLag := int(maxPeriodSec / timePerFrame)

	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(autocorr) {
		maxLag = len(autocorr) - 1
	}

	maxVal := 0.0
	bestLag := 0

	for lag := minLag; lag <= maxLag; lag++ {
		if lag > 0 && lag < len(autocorr)-1 {
			if autocorr[lag] > autocorr[lag-1] &&
				autocorr[lag] > autocorr[lag+1] &&
				autocorr[lag] > maxVal {
				maxVal = autocorr[lag]
				bestLag = lag
			}
		}
	}

	if bestLag == 0 {
		return 120.0
	}

	period := float64(bestLag) * timePerFrame
	return 60.0 / period
}
