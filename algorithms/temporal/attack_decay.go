package temporal

import (
	"math"
)

// AttackDecay analyzes transient characteristics of audio signals
type AttackDecay struct {
	envelopeExtractor *Envelope
}

// NewAttackDecay creates a new attack/decay analyzer
func NewAttackDecay() *AttackDecay {
	return &AttackDecay{
		envelopeExtractor: NewEnvelope(),
	}
}

// ComputeAttackTime calculates attack time in seconds for each envelope
// peak above threshold, measured from where the envelope last crossed
// the noise floor up to the peak.
func (ad *AttackDecay) ComputeAttackTime(signal []float64, sampleRate int, threshold float64) []float64 {
	if len(signal) == 0 {
		return []float64{}
	}

	frameSize := 512
	hopSize := 256
	envelope := ad.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(envelope) == 0 {
		return []float64{}
	}

	peaks := ad.findPeaks(envelope, threshold)
	attackTimes := make([]float64, len(peaks))

	for i, peakIdx := range peaks {
		startIdx := ad.findAttackStart(envelope, peakIdx, threshold*0.1)

		attackFrames := peakIdx - startIdx
		attackTimes[i] = float64(attackFrames*hopSize) / float64(sampleRate)
	}

	return attackTimes
}

// ComputeDecayTime calculates decay time in seconds for each envelope
// peak above threshold, measured from the peak down to 10% of peak level.
func (ad *AttackDecay) ComputeDecayTime(signal []float64, sampleRate int, threshold float64) []float64 {
	if len(signal) == 0 {
		return []float64{}
	}

	frameSize := 512
	hopSize := 256
	envelope := ad.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(envelope) == 0 {
		return []float64{}
	}

	peaks := ad.findPeaks(envelope, threshold)
	decayTimes := make([]float64, len(peaks))

	for i, peakIdx := range peaks {
		sustainLevel := envelope[peakIdx] * 0.1
		endIdx := ad.findDecayEnd(envelope, peakIdx, sustainLevel)

		decayFrames := endIdx - peakIdx
		decayTimes[i] = float64(decayFrames*hopSize) / float64(sampleRate)
	}

	return decayTimes
}

func (ad *AttackDecay) findPeaks(envelope []float64, threshold float64) []int {
	if len(envelope) < 3 {
		return []int{}
	}

	var peaks []int

	for i := 1; i < len(envelope)-1; i++ {
		if envelope[i] > envelope[i-1] &&
			envelope[i] > envelope[i+1] &&
			envelope[i] >= threshold {
			peaks = append(peaks, i)
		}
	}

	return peaks
}

func (ad *AttackDecay) findAttackStart(envelope []float64, peakIdx int, noiseFloor float64) int {
	for i := peakIdx; i >= 0; i-- {
		if envelope[i] <= noiseFloor {
			return i
		}
	}
	return 0
}

func (ad *AttackDecay) findDecayEnd(envelope []float64, peakIdx int, sustainLevel float64) int {
	for i := peakIdx; i < len(envelope); i++ {
		if envelope[i] <= sustainLevel {
			return i
		}
	}
	return len(envelope) - 1
}

// ComputeTransientRatio calculates the fraction of energy living in
// transient regions (frames with a rapidly changing envelope).
func (ad *AttackDecay) ComputeTransientRatio(signal []float64, sampleRate int) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	frameSize := 512
	hopSize := 256
	envelope := ad.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(envelope) == 0 {
		return 0.0
	}

	derivative := make([]float64, len(envelope)-1)
	for i := 0; i < len(derivative); i++ {
		derivative[i] = math.Abs(envelope[i+1] - envelope[i])
	}

	transientEnergy := 0.0
	steadyEnergy := 0.0
	threshold := ad.calculateDerivativeThreshold(derivative)

	for i, deriv := range derivative {
		energy := envelope[i] * envelope[i]
		if deriv > threshold {
			transientEnergy += energy
		} else {
			steadyEnergy += energy
		}
	}

	if steadyEnergy == 0 {
		return 1.0
	}

	return transientEnergy / (transientEnergy + steadyEnergy)
}

func (ad *AttackDecay) calculateDerivativeThreshold(derivative []float64) float64 {
	if len(derivative) == 0 {
		return 0.0
	}

	mean := 0.0
	for _, deriv := range derivative {
		mean += deriv
	}
	mean /= float64(len(derivative))

	variance := 0.0
	for _, deriv := range derivative {
		diff := deriv - mean
		variance += diff * diff
	}
	variance /= float64(len(derivative))

	return mean + 2.0*math.Sqrt(variance)
}
