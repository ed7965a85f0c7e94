package temporal

import (
	"math"
	"sort"

	"github.com/Skymero/lavoe/algorithms/spectral"
)

// OnsetDetection detects note onsets from spectral flux or energy rise.
type OnsetDetection struct {
	spectralFlux      *spectral.SpectralFlux
	envelopeExtractor *Envelope
	stft              *spectral.STFT
}

// NewOnsetDetection creates a new onset detector
func NewOnsetDetection() *OnsetDetection {
	return &OnsetDetection{
		spectralFlux:      spectral.NewSpectralFlux(),
		envelopeExtractor: NewEnvelope(),
		stft:              spectral.NewSTFT(),
	}
}

// DetectOnsets detects onsets using spectral flux. Returns onset
// positions as sample indices.
func (od *OnsetDetection) DetectOnsets(signal []float64, sampleRate int, threshold float64, minInterval float64) ([]int, error) {
	if len(signal) == 0 {
		return []int{}, nil
	}

	windowSize := 1024
	hopSize := 512
	stftResult, err := od.stft.ComputeWithWindow(signal, windowSize, hopSize, sampleRate, nil)
	if err != nil {
		return nil, err
	}

	return od.DetectOnsetsFromMagnitude(stftResult.Magnitude, hopSize, sampleRate, threshold, minInterval), nil
}

// DetectOnsetsFromMagnitude detects onsets on a precomputed magnitude
// spectrogram. Useful when the caller has already separated the signal
// into components and wants onsets of one component only.
func (od *OnsetDetection) DetectOnsetsFromMagnitude(magnitude [][]float64, hopSize, sampleRate int, threshold, minInterval float64) []int {
	flux := od.spectralFlux.Compute(magnitude)
	if len(flux) == 0 {
		return []int{}
	}

	if threshold <= 0 {
		threshold = od.AdaptiveThreshold(flux)
	}

	onsetFrames := od.findFluxPeaks(flux, threshold, minInterval, hopSize, sampleRate)

	onsetSamples := make([]int, len(onsetFrames))
	for i, frameIdx := range onsetFrames {
		onsetSamples[i] = frameIdx * hopSize
	}

	return onsetSamples
}

// DetectOnsetsEnergy detects onsets from rises in the RMS envelope
func (od *OnsetDetection) DetectOnsetsEnergy(signal []float64, sampleRate int, threshold float64, minInterval float64) []int {
	if len(signal) == 0 {
		return []int{}
	}

	frameSize := 512
	hopSize := 256
	envelope := od.envelopeExtractor.ComputeRMS(signal, frameSize, hopSize)

	if len(envelope) == 0 {
		return []int{}
	}

	// Half-wave rectified energy derivative
	energyDiff := make([]float64, len(envelope)-1)
	for i := 0; i < len(energyDiff); i++ {
		diff := envelope[i+1] - envelope[i]
		if diff > 0 {
			energyDiff[i] = diff
		}
	}

	onsetFrames := od.findFluxPeaks(energyDiff, threshold, minInterval, hopSize, sampleRate)

	onsetSamples := make([]int, len(onsetFrames))
	for i, frameIdx := range onsetFrames {
		onsetSamples[i] = frameIdx * hopSize
	}

	return onsetSamples
}

// findFluxPeaks finds local maxima above threshold, enforcing a minimum
// spacing between accepted peaks.
func (od *OnsetDetection) findFluxPeaks(flux []float64, threshold float64, minInterval float64, hopSize int, sampleRate int) []int {
	if len(flux) < 3 {
		return []int{}
	}

	minIntervalFrames := int(minInterval * float64(sampleRate) / float64(hopSize))

	var peaks []int
	lastPeakFrame := -minIntervalFrames

	for i := 1; i < len(flux)-1; i++ {
		if flux[i] > flux[i-1] &&
			flux[i] > flux[i+1] &&
			flux[i] >= threshold &&
			i-lastPeakFrame >= minIntervalFrames {
			peaks = append(peaks, i)
			lastPeakFrame = i
		}
	}

	return peaks
}

// BacktrackOnsets moves each onset back to the nearest preceding local
// minimum of the envelope, so segments start before the transient rather
// than on its peak. Onsets and envelope share the same hop grid.
func (od *OnsetDetection) BacktrackOnsets(onsetSamples []int, envelope []float64, hopSize int) []int {
	if len(onsetSamples) == 0 || len(envelope) < 3 || hopSize <= 0 {
		return onsetSamples
	}

	var minima []int
	minima = append(minima, 0)
	for i := 1; i < len(envelope)-1; i++ {
		if envelope[i] <= envelope[i-1] && envelope[i] < envelope[i+1] {
			minima = append(minima, i)
		}
	}

	backtracked := make([]int, len(onsetSamples))
	for i, onset := range onsetSamples {
		onsetFrame := onset / hopSize

		// Last minimum at or before the onset frame
		idx := sort.SearchInts(minima, onsetFrame+1) - 1
		if idx < 0 {
			idx = 0
		}
		backtracked[i] = minima[idx] * hopSize
	}

	return backtracked
}

// DetectOnsetsComplex detects onsets using both spectral flux and energy
// rise, merging the two lists.
func (od *OnsetDetection) DetectOnsetsComplex(signal []float64, sampleRate int) ([]int, error) {
	if len(signal) == 0 {
		return []int{}, nil
	}

	fluxThreshold := 0.3
	energyThreshold := 0.1
	minInterval := 0.05 // 50ms

	fluxOnsets, err := od.DetectOnsets(signal, sampleRate, fluxThreshold, minInterval)
	if err != nil {
		return nil, err
	}

	energyOnsets := od.DetectOnsetsEnergy(signal, sampleRate, energyThreshold, minInterval)

	return od.combineOnsets(fluxOnsets, energyOnsets, int(minInterval*float64(sampleRate))), nil
}

// combineOnsets merges onset lists and removes duplicates within tolerance
func (od *OnsetDetection) combineOnsets(onsets1, onsets2 []int, tolerance int) []int {
	allOnsets := make([]int, 0, len(onsets1)+len(onsets2))
	allOnsets = append(allOnsets, onsets1...)
	allOnsets = append(allOnsets, onsets2...)

	if len(allOnsets) == 0 {
		return []int{}
	}

	sort.Ints(allOnsets)

	var uniqueOnsets []int
	for _, onset := range allOnsets {
		if len(uniqueOnsets) == 0 || onset-uniqueOnsets[len(uniqueOnsets)-1] > tolerance {
			uniqueOnsets = append(uniqueOnsets, onset)
		}
	}

	return uniqueOnsets
}

// AdaptiveThreshold calculates a flux threshold from flux statistics
// (mean plus two standard deviations).
func (od *OnsetDetection) AdaptiveThreshold(flux []float64) float64 {
	if len(flux) == 0 {
		return 0.0
	}

	mean := 0.0
	for _, val := range flux {
		mean += val
	}
	mean /= float64(len(flux))

	variance := 0.0
	for _, val := range flux {
		diff := val - mean
		variance += diff * diff
	}
	variance /= float64(len(flux))

	return mean + 2.0*math.Sqrt(variance)
}
