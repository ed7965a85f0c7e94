package spectral

import (
	"math"
	"sort"
)

// SpectralContrast measures the dB difference between spectral peaks and
// valleys in logarithmically spaced frequency bands. Harmonic material
// shows high contrast, noise-like material low contrast.
type SpectralContrast struct {
	sampleRate  int
	numBands    int
	freqBins    []float64
	bandEdges   []int
	initialized bool
}

// NewSpectralContrast creates a new spectral contrast calculator
func NewSpectralContrast(sampleRate int, numBands int) *SpectralContrast {
	return &SpectralContrast{
		sampleRate: sampleRate,
		numBands:   numBands,
	}
}

// Compute calculates per-band contrast for a single magnitude spectrum
func (sc *SpectralContrast) Compute(magnitudeSpectrum []float64) []float64 {
	if len(magnitudeSpectrum) == 0 {
		return []float64{}
	}

	if !sc.initialized || len(sc.freqBins) != len(magnitudeSpectrum) {
		sc.initializeBands(len(magnitudeSpectrum))
	}

	contrast := make([]float64, sc.numBands)

	for band := 0; band < sc.numBands; band++ {
		startBin := sc.bandEdges[band]
		endBin := min(sc.bandEdges[band+1], len(magnitudeSpectrum))

		if startBin >= endBin {
			contrast[band] = 0.0
			continue
		}

		contrast[band] = sc.calculateBandContrast(magnitudeSpectrum[startBin:endBin])
	}

	return contrast
}

// ComputeFrames processes multiple frames efficiently
func (sc *SpectralContrast) ComputeFrames(spectrogram [][]float64) [][]float64 {
	if len(spectrogram) == 0 {
		return [][]float64{}
	}

	contrasts := make([][]float64, len(spectrogram))

	for t, magnitudeSpectrum := range spectrogram {
		contrasts[t] = sc.Compute(magnitudeSpectrum)
	}

	return contrasts
}

// calculateBandContrast compares the top and bottom 20% of power values
// within a band, in dB.
func (sc *SpectralContrast) calculateBandContrast(bandSpectrum []float64) float64 {
	if len(bandSpectrum) == 0 {
		return 0.0
	}

	sortedPower := make([]float64, len(bandSpectrum))
	for i, mag := range bandSpectrum {
		sortedPower[i] = mag * mag
	}
	sort.Float64s(sortedPower)

	quantileCount := max(int(0.2*float64(len(sortedPower))), 1)

	valleyEnergy := 0.0
	for i := 0; i < quantileCount; i++ {
		valleyEnergy += sortedPower[i]
	}
	valleyEnergy /= float64(quantileCount)

	peakEnergy := 0.0
	for i := len(sortedPower) - quantileCount; i < len(sortedPower); i++ {
		peakEnergy += sortedPower[i]
	}
	peakEnergy /= float64(quantileCount)

	if valleyEnergy <= 0 {
		valleyEnergy = 1e-10
	}
	if peakEnergy <= 0 {
		return 0.0
	}

	return 10.0 * math.Log10(peakEnergy/valleyEnergy)
}

// initializeBands creates logarithmically spaced band boundaries from
// 200 Hz up to Nyquist.
func (sc *SpectralContrast) initializeBands(numBins int) {
	sc.freqBins = make([]float64, numBins)
	sc.bandEdges = make([]int, sc.numBands+1)

	nyquist := float64(sc.sampleRate) / 2.0
	for i := 0; i < numBins; i++ {
		sc.freqBins[i] = float64(i) * nyquist / float64(numBins-1)
	}

	minFreq := 200.0
	maxFreq := nyquist
	if maxFreq <= minFreq {
		maxFreq = minFreq * 2
	}

	logMinFreq := math.Log10(minFreq)
	logMaxFreq := math.Log10(maxFreq)
	logStep := (logMaxFreq - logMinFreq) / float64(sc.numBands)

	for i := 0; i <= sc.numBands; i++ {
		freq := math.Pow(10.0, logMinFreq+float64(i)*logStep)

		binIdx := int(freq * float64(numBins-1) / nyquist)
		if binIdx >= numBins {
			binIdx = numBins - 1
		}
		if binIdx < 0 {
			binIdx = 0
		}

		sc.bandEdges[i] = binIdx
	}

	// Band edges must be strictly increasing
	for i := 1; i <= sc.numBands; i++ {
		if sc.bandEdges[i] <= sc.bandEdges[i-1] {
			sc.bandEdges[i] = sc.bandEdges[i-1] + 1
		}
	}

	sc.initialized = true
}

// ComputeMean calculates mean spectral contrast per band across frames
func (sc *SpectralContrast) ComputeMean(contrasts [][]float64) []float64 {
	if len(contrasts) == 0 {
		return []float64{}
	}

	numBands := len(contrasts[0])
	meanContrast := make([]float64, numBands)

	for band := 0; band < numBands; band++ {
		sum := 0.0
		count := 0

		for t := range contrasts {
			if band < len(contrasts[t]) {
				sum += contrasts[t][band]
				count++
			}
		}

		if count > 0 {
			meanContrast[band] = sum / float64(count)
		}
	}

	return meanContrast
}
