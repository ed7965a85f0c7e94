package chroma

import (
	"math"

	"github.com/Skymero/lavoe/algorithms/spectral"
)

// ChromaSTFT computes a 12-bin chromagram from the STFT magnitude
// spectrogram. Each FFT bin is mapped to the pitch class of its nearest
// equal-tempered semitone (octave-folded, A4 tunable), and bin energies
// are accumulated per pitch class.
type ChromaSTFT struct {
	sampleRate int
	stft       *spectral.STFT
	tuningFreq float64 // A4 reference (default 440 Hz)
	chromaBins int
	minFreq    float64
	maxFreq    float64
}

// NewChromaSTFT creates a chromagram calculator with the given A4 tuning.
func NewChromaSTFT(sampleRate int, tuningFreq float64) *ChromaSTFT {
	return &ChromaSTFT{
		sampleRate: sampleRate,
		stft:       spectral.NewSTFT(),
		tuningFreq: tuningFreq,
		chromaBins: 12,
		minFreq:    80.0,   // approximate E2
		maxFreq:    8000.0, // high enough for harmonics
	}
}

// NewChromaSTFTDefault creates a chromagram calculator with A4=440 Hz.
func NewChromaSTFTDefault(sampleRate int) *ChromaSTFT {
	return NewChromaSTFT(sampleRate, 440.0)
}

// ComputeChroma computes the chromagram of a signal. The result is
// indexed [frame][pitchClass] with each frame normalized to unit sum.
func (cs *ChromaSTFT) ComputeChroma(signal []float64, windowSize, hopSize int, window spectral.Window) ([][]float64, error) {
	if len(signal) == 0 {
		return nil, nil
	}

	stftResult, err := cs.stft.ComputeWithWindow(signal, windowSize, hopSize, cs.sampleRate, window)
	if err != nil {
		return nil, err
	}

	return cs.convertSTFTToChroma(stftResult), nil
}

// ComputeChromaFromMagnitude builds the chromagram from a precomputed
// magnitude spectrogram, avoiding a second STFT pass when the caller
// already has one.
func (cs *ChromaSTFT) ComputeChromaFromMagnitude(magnitude [][]float64, freqResolution float64) [][]float64 {
	if len(magnitude) == 0 {
		return nil
	}

	chromagram := make([][]float64, len(magnitude))
	mapping := cs.calculateChromaMapping(len(magnitude[0]), freqResolution)

	for t := range magnitude {
		chromagram[t] = cs.foldFrame(magnitude[t], mapping)
	}

	return chromagram
}

func (cs *ChromaSTFT) convertSTFTToChroma(stftResult *spectral.STFTResult) [][]float64 {
	chromagram := make([][]float64, stftResult.TimeFrames)
	mapping := cs.calculateChromaMapping(stftResult.FreqBins, stftResult.FreqResolution)

	for t := 0; t < stftResult.TimeFrames; t++ {
		chromagram[t] = cs.foldFrame(stftResult.Magnitude[t], mapping)
	}

	return chromagram
}

// foldFrame accumulates squared magnitudes into pitch class bins and
// normalizes the frame to unit sum.
func (cs *ChromaSTFT) foldFrame(magnitudeFrame []float64, mapping []int) []float64 {
	frame := make([]float64, cs.chromaBins)

	for f, magnitude := range magnitudeFrame {
		chromaBin := mapping[f]
		if chromaBin >= 0 {
			frame[chromaBin] += magnitude * magnitude
		}
	}

	totalEnergy := 0.0
	for _, energy := range frame {
		totalEnergy += energy
	}
	if totalEnergy > 1e-10 {
		for i := range frame {
			frame[i] /= totalEnergy
		}
	}

	return frame
}

// calculateChromaMapping maps FFT bin indices to chroma bins, or -1 for
// bins outside the analysis frequency range.
func (cs *ChromaSTFT) calculateChromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := 0; f < freqBins; f++ {
		frequency := float64(f) * freqResolution

		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		midiNote := cs.frequencyToMIDI(frequency)
		chromaBin := int(math.Round(midiNote)) % 12
		if chromaBin < 0 {
			chromaBin += 12
		}
		mapping[f] = chromaBin
	}

	return mapping
}

// frequencyToMIDI converts frequency to a fractional MIDI note number
// relative to the configured tuning (A4 = MIDI 69).
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	if frequency <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

// MeanChroma averages the chromagram across time, producing a single
// 12-element pitch class distribution.
func (cs *ChromaSTFT) MeanChroma(chromagram [][]float64) []float64 {
	mean := make([]float64, cs.chromaBins)
	if len(chromagram) == 0 {
		return mean
	}

	for t := range chromagram {
		for bin := range chromagram[t] {
			mean[bin] += chromagram[t][bin]
		}
	}
	for bin := range mean {
		mean[bin] /= float64(len(chromagram))
	}

	return mean
}

// GetChromaLabels returns the pitch class names in bin order.
func (cs *ChromaSTFT) GetChromaLabels() []string {
	return []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
}
