package analyzers

import (
	"fmt"
	"math"

	"github.com/Skymero/lavoe/algorithms/common"
	"github.com/Skymero/lavoe/algorithms/tonal"
	"github.com/Skymero/lavoe/logging"
)

// stabilityThreshold is the minimum stability for a note to be flagged
// as pitch-stable.
const stabilityThreshold = 0.95

// pitchConfidenceFloor drops contour frames the detector was not
// confident about before averaging.
const pitchConfidenceFloor = 0.5

// PitchResult is the per-note pitch analysis result. Segments too short
// for a single detector window yield the zero value, not an error.
type PitchResult struct {
	FrequencyHz float64 `json:"frequency_hz"` // confidence-weighted mean f0
	NoteName    string  `json:"note_name"`    // e.g. "A4", "" when unvoiced
	MIDINote    int     `json:"midi_note"`    // 0 when unvoiced
	Confidence  float64 `json:"confidence"`
	Stability   float64 `json:"stability"` // 1 - relative f0 deviation
	IsStable    bool    `json:"is_stable"`
}

// PitchAnalyzer estimates the fundamental frequency of a note segment
// with a YIN-based frame detector, then condenses the contour into a
// confidence-weighted mean with a stability measure.
type PitchAnalyzer struct {
	detector   *tonal.PitchDetector
	windowSize int
	logger     logging.Logger
}

// NewPitchAnalyzer creates a pitch analyzer for the given sample rate.
func NewPitchAnalyzer(sampleRate int) *PitchAnalyzer {
	return &PitchAnalyzer{
		detector:   tonal.NewPitchDetector(sampleRate),
		windowSize: 2048,
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_analyzer",
		}),
	}
}

// Analyze estimates pitch characteristics of a note segment.
func (pa *PitchAnalyzer) Analyze(samples []float64) (*PitchResult, error) {
	if len(samples) < pa.windowSize || isSilent(samples) {
		return &PitchResult{}, nil
	}

	contour, err := pa.detector.DetectContour(samples)
	if err != nil {
		return nil, fmt.Errorf("pitch contour: %w", err)
	}

	weightedSum := 0.0
	weightTotal := 0.0
	var voiced []float64
	for i, freq := range contour.Frequencies {
		conf := contour.Confidences[i]
		if freq > 0 && conf > pitchConfidenceFloor {
			weightedSum += freq * conf
			weightTotal += conf
			voiced = append(voiced, freq)
		}
	}

	if weightTotal <= 0 {
		return &PitchResult{}, nil
	}

	freq := weightedSum / weightTotal
	confidence := weightTotal / float64(len(voiced))

	stability := 1.0
	if len(voiced) > 1 {
		m := common.Mean(voiced)
		sd := common.StandardDeviation(voiced)
		if m > 0 {
			stability = 1.0 - math.Min(sd/m, 1.0)
		}
	}

	midi := midiFromFrequency(freq)

	return &PitchResult{
		FrequencyHz: freq,
		NoteName:    noteNameFromMIDI(midi),
		MIDINote:    midi,
		Confidence:  confidence,
		Stability:   stability,
		IsStable:    stability >= stabilityThreshold,
	}, nil
}

// midiFromFrequency converts a frequency to the nearest MIDI note
// number with A4 = 440 Hz = MIDI 69.
func midiFromFrequency(freq float64) int {
	if freq <= 0 {
		return 0
	}
	return int(math.Round(69.0 + 12.0*math.Log2(freq/440.0)))
}

// noteNameFromMIDI renders a MIDI note number in scientific pitch
// notation (C4 = MIDI 60).
func noteNameFromMIDI(midi int) string {
	if midi <= 0 {
		return ""
	}
	return fmt.Sprintf("%s%d", tonal.PitchClassNames[midi%12], midi/12-1)
}
