package analyzers

import (
	"errors"
	"fmt"

	"github.com/Skymero/lavoe/algorithms/tonal"
	"github.com/Skymero/lavoe/logging"
)

// ErrInvalidChroma reports a chroma vector whose length is not 12. This
// is a programming-contract violation, not a property of the audio.
var ErrInvalidChroma = errors.New("chroma vector must have 12 bins")

// KeyEstimate is the per-note key analysis result. An indeterminate
// estimate (silence, no harmonic content) carries confidence 0 and the
// key label "unknown"; it is a documented fallback, never an error.
type KeyEstimate struct {
	Key           string      `json:"key"`   // e.g. "C major", "unknown"
	Tonic         string      `json:"tonic"` // pitch class name, "" when indeterminate
	Mode          string      `json:"mode"`  // "major", "minor", "" when indeterminate
	Confidence    float64     `json:"confidence"`
	MajorScores   [12]float64 `json:"major_scores"`
	MinorScores   [12]float64 `json:"minor_scores"`
	Chroma        [12]float64 `json:"chroma"` // sum-normalized observed chroma
	Indeterminate bool        `json:"indeterminate"`
}

// IndeterminateKey returns the fallback estimate for segments with no
// discernible pitch content.
func IndeterminateKey() *KeyEstimate {
	return &KeyEstimate{Key: "unknown", Indeterminate: true}
}

// KeyAnalyzer estimates the most likely musical key of a note segment
// by averaging its chromagram over time and matching the resulting
// pitch class distribution against the Krumhansl tone profiles.
type KeyAnalyzer struct {
	provider  FeatureProvider
	estimator *tonal.KeyEstimator
	logger    logging.Logger
}

// NewKeyAnalyzer creates a key analyzer on top of the given feature
// provider.
func NewKeyAnalyzer(provider FeatureProvider) *KeyAnalyzer {
	return &KeyAnalyzer{
		provider:  provider,
		estimator: tonal.NewKeyEstimator(),
		logger: logging.WithFields(logging.Fields{
			"component": "key_analyzer",
		}),
	}
}

// Analyze estimates the key of a note segment. Averaging the chroma
// matrix over time discards transient passing tones, a deliberate
// simplification for per-note analysis. Silence yields the
// indeterminate fallback.
func (ka *KeyAnalyzer) Analyze(samples []float64) (*KeyEstimate, error) {
	if isSilent(samples) {
		return IndeterminateKey(), nil
	}

	chromaMatrix, err := ka.provider.ChromaMatrix(samples)
	if err != nil {
		return nil, fmt.Errorf("chroma computation: %w", err)
	}
	if len(chromaMatrix) == 0 {
		return IndeterminateKey(), nil
	}

	mean := make([]float64, 12)
	for _, frame := range chromaMatrix {
		if len(frame) != 12 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidChroma, len(frame))
		}
		for bin, energy := range frame {
			mean[bin] += energy
		}
	}
	for bin := range mean {
		mean[bin] /= float64(len(chromaMatrix))
	}

	return ka.EstimateFromChroma(mean)
}

// EstimateFromChroma estimates the key directly from an averaged 12-bin
// chroma vector. An all-zero vector yields the indeterminate fallback;
// a wrong-length vector is a contract violation and fails immediately.
func (ka *KeyAnalyzer) EstimateFromChroma(vec []float64) (*KeyEstimate, error) {
	if len(vec) != 12 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChroma, len(vec))
	}

	total := 0.0
	for _, v := range vec {
		total += v
	}
	if total <= 1e-12 {
		return IndeterminateKey(), nil
	}

	normalized := make([]float64, 12)
	for i, v := range vec {
		normalized[i] = v / total
	}

	match, err := ka.estimator.MatchProfiles(normalized)
	if err != nil {
		return nil, err
	}

	estimate := &KeyEstimate{
		Key:         match.KeyName(),
		Tonic:       tonal.PitchClassNames[match.Tonic],
		Mode:        match.Mode,
		Confidence:  match.Confidence(),
		MajorScores: match.MajorScores,
		MinorScores: match.MinorScores,
	}
	copy(estimate.Chroma[:], normalized)

	ka.logger.Debug("key estimated", logging.Fields{
		"key":        estimate.Key,
		"confidence": estimate.Confidence,
	})

	return estimate, nil
}
