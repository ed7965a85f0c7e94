package tonal

import (
	"fmt"
	"math"
)

// Krumhansl-Kessler tone profiles: expected relative chroma weight per
// scale degree for a major and a minor key with tonic at index 0.
// Constant after definition; matching rotates the observed chroma
// instead of storing 24 rotated templates.
var (
	MajorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	MinorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// PitchClassNames lists the twelve pitch class names in chroma bin order.
var PitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Mode labels returned by the estimator.
const (
	ModeMajor = "major"
	ModeMinor = "minor"
)

// scoreTolerance is the float tolerance under which two candidate scores
// are considered tied.
const scoreTolerance = 1e-9

// KeyMatch holds the profile match scores for all 24 key candidates of
// one chroma vector, plus the winning candidate.
type KeyMatch struct {
	MajorScores [12]float64 `json:"major_scores"` // correlation per tonic, major mode
	MinorScores [12]float64 `json:"minor_scores"` // correlation per tonic, minor mode
	Tonic       int         `json:"tonic"`        // winning pitch class index (0=C)
	Mode        string      `json:"mode"`         // winning mode
	BestScore   float64     `json:"best_score"`
	SecondScore float64     `json:"second_score"` // runner-up across all 24 candidates
}

// KeyEstimator matches an averaged chroma vector against the Krumhansl
// major and minor profiles for every rotation. Stateless apart from the
// constant profile tables, so one instance is safe for concurrent use.
type KeyEstimator struct{}

// NewKeyEstimator creates a new profile-matching key estimator.
func NewKeyEstimator() *KeyEstimator {
	return &KeyEstimator{}
}

// MatchProfiles scores a 12-bin chroma vector against all 24 candidate
// keys. Each candidate tonic k is scored by the Pearson correlation of
// the chroma rotated so pitch class k lands on the profile's tonic slot.
//
// Tie-break is deterministic: within float tolerance major beats minor,
// and a lower tonic index beats a higher one. Genuinely ambiguous ties
// exist in music theory, so the ordering is a documented convention,
// not a claim about the input.
func (ke *KeyEstimator) MatchProfiles(chroma []float64) (*KeyMatch, error) {
	if len(chroma) != 12 {
		return nil, fmt.Errorf("chroma vector must have 12 bins, got %d", len(chroma))
	}

	match := &KeyMatch{Mode: ModeMajor}

	rotated := make([]float64, 12)
	for tonic := 0; tonic < 12; tonic++ {
		for i := 0; i < 12; i++ {
			rotated[i] = chroma[(i+tonic)%12]
		}
		match.MajorScores[tonic] = correlate(rotated, MajorProfile[:])
		match.MinorScores[tonic] = correlate(rotated, MinorProfile[:])
	}

	// Major candidates are visited first and replacement requires a
	// strictly better score, which realizes the tie-break order.
	best := math.Inf(-1)
	second := math.Inf(-1)
	for tonic := 0; tonic < 12; tonic++ {
		if match.MajorScores[tonic] > best+scoreTolerance {
			second = best
			best = match.MajorScores[tonic]
			match.Tonic = tonic
			match.Mode = ModeMajor
		} else if match.MajorScores[tonic] > second {
			second = match.MajorScores[tonic]
		}
	}
	for tonic := 0; tonic < 12; tonic++ {
		if match.MinorScores[tonic] > best+scoreTolerance {
			second = best
			best = match.MinorScores[tonic]
			match.Tonic = tonic
			match.Mode = ModeMinor
		} else if match.MinorScores[tonic] > second {
			second = match.MinorScores[tonic]
		}
	}

	match.BestScore = best
	if math.IsInf(second, -1) {
		second = best
	}
	match.SecondScore = second

	return match, nil
}

// Confidence derives a [0, 1] confidence from the margin between the
// winning candidate and the runner-up, normalized by the headroom left
// below a perfect correlation. A self-matching profile scores 1; a flat
// score landscape scores 0.
func (km *KeyMatch) Confidence() float64 {
	if km.BestScore <= 0 {
		return 0.0
	}
	margin := (km.BestScore - km.SecondScore) / (1.0 - km.SecondScore + 1e-12)
	return math.Min(math.Max(margin, 0.0), 1.0)
}

// KeyName renders the winning candidate as a human-readable label.
func (km *KeyMatch) KeyName() string {
	return PitchClassNames[km.Tonic] + " " + km.Mode
}

// correlate computes the Pearson correlation between two 12-bin vectors,
// returning 0 when either side has no variance (a flat chroma carries no
// key evidence).
func correlate(x, y []float64) float64 {
	meanX := 0.0
	meanY := 0.0
	for i := range x {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(len(x))
	meanY /= float64(len(y))

	num := 0.0
	varX := 0.0
	varY := 0.0
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		num += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX < 1e-12 || varY < 1e-12 {
		return 0.0
	}
	return num / math.Sqrt(varX*varY)
}
