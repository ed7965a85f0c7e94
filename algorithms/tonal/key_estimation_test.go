package tonal

import (
	"math"
	"testing"
)

func TestMatchProfilesSelfMatch(t *testing.T) {
	ke := NewKeyEstimator()

	match, err := ke.MatchProfiles(MajorProfile[:])
	if err != nil {
		t.Fatalf("MatchProfiles: %v", err)
	}
	if match.Tonic != 0 || match.Mode != ModeMajor {
		t.Errorf("got tonic=%d mode=%s, want 0 major", match.Tonic, match.Mode)
	}
	if math.Abs(match.BestScore-1.0) > 1e-9 {
		t.Errorf("best score = %v, want 1.0 for self match", match.BestScore)
	}
	if match.KeyName() != "C major" {
		t.Errorf("KeyName = %q, want C major", match.KeyName())
	}
}

func TestMatchProfilesRejectsWrongLength(t *testing.T) {
	ke := NewKeyEstimator()
	if _, err := ke.MatchProfiles(make([]float64, 11)); err == nil {
		t.Error("want error for 11-bin input")
	}
}

func TestMatchProfilesFlatChroma(t *testing.T) {
	ke := NewKeyEstimator()

	flat := make([]float64, 12)
	for i := range flat {
		flat[i] = 1.0 / 12.0
	}

	match, err := ke.MatchProfiles(flat)
	if err != nil {
		t.Fatalf("MatchProfiles: %v", err)
	}
	// Zero-variance chroma correlates with nothing; all scores are 0
	// and the tie-break lands on C major deterministically.
	if match.Tonic != 0 || match.Mode != ModeMajor {
		t.Errorf("got tonic=%d mode=%s, want tie-break to 0 major", match.Tonic, match.Mode)
	}
	if match.Confidence() != 0 {
		t.Errorf("confidence = %v, want 0 for a flat landscape", match.Confidence())
	}
}

func TestConfidenceMarginBehavior(t *testing.T) {
	sharp := &KeyMatch{BestScore: 0.95, SecondScore: 0.40}
	fuzzy := &KeyMatch{BestScore: 0.95, SecondScore: 0.93}

	if sharp.Confidence() <= fuzzy.Confidence() {
		t.Errorf("sharp margin %v should outscore fuzzy margin %v",
			sharp.Confidence(), fuzzy.Confidence())
	}
	if c := (&KeyMatch{BestScore: -0.2, SecondScore: -0.5}).Confidence(); c != 0 {
		t.Errorf("negative best score should give 0 confidence, got %v", c)
	}
}
