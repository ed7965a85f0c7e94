package analyzers

import (
	"errors"
	"testing"

	"github.com/Skymero/lavoe/algorithms/tonal"
)

// placeProfile builds a chroma vector whose tonal profile sits at the
// given tonic pitch class.
func placeProfile(profile [12]float64, tonic int) []float64 {
	chroma := make([]float64, 12)
	for i, v := range profile {
		chroma[(i+tonic)%12] = v
	}
	return chroma
}

func TestKeyAnalyzerMajorProfileAllRotations(t *testing.T) {
	ka := NewKeyAnalyzer(nil)

	for tonic := 0; tonic < 12; tonic++ {
		name := tonal.PitchClassNames[tonic]
		t.Run(name+"_major", func(t *testing.T) {
			estimate, err := ka.EstimateFromChroma(placeProfile(tonal.MajorProfile, tonic))
			if err != nil {
				t.Fatalf("EstimateFromChroma: %v", err)
			}
			if estimate.Indeterminate {
				t.Fatal("self-matching profile reported indeterminate")
			}
			if estimate.Tonic != name || estimate.Mode != tonal.ModeMajor {
				t.Errorf("got %s %s, want %s major", estimate.Tonic, estimate.Mode, name)
			}
			if estimate.Confidence < 0.95 {
				t.Errorf("confidence = %v, want >= 0.95 for a self-matching profile", estimate.Confidence)
			}
			if want := name + " major"; estimate.Key != want {
				t.Errorf("Key = %q, want %q", estimate.Key, want)
			}
		})
	}
}

func TestKeyAnalyzerMinorProfileAtA(t *testing.T) {
	ka := NewKeyAnalyzer(nil)

	estimate, err := ka.EstimateFromChroma(placeProfile(tonal.MinorProfile, 9))
	if err != nil {
		t.Fatalf("EstimateFromChroma: %v", err)
	}
	if estimate.Tonic != "A" || estimate.Mode != tonal.ModeMinor {
		t.Errorf("got %s %s, want A minor", estimate.Tonic, estimate.Mode)
	}
	if estimate.Confidence < 0.9 {
		t.Errorf("confidence = %v, want >= 0.9", estimate.Confidence)
	}
}

func TestKeyConfidenceDecreasesWithNoise(t *testing.T) {
	ka := NewKeyAnalyzer(nil)

	// Fixed pseudo-random perturbation so the trend is reproducible.
	noise := []float64{
		0.9501, 0.2311, 0.6068, 0.4860, 0.8913, 0.7621,
		0.4565, 0.0185, 0.8214, 0.4447, 0.6154, 0.7919,
	}
	scales := []float64{0, 0.5, 1, 2, 4, 8}

	prev := 1.1
	for _, scale := range scales {
		chroma := placeProfile(tonal.MajorProfile, 0)
		for i := range chroma {
			chroma[i] += scale * noise[i]
		}

		estimate, err := ka.EstimateFromChroma(chroma)
		if err != nil {
			t.Fatalf("EstimateFromChroma(scale=%v): %v", scale, err)
		}
		if estimate.Confidence > prev+1e-9 {
			t.Errorf("confidence rose from %v to %v at noise scale %v", prev, estimate.Confidence, scale)
		}
		prev = estimate.Confidence
	}

	if prev > 0.5 {
		t.Errorf("confidence at max noise = %v, want well below 0.5", prev)
	}
}

func TestKeyAnalyzerZeroChromaIsIndeterminate(t *testing.T) {
	ka := NewKeyAnalyzer(nil)

	estimate, err := ka.EstimateFromChroma(make([]float64, 12))
	if err != nil {
		t.Fatalf("EstimateFromChroma: %v", err)
	}
	if !estimate.Indeterminate {
		t.Error("zero chroma should be indeterminate")
	}
	if estimate.Key != "unknown" || estimate.Confidence != 0 {
		t.Errorf("got key=%q confidence=%v, want unknown/0", estimate.Key, estimate.Confidence)
	}
}

func TestKeyAnalyzerRejectsWrongLength(t *testing.T) {
	ka := NewKeyAnalyzer(nil)

	_, err := ka.EstimateFromChroma(make([]float64, 7))
	if !errors.Is(err, ErrInvalidChroma) {
		t.Errorf("err = %v, want ErrInvalidChroma", err)
	}
}

func TestKeyAnalyzerSilentSegment(t *testing.T) {
	ka := NewKeyAnalyzer(nil)

	estimate, err := ka.Analyze(make([]float64, 4096))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !estimate.Indeterminate {
		t.Error("silence should yield the indeterminate fallback")
	}
}
