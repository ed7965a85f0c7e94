package analyzers

import (
	"math"
	"testing"

	"github.com/Skymero/lavoe/algorithms/common"
)

// stubProvider serves canned primitive features so feature extraction
// can be tested without real DSP.
type stubProvider struct {
	rms []float64
}

func (s stubProvider) SampleRate() int                                     { return testSampleRate }
func (s stubProvider) ChromaMatrix(samples []float64) ([][]float64, error) { return nil, nil }
func (s stubProvider) RMSEnvelope(samples []float64) []float64             { return s.rms }
func (s stubProvider) Tempo(samples []float64) float64                     { return 0 }
func (s stubProvider) SpectralShape(samples []float64) (SpectralShape, error) {
	return SpectralShape{}, nil
}
func (s stubProvider) ZeroCrossingRate(samples []float64) float64 { return 0 }
func (s stubProvider) MFCCMeans(samples []float64, n int) []float64 {
	return make([]float64, n)
}
func (s stubProvider) HarmonicPercussive(samples []float64) (float64, float64, error) {
	return 0, 0, nil
}
func (s stubProvider) Preprocess(samples []float64) []float64 { return samples }

func TestExtractFeaturesRMSStatistics(t *testing.T) {
	env := []float64{0.1, 0.2, 0.4, 0.3}
	ea := NewEmotionAnalyzer(stubProvider{rms: env})

	features := ea.extractFeatures([]float64{1.0})

	if features.RMSMean != common.Mean(env) {
		t.Errorf("rms mean = %v, want %v", features.RMSMean, common.Mean(env))
	}
	if features.RMSStd != common.StandardDeviation(env) {
		t.Errorf("rms stddev = %v, want %v", features.RMSStd, common.StandardDeviation(env))
	}
}

func TestEmotionEstimateCalmScenario(t *testing.T) {
	ea := NewEmotionAnalyzer(nil)

	features := AffectiveFeatures{
		RMSMean:         0.05,
		RMSStd:          0.01,
		Brightness:      0.7,
		Smoothness:      0.8,
		TempoScore:      0.2,
		FluxScore:       0.1,
		HarmonicRatio:   0.9,
		PercussiveRatio: 0.1,
	}

	result := ea.EstimateFromFeatures(features)

	if math.Abs(result.Valence-0.69) > 1e-3 {
		t.Errorf("valence = %v, want 0.69", result.Valence)
	}
	if math.Abs(result.Arousal-0.21625) > 1e-3 {
		t.Errorf("arousal = %v, want 0.21625", result.Arousal)
	}
	if result.Intensity != result.Arousal {
		t.Errorf("intensity = %v, want arousal %v", result.Intensity, result.Arousal)
	}

	wantLabels := []struct {
		label string
		score float64
	}{
		{"calm", 1.0},
		{"content", 0.721},
		{"neutral", 0.438},
		{"bored", 0.229},
	}
	if len(result.Emotions) != len(wantLabels) {
		t.Fatalf("got %d labels %v, want %d", len(result.Emotions), result.Emotions, len(wantLabels))
	}
	for i, want := range wantLabels {
		got := result.Emotions[i]
		if got.Label != want.label {
			t.Errorf("label[%d] = %q, want %q", i, got.Label, want.label)
		}
		if math.Abs(got.Score-want.score) > 1e-2 {
			t.Errorf("score[%d] = %v, want %v", i, got.Score, want.score)
		}
	}
}

func TestEmotionEstimateAngryScenario(t *testing.T) {
	ea := NewEmotionAnalyzer(nil)

	features := AffectiveFeatures{
		RMSMean:         0.3,
		RMSStd:          0.1,
		Brightness:      0.6,
		Smoothness:      0.2,
		TempoScore:      0.9,
		FluxScore:       0.8,
		HarmonicRatio:   0.15,
		PercussiveRatio: 0.85,
	}

	result := ea.EstimateFromFeatures(features)

	if math.Abs(result.Valence-(-0.54)) > 1e-3 {
		t.Errorf("valence = %v, want -0.54", result.Valence)
	}
	if math.Abs(result.Arousal-0.765) > 1e-3 {
		t.Errorf("arousal = %v, want 0.765", result.Arousal)
	}
	if len(result.Emotions) == 0 || result.Emotions[0].Label != "angry" {
		t.Fatalf("top emotion = %v, want angry", result.Emotions)
	}
	if result.Emotions[0].Score != 1.0 {
		t.Errorf("top score = %v, want 1.0", result.Emotions[0].Score)
	}
	if len(result.Emotions) < 2 || result.Emotions[1].Label != "fearful" {
		t.Errorf("second emotion = %v, want fearful", result.Emotions)
	}
}

func TestEmotionBoundsUnderExtremeFeatures(t *testing.T) {
	ea := NewEmotionAnalyzer(nil)

	cases := []struct {
		name     string
		features AffectiveFeatures
	}{
		{"all_zero", AffectiveFeatures{}},
		{"all_max", AffectiveFeatures{
			RMSMean: 10, RMSStd: 10, Brightness: 1, Smoothness: 1,
			TempoScore: 1, FluxScore: 1, HarmonicRatio: 1, PercussiveRatio: 1,
		}},
		{"negative", AffectiveFeatures{
			RMSMean: -5, Brightness: -1, Smoothness: -1, HarmonicRatio: -1,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ea.EstimateFromFeatures(tc.features)
			if result.Valence < -1 || result.Valence > 1 {
				t.Errorf("valence %v out of [-1, 1]", result.Valence)
			}
			if result.Arousal < 0 || result.Arousal > 1 {
				t.Errorf("arousal %v out of [0, 1]", result.Arousal)
			}
			if len(result.Emotions) == 0 || len(result.Emotions) > 4 {
				t.Errorf("got %d labels, want 1 to 4", len(result.Emotions))
			}
			for _, label := range result.Emotions {
				if label.Score < 0 || label.Score > 1 {
					t.Errorf("label %s score %v out of [0, 1]", label.Label, label.Score)
				}
			}
		})
	}
}

func TestEmotionEstimateIsDeterministic(t *testing.T) {
	ea := NewEmotionAnalyzer(nil)

	features := AffectiveFeatures{
		RMSMean: 0.2, Brightness: 0.5, Smoothness: 0.5,
		HarmonicRatio: 0.5, PercussiveRatio: 0.5, TempoScore: 0.5,
	}

	first := ea.EstimateFromFeatures(features)
	for it := 0; it < 5; it++ {
		again := ea.EstimateFromFeatures(features)
		if again.Valence != first.Valence || again.Arousal != first.Arousal {
			t.Fatal("valence/arousal changed between identical runs")
		}
		if len(again.Emotions) != len(first.Emotions) {
			t.Fatal("label count changed between identical runs")
		}
		for i := range again.Emotions {
			if again.Emotions[i] != first.Emotions[i] {
				t.Fatalf("label[%d] changed between identical runs", i)
			}
		}
	}
}

func TestEmotionSilentSegmentIsNeutral(t *testing.T) {
	ea := NewEmotionAnalyzer(nil)

	result, err := ea.Analyze(make([]float64, 8192))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Emotions) != 1 || result.Emotions[0].Label != "neutral" {
		t.Errorf("emotions = %v, want single neutral", result.Emotions)
	}
	if result.Valence != 0 || result.Arousal != 0 {
		t.Errorf("valence/arousal = %v/%v, want 0/0", result.Valence, result.Arousal)
	}
}
