package analyzers

import (
	"math"
	"testing"
)

const testSampleRate = 44100

// sineWave synthesizes a sine tone with an optional amplitude envelope.
func sineWave(freq, duration, amp float64, envelope func(t float64) float64) []float64 {
	n := int(duration * testSampleRate)
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / testSampleRate
		gain := 1.0
		if envelope != nil {
			gain = envelope(t)
		}
		samples[i] = amp * gain * math.Sin(2*math.Pi*freq*t)
	}
	return samples
}

func TestPitchAnalyzerSine440(t *testing.T) {
	pa := NewPitchAnalyzer(testSampleRate)

	result, err := pa.Analyze(sineWave(440, 0.5, 0.8, nil))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if math.Abs(result.FrequencyHz-440) > 5 {
		t.Errorf("frequency = %v, want 440 +/- 5", result.FrequencyHz)
	}
	if result.NoteName != "A4" {
		t.Errorf("note name = %q, want A4", result.NoteName)
	}
	if result.MIDINote != 69 {
		t.Errorf("midi note = %d, want 69", result.MIDINote)
	}
	if result.Confidence <= 0.5 {
		t.Errorf("confidence = %v, want > 0.5 for a clean tone", result.Confidence)
	}
	if !result.IsStable {
		t.Errorf("stability = %v, want stable for a steady tone", result.Stability)
	}
}

func TestPitchAnalyzerDegenerateInput(t *testing.T) {
	pa := NewPitchAnalyzer(testSampleRate)

	cases := []struct {
		name    string
		samples []float64
	}{
		{"too_short", sineWave(440, 0.01, 0.8, nil)},
		{"silence", make([]float64, testSampleRate/2)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := pa.Analyze(tc.samples)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if result.FrequencyHz != 0 || result.NoteName != "" || result.MIDINote != 0 {
				t.Errorf("got %+v, want zero result", result)
			}
		})
	}
}

func TestEnvelopeAnalyzerShapes(t *testing.T) {
	ea := NewEnvelopeAnalyzer(testSampleRate)

	t.Run("percussive_decay", func(t *testing.T) {
		samples := sineWave(220, 1.0, 0.9, func(t float64) float64 {
			return math.Exp(-40 * t)
		})
		result, err := ea.Analyze(samples)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if result.Shape != "percussive" {
			t.Errorf("shape = %q (peakPos=%.3f area=%.3f), want percussive",
				result.Shape, result.PeakPosition, result.EnvelopeArea)
		}
		if result.PeakPosition >= 0.1 {
			t.Errorf("peak position = %v, want < 0.1", result.PeakPosition)
		}
		if result.TransientRatio < 0 || result.TransientRatio > 1 {
			t.Errorf("transient ratio = %v, out of [0, 1]", result.TransientRatio)
		}
	})

	t.Run("sustained_triangle", func(t *testing.T) {
		samples := sineWave(220, 1.0, 0.9, func(t float64) float64 {
			if t < 0.5 {
				return t / 0.5
			}
			return (1.0 - t) / 0.5
		})
		result, err := ea.Analyze(samples)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if result.Shape != "sustained" {
			t.Errorf("shape = %q (peakPos=%.3f area=%.3f), want sustained",
				result.Shape, result.PeakPosition, result.EnvelopeArea)
		}
		if result.AttackTime < 0.2 {
			t.Errorf("attack time = %v, want slow attack for a triangle swell", result.AttackTime)
		}
	})

	t.Run("silence", func(t *testing.T) {
		result, err := ea.Analyze(make([]float64, testSampleRate))
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if result.Shape != "unknown" {
			t.Errorf("shape = %q, want unknown for silence", result.Shape)
		}
	})
}

func TestDynamicsAnalyzer(t *testing.T) {
	da := NewDynamicsAnalyzer()

	t.Run("steady_sine_reads_compressed", func(t *testing.T) {
		result, err := da.Analyze(sineWave(440, 1.0, 1.0, nil))
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if math.Abs(result.LoudnessDB-(-3.01)) > 0.2 {
			t.Errorf("loudness = %v dB, want about -3.01", result.LoudnessDB)
		}
		if math.Abs(result.CrestFactor-math.Sqrt2) > 0.05 {
			t.Errorf("crest factor = %v, want about sqrt(2)", result.CrestFactor)
		}
		if !result.CompressionDetected {
			t.Error("steady tone with crest < 3 should read as compressed")
		}
	})

	t.Run("decaying_tone_is_dynamic", func(t *testing.T) {
		samples := sineWave(440, 2.0, 1.0, func(t float64) float64 {
			return math.Exp(-5 * t)
		})
		result, err := da.Analyze(samples)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if result.CrestFactor <= 3.0 {
			t.Errorf("crest factor = %v, want > 3 for a strong transient", result.CrestFactor)
		}
		if result.CompressionDetected {
			t.Error("decaying tone should not read as compressed")
		}
		if result.DynamicRangeDB <= 0 {
			t.Errorf("dynamic range = %v dB, want positive", result.DynamicRangeDB)
		}
	})

	t.Run("silence", func(t *testing.T) {
		result, err := da.Analyze(make([]float64, testSampleRate))
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if result.CompressionDetected {
			t.Error("silence should not read as compressed")
		}
		if result.LoudnessDB > -190 {
			t.Errorf("loudness = %v dB, want the silence floor", result.LoudnessDB)
		}
	})
}

func TestTimbreAnalyzerHarmonicTone(t *testing.T) {
	ta := NewTimbreAnalyzer(testSampleRate)

	// Harmonic-rich tone: fundamental plus exact overtones.
	n := testSampleRate / 2
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / testSampleRate
		samples[i] = 0.6*math.Sin(2*math.Pi*220*t) +
			0.3*math.Sin(2*math.Pi*440*t) +
			0.15*math.Sin(2*math.Pi*660*t)
	}

	result, err := ta.Analyze(samples)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.SpectralCentroid <= 0 {
		t.Errorf("centroid = %v, want positive", result.SpectralCentroid)
	}
	if result.HarmonicRatio < 0.5 {
		t.Errorf("harmonic ratio = %v, want > 0.5 for a harmonic tone", result.HarmonicRatio)
	}
	if result.Noisiness != 1.0-result.HarmonicRatio {
		t.Errorf("noisiness = %v, want 1 - harmonic ratio", result.Noisiness)
	}
	if result.Warmth < 0 || result.Warmth > 1 {
		t.Errorf("warmth = %v, out of [0, 1]", result.Warmth)
	}
	if result.Brightness < 0 || result.Brightness > 1 {
		t.Errorf("brightness = %v, out of [0, 1]", result.Brightness)
	}
}

func TestTimbreAnalyzerShortSegment(t *testing.T) {
	ta := NewTimbreAnalyzer(testSampleRate)

	result, err := ta.Analyze(make([]float64, 100))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if *result != (TimbreResult{}) {
		t.Errorf("got %+v, want zero result", result)
	}
}
