package notes

import (
	"math"
	"testing"
)

const testSampleRate = 44100

// burst writes a decaying sine tone into dst starting at the given
// offset in seconds.
func burst(dst []float64, startSec, durSec, freq float64) {
	start := int(startSec * testSampleRate)
	n := int(durSec * testSampleRate)
	for i := 0; i < n; i++ {
		if start+i >= len(dst) {
			return
		}
		t := float64(i) / testSampleRate
		dst[start+i] = 0.8 * math.Exp(-3*t) * math.Sin(2*math.Pi*freq*t)
	}
}

func TestDetectEmptySignal(t *testing.T) {
	d := NewDetector(testSampleRate, 0.1)

	segments, err := d.Detect(nil, true)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("got %d segments from empty signal, want 0", len(segments))
	}
}

func TestDetectTwoBursts(t *testing.T) {
	signal := make([]float64, 2*testSampleRate)
	burst(signal, 0.1, 0.7, 440)
	burst(signal, 1.1, 0.7, 550)

	d := NewDetector(testSampleRate, 0.1)
	segments, err := d.Detect(signal, true)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(segments) < 2 {
		t.Fatalf("got %d segments, want at least 2 for two separated bursts", len(segments))
	}

	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if seg.Duration() < 0.1 {
			t.Errorf("segment %d duration %v below minimum", i, seg.Duration())
		}
		if seg.StartTime < 0 || seg.EndTime > 2.0 {
			t.Errorf("segment %d boundaries [%v, %v] outside signal", i, seg.StartTime, seg.EndTime)
		}
		if i > 0 && seg.StartTime < segments[i-1].StartTime {
			t.Errorf("segment %d starts before segment %d", i, i-1)
		}
		implied := (seg.EndTime - seg.StartTime) * testSampleRate
		if math.Abs(implied-float64(len(seg.Samples))) > 1.0 {
			t.Errorf("segment %d has %d samples, boundaries imply %.0f", i, len(seg.Samples), implied)
		}
	}

	// The second burst's onset should land near 1.1 s.
	last := segments[len(segments)-1]
	if last.StartTime < 0.9 || last.StartTime > 1.3 {
		t.Errorf("last segment starts at %v, want near 1.1", last.StartTime)
	}
}

func TestDetectTrimsDecayedTail(t *testing.T) {
	// One short burst followed by a long silence: the note should end
	// well before the signal does.
	signal := make([]float64, 2*testSampleRate)
	burst(signal, 0.0, 0.3, 440)

	d := NewDetector(testSampleRate, 0.1)
	segments, err := d.Detect(signal, true)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(segments) == 0 {
		t.Fatal("got no segments for a single burst")
	}

	first := segments[0]
	if first.EndTime > 1.5 {
		t.Errorf("segment ends at %v, want the silent tail trimmed", first.EndTime)
	}
}

func TestDetectorUsesHannFraming(t *testing.T) {
	d := NewDetector(testSampleRate, 0.1)
	if d.window == nil || d.window.GetType() != "hann" {
		t.Fatal("onset spectrogram must be Hann-windowed")
	}
	if d.window.GetSize() != onsetWindowSize {
		t.Errorf("window size = %d, want %d", d.window.GetSize(), onsetWindowSize)
	}
}

func TestDetectPolyphonicPath(t *testing.T) {
	// Chord bursts: the polyphonic path must still find the onsets.
	signal := make([]float64, 2*testSampleRate)
	for _, freq := range []float64{262, 330, 392} {
		burst(signal, 0.1, 0.7, freq)
		burst(signal, 1.1, 0.7, freq)
	}

	d := NewDetector(testSampleRate, 0.1)
	segments, err := d.Detect(signal, false)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(segments) == 0 {
		t.Fatal("got no segments from polyphonic path")
	}
	for i, seg := range segments {
		if seg.Duration() < 0.1 {
			t.Errorf("segment %d duration %v below minimum", i, seg.Duration())
		}
	}
}

func TestDetectSteadyToneSingleSegment(t *testing.T) {
	// No onsets inside a steady tone: the whole signal is one note.
	signal := make([]float64, testSampleRate)
	for i := range signal {
		t := float64(i) / testSampleRate
		signal[i] = 0.8 * math.Sin(2*math.Pi*440*t)
	}

	d := NewDetector(testSampleRate, 0.1)
	segments, err := d.Detect(signal, true)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(segments) == 0 {
		t.Fatal("got no segments for a steady tone")
	}
	if segments[0].StartTime > 0.2 {
		t.Errorf("first segment starts at %v, want near 0", segments[0].StartTime)
	}
}
