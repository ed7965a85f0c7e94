package analysis

import (
	"math"
	"testing"
)

func TestProviderFramesWithHannWindow(t *testing.T) {
	cfg := DefaultConfig()
	provider, err := NewDSPProvider(cfg)
	if err != nil {
		t.Fatalf("NewDSPProvider: %v", err)
	}

	if provider.window == nil || provider.window.GetType() != "hann" {
		t.Fatal("spectral framing must use a Hann window")
	}
	if provider.window.GetSize() != provider.windowSize {
		t.Errorf("window size = %d, want %d", provider.window.GetSize(), provider.windowSize)
	}
}

func TestSpectralShapeCentroidOfPureTone(t *testing.T) {
	cfg := DefaultConfig()
	provider, err := NewDSPProvider(cfg)
	if err != nil {
		t.Fatalf("NewDSPProvider: %v", err)
	}

	// Windowed framing keeps the spectral leakage of an off-bin tone
	// low enough that the centroid stays near the tone itself.
	shape, err := provider.SpectralShape(sineSegment(440, 0.5, cfg.SampleRate))
	if err != nil {
		t.Fatalf("SpectralShape: %v", err)
	}
	if math.Abs(shape.Centroid-440) > 80 {
		t.Errorf("centroid = %v Hz, want near 440", shape.Centroid)
	}
	if shape.Flatness > 0.1 {
		t.Errorf("flatness = %v, want near 0 for a pure tone", shape.Flatness)
	}
}
