package windowing

import (
	"math"
	"testing"
)

func TestNewDispatchesByName(t *testing.T) {
	cases := []struct {
		name     string
		wantType string
	}{
		{TypeHann, "hann"},
		{TypeHamming, "hamming"},
		{TypeBlackman, "blackman"},
		{TypeRectangular, "rectangular"},
		{"", "hann"}, // analysis default
	}

	for _, tc := range cases {
		w, err := New(tc.name, 64, true)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.name, err)
		}
		if w.GetType() != tc.wantType {
			t.Errorf("New(%q).GetType() = %q, want %q", tc.name, w.GetType(), tc.wantType)
		}
		if w.GetSize() != 64 {
			t.Errorf("New(%q).GetSize() = %d, want 64", tc.name, w.GetSize())
		}
	}

	if _, err := New("gaussian", 64, true); err == nil {
		t.Error("unsupported window type should error")
	}
	if _, err := New(TypeHann, 0, true); err == nil {
		t.Error("non-positive size should error")
	}
}

func TestSymmetricWindowShapes(t *testing.T) {
	const size = 65 // odd, so the peak lands exactly on the center

	cases := []struct {
		name     string
		window   Function
		endpoint float64
	}{
		{"hann", NewHann(size, true), 0.0},
		{"hamming", NewHamming(size, true), 0.08},
		{"blackman", NewBlackman(size, true), 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			coeffs := tc.window.GetCoefficients()

			if math.Abs(coeffs[0]-tc.endpoint) > 1e-9 || math.Abs(coeffs[size-1]-tc.endpoint) > 1e-9 {
				t.Errorf("endpoints = %v, %v, want %v", coeffs[0], coeffs[size-1], tc.endpoint)
			}
			for i := 0; i < size/2; i++ {
				if math.Abs(coeffs[i]-coeffs[size-1-i]) > 1e-12 {
					t.Errorf("coeff[%d] = %v != coeff[%d] = %v, window not symmetric",
						i, coeffs[i], size-1-i, coeffs[size-1-i])
				}
			}
			if math.Abs(coeffs[size/2]-1.0) > 1e-9 {
				t.Errorf("center coefficient = %v, want 1", coeffs[size/2])
			}
		})
	}
}

func TestRectangularIsIdentity(t *testing.T) {
	w := NewRectangular(16)
	signal := make([]float64, 16)
	for i := range signal {
		signal[i] = float64(i) - 8.0
	}

	windowed := w.Apply(signal)
	for i := range signal {
		if windowed[i] != signal[i] {
			t.Fatalf("sample %d changed: %v -> %v", i, signal[i], windowed[i])
		}
	}
}

func TestApplyInPlaceRejectsSizeMismatch(t *testing.T) {
	w := NewHann(65, true)
	if err := w.ApplyInPlace(make([]float64, 32)); err == nil {
		t.Error("mismatched frame length should error")
	}

	frame := make([]float64, 65)
	for i := range frame {
		frame[i] = 1.0
	}
	if err := w.ApplyInPlace(frame); err != nil {
		t.Fatalf("ApplyInPlace: %v", err)
	}
	if frame[0] != 0 || math.Abs(frame[32]-1.0) > 1e-9 {
		t.Errorf("frame not windowed in place: first=%v center=%v", frame[0], frame[32])
	}
}
