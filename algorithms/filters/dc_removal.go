package filters

import "math"

// defaultPole places the -3 dB point near 8 Hz at 44.1 kHz, low enough
// to leave the fundamental of any playable note untouched.
const defaultPole = 0.995

// DCRemoval is a one-pole DC blocking filter,
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// applied to note segments before bias-sensitive analysis (pitch,
// envelope). The filter is stateful across samples; Reset between
// discontinuous segments.
type DCRemoval struct {
	pole float64 // R, 0 < R < 1; closer to 1 blocks less bandwidth
	x1   float64
	y1   float64
}

// NewDCRemoval creates a DC blocker with the default pole location.
func NewDCRemoval() *DCRemoval {
	return &DCRemoval{pole: defaultPole}
}

// NewDCRemovalWithCutoff creates a DC blocker with the pole placed for
// the given -3 dB cutoff, using R = 1 - 2*pi*fc/fs (valid for fc well
// below Nyquist). Out-of-range results are clamped to (0, 1).
func NewDCRemovalWithCutoff(sampleRate int, cutoffFreq float64) *DCRemoval {
	dc := &DCRemoval{pole: defaultPole}
	if sampleRate > 0 && cutoffFreq > 0 {
		dc.pole = 1.0 - 2.0*math.Pi*cutoffFreq/float64(sampleRate)
		dc.pole = math.Min(math.Max(dc.pole, 0.001), 0.999)
	}
	return dc
}

// Process filters one sample and advances the filter state.
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.pole*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessBuffer filters a whole buffer into a new slice.
func (dc *DCRemoval) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = dc.Process(sample)
	}
	return output
}

// Reset clears the filter state. Required between unrelated segments so
// one note's tail cannot bias the next.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// CutoffFrequency reports the approximate -3 dB cutoff for the current
// pole at the given sample rate.
func (dc *DCRemoval) CutoffFrequency(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0.0
	}
	return (1.0 - dc.pole) * float64(sampleRate) / (2.0 * math.Pi)
}
