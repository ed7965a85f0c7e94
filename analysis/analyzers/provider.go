// Package analyzers contains the per-note feature analyzers: key,
// emotion, pitch, timbre, envelope and dynamics. Each analyzer is
// stateless beyond constant tables and algorithm instances, consumes a
// note segment, and returns a self-contained result struct with a
// documented fallback for degenerate input.
package analyzers

// SpectralShape holds time-averaged spectral descriptors of a segment.
type SpectralShape struct {
	Centroid  float64 `json:"centroid"`  // spectral center of mass, Hz
	Bandwidth float64 `json:"bandwidth"` // spread around the centroid, Hz
	Flatness  float64 `json:"flatness"`  // Wiener entropy, 0 tonal to 1 noisy
	Flux      float64 `json:"flux"`      // mean frame-to-frame change
}

// FeatureProvider computes the primitive acoustic features the
// analyzers build on. Implementations must be deterministic for a given
// buffer, never return negative energies, and yield zero-valued results
// (not errors) for silent or too-short input.
type FeatureProvider interface {
	SampleRate() int

	// ChromaMatrix returns the time-indexed chromagram, one 12-bin
	// pitch class vector per frame.
	ChromaMatrix(samples []float64) ([][]float64, error)

	// RMSEnvelope returns frame RMS values over the segment.
	RMSEnvelope(samples []float64) []float64

	// Tempo estimates the segment tempo in BPM, 0 when undetectable.
	Tempo(samples []float64) float64

	SpectralShape(samples []float64) (SpectralShape, error)
	ZeroCrossingRate(samples []float64) float64
	MFCCMeans(samples []float64, n int) []float64

	// HarmonicPercussive returns the mean-square harmonic and
	// percussive energies of the segment.
	HarmonicPercussive(samples []float64) (harmonic, percussive float64, err error)

	// Preprocess returns a bias-corrected copy of the segment.
	Preprocess(samples []float64) []float64
}

// isSilent reports whether a segment is empty or all-zero, the
// degenerate input every analyzer short-circuits on.
func isSilent(samples []float64) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}
