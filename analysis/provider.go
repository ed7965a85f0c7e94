package analysis

import (
	"fmt"

	"github.com/Skymero/lavoe/algorithms/chroma"
	"github.com/Skymero/lavoe/algorithms/common"
	"github.com/Skymero/lavoe/algorithms/filters"
	"github.com/Skymero/lavoe/algorithms/harmonic"
	"github.com/Skymero/lavoe/algorithms/spectral"
	"github.com/Skymero/lavoe/algorithms/temporal"
	"github.com/Skymero/lavoe/algorithms/windowing"
	"github.com/Skymero/lavoe/analysis/analyzers"
	"github.com/Skymero/lavoe/logging"
)

// DSPProvider is the acoustic feature provider backing every analyzer:
// it owns the DSP algorithm instances and computes the primitive numeric
// features (chroma, RMS, tempo, spectral shape, HPSS energy split) the
// analyzers build on. All methods are deterministic for a given buffer,
// never return negative energies, and report silent or too-short input
// as zero-valued results rather than errors.
//
// A provider is not safe for concurrent use: the spectral calculators
// cache frequency bin tables. The aggregator creates one provider per
// worker.
type DSPProvider struct {
	sampleRate int
	windowSize int
	hopSize    int
	logger     logging.Logger

	window      windowing.Function
	chromaSTFT  *chroma.ChromaSTFT
	stft        *spectral.STFT
	centroid    *spectral.SpectralCentroid
	bandwidth   *spectral.SpectralBandwidth
	flatness    *spectral.SpectralFlatness
	flux        *spectral.SpectralFlux
	zcr         *spectral.ZeroCrossingRate
	mfcc        *spectral.MFCC
	envelope    *temporal.Envelope
	tempo       *temporal.TempoEstimation
	hpss        *harmonic.HPSS
	dcRemoval   *filters.DCRemoval
}

var _ analyzers.FeatureProvider = (*DSPProvider)(nil)

// NewDSPProvider creates a provider for the given analysis config. A
// non-positive sample rate is a contract violation.
func NewDSPProvider(cfg *Config) (*DSPProvider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, cfg.SampleRate)
	}

	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = 2048
	}
	hopSize := cfg.HopSize
	if hopSize <= 0 {
		hopSize = windowSize / 4
	}

	mfccParams := spectral.MFCCParams{
		NumCoefficients: 5,
		NumMelFilters:   26,
		LowFreq:         0,
		HighFreq:        float64(cfg.SampleRate) / 2,
		UseLiftering:    true,
		LifterCoeff:     22.0,
	}

	return &DSPProvider{
		sampleRate: cfg.SampleRate,
		windowSize: windowSize,
		hopSize:    hopSize,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_provider",
		}),
		window:     windowing.NewHann(windowSize, true),
		chromaSTFT: chroma.NewChromaSTFTDefault(cfg.SampleRate),
		stft:       spectral.NewSTFT(),
		centroid:   spectral.NewSpectralCentroid(cfg.SampleRate),
		bandwidth:  spectral.NewSpectralBandwidth(cfg.SampleRate),
		flatness:   spectral.NewSpectralFlatness(),
		flux:       spectral.NewSpectralFlux(),
		zcr:        spectral.NewZeroCrossingRate(cfg.SampleRate),
		mfcc:       spectral.NewMFCCWithParams(cfg.SampleRate, mfccParams),
		envelope:   temporal.NewEnvelope(),
		tempo:      temporal.NewTempoEstimation(),
		hpss:       harmonic.NewHPSS(),
		dcRemoval:  filters.NewDCRemoval(),
	}, nil
}

// SampleRate returns the provider's configured sample rate.
func (p *DSPProvider) SampleRate() int {
	return p.sampleRate
}

// ChromaMatrix computes the time-indexed chromagram of a segment, one
// 12-bin vector per STFT frame. Returns nil for segments too short for
// a single frame.
func (p *DSPProvider) ChromaMatrix(samples []float64) ([][]float64, error) {
	if len(samples) < p.windowSize {
		return nil, nil
	}
	return p.chromaSTFT.ComputeChroma(samples, p.windowSize, p.hopSize, p.window)
}

// RMSEnvelope computes the frame RMS envelope with the provider's hop
// size and a half-window frame, the framing used across the pipeline
// for loudness tracking.
func (p *DSPProvider) RMSEnvelope(samples []float64) []float64 {
	return p.envelope.ComputeRMS(samples, p.windowSize/2, p.hopSize)
}

// Tempo estimates the segment tempo in BPM from RMS envelope
// periodicity. Returns 0 for segments too short to carry a beat.
func (p *DSPProvider) Tempo(samples []float64) float64 {
	return p.tempo.EstimateTempoAutocorrelation(samples, p.sampleRate)
}

// SpectralShape computes time-averaged spectral descriptors of a
// segment. Silent or too-short input yields the zero value.
func (p *DSPProvider) SpectralShape(samples []float64) (analyzers.SpectralShape, error) {
	var shape analyzers.SpectralShape
	if len(samples) < p.windowSize {
		return shape, nil
	}

	stftResult, err := p.stft.ComputeWithWindow(samples, p.windowSize, p.hopSize, p.sampleRate, p.window)
	if err != nil {
		return shape, fmt.Errorf("spectral shape: %w", err)
	}

	centroids := p.centroid.ComputeFrames(stftResult.Magnitude)
	bandwidths := p.bandwidth.ComputeFrames(stftResult.Magnitude, centroids)

	flatnessSum := 0.0
	for _, frame := range stftResult.Magnitude {
		flatnessSum += p.flatness.Compute(frame)
	}

	shape.Centroid = common.Mean(centroids)
	shape.Bandwidth = common.Mean(bandwidths)
	shape.Flatness = flatnessSum / float64(stftResult.TimeFrames)
	shape.Flux = common.Mean(p.flux.Compute(stftResult.Magnitude))

	return shape, nil
}

// ZeroCrossingRate computes the mean normalized zero-crossing rate over
// the segment.
func (p *DSPProvider) ZeroCrossingRate(samples []float64) float64 {
	rates := p.zcr.ComputeFramesNormalized(samples)
	return common.Mean(rates)
}

// MFCCMeans computes per-coefficient means of the first n MFCCs over
// the segment. Short segments yield a zero vector.
func (p *DSPProvider) MFCCMeans(samples []float64, n int) []float64 {
	means := make([]float64, n)
	if len(samples) < p.windowSize {
		return means
	}

	stftResult, err := p.stft.ComputeWithWindow(samples, p.windowSize, p.hopSize, p.sampleRate, p.window)
	if err != nil {
		return means
	}
	frames, err := p.mfcc.ComputeFrames(stftResult.Magnitude)
	if err != nil || len(frames) == 0 {
		return means
	}

	for _, frame := range frames {
		for i := 0; i < n && i < len(frame); i++ {
			means[i] += frame[i]
		}
	}
	for i := range means {
		means[i] /= float64(len(frames))
	}
	return means
}

// HarmonicPercussive splits the segment energy into harmonic and
// percussive components via median-filter HPSS on the magnitude
// spectrogram. Both energies are zero for silent or too-short input.
func (p *DSPProvider) HarmonicPercussive(samples []float64) (harmonicEnergy, percussiveEnergy float64, err error) {
	if len(samples) < p.windowSize {
		return 0, 0, nil
	}

	stftResult, err := p.stft.ComputeWithWindow(samples, p.windowSize, p.hopSize, p.sampleRate, p.window)
	if err != nil {
		return 0, 0, fmt.Errorf("hpss: %w", err)
	}

	result, err := p.hpss.Separate(stftResult.Magnitude)
	if err != nil {
		return 0, 0, fmt.Errorf("hpss: %w", err)
	}

	frames := float64(stftResult.TimeFrames * stftResult.FreqBins)
	return result.HarmonicEnergy / frames, result.PercussiveEnergy / frames, nil
}

// Preprocess removes DC offset from a copy of the segment. Analyzers
// that are sensitive to bias (pitch, envelope) run on the preprocessed
// signal.
func (p *DSPProvider) Preprocess(samples []float64) []float64 {
	p.dcRemoval.Reset()
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = p.dcRemoval.Process(s)
	}
	return out
}
