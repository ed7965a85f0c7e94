package analyzers

import (
	"fmt"

	"github.com/Skymero/lavoe/algorithms/common"
	"github.com/Skymero/lavoe/algorithms/harmonic"
	"github.com/Skymero/lavoe/algorithms/spectral"
	"github.com/Skymero/lavoe/algorithms/windowing"
	"github.com/Skymero/lavoe/logging"
)

// TimbreResult is the per-note timbre analysis result: averaged spectral
// shape, harmonic series structure, and the derived perceptual metrics.
type TimbreResult struct {
	SpectralCentroid  float64 `json:"spectral_centroid"`
	SpectralBandwidth float64 `json:"spectral_bandwidth"`
	SpectralContrast  float64 `json:"spectral_contrast"`
	SpectralFlatness  float64 `json:"spectral_flatness"`
	SpectralRolloff   float64 `json:"spectral_rolloff"`
	HarmonicRatio     float64 `json:"harmonic_ratio"`
	Inharmonicity     float64 `json:"inharmonicity"`
	Brightness        float64 `json:"brightness"` // centroid over 500-5000 Hz
	Warmth            float64 `json:"warmth"`
	Noisiness         float64 `json:"noisiness"` // 1 - harmonic ratio
}

// TimbreAnalyzer extracts spectral and harmonic timbre descriptors from
// a note segment. Perceptual brightness and warmth follow fixed
// weighted combinations of the raw descriptors.
type TimbreAnalyzer struct {
	sampleRate int
	windowSize int
	hopSize    int

	stft      *spectral.STFT
	window    windowing.Function
	centroid  *spectral.SpectralCentroid
	bandwidth *spectral.SpectralBandwidth
	contrast  *spectral.SpectralContrast
	flatness  *spectral.SpectralFlatness
	rolloff   *spectral.SpectralRolloff
	peaks     *harmonic.SpectralPeaks

	logger logging.Logger
}

// NewTimbreAnalyzer creates a timbre analyzer for the given sample rate.
func NewTimbreAnalyzer(sampleRate int) *TimbreAnalyzer {
	return &TimbreAnalyzer{
		sampleRate: sampleRate,
		windowSize: 2048,
		hopSize:    512,
		stft:       spectral.NewSTFT(),
		window:     windowing.NewHann(2048, true),
		centroid:   spectral.NewSpectralCentroid(sampleRate),
		bandwidth:  spectral.NewSpectralBandwidth(sampleRate),
		contrast:   spectral.NewSpectralContrast(sampleRate, 6),
		flatness:   spectral.NewSpectralFlatness(),
		rolloff:    spectral.NewSpectralRolloff(sampleRate),
		peaks:      harmonic.NewSpectralPeaks(sampleRate, 0.001, 20.0, 40),
		logger: logging.WithFields(logging.Fields{
			"component": "timbre_analyzer",
		}),
	}
}

// Analyze extracts timbre descriptors from a note segment. Silent or
// too-short segments yield the zero value.
func (ta *TimbreAnalyzer) Analyze(samples []float64) (*TimbreResult, error) {
	if len(samples) < ta.windowSize || isSilent(samples) {
		return &TimbreResult{}, nil
	}

	stftResult, err := ta.stft.ComputeWithWindow(samples, ta.windowSize, ta.hopSize, ta.sampleRate, ta.window)
	if err != nil {
		return nil, fmt.Errorf("timbre stft: %w", err)
	}

	centroids := ta.centroid.ComputeFrames(stftResult.Magnitude)
	bandwidths := ta.bandwidth.ComputeFrames(stftResult.Magnitude, centroids)
	rolloffs := ta.rolloff.ComputeFrames(stftResult.Magnitude, 0.85)

	flatnessSum := 0.0
	for _, frame := range stftResult.Magnitude {
		flatnessSum += ta.flatness.Compute(frame)
	}

	contrastMean := 0.0
	if contrasts := ta.contrast.ComputeFrames(stftResult.Magnitude); len(contrasts) > 0 {
		bandMeans := ta.contrast.ComputeMean(contrasts)
		contrastMean = common.Mean(bandMeans)
	}

	result := &TimbreResult{
		SpectralCentroid:  common.Mean(centroids),
		SpectralBandwidth: common.Mean(bandwidths),
		SpectralContrast:  contrastMean,
		SpectralFlatness:  flatnessSum / float64(stftResult.TimeFrames),
		SpectralRolloff:   common.Mean(rolloffs),
	}

	meanSpectrum := meanMagnitude(stftResult.Magnitude)
	result.HarmonicRatio, result.Inharmonicity = ta.harmonicStructure(meanSpectrum)

	result.Brightness = normalizeRange(result.SpectralCentroid, 500.0, 5000.0)
	result.Noisiness = 1.0 - result.HarmonicRatio
	result.Warmth = ta.warmth(meanSpectrum, stftResult.FreqResolution, result)

	return result, nil
}

// harmonicStructure detects peaks in the mean spectrum, anchors a
// harmonic series on the strongest peak, and measures how much energy
// the series carries and how far it drifts from integer multiples.
func (ta *TimbreAnalyzer) harmonicStructure(spectrum []float64) (ratio, inharmonicity float64) {
	detected := ta.peaks.DetectPeaks(spectrum, ta.windowSize)
	if len(detected) == 0 {
		return 0.0, 0.0
	}

	f0 := detected[0].Frequency
	if f0 <= 0 {
		return 0.0, 0.0
	}

	assigned := ta.peaks.AssignHarmonics(detected, f0, 0.05)
	return ta.peaks.HarmonicEnergyRatio(assigned), ta.peaks.ComputeInharmonicity(assigned, f0)
}

// warmth combines low-frequency share, inverted brightness, harmonic
// ratio and inverted inharmonicity into a [0, 1] perceptual metric.
func (ta *TimbreAnalyzer) warmth(spectrum []float64, freqResolution float64, r *TimbreResult) float64 {
	lowEnergy := 0.0
	totalEnergy := 0.0
	for bin, magnitude := range spectrum {
		energy := magnitude * magnitude
		totalEnergy += energy
		if float64(bin)*freqResolution < 500.0 {
			lowEnergy += energy
		}
	}

	lowRatio := 0.0
	if totalEnergy > 1e-12 {
		lowRatio = lowEnergy / totalEnergy
	}

	warmth := 0.4*lowRatio +
		0.3*(1.0-r.Brightness) +
		0.2*clamp01(r.HarmonicRatio) +
		0.1*(1.0-clamp01(r.Inharmonicity))
	return clamp01(warmth)
}

// meanMagnitude averages a magnitude spectrogram across time.
func meanMagnitude(magnitude [][]float64) []float64 {
	if len(magnitude) == 0 {
		return nil
	}
	out := make([]float64, len(magnitude[0]))
	for _, frame := range magnitude {
		for bin, v := range frame {
			out[bin] += v
		}
	}
	for bin := range out {
		out[bin] /= float64(len(magnitude))
	}
	return out
}
