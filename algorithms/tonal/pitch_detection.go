package tonal

import (
	"fmt"
	"sort"

	"github.com/Skymero/lavoe/algorithms/common"
	"github.com/Skymero/lavoe/algorithms/stats"
	"github.com/Skymero/lavoe/algorithms/windowing"
)

// PitchDetectionMethod selects the pitch detection algorithm
type PitchDetectionMethod int

const (
	// AutocorrelationYin is the YIN cumulative mean normalized
	// difference method
	AutocorrelationYin PitchDetectionMethod = iota

	// AutocorrelationACF picks peaks of the normalized autocorrelation
	AutocorrelationACF
)

// PitchCandidate represents a potential pitch with confidence
type PitchCandidate struct {
	Frequency  float64 `json:"frequency"`  // Frequency in Hz
	Confidence float64 `json:"confidence"` // Confidence score (0-1)
	Method     string  `json:"method"`     // Detection method used
}

// PitchDetectionResult contains pitch detection results for one frame
type PitchDetectionResult struct {
	Pitch       float64 `json:"pitch"`       // Best pitch estimate (Hz), 0 if unvoiced
	Confidence  float64 `json:"confidence"`  // Overall confidence (0-1)
	Voicing     float64 `json:"voicing"`     // Voicing probability (0-1)
	Periodicity float64 `json:"periodicity"` // Periodicity strength

	Candidates []PitchCandidate `json:"candidates"`

	YinThreshold float64              `json:"yin_threshold"`
	Method       PitchDetectionMethod `json:"method"`
	SampleRate   int                  `json:"sample_rate"`
	WindowSize   int                  `json:"window_size"`
}

// PitchContour holds frame-wise pitch tracking results
type PitchContour struct {
	Frequencies []float64 `json:"frequencies"` // Hz per frame, 0 for unvoiced frames
	Confidences []float64 `json:"confidences"` // confidence per frame
	Times       []float64 `json:"times"`       // frame center times in seconds
}

// PitchDetectionParams contains parameters for pitch detection
type PitchDetectionParams struct {
	Method     PitchDetectionMethod `json:"method"`
	SampleRate int                  `json:"sample_rate"`
	WindowSize int                  `json:"window_size"`
	HopSize    int                  `json:"hop_size"`

	MinFreq float64 `json:"min_freq"` // Minimum frequency (Hz)
	MaxFreq float64 `json:"max_freq"` // Maximum frequency (Hz)

	YinThreshold      float64 `json:"yin_threshold"` // YIN threshold (0.1-0.5)
	AutocorrThreshold float64 `json:"autocorr_threshold"`

	// Tapering biases the YIN difference function at long lags, so the
	// default is no window
	WindowFunction string `json:"window_function"`

	MedianFilterLength int `json:"median_filter_length"` // contour smoothing
}

// PitchDetector implements lag-domain pitch detection.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
// - Rabiner, L.R. (1977). "On the use of autocorrelation analysis for pitch detection"
type PitchDetector struct {
	params     PitchDetectionParams
	autocorr   *stats.AutoCorrelation
	windowFunc []float64
}

// NewPitchDetector creates a pitch detector with defaults covering the
// musical range C2 to C7.
func NewPitchDetector(sampleRate int) *PitchDetector {
	return NewPitchDetectorWithParams(PitchDetectionParams{
		Method:             AutocorrelationYin,
		SampleRate:         sampleRate,
		WindowSize:         2048,
		HopSize:            512,
		MinFreq:            65.0,   // C2
		MaxFreq:            2093.0, // C7
		YinThreshold:       0.15,
		AutocorrThreshold:  0.3,
		WindowFunction:     windowing.TypeRectangular,
		MedianFilterLength: 3,
	})
}

// NewPitchDetectorWithParams creates a pitch detector with custom parameters
func NewPitchDetectorWithParams(params PitchDetectionParams) *PitchDetector {
	if params.WindowSize <= 0 {
		params.WindowSize = 2048
	}
	if params.HopSize <= 0 {
		params.HopSize = params.WindowSize / 4
	}
	if params.YinThreshold <= 0 {
		params.YinThreshold = 0.15
	}
	if params.MinFreq <= 0 {
		params.MinFreq = 65.0
	}
	if params.MaxFreq <= params.MinFreq {
		params.MaxFreq = 2093.0
	}

	pd := &PitchDetector{
		params:   params,
		autocorr: stats.NewAutoCorrelation(params.WindowSize / 2),
	}

	if window, err := windowing.New(params.WindowFunction, params.WindowSize, true); err == nil {
		pd.windowFunc = window.GetCoefficients()
	}

	return pd
}

// DetectPitch detects pitch in a single audio frame. The frame length
// must match the configured window size.
func (pd *PitchDetector) DetectPitch(audioFrame []float64) (*PitchDetectionResult, error) {
	if len(audioFrame) != pd.params.WindowSize {
		return nil, fmt.Errorf("audio frame size (%d) doesn't match window size (%d)", len(audioFrame), pd.params.WindowSize)
	}

	processedFrame := pd.applyWindow(audioFrame)

	var result *PitchDetectionResult
	var err error

	switch pd.params.Method {
	case AutocorrelationYin:
		result, err = pd.detectPitchYin(processedFrame)
	case AutocorrelationACF:
		result, err = pd.detectPitchACF(processedFrame)
	default:
		return nil, fmt.Errorf("unsupported pitch detection method: %d", pd.params.Method)
	}

	if err != nil {
		return nil, err
	}

	result.Method = pd.params.Method
	result.SampleRate = pd.params.SampleRate
	result.WindowSize = pd.params.WindowSize

	return result, nil
}

// DetectContour tracks pitch across a signal frame by frame. The
// frequency track is median-smoothed to remove single-frame octave
// errors. Returns an error when the signal is shorter than one window.
func (pd *PitchDetector) DetectContour(signal []float64) (*PitchContour, error) {
	if len(signal) < pd.params.WindowSize {
		return nil, fmt.Errorf("signal too short for pitch analysis: %d samples, need %d", len(signal), pd.params.WindowSize)
	}

	numFrames := (len(signal)-pd.params.WindowSize)/pd.params.HopSize + 1

	contour := &PitchContour{
		Frequencies: make([]float64, numFrames),
		Confidences: make([]float64, numFrames),
		Times:       make([]float64, numFrames),
	}

	for i := 0; i < numFrames; i++ {
		start := i * pd.params.HopSize
		frame := signal[start : start+pd.params.WindowSize]

		result, err := pd.DetectPitch(frame)
		if err != nil {
			return nil, err
		}

		contour.Frequencies[i] = result.Pitch
		contour.Confidences[i] = result.Confidence
		contour.Times[i] = (float64(start) + float64(pd.params.WindowSize)/2.0) / float64(pd.params.SampleRate)
	}

	if pd.params.MedianFilterLength > 1 {
		contour.Frequencies = common.MedianFilter(contour.Frequencies, pd.params.MedianFilterLength)
	}

	return contour, nil
}

func (pd *PitchDetector) applyWindow(audioFrame []float64) []float64 {
	processed := make([]float64, len(audioFrame))
	copy(processed, audioFrame)

	if len(pd.windowFunc) == len(processed) {
		for i := range processed {
			processed[i] *= pd.windowFunc[i]
		}
	}

	return processed
}

// detectPitchYin implements the YIN pitch detection algorithm.
// Reference: de Cheveigné, A., Kawahara, H. (2002)
func (pd *PitchDetector) detectPitchYin(audioFrame []float64) (*PitchDetectionResult, error) {
	n := len(audioFrame)
	halfN := n / 2

	// Difference function
	diff := make([]float64, halfN)
	for tau := 0; tau < halfN; tau++ {
		sum := 0.0
		for j := 0; j < halfN; j++ {
			delta := audioFrame[j] - audioFrame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	// Cumulative mean normalized difference function
	cmndf := make([]float64, halfN)
	cmndf[0] = 1.0

	runningSum := 0.0
	for tau := 1; tau < halfN; tau++ {
		runningSum += diff[tau]
		cmndf[tau] = diff[tau] / (runningSum / float64(tau))
	}

	// Search only lags inside the configured frequency range
	tauMin := int(float64(pd.params.SampleRate) / pd.params.MaxFreq)
	tauMax := int(float64(pd.params.SampleRate) / pd.params.MinFreq)
	if tauMin < 1 {
		tauMin = 1
	}
	if tauMax >= halfN {
		tauMax = halfN - 1
	}

	// First below-threshold valley bottom
	minTau := -1
	for tau := tauMin; tau <= tauMax; tau++ {
		if cmndf[tau] < pd.params.YinThreshold {
			if tau+1 < halfN && cmndf[tau] < cmndf[tau+1] {
				minTau = tau
				break
			}
		}
	}

	result := &PitchDetectionResult{
		YinThreshold: pd.params.YinThreshold,
	}

	if minTau > 0 {
		// Parabolic interpolation for sub-sample period accuracy
		period := pd.parabolicInterpolation(cmndf, minTau)
		frequency := float64(pd.params.SampleRate) / period

		confidence := 1.0 - cmndf[minTau]

		if frequency >= pd.params.MinFreq && frequency <= pd.params.MaxFreq {
			result.Pitch = frequency
			result.Confidence = confidence
			result.Periodicity = confidence
			result.Voicing = confidence

			result.Candidates = []PitchCandidate{
				{
					Frequency:  frequency,
					Confidence: confidence,
					Method:     "YIN",
				},
			}
		}
	}

	return result, nil
}

// detectPitchACF implements autocorrelation-based pitch detection
func (pd *PitchDetector) detectPitchACF(audioFrame []float64) (*PitchDetectionResult, error) {
	autocorrResult, err := pd.autocorr.Compute(audioFrame)
	if err != nil {
		return nil, err
	}

	correlations := autocorrResult.Correlations

	candidates := make([]PitchCandidate, 0)

	for lag := 1; lag < len(correlations)-1; lag++ {
		corr := correlations[lag]

		if corr > correlations[lag-1] && corr > correlations[lag+1] && corr > pd.params.AutocorrThreshold {
			frequency := float64(pd.params.SampleRate) / float64(lag)

			if frequency >= pd.params.MinFreq && frequency <= pd.params.MaxFreq {
				candidates = append(candidates, PitchCandidate{
					Frequency:  frequency,
					Confidence: corr,
					Method:     "ACF",
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	result := &PitchDetectionResult{
		Candidates: candidates,
	}

	if len(candidates) > 0 {
		best := candidates[0]
		result.Pitch = best.Frequency
		result.Confidence = best.Confidence
		result.Periodicity = best.Confidence
		result.Voicing = best.Confidence
	}

	return result, nil
}

// parabolicInterpolation refines the period estimate around a minimum
func (pd *PitchDetector) parabolicInterpolation(cmndf []float64, tau int) float64 {
	if tau <= 0 || tau >= len(cmndf)-1 {
		return float64(tau)
	}

	y1 := cmndf[tau-1]
	y2 := cmndf[tau]
	y3 := cmndf[tau+1]

	denom := 2.0 * (y1 - 2.0*y2 + y3)
	if denom == 0 {
		return float64(tau)
	}

	offset := (y1 - y3) / denom
	return float64(tau) + offset
}
