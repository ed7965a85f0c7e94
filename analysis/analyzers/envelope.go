package analyzers

import (
	"math"

	"github.com/Skymero/lavoe/algorithms/common"
	"github.com/Skymero/lavoe/algorithms/temporal"
	"github.com/Skymero/lavoe/logging"
)

const (
	envelopeFrameSize = 512
	envelopeHopSize   = 128
	envelopeSmoothing = 3
)

// EnvelopeResult describes the amplitude envelope of a note as ADSR
// phase durations plus a coarse shape classification.
type EnvelopeResult struct {
	AttackTime   float64 `json:"attack_time"`   // seconds, 10% of peak to peak
	DecayTime    float64 `json:"decay_time"`    // seconds, peak to stable level
	SustainLevel float64 `json:"sustain_level"` // fraction of peak
	ReleaseTime  float64 `json:"release_time"`  // seconds, final fade
	Shape        string  `json:"shape"`         // percussive, pluck, pad, plucked_string, swell, sustained, unknown
	PeakPosition float64 `json:"peak_position"` // peak location as fraction of duration
	EnvelopeArea float64 `json:"envelope_area"` // mean of the normalized envelope

	// TransientRatio is the fraction of segment energy carried by
	// frames with a rapidly changing envelope.
	TransientRatio float64 `json:"transient_ratio"`
}

// EnvelopeAnalyzer characterizes how a note's amplitude evolves over
// its duration. The envelope is a smoothed, peak-normalized RMS curve;
// phase boundaries are read off it directly rather than fit to an
// idealized ADSR model.
type EnvelopeAnalyzer struct {
	sampleRate int
	envelope   *temporal.Envelope
	transients *temporal.AttackDecay
	logger     logging.Logger
}

// NewEnvelopeAnalyzer creates an envelope analyzer for the given sample
// rate.
func NewEnvelopeAnalyzer(sampleRate int) *EnvelopeAnalyzer {
	return &EnvelopeAnalyzer{
		sampleRate: sampleRate,
		envelope:   temporal.NewEnvelope(),
		transients: temporal.NewAttackDecay(),
		logger: logging.WithFields(logging.Fields{
			"component": "envelope_analyzer",
		}),
	}
}

// Analyze extracts ADSR phase durations and a shape label from a note
// segment. Segments shorter than one analysis frame or silent yield the
// zero value with shape "unknown".
func (ea *EnvelopeAnalyzer) Analyze(samples []float64) (*EnvelopeResult, error) {
	if len(samples) < envelopeFrameSize || isSilent(samples) {
		return &EnvelopeResult{Shape: "unknown"}, nil
	}

	rms := ea.envelope.ComputeRMS(samples, envelopeFrameSize, envelopeHopSize)
	if len(rms) < 2 {
		return &EnvelopeResult{Shape: "unknown"}, nil
	}
	smoothed := ea.envelope.ComputeSmoothed(rms, envelopeSmoothing)
	env := ea.envelope.NormalizeToPeak(smoothed)

	frameTime := float64(envelopeHopSize) / float64(ea.sampleRate)

	peakIdx := 0
	for i, v := range env {
		if v > env[peakIdx] {
			peakIdx = i
		}
	}

	result := &EnvelopeResult{
		PeakPosition: float64(peakIdx) / float64(len(env)),
		EnvelopeArea: common.Mean(env),
	}

	// Attack runs from the first frame above 10% of peak to the peak.
	attackStart := peakIdx
	for i := 0; i <= peakIdx; i++ {
		if env[i] >= 0.1 {
			attackStart = i
			break
		}
	}
	result.AttackTime = float64(peakIdx-attackStart) * frameTime

	// Decay ends at the first post-peak frame where the envelope has
	// flattened out.
	decayEnd := len(env) - 1
	for i := peakIdx + 1; i < len(env); i++ {
		if math.Abs(env[i]-env[i-1]) < 0.01 {
			decayEnd = i
			break
		}
	}
	result.DecayTime = float64(decayEnd-peakIdx) * frameTime

	// Sustain level is the mean over a window after the decay settles.
	sustainEnd := decayEnd + len(env)/4
	if sustainEnd > len(env) {
		sustainEnd = len(env)
	}
	if sustainEnd > decayEnd {
		result.SustainLevel = common.Mean(env[decayEnd:sustainEnd])
	}

	releaseFrames := len(env) / 5
	result.ReleaseTime = float64(releaseFrames) * frameTime

	result.TransientRatio = ea.transients.ComputeTransientRatio(samples, ea.sampleRate)
	result.Shape = classifyShape(result.PeakPosition, result.EnvelopeArea)

	return result, nil
}

// classifyShape labels the envelope from where the peak falls and how
// much area the curve encloses. Early peak with little area reads as a
// drum hit; late peak with large area reads as a bowed or blown swell.
func classifyShape(peakPos, area float64) string {
	switch {
	case peakPos < 0.1:
		if area < 0.3 {
			return "percussive"
		}
		return "pluck"
	case peakPos < 0.3:
		if area > 0.6 {
			return "pad"
		}
		return "plucked_string"
	case area > 0.7:
		return "swell"
	case area > 0.4:
		return "sustained"
	default:
		return "unknown"
	}
}
