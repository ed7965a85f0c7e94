package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Skymero/lavoe/analysis/analyzers"
	"github.com/Skymero/lavoe/logging"
)

// KeyAnalyzer estimates the musical key of a note segment.
type KeyAnalyzer interface {
	Analyze(samples []float64) (*analyzers.KeyEstimate, error)
}

// EmotionAnalyzer estimates the affective character of a note segment.
type EmotionAnalyzer interface {
	Analyze(samples []float64) (*analyzers.EmotionResult, error)
}

// PitchAnalyzer estimates the fundamental frequency of a note segment.
type PitchAnalyzer interface {
	Analyze(samples []float64) (*analyzers.PitchResult, error)
}

// TimbreAnalyzer extracts timbre descriptors from a note segment.
type TimbreAnalyzer interface {
	Analyze(samples []float64) (*analyzers.TimbreResult, error)
}

// EnvelopeAnalyzer characterizes the amplitude envelope of a note.
type EnvelopeAnalyzer interface {
	Analyze(samples []float64) (*analyzers.EnvelopeResult, error)
}

// DynamicsAnalyzer measures the loudness character of a note segment.
type DynamicsAnalyzer interface {
	Analyze(samples []float64) (*analyzers.DynamicsResult, error)
}

// NoteAnalysisResult bundles every analyzer's output for one detected
// note. Optional analyzer blocks are nil when disabled by config.
// Warnings record analyzers that failed and were replaced by their
// documented fallback.
type NoteAnalysisResult struct {
	NoteIndex int     `json:"note_index"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`

	Key     *analyzers.KeyEstimate   `json:"key"`
	Emotion *analyzers.EmotionResult `json:"emotion"`

	Pitch    *analyzers.PitchResult    `json:"pitch,omitempty"`
	Timbre   *analyzers.TimbreResult   `json:"timbre,omitempty"`
	Envelope *analyzers.EnvelopeResult `json:"envelope,omitempty"`
	Dynamics *analyzers.DynamicsResult `json:"dynamics,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// FieldOrder is the canonical column order for flat exports.
var FieldOrder = []string{
	"note_index", "start_time", "end_time", "duration",
	"key", "tonic", "mode", "key_confidence",
	"valence", "arousal", "intensity", "emotions",
	"pitch_hz", "note_name", "midi_note", "pitch_confidence", "pitch_stability",
	"spectral_centroid", "brightness", "warmth", "noisiness", "harmonic_ratio",
	"attack_time", "decay_time", "sustain_level", "release_time", "envelope_shape",
	"loudness_db", "dynamic_range_db", "crest_factor", "compression_detected",
	"warnings",
}

// Fields flattens the result into string values keyed by FieldOrder
// names. Disabled analyzer blocks yield empty strings for their
// columns. Emotion labels are encoded as "label:score|label:score".
func (r *NoteAnalysisResult) Fields() map[string]string {
	fields := map[string]string{
		"note_index": strconv.Itoa(r.NoteIndex),
		"start_time": formatFloat(r.StartTime),
		"end_time":   formatFloat(r.EndTime),
		"duration":   formatFloat(r.Duration),
		"warnings":   strings.Join(r.Warnings, "; "),
	}
	for _, name := range FieldOrder {
		if _, ok := fields[name]; !ok {
			fields[name] = ""
		}
	}

	if r.Key != nil {
		fields["key"] = r.Key.Key
		fields["tonic"] = r.Key.Tonic
		fields["mode"] = r.Key.Mode
		fields["key_confidence"] = formatFloat(r.Key.Confidence)
	}

	if r.Emotion != nil {
		fields["valence"] = formatFloat(r.Emotion.Valence)
		fields["arousal"] = formatFloat(r.Emotion.Arousal)
		fields["intensity"] = formatFloat(r.Emotion.Intensity)
		labels := make([]string, len(r.Emotion.Emotions))
		for i, e := range r.Emotion.Emotions {
			labels[i] = fmt.Sprintf("%s:%s", e.Label, formatFloat(e.Score))
		}
		fields["emotions"] = strings.Join(labels, "|")
	}

	if r.Pitch != nil {
		fields["pitch_hz"] = formatFloat(r.Pitch.FrequencyHz)
		fields["note_name"] = r.Pitch.NoteName
		fields["midi_note"] = strconv.Itoa(r.Pitch.MIDINote)
		fields["pitch_confidence"] = formatFloat(r.Pitch.Confidence)
		fields["pitch_stability"] = formatFloat(r.Pitch.Stability)
	}

	if r.Timbre != nil {
		fields["spectral_centroid"] = formatFloat(r.Timbre.SpectralCentroid)
		fields["brightness"] = formatFloat(r.Timbre.Brightness)
		fields["warmth"] = formatFloat(r.Timbre.Warmth)
		fields["noisiness"] = formatFloat(r.Timbre.Noisiness)
		fields["harmonic_ratio"] = formatFloat(r.Timbre.HarmonicRatio)
	}

	if r.Envelope != nil {
		fields["attack_time"] = formatFloat(r.Envelope.AttackTime)
		fields["decay_time"] = formatFloat(r.Envelope.DecayTime)
		fields["sustain_level"] = formatFloat(r.Envelope.SustainLevel)
		fields["release_time"] = formatFloat(r.Envelope.ReleaseTime)
		fields["envelope_shape"] = r.Envelope.Shape
	}

	if r.Dynamics != nil {
		fields["loudness_db"] = formatFloat(r.Dynamics.LoudnessDB)
		fields["dynamic_range_db"] = formatFloat(r.Dynamics.DynamicRangeDB)
		fields["crest_factor"] = formatFloat(r.Dynamics.CrestFactor)
		fields["compression_detected"] = strconv.FormatBool(r.Dynamics.CompressionDetected)
	}

	return fields
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Aggregator runs every enabled analyzer on a note segment and collects
// their results. A single analyzer failure never aborts the note: the
// failed block is replaced by its documented fallback and the failure
// recorded as a warning on the result.
type Aggregator struct {
	Key      KeyAnalyzer
	Emotion  EmotionAnalyzer
	Pitch    PitchAnalyzer
	Timbre   TimbreAnalyzer
	Envelope EnvelopeAnalyzer
	Dynamics DynamicsAnalyzer

	logger logging.Logger
}

// NewAggregator wires the default analyzer set on top of the given
// feature provider. Analyzers disabled by config are left nil and
// skipped.
func NewAggregator(cfg *Config, provider analyzers.FeatureProvider) *Aggregator {
	agg := &Aggregator{
		Key:     analyzers.NewKeyAnalyzer(provider),
		Emotion: analyzers.NewEmotionAnalyzerWithParams(provider, cfg.Emotion),
		logger: logging.WithFields(logging.Fields{
			"component": "aggregator",
		}),
	}
	if cfg.EnablePitch {
		agg.Pitch = analyzers.NewPitchAnalyzer(cfg.SampleRate)
	}
	if cfg.EnableTimbre {
		agg.Timbre = analyzers.NewTimbreAnalyzer(cfg.SampleRate)
	}
	if cfg.EnableEnvelope {
		agg.Envelope = analyzers.NewEnvelopeAnalyzer(cfg.SampleRate)
	}
	if cfg.EnableDynamics {
		agg.Dynamics = analyzers.NewDynamicsAnalyzer()
	}
	return agg
}

// AnalyzeNote runs all wired analyzers on one note segment.
func (a *Aggregator) AnalyzeNote(index int, startTime, endTime float64, samples []float64) *NoteAnalysisResult {
	result := &NoteAnalysisResult{
		NoteIndex: index,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  endTime - startTime,
	}

	if a.Key != nil {
		key, err := a.Key.Analyze(samples)
		if err != nil {
			a.warn(result, "key", err)
			key = analyzers.IndeterminateKey()
		}
		result.Key = key
	}

	if a.Emotion != nil {
		emotion, err := a.Emotion.Analyze(samples)
		if err != nil {
			a.warn(result, "emotion", err)
			emotion = analyzers.NeutralEmotion()
		}
		result.Emotion = emotion
	}

	if a.Pitch != nil {
		pitch, err := a.Pitch.Analyze(samples)
		if err != nil {
			a.warn(result, "pitch", err)
			pitch = &analyzers.PitchResult{}
		}
		result.Pitch = pitch
	}

	if a.Timbre != nil {
		timbre, err := a.Timbre.Analyze(samples)
		if err != nil {
			a.warn(result, "timbre", err)
			timbre = &analyzers.TimbreResult{}
		}
		result.Timbre = timbre
	}

	if a.Envelope != nil {
		envelope, err := a.Envelope.Analyze(samples)
		if err != nil {
			a.warn(result, "envelope", err)
			envelope = &analyzers.EnvelopeResult{Shape: "unknown"}
		}
		result.Envelope = envelope
	}

	if a.Dynamics != nil {
		dynamics, err := a.Dynamics.Analyze(samples)
		if err != nil {
			a.warn(result, "dynamics", err)
			dynamics = &analyzers.DynamicsResult{}
		}
		result.Dynamics = dynamics
	}

	return result
}

func (a *Aggregator) warn(result *NoteAnalysisResult, analyzer string, err error) {
	a.logger.Warn("analyzer failed, using fallback", logging.Fields{
		"analyzer":   analyzer,
		"note_index": result.NoteIndex,
		"error":      err.Error(),
	})
	result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", analyzer, err))
}
