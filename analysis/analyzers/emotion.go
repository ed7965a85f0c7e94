package analyzers

import (
	"math"
	"sort"

	"github.com/Skymero/lavoe/algorithms/common"
	"github.com/Skymero/lavoe/logging"
)

// AffectiveFeatures are the scalar acoustic descriptors extracted once
// per segment and shared between valence and arousal estimation. The
// full set is retained on the result so downstream consumers can
// re-rank with different weights without recomputation.
type AffectiveFeatures struct {
	RMSMean           float64 `json:"rms_mean"`
	RMSStd            float64 `json:"rms_std"`
	ZCRMean           float64 `json:"zcr_mean"`
	SpectralCentroid  float64 `json:"spectral_centroid"`
	Brightness        float64 `json:"brightness"` // centroid normalized over 500-5000 Hz
	SpectralBandwidth float64 `json:"spectral_bandwidth"`
	Smoothness        float64 `json:"smoothness"` // 1 - bandwidth/centroid, clamped
	SpectralFlatness  float64 `json:"spectral_flatness"`
	TempoBPM          float64 `json:"tempo_bpm"`
	TempoScore        float64 `json:"tempo_score"` // BPM normalized over 40-200
	SpectralFlux      float64 `json:"spectral_flux"`
	FluxScore         float64 `json:"flux_score"` // flux normalized over 0-5
	HarmonicRatio     float64 `json:"harmonic_ratio"`
	PercussiveRatio   float64 `json:"percussive_ratio"`
	MFCC1             float64 `json:"mfcc1"`
	MFCC2             float64 `json:"mfcc2"`
}

// Map returns the features as a named scalar mapping for export.
func (f AffectiveFeatures) Map() map[string]float64 {
	return map[string]float64{
		"rms_mean":           f.RMSMean,
		"rms_std":            f.RMSStd,
		"zcr_mean":           f.ZCRMean,
		"spectral_centroid":  f.SpectralCentroid,
		"brightness":         f.Brightness,
		"spectral_bandwidth": f.SpectralBandwidth,
		"smoothness":         f.Smoothness,
		"spectral_flatness":  f.SpectralFlatness,
		"tempo_bpm":          f.TempoBPM,
		"tempo_score":        f.TempoScore,
		"spectral_flux":      f.SpectralFlux,
		"flux_score":         f.FluxScore,
		"harmonic_ratio":     f.HarmonicRatio,
		"percussive_ratio":   f.PercussiveRatio,
		"mfcc1":              f.MFCC1,
		"mfcc2":              f.MFCC2,
	}
}

// EmotionLabel is one ranked emotion tag with its score in [0, 1].
type EmotionLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// EmotionResult is the per-note emotional-character estimate: a point on
// the valence/arousal plane, a monotone intensity, ranked labels, and
// the underlying feature set.
type EmotionResult struct {
	Emotions  []EmotionLabel    `json:"emotions"` // descending by score
	Valence   float64           `json:"valence"`  // [-1, 1]
	Arousal   float64           `json:"arousal"`  // [0, 1]
	Intensity float64           `json:"intensity"`
	Features  AffectiveFeatures `json:"features"`
}

// NeutralEmotion returns the fallback result for empty or silent
// segments: a single neutral label with zero scores everywhere.
func NeutralEmotion() *EmotionResult {
	return &EmotionResult{
		Emotions: []EmotionLabel{{Label: "neutral", Score: 0.0}},
	}
}

// EmotionParams are the tunable weighting coefficients of the valence
// and arousal combinations. The sign conventions are fixed (each term's
// direction is part of the contract); the magnitudes are free
// parameters with uncalibrated defaults.
type EmotionParams struct {
	// Valence weights. Higher harmonic dominance, spectral smoothness
	// and brightness each push valence positive.
	ValenceHarmonic   float64 `json:"valence_harmonic"`
	ValenceSmoothness float64 `json:"valence_smoothness"`
	ValenceBrightness float64 `json:"valence_brightness"`

	// Arousal weights. Louder, faster, brighter, more percussive and
	// more transient all push arousal up. The weights sum to 1 so the
	// combination already lies in [0, 1].
	ArousalEnergy     float64 `json:"arousal_energy"`
	ArousalTempo      float64 `json:"arousal_tempo"`
	ArousalBrightness float64 `json:"arousal_brightness"`
	ArousalPercussive float64 `json:"arousal_percussive"`
	ArousalFlux       float64 `json:"arousal_flux"`
	ArousalEnergyVar  float64 `json:"arousal_energy_var"`
}

// DefaultEmotionParams returns the default weighting coefficients.
func DefaultEmotionParams() EmotionParams {
	return EmotionParams{
		ValenceHarmonic:   0.60,
		ValenceSmoothness: 0.25,
		ValenceBrightness: 0.15,
		ArousalEnergy:     0.35,
		ArousalTempo:      0.20,
		ArousalBrightness: 0.15,
		ArousalPercussive: 0.15,
		ArousalFlux:       0.10,
		ArousalEnergyVar:  0.05,
	}
}

// emotionPrototype anchors one label on the normalized (valence,
// arousal) plane, both coordinates in [0, 1].
type emotionPrototype struct {
	label   string
	valence float64
	arousal float64
}

// Four-quadrant emotion model: happy/excited in the high-valence
// high-arousal quadrant, calm/content below it, angry/fearful opposite,
// sad/bored in the low/low corner, neutral at the center. Declaration
// order breaks score ties, keeping the ranking deterministic.
var emotionPrototypes = []emotionPrototype{
	{"happy", 0.85, 0.85},
	{"excited", 0.65, 0.95},
	{"calm", 0.75, 0.35},
	{"content", 0.65, 0.45},
	{"fearful", 0.35, 0.85},
	{"angry", 0.20, 0.90},
	{"bored", 0.30, 0.30},
	{"sad", 0.25, 0.20},
	{"neutral", 0.50, 0.50},
}

const (
	minLabelScore = 0.05
	maxLabels     = 4
)

// EmotionAnalyzer maps low-level acoustic descriptors of a note segment
// to a valence/arousal point and a ranked set of emotion labels.
type EmotionAnalyzer struct {
	provider FeatureProvider
	params   EmotionParams
	logger   logging.Logger
}

// NewEmotionAnalyzer creates an emotion analyzer with default weights.
func NewEmotionAnalyzer(provider FeatureProvider) *EmotionAnalyzer {
	return NewEmotionAnalyzerWithParams(provider, DefaultEmotionParams())
}

// NewEmotionAnalyzerWithParams creates an emotion analyzer with custom
// weighting coefficients.
func NewEmotionAnalyzerWithParams(provider FeatureProvider, params EmotionParams) *EmotionAnalyzer {
	return &EmotionAnalyzer{
		provider: provider,
		params:   params,
		logger: logging.WithFields(logging.Fields{
			"component": "emotion_analyzer",
		}),
	}
}

// Analyze estimates the emotional character of a note segment. Empty or
// all-zero segments short-circuit to the neutral fallback before any
// feature extraction.
func (ea *EmotionAnalyzer) Analyze(samples []float64) (*EmotionResult, error) {
	if isSilent(samples) {
		return NeutralEmotion(), nil
	}

	features := ea.extractFeatures(samples)
	return ea.EstimateFromFeatures(features), nil
}

// EstimateFromFeatures computes valence, arousal, intensity and the
// ranked label set from an already-extracted feature set. Exposed so
// callers can re-score cached features with different weights.
func (ea *EmotionAnalyzer) EstimateFromFeatures(features AffectiveFeatures) *EmotionResult {
	valence := ea.estimateValence(features)
	arousal := ea.estimateArousal(features)

	return &EmotionResult{
		Emotions: rankEmotions(valence, arousal),
		Valence:  valence,
		Arousal:  arousal,
		// Intensity is a monotone rescaling of arousal; with arousal
		// already in [0, 1] the rescaling is the identity, but the
		// field is kept separate for consumers.
		Intensity: arousal,
		Features:  features,
	}
}

// extractFeatures runs all primitive extractions for one segment. A
// degenerate result from any single extraction (NaN, Inf) is replaced
// by a neutral zero so one bad feature cannot poison the scores.
func (ea *EmotionAnalyzer) extractFeatures(samples []float64) AffectiveFeatures {
	var f AffectiveFeatures

	rmsEnv := ea.provider.RMSEnvelope(samples)
	f.RMSMean = sanitize(common.Mean(rmsEnv))
	f.RMSStd = sanitize(common.StandardDeviation(rmsEnv))

	f.ZCRMean = sanitize(ea.provider.ZeroCrossingRate(samples))

	shape, err := ea.provider.SpectralShape(samples)
	if err != nil {
		ea.logger.Warn("spectral shape extraction failed, using neutral defaults", logging.Fields{
			"error": err.Error(),
		})
	}
	f.SpectralCentroid = sanitize(shape.Centroid)
	f.Brightness = normalizeRange(f.SpectralCentroid, 500.0, 5000.0)
	f.SpectralBandwidth = sanitize(shape.Bandwidth)
	if f.SpectralCentroid > 0 {
		f.Smoothness = 1.0 - clamp01(f.SpectralBandwidth/f.SpectralCentroid)
	}
	f.SpectralFlatness = sanitize(shape.Flatness)
	f.SpectralFlux = sanitize(shape.Flux)
	f.FluxScore = normalizeRange(f.SpectralFlux, 0.0, 5.0)

	f.TempoBPM = sanitize(ea.provider.Tempo(samples))
	f.TempoScore = normalizeRange(f.TempoBPM, 40.0, 200.0)

	harmonicEnergy, percussiveEnergy, err := ea.provider.HarmonicPercussive(samples)
	if err != nil {
		ea.logger.Warn("hpss extraction failed, using neutral defaults", logging.Fields{
			"error": err.Error(),
		})
	}
	totalEnergy := sanitize(harmonicEnergy) + sanitize(percussiveEnergy) + 1e-9
	f.HarmonicRatio = sanitize(harmonicEnergy) / totalEnergy
	f.PercussiveRatio = sanitize(percussiveEnergy) / totalEnergy

	mfcc := ea.provider.MFCCMeans(samples, 2)
	if len(mfcc) > 0 {
		f.MFCC1 = sanitize(mfcc[0])
	}
	if len(mfcc) > 1 {
		f.MFCC2 = sanitize(mfcc[1])
	}

	return f
}

// estimateValence combines harmonic dominance, spectral smoothness and
// brightness into a [-1, 1] valence score.
func (ea *EmotionAnalyzer) estimateValence(f AffectiveFeatures) float64 {
	raw := ea.params.ValenceHarmonic*clamp01(f.HarmonicRatio) +
		ea.params.ValenceSmoothness*clamp01(f.Smoothness) +
		ea.params.ValenceBrightness*clamp01(f.Brightness)
	return clamp(raw*2.0-1.0, -1.0, 1.0)
}

// estimateArousal combines loudness, tempo, brightness, percussive
// share, spectral flux and loudness variation into a [0, 1] arousal
// score.
func (ea *EmotionAnalyzer) estimateArousal(f AffectiveFeatures) float64 {
	energyScore := normalizeRange(f.RMSMean, 0.0, 0.4)
	energyVarScore := normalizeRange(f.RMSStd, 0.0, 0.2)

	raw := ea.params.ArousalEnergy*energyScore +
		ea.params.ArousalTempo*clamp01(f.TempoScore) +
		ea.params.ArousalBrightness*clamp01(f.Brightness) +
		ea.params.ArousalPercussive*clamp01(f.PercussiveRatio) +
		ea.params.ArousalFlux*clamp01(f.FluxScore) +
		ea.params.ArousalEnergyVar*energyVarScore
	return clamp01(raw)
}

// rankEmotions scores each prototype inversely by Euclidean distance
// from the (valence, arousal) point, drops negligible labels,
// normalizes by the top score, and returns at most maxLabels labels in
// descending order.
func rankEmotions(valence, arousal float64) []EmotionLabel {
	valence01 := (valence + 1.0) / 2.0

	labels := make([]EmotionLabel, 0, len(emotionPrototypes))
	for _, proto := range emotionPrototypes {
		dv := valence01 - proto.valence
		da := arousal - proto.arousal
		score := 1.0 - 1.5*math.Sqrt(dv*dv+da*da)
		if score > minLabelScore {
			labels = append(labels, EmotionLabel{Label: proto.label, Score: score})
		}
	}

	if len(labels) == 0 {
		return []EmotionLabel{{Label: "neutral", Score: 1.0}}
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Score > labels[j].Score
	})

	top := labels[0].Score
	for i := range labels {
		labels[i].Score = clamp01(labels[i].Score / top)
	}

	if len(labels) > maxLabels {
		labels = labels[:maxLabels]
	}
	return labels
}

// sanitize replaces non-finite values with a neutral zero.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

// normalizeRange min-max normalizes a value into [0, 1].
func normalizeRange(value, lo, hi float64) float64 {
	if hi <= lo {
		return 0.0
	}
	return clamp01((value - lo) / (hi - lo))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clamp01(v float64) float64 {
	return clamp(v, 0.0, 1.0)
}
