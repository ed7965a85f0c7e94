package analyzers

import (
	"math"

	"github.com/Skymero/lavoe/algorithms/common"
	"github.com/Skymero/lavoe/algorithms/temporal"
	"github.com/Skymero/lavoe/logging"
)

// compressionCrestCeiling is the linear peak-to-RMS ratio below which a
// segment is considered dynamically compressed.
const compressionCrestCeiling = 3.0

// DynamicsResult describes the loudness character of a note segment.
// CrestFactor is the linear peak-to-RMS ratio, not dB.
type DynamicsResult struct {
	LoudnessDB          float64 `json:"loudness_db"` // RMS level in dBFS
	DynamicRangeDB      float64 `json:"dynamic_range_db"`
	CrestFactor         float64 `json:"crest_factor"`
	CompressionDetected bool    `json:"compression_detected"`
}

// DynamicsAnalyzer measures overall level, dynamic range and crest
// factor of a note segment.
type DynamicsAnalyzer struct {
	dynamicRange *temporal.DynamicRange
	logger       logging.Logger
}

// NewDynamicsAnalyzer creates a dynamics analyzer.
func NewDynamicsAnalyzer() *DynamicsAnalyzer {
	return &DynamicsAnalyzer{
		dynamicRange: temporal.NewDynamicRange(),
		logger: logging.WithFields(logging.Fields{
			"component": "dynamics_analyzer",
		}),
	}
}

// Analyze measures the dynamics of a note segment. Silence yields the
// floor loudness with zero range.
func (da *DynamicsAnalyzer) Analyze(samples []float64) (*DynamicsResult, error) {
	if isSilent(samples) {
		return &DynamicsResult{LoudnessDB: 20.0 * math.Log10(1e-10)}, nil
	}

	rms := common.RMS(samples)
	crest := da.dynamicRange.ComputeCrestFactor(samples)

	return &DynamicsResult{
		LoudnessDB:          20.0 * math.Log10(rms+1e-10),
		DynamicRangeDB:      da.dynamicRange.ComputeRange(samples, 0.05, 0.95),
		CrestFactor:         crest,
		CompressionDetected: crest > 0 && crest < compressionCrestCeiling,
	}, nil
}
