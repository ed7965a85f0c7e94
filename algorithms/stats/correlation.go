package stats

import (
	"fmt"
)

// CorrelationResult contains lag-domain correlation values
type CorrelationResult struct {
	Correlations    []float64 `json:"correlations"`     // correlation per lag
	Lags            []int     `json:"lags"`             // lag values, one per correlation
	PeakCorrelation float64   `json:"peak_correlation"` // strongest correlation beyond lag 0
	PeakLag         int       `json:"peak_lag"`         // lag of the strongest correlation
}

// AutoCorrelation computes normalized auto-correlation of a signal over
// non-negative lags. Periodic signals show peaks at multiples of their
// period, which is the basis of lag-domain pitch detection.
type AutoCorrelation struct {
	maxLag int
}

// NewAutoCorrelation creates a new auto-correlation calculator
func NewAutoCorrelation(maxLag int) *AutoCorrelation {
	return &AutoCorrelation{
		maxLag: maxLag,
	}
}

// Compute calculates auto-correlation for lags 0..maxLag, normalized by
// the zero-lag energy so values fall in [-1, 1].
func (ac *AutoCorrelation) Compute(signal []float64) (*CorrelationResult, error) {
	if len(signal) < 2 {
		return nil, fmt.Errorf("signal too short for auto-correlation: %d samples", len(signal))
	}

	maxLag := ac.maxLag
	if maxLag <= 0 || maxLag >= len(signal) {
		maxLag = len(signal) - 1
	}

	correlations := make([]float64, maxLag+1)
	lags := make([]int, maxLag+1)

	for lag := 0; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i < len(signal)-lag; i++ {
			sum += signal[i] * signal[i+lag]
		}
		correlations[lag] = sum
		lags[lag] = lag
	}

	// Normalize by zero-lag energy
	if correlations[0] > 1e-10 {
		zeroLag := correlations[0]
		for i := range correlations {
			correlations[i] /= zeroLag
		}
	}

	// Peak beyond lag 0
	peakCorr := 0.0
	peakLag := 0
	for lag := 1; lag <= maxLag; lag++ {
		if correlations[lag] > peakCorr {
			peakCorr = correlations[lag]
			peakLag = lag
		}
	}

	return &CorrelationResult{
		Correlations:    correlations,
		Lags:            lags,
		PeakCorrelation: peakCorr,
		PeakLag:         peakLag,
	}, nil
}
