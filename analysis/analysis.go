// Package analysis runs the per-note feature inference pipeline:
// decoded audio is segmented into notes, and every note is analyzed for
// key, emotion and the supplemental acoustic descriptors.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Skymero/lavoe/algorithms/common"
	"github.com/Skymero/lavoe/algorithms/spectral"
	"github.com/Skymero/lavoe/algorithms/windowing"
	"github.com/Skymero/lavoe/decode"
	"github.com/Skymero/lavoe/logging"
	"github.com/Skymero/lavoe/notes"
)

// Monophony selects the segmentation strategy.
type Monophony int

const (
	// MonophonyAuto decides from the signal's mean spectral flatness.
	MonophonyAuto Monophony = iota
	MonophonyMono
	MonophonyPoly
)

// monophonyFlatnessThreshold is the mean spectral flatness above which
// auto-detection treats the signal as monophonic.
const monophonyFlatnessThreshold = 0.1

// FileAnalysis is the complete result for one audio file.
type FileAnalysis struct {
	File       string                `json:"file"`
	Duration   float64               `json:"duration"` // seconds
	SampleRate int                   `json:"sample_rate"`
	Monophonic bool                  `json:"monophonic"`
	Notes      []*NoteAnalysisResult `json:"notes"`
	AnalyzedAt time.Time             `json:"analyzed_at"`
}

// Analyzer ties decoding, note segmentation and per-note aggregation
// into the file-level pipeline. Notes are fanned out to a bounded
// worker pool; each worker owns its own feature provider since the
// providers cache per-buffer state.
type Analyzer struct {
	config   *Config
	decoder  *decode.Decoder
	detector *notes.Detector
	stft     *spectral.STFT
	window   windowing.Function
	flatness *spectral.SpectralFlatness
	logger   logging.Logger
}

// NewAnalyzer creates a file analyzer. A nil config uses defaults.
func NewAnalyzer(cfg *Config) (*Analyzer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, cfg.SampleRate)
	}

	decodeConfig := decode.DefaultConfig()
	decodeConfig.SampleRate = cfg.SampleRate
	decodeConfig.StartTime = cfg.DecodeStart
	decodeConfig.EndTime = cfg.DecodeEnd

	a := &Analyzer{
		config:   cfg,
		decoder:  decode.NewDecoder(decodeConfig),
		detector: notes.NewDetector(cfg.SampleRate, cfg.MinNoteDuration),
		stft:     spectral.NewSTFT(),
		flatness: spectral.NewSpectralFlatness(),
		logger: logging.WithFields(logging.Fields{
			"component": "file_analyzer",
		}),
	}
	if cfg.WindowSize > 0 {
		a.window = windowing.NewHann(cfg.WindowSize, true)
	}
	return a, nil
}

// AnalyzeFile decodes a file and analyzes every detected note.
func (a *Analyzer) AnalyzeFile(ctx context.Context, filename string, mode Monophony) (*FileAnalysis, error) {
	audio, err := a.decoder.DecodeFile(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}

	samples := common.NewNormalizer(common.Peak).Normalize(audio.PCM)
	return a.AnalyzeSignal(ctx, filename, samples, mode)
}

// AnalyzeSignal segments a mono signal into notes and analyzes each
// one. Results are ordered by note index regardless of worker
// scheduling.
func (a *Analyzer) AnalyzeSignal(ctx context.Context, name string, samples []float64, mode Monophony) (*FileAnalysis, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	monophonic := a.resolveMonophony(samples, mode)

	segments, err := a.detector.Detect(samples, monophonic)
	if err != nil {
		return nil, fmt.Errorf("note detection: %w", err)
	}

	a.logger.Info("analyzing notes", logging.Fields{
		"file":       name,
		"notes":      len(segments),
		"monophonic": monophonic,
	})

	results, err := a.analyzeSegments(ctx, segments)
	if err != nil {
		return nil, err
	}

	return &FileAnalysis{
		File:       name,
		Duration:   float64(len(samples)) / float64(a.config.SampleRate),
		SampleRate: a.config.SampleRate,
		Monophonic: monophonic,
		Notes:      results,
		AnalyzedAt: time.Now().UTC(),
	}, nil
}

// analyzeSegments fans note segments out to a bounded worker pool.
func (a *Analyzer) analyzeSegments(ctx context.Context, segments []notes.NoteSegment) ([]*NoteAnalysisResult, error) {
	results := make([]*NoteAnalysisResult, len(segments))
	if len(segments) == 0 {
		return results, nil
	}

	numWorkers := a.config.Workers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if numWorkers > len(segments) {
		numWorkers = len(segments)
	}

	aggregators := make([]*Aggregator, numWorkers)
	for i := range aggregators {
		provider, err := NewDSPProvider(a.config)
		if err != nil {
			return nil, fmt.Errorf("feature provider: %w", err)
		}
		aggregators[i] = NewAggregator(a.config, provider)
	}

	jobs := make(chan int, len(segments))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(agg *Aggregator) {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				seg := segments[idx]
				results[idx] = agg.AnalyzeNote(seg.Index, seg.StartTime, seg.EndTime, seg.Samples)
			}
		}(aggregators[w])
	}

	for i := range segments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolveMonophony applies the explicit mode or the flatness heuristic.
func (a *Analyzer) resolveMonophony(samples []float64, mode Monophony) bool {
	switch mode {
	case MonophonyMono:
		return true
	case MonophonyPoly:
		return false
	}

	if len(samples) < a.config.WindowSize {
		return true
	}

	stftResult, err := a.stft.ComputeWithWindow(samples, a.config.WindowSize, a.config.HopSize, a.config.SampleRate, a.window)
	if err != nil || stftResult.TimeFrames == 0 {
		return true
	}

	sum := 0.0
	for _, frame := range stftResult.Magnitude {
		sum += a.flatness.Compute(frame)
	}
	return sum/float64(stftResult.TimeFrames) > monophonyFlatnessThreshold
}
