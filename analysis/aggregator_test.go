package analysis

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Skymero/lavoe/analysis/analyzers"
)

// failingEmotion stands in for an analyzer that always errors.
type failingEmotion struct{}

func (failingEmotion) Analyze(samples []float64) (*analyzers.EmotionResult, error) {
	return nil, errors.New("feature extraction blew up")
}

func sineSegment(freq, duration float64, sampleRate int) []float64 {
	samples := make([]float64, int(duration*float64(sampleRate)))
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = 0.8 * math.Sin(2*math.Pi*freq*t)
	}
	return samples
}

func newTestAggregator(t *testing.T, cfg *Config) *Aggregator {
	t.Helper()
	provider, err := NewDSPProvider(cfg)
	if err != nil {
		t.Fatalf("NewDSPProvider: %v", err)
	}
	return NewAggregator(cfg, provider)
}

func TestAggregatorAnalyzesAllBlocks(t *testing.T) {
	cfg := DefaultConfig()
	agg := newTestAggregator(t, cfg)

	result := agg.AnalyzeNote(0, 0.0, 0.5, sineSegment(440, 0.5, cfg.SampleRate))

	if result.Key == nil || result.Emotion == nil {
		t.Fatal("key and emotion blocks must always be present")
	}
	if result.Pitch == nil || result.Timbre == nil || result.Envelope == nil || result.Dynamics == nil {
		t.Fatal("all supplemental blocks enabled, all must be present")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if result.Duration != 0.5 {
		t.Errorf("duration = %v, want 0.5", result.Duration)
	}
}

func TestAggregatorDisabledAnalyzersStayNil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnablePitch = false
	cfg.EnableTimbre = false
	agg := newTestAggregator(t, cfg)

	result := agg.AnalyzeNote(0, 0.0, 0.5, sineSegment(440, 0.5, cfg.SampleRate))

	if result.Pitch != nil || result.Timbre != nil {
		t.Error("disabled analyzers must leave their blocks nil")
	}
	if result.Envelope == nil || result.Dynamics == nil {
		t.Error("still-enabled analyzers must run")
	}
}

func TestAggregatorFailureFallsBackAndContinues(t *testing.T) {
	cfg := DefaultConfig()
	agg := newTestAggregator(t, cfg)
	agg.Emotion = failingEmotion{}

	result := agg.AnalyzeNote(3, 1.0, 1.5, sineSegment(440, 0.5, cfg.SampleRate))

	if result.Key == nil || result.Key.Indeterminate {
		t.Error("key analysis should still succeed when emotion fails")
	}
	if result.Emotion == nil {
		t.Fatal("emotion must fall back, not stay nil")
	}
	if len(result.Emotion.Emotions) != 1 || result.Emotion.Emotions[0].Label != "neutral" {
		t.Errorf("fallback emotions = %v, want single neutral", result.Emotion.Emotions)
	}
	if len(result.Warnings) != 1 || !strings.HasPrefix(result.Warnings[0], "emotion:") {
		t.Errorf("warnings = %v, want one emotion warning", result.Warnings)
	}

	// The next note on the same aggregator is unaffected except for
	// the same fallback.
	next := agg.AnalyzeNote(4, 1.5, 2.0, sineSegment(550, 0.5, cfg.SampleRate))
	if next.Key == nil || next.Key.Indeterminate {
		t.Error("subsequent notes must keep analyzing")
	}
}

func TestFieldsCoversCanonicalOrder(t *testing.T) {
	cfg := DefaultConfig()
	agg := newTestAggregator(t, cfg)

	result := agg.AnalyzeNote(0, 0.0, 0.5, sineSegment(440, 0.5, cfg.SampleRate))
	fields := result.Fields()

	for _, name := range FieldOrder {
		if _, ok := fields[name]; !ok {
			t.Errorf("Fields() missing column %q", name)
		}
	}
	if fields["note_index"] != "0" {
		t.Errorf("note_index = %q, want 0", fields["note_index"])
	}
}

func TestAnalyzeSignalOrdersNotesByIndex(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 2

	analyzer, err := NewAnalyzer(cfg)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	// Three decaying bursts separated by silence.
	signal := make([]float64, 3*cfg.SampleRate)
	for n, freq := range []float64{330, 440, 550} {
		start := n*cfg.SampleRate + cfg.SampleRate/10
		for i := 0; i < cfg.SampleRate/2; i++ {
			t := float64(i) / float64(cfg.SampleRate)
			signal[start+i] = 0.8 * math.Exp(-3*t) * math.Sin(2*math.Pi*freq*t)
		}
	}

	result, err := analyzer.AnalyzeSignal(context.Background(), "synthetic", signal, MonophonyMono)
	if err != nil {
		t.Fatalf("AnalyzeSignal: %v", err)
	}

	if result.File != "synthetic" || !result.Monophonic {
		t.Errorf("got file=%q monophonic=%v", result.File, result.Monophonic)
	}
	if len(result.Notes) == 0 {
		t.Fatal("no notes analyzed")
	}
	for i, note := range result.Notes {
		if note == nil {
			t.Fatalf("note %d missing from results", i)
		}
		if note.NoteIndex != i {
			t.Errorf("note %d has index %d, want %d", i, note.NoteIndex, i)
		}
		if i > 0 && note.StartTime < result.Notes[i-1].StartTime {
			t.Errorf("note %d out of time order", i)
		}
	}
}

func TestAnalyzeSignalEmptyInput(t *testing.T) {
	analyzer, err := NewAnalyzer(nil)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	if _, err := analyzer.AnalyzeSignal(context.Background(), "x", nil, MonophonyAuto); err == nil {
		t.Error("empty signal should error")
	}
}

func TestNewAnalyzerRejectsBadSampleRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0
	if _, err := NewAnalyzer(cfg); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("err = %v, want ErrInvalidSampleRate", err)
	}
}
