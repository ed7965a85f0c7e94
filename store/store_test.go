package store

import (
	"errors"
	"testing"
	"time"

	"github.com/Skymero/lavoe/analysis"
	"github.com/Skymero/lavoe/analysis/analyzers"
)

func testAnalysis(file string, noteCount int) *analysis.FileAnalysis {
	result := &analysis.FileAnalysis{
		File:       file,
		Duration:   2.5,
		SampleRate: 44100,
		Monophonic: true,
		AnalyzedAt: time.Now().UTC(),
	}
	for i := 0; i < noteCount; i++ {
		result.Notes = append(result.Notes, &analysis.NoteAnalysisResult{
			NoteIndex: i,
			StartTime: float64(i),
			EndTime:   float64(i) + 0.5,
			Duration:  0.5,
			Key:       &analyzers.KeyEstimate{Key: "C major", Tonic: "C", Mode: "major", Confidence: 0.8},
			Emotion:   analyzers.NeutralEmotion(),
		})
	}
	return result
}

func TestStoreSaveGetRoundtrip(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	id, err := st.SaveAnalysis(testAnalysis("song.wav", 3))
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if id == "" {
		t.Fatal("SaveAnalysis returned empty id")
	}

	record, err := st.GetAnalysis(id)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if record.ID != id {
		t.Errorf("record ID = %q, want %q", record.ID, id)
	}
	if record.Analysis.File != "song.wav" {
		t.Errorf("file = %q, want song.wav", record.Analysis.File)
	}
	if len(record.Analysis.Notes) != 3 {
		t.Errorf("got %d notes, want 3", len(record.Analysis.Notes))
	}
	if record.Analysis.Notes[0].Key.Key != "C major" {
		t.Errorf("note key = %q, want C major", record.Analysis.Notes[0].Key.Key)
	}
}

func TestStoreGetMissing(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	_, err = st.GetAnalysis("no-such-id")
	if !errors.Is(err, ErrAnalysisNotFound) {
		t.Errorf("err = %v, want ErrAnalysisNotFound", err)
	}
}

func TestStoreList(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	id1, err := st.SaveAnalysis(testAnalysis("a.wav", 1))
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	id2, err := st.SaveAnalysis(testAnalysis("b.wav", 2))
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	summaries, err := st.ListAnalyses()
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	byID := map[string]Summary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}
	if s, ok := byID[id1]; !ok || s.File != "a.wav" || s.NoteCount != 1 {
		t.Errorf("summary for %s = %+v, want a.wav with 1 note", id1, s)
	}
	if s, ok := byID[id2]; !ok || s.File != "b.wav" || s.NoteCount != 2 {
		t.Errorf("summary for %s = %+v, want b.wav with 2 notes", id2, s)
	}
}

func TestStoreDelete(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	id, err := st.SaveAnalysis(testAnalysis("gone.wav", 1))
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	if err := st.DeleteAnalysis(id); err != nil {
		t.Fatalf("DeleteAnalysis: %v", err)
	}
	if _, err := st.GetAnalysis(id); !errors.Is(err, ErrAnalysisNotFound) {
		t.Errorf("after delete, err = %v, want ErrAnalysisNotFound", err)
	}

	if err := st.DeleteAnalysis(id); !errors.Is(err, ErrAnalysisNotFound) {
		t.Errorf("deleting again, err = %v, want ErrAnalysisNotFound", err)
	}
}
