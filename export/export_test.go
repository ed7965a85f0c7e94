package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Skymero/lavoe/analysis"
	"github.com/Skymero/lavoe/analysis/analyzers"
)

func sampleAnalysis() *analysis.FileAnalysis {
	return &analysis.FileAnalysis{
		File:       "take.wav",
		Duration:   1.2,
		SampleRate: 44100,
		Monophonic: true,
		AnalyzedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Notes: []*analysis.NoteAnalysisResult{
			{
				NoteIndex: 0,
				StartTime: 0.0,
				EndTime:   0.6,
				Duration:  0.6,
				Key: &analyzers.KeyEstimate{
					Key: "A minor", Tonic: "A", Mode: "minor", Confidence: 0.91,
				},
				Emotion: &analyzers.EmotionResult{
					Emotions: []analyzers.EmotionLabel{
						{Label: "calm", Score: 1.0},
						{Label: "content", Score: 0.72},
					},
					Valence: 0.69,
					Arousal: 0.22,
				},
				Pitch: &analyzers.PitchResult{
					FrequencyHz: 440.1, NoteName: "A4", MIDINote: 69,
					Confidence: 0.95, Stability: 0.99, IsStable: true,
				},
			},
			{
				NoteIndex: 1,
				StartTime: 0.6,
				EndTime:   1.2,
				Duration:  0.6,
				Key:       analyzers.IndeterminateKey(),
				Emotion:   analyzers.NeutralEmotion(),
				Warnings:  []string{"pitch: contour failed"},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleAnalysis()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2 notes", len(rows))
	}

	header := rows[0]
	if len(header) != len(analysis.FieldOrder) {
		t.Fatalf("header has %d columns, want %d", len(header), len(analysis.FieldOrder))
	}
	for i, name := range analysis.FieldOrder {
		if header[i] != name {
			t.Errorf("header[%d] = %q, want %q", i, header[i], name)
		}
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}

	first := rows[1]
	if first[col["key"]] != "A minor" {
		t.Errorf("key column = %q, want A minor", first[col["key"]])
	}
	if first[col["note_name"]] != "A4" {
		t.Errorf("note_name column = %q, want A4", first[col["note_name"]])
	}
	if got := first[col["emotions"]]; !strings.HasPrefix(got, "calm:1.000000|content:") {
		t.Errorf("emotions column = %q, want calm then content", got)
	}

	second := rows[2]
	if second[col["key"]] != "unknown" {
		t.Errorf("fallback key column = %q, want unknown", second[col["key"]])
	}
	if second[col["note_name"]] != "" {
		t.Errorf("missing pitch block should leave note_name empty, got %q", second[col["note_name"]])
	}
	if second[col["warnings"]] != "pitch: contour failed" {
		t.Errorf("warnings column = %q", second[col["warnings"]])
	}
}

func TestWriteJSONRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleAnalysis()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded analysis.FileAnalysis
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.File != "take.wav" || len(decoded.Notes) != 2 {
		t.Errorf("decoded %q with %d notes, want take.wav with 2", decoded.File, len(decoded.Notes))
	}
	if decoded.Notes[0].Pitch == nil || decoded.Notes[0].Pitch.NoteName != "A4" {
		t.Error("pitch block lost in round trip")
	}
	if decoded.Notes[1].Pitch != nil {
		t.Error("nil pitch block should stay nil")
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, sampleAnalysis()); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"take.wav", "A4", "A minor", "calm", "unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q", want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"CSV", FormatCSV, false},
		{"Table", FormatTable, false},
		{"yaml", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr != (err != nil) {
			t.Errorf("ParseFormat(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
