// Package export renders file analysis results as JSON, CSV or a
// terminal table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/Skymero/lavoe/analysis"
)

// WriteJSON writes the full analysis as indented JSON.
func WriteJSON(w io.Writer, result *analysis.FileAnalysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteCSV writes one row per note, flattened via Fields() and ordered
// by the canonical column order.
func WriteCSV(w io.Writer, result *analysis.FileAnalysis) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(analysis.FieldOrder); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(analysis.FieldOrder))
	for _, note := range result.Notes {
		fields := note.Fields()
		for i, name := range analysis.FieldOrder {
			row[i] = fields[name]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTable writes a terminal summary table with one row per note.
func WriteTable(w io.Writer, result *analysis.FileAnalysis) error {
	fmt.Fprintf(w, "%s  (%.2fs, %d notes, monophonic=%v)\n",
		result.File, result.Duration, len(result.Notes), result.Monophonic)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Time", "Note", "Key", "Emotion", "Valence", "Arousal"})

	for _, note := range result.Notes {
		row := []string{
			fmt.Sprintf("%d", note.NoteIndex),
			fmt.Sprintf("%.2f-%.2f", note.StartTime, note.EndTime),
			noteName(note),
			keyName(note),
			topEmotion(note),
			valenceArousal(note, true),
			valenceArousal(note, false),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append table row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

func noteName(note *analysis.NoteAnalysisResult) string {
	if note.Pitch == nil || note.Pitch.NoteName == "" {
		return "-"
	}
	return note.Pitch.NoteName
}

func keyName(note *analysis.NoteAnalysisResult) string {
	if note.Key == nil {
		return "-"
	}
	return note.Key.Key
}

func topEmotion(note *analysis.NoteAnalysisResult) string {
	if note.Emotion == nil || len(note.Emotion.Emotions) == 0 {
		return "-"
	}
	top := note.Emotion.Emotions[0]
	return fmt.Sprintf("%s (%.2f)", top.Label, top.Score)
}

func valenceArousal(note *analysis.NoteAnalysisResult, valence bool) string {
	if note.Emotion == nil {
		return "-"
	}
	if valence {
		return fmt.Sprintf("%+.2f", note.Emotion.Valence)
	}
	return fmt.Sprintf("%.2f", note.Emotion.Arousal)
}

// Format is an output format selector parsed from CLI flags.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatTable:
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, csv or table)", s)
}

// Write renders the analysis in the given format.
func Write(w io.Writer, format Format, result *analysis.FileAnalysis) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, result)
	case FormatTable:
		return WriteTable(w, result)
	default:
		return WriteJSON(w, result)
	}
}
