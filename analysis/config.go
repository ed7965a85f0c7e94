package analysis

import (
	"runtime"

	"github.com/Skymero/lavoe/analysis/analyzers"
)

// Config holds the file-level analysis configuration shared by the
// feature provider, the note detector and the per-note analyzers.
type Config struct {
	SampleRate int `json:"sample_rate"`
	WindowSize int `json:"window_size"` // STFT window in samples
	HopSize    int `json:"hop_size"`    // STFT hop in samples

	// MinNoteDuration is the shortest note segment kept by
	// segmentation, in seconds.
	MinNoteDuration float64 `json:"min_note_duration"`

	// Workers bounds the note fan-out pool. Zero means NumCPU.
	Workers int `json:"workers"`

	// DecodeStart and DecodeEnd trim decoding to a sub-range of the
	// file, in seconds. Zero DecodeEnd means decode to the end.
	DecodeStart float64 `json:"decode_start"`
	DecodeEnd   float64 `json:"decode_end"`

	// Per-analyzer enable flags. Key and emotion are always on; the
	// supplemental analyzers can be switched off individually.
	EnablePitch    bool `json:"enable_pitch"`
	EnableTimbre   bool `json:"enable_timbre"`
	EnableEnvelope bool `json:"enable_envelope"`
	EnableDynamics bool `json:"enable_dynamics"`

	Emotion analyzers.EmotionParams `json:"emotion"`
}

// DefaultConfig returns the analysis defaults: 44.1 kHz mono, 2048/512
// STFT framing, 100 ms minimum note length, all analyzers enabled.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:      44100,
		WindowSize:      2048,
		HopSize:         512,
		MinNoteDuration: 0.1,
		Workers:         runtime.NumCPU(),
		EnablePitch:     true,
		EnableTimbre:    true,
		EnableEnvelope:  true,
		EnableDynamics:  true,
		Emotion:         analyzers.DefaultEmotionParams(),
	}
}
