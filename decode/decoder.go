// Package decode turns audio files into mono float64 PCM using FFmpeg,
// probing format details with FFprobe first so decode parameters match
// the source.
package decode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Skymero/lavoe/logging"
)

// supportedExtensions are the file types accepted before handing off to
// FFmpeg. FFmpeg decodes more, but unrecognized extensions usually mean
// the caller passed the wrong path.
var supportedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
}

// ProcessError reports a failed external tool invocation with the exit
// code and captured stderr.
type ProcessError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed (exit %d): %s", e.Tool, e.ExitCode, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// wrapExecError converts an exec failure into a ProcessError, pulling
// the exit code and stderr out when the tool actually ran.
func wrapExecError(tool string, err error) error {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return &ProcessError{
			Tool:     tool,
			ExitCode: exitErr.ExitCode(),
			Stderr:   string(exitErr.Stderr),
			Err:      err,
		}
	}
	return &ProcessError{Tool: tool, Err: err}
}

// Config holds decoder configuration.
type Config struct {
	SampleRate  int           `json:"sample_rate"`
	Channels    int           `json:"channels"`
	FFmpegPath  string        `json:"ffmpeg_path"`
	FFprobePath string        `json:"ffprobe_path"`
	Timeout     time.Duration `json:"timeout"`

	// MaxDuration caps how much audio is decoded. Zero means no limit.
	MaxDuration time.Duration `json:"max_duration"`

	// StartTime and EndTime trim the decode to a sub-range of the
	// file, in seconds. Zero EndTime means decode to the end.
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// DefaultConfig returns the decoder defaults: 44.1 kHz mono with the
// FFmpeg binaries resolved from PATH.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:  44100,
		Channels:    1,
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     60 * time.Second,
	}
}

// AudioData is decoded mono PCM plus the source file properties FFprobe
// reported.
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   float64       `json:"duration"` // seconds
	Metadata   *FileMetadata `json:"metadata,omitempty"`
}

// FileMetadata holds source file properties from FFprobe.
type FileMetadata struct {
	Codec      string  `json:"codec"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
}

// Decoder decodes audio files via FFmpeg subprocess invocation.
type Decoder struct {
	config *Config
	logger logging.Logger
}

// NewDecoder creates a decoder. A nil config uses defaults.
func NewDecoder(config *Config) *Decoder {
	if config == nil {
		config = DefaultConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "decoder",
		}),
	}
}

// DecodeFile probes and decodes an audio file into mono float64 PCM at
// the configured sample rate.
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file extension %q", ext)
	}

	metadata, err := d.Probe(ctx, filename)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("source probed", logging.Fields{
		"file":        filename,
		"codec":       metadata.Codec,
		"sample_rate": metadata.SampleRate,
		"channels":    metadata.Channels,
		"duration":    metadata.Duration,
	})

	samples, err := d.decodePCM(ctx, filename)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded from %s", filename)
	}

	return &AudioData{
		PCM:        samples,
		SampleRate: d.config.SampleRate,
		Channels:   d.config.Channels,
		Duration:   float64(len(samples)/d.config.Channels) / float64(d.config.SampleRate),
		Metadata:   metadata,
	}, nil
}

// Probe extracts audio stream properties with FFprobe without decoding.
func (d *Decoder) Probe(ctx context.Context, filename string) (*FileMetadata, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		filename,
	}

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		return nil, wrapExecError("ffprobe", err)
	}

	return parseProbeOutput(output)
}

// decodePCM runs FFmpeg to produce raw f64le samples on stdout.
func (d *Decoder) decodePCM(ctx context.Context, filename string) ([]float64, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := []string{"-v", "error"}
	if d.config.StartTime > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", d.config.StartTime))
	}
	args = append(args, "-i", filename)
	if d.config.EndTime > d.config.StartTime {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.EndTime-d.config.StartTime))
	} else if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.MaxDuration.Seconds()))
	}
	args = append(args,
		"-vn",
		"-f", "f64le",
		"-ac", strconv.Itoa(d.config.Channels),
		"-ar", strconv.Itoa(d.config.SampleRate),
		"pipe:1",
	)

	d.logger.Debug("running ffmpeg", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := exec.CommandContext(ctx, d.config.FFmpegPath, args...).Output()
	if err != nil {
		return nil, wrapExecError("ffmpeg", err)
	}

	return bytesToFloat64(output), nil
}

// parseProbeOutput extracts the first audio stream from FFprobe JSON.
func parseProbeOutput(jsonData []byte) (*FileMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio: %s", stream.CodecType)
	}
	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		sampleRate = 44100
	}
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &FileMetadata{
		Codec:      stream.CodecName,
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Duration:   duration,
		Bitrate:    bitrate,
	}, nil
}

// bytesToFloat64 reinterprets raw little-endian f64le bytes as samples,
// discarding any trailing partial sample.
func bytesToFloat64(data []byte) []float64 {
	data = data[:len(data)-(len(data)%8)]
	if len(data) == 0 {
		return nil
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples
}
