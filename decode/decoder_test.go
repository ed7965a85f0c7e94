package decode

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestBytesToFloat64(t *testing.T) {
	want := []float64{0.5, -1.0, 0.0, 0.25}

	data := make([]byte, len(want)*8)
	for i, v := range want {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	// Trailing partial sample must be dropped.
	data = append(data, 0xAB, 0xCD)

	got := bytesToFloat64(data)
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if out := bytesToFloat64(nil); out != nil {
		t.Errorf("empty input should yield nil, got %v", out)
	}
}

func TestParseProbeOutput(t *testing.T) {
	jsonData := []byte(`{
		"streams": [{
			"codec_type": "audio",
			"codec_name": "flac",
			"sample_rate": "48000",
			"channels": 2,
			"duration": "12.5",
			"bit_rate": "900000"
		}]
	}`)

	meta, err := parseProbeOutput(jsonData)
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	if meta.Codec != "flac" || meta.SampleRate != 48000 || meta.Channels != 2 {
		t.Errorf("got %+v", meta)
	}
	if meta.Duration != 12.5 || meta.Bitrate != 900000 {
		t.Errorf("got duration=%v bitrate=%d", meta.Duration, meta.Bitrate)
	}
}

func TestParseProbeOutputRejectsBadStreams(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"no_streams", `{"streams": []}`},
		{"video_stream", `{"streams": [{"codec_type": "video", "channels": 0}]}`},
		{"bad_channels", `{"streams": [{"codec_type": "audio", "channels": 99}]}`},
		{"not_json", `nope`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseProbeOutput([]byte(tc.json)); err == nil {
				t.Error("want error")
			}
		})
	}
}

func TestDecodeFileRejectsUnknownExtension(t *testing.T) {
	d := NewDecoder(nil)
	if _, err := d.DecodeFile(context.Background(), "notes.txt"); err == nil {
		t.Error("unknown extension must be rejected before invoking ffmpeg")
	}
}

func TestProcessErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ProcessError{Tool: "ffmpeg", ExitCode: 1, Stderr: "bad input", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("ProcessError must unwrap to the underlying error")
	}
	msg := err.Error()
	if msg == "" || msg == inner.Error() {
		t.Errorf("Error() = %q, want tool context", msg)
	}
}
