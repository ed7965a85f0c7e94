// Package notes segments an audio signal into individual note events
// using onset detection, with separate strategies for monophonic and
// polyphonic material.
package notes

import (
	"fmt"
	"sort"

	"github.com/Skymero/lavoe/algorithms/harmonic"
	"github.com/Skymero/lavoe/algorithms/spectral"
	"github.com/Skymero/lavoe/algorithms/temporal"
	"github.com/Skymero/lavoe/algorithms/windowing"
	"github.com/Skymero/lavoe/logging"
)

const (
	onsetWindowSize = 1024
	onsetHopSize    = 512

	envelopeFrameSize = 512
	envelopeHopSize   = 256

	// decayFloor trims a note's tail where the envelope falls below
	// this fraction of the note's own peak.
	decayFloor = 0.1

	// silenceRMSFloor is the frame RMS below which a frame counts as
	// silent; segments that are almost entirely silent are discarded.
	silenceRMSFloor     = 1e-4
	silenceRatioCeiling = 0.9
)

// NoteSegment is one detected note: its boundaries in seconds and the
// slice of the source signal it covers. Samples aliases the input
// buffer, it is not a copy.
type NoteSegment struct {
	Index     int       `json:"index"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Samples   []float64 `json:"-"`
}

// Duration returns the segment length in seconds.
func (n NoteSegment) Duration() float64 {
	return n.EndTime - n.StartTime
}

// Detector splits a signal into note segments. Monophonic material is
// segmented on spectral flux onsets with an energy fallback; polyphonic
// material is segmented on onsets of the percussive component after
// harmonic-percussive separation, which keeps sustained harmonies from
// masking attack transients.
type Detector struct {
	sampleRate  int
	minDuration float64

	onsets   *temporal.OnsetDetection
	envelope *temporal.Envelope
	silence  *temporal.SilenceDetection
	stft     *spectral.STFT
	window   windowing.Function
	hpss     *harmonic.HPSS

	logger logging.Logger
}

// NewDetector creates a note detector. minDuration is the shortest
// segment kept, in seconds.
func NewDetector(sampleRate int, minDuration float64) *Detector {
	return &Detector{
		sampleRate:  sampleRate,
		minDuration: minDuration,
		onsets:      temporal.NewOnsetDetection(),
		envelope:    temporal.NewEnvelope(),
		silence:     temporal.NewSilenceDetection(),
		stft:        spectral.NewSTFT(),
		window:      windowing.NewHann(onsetWindowSize, true),
		hpss:        harmonic.NewHPSS(),
		logger: logging.WithFields(logging.Fields{
			"component": "note_detector",
		}),
	}
}

// Detect segments the signal into notes. A signal with no detectable
// onsets comes back as a single segment spanning the whole signal.
func (d *Detector) Detect(samples []float64, monophonic bool) ([]NoteSegment, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	var onsetSamples []int
	var err error
	if monophonic {
		onsetSamples, err = d.monophonicOnsets(samples)
	} else {
		onsetSamples, err = d.polyphonicOnsets(samples)
	}
	if err != nil {
		return nil, err
	}

	segments := d.segment(samples, onsetSamples)
	for i := range segments {
		d.refineEnd(&segments[i])
	}
	segments = d.dropSilent(segments)

	d.logger.Debug("notes detected", logging.Fields{
		"onsets": len(onsetSamples),
		"notes":  len(segments),
	})

	return segments, nil
}

// dropSilent discards segments that are almost entirely silent, which
// spurious onsets in pauses between notes otherwise produce. Surviving
// segments are reindexed.
func (d *Detector) dropSilent(segments []NoteSegment) []NoteSegment {
	kept := segments[:0]
	for _, seg := range segments {
		ratio := d.silence.ComputeSilenceRatio(seg.Samples, d.sampleRate, silenceRMSFloor)
		if ratio >= silenceRatioCeiling {
			continue
		}
		seg.Index = len(kept)
		kept = append(kept, seg)
	}
	return kept
}

// monophonicOnsets detects onsets on the full signal's spectral flux,
// falling back to the energy derivative when flux finds nothing, then
// backtracks each onset to the preceding envelope minimum.
func (d *Detector) monophonicOnsets(samples []float64) ([]int, error) {
	onsets, err := d.onsets.DetectOnsets(samples, d.sampleRate, 0, d.minDuration)
	if err != nil {
		return nil, fmt.Errorf("onset detection: %w", err)
	}
	if len(onsets) == 0 {
		onsets = d.onsets.DetectOnsetsEnergy(samples, d.sampleRate, 0, d.minDuration)
	}

	env := d.envelope.ComputeRMS(samples, envelopeFrameSize, envelopeHopSize)
	return d.onsets.BacktrackOnsets(onsets, env, envelopeHopSize), nil
}

// polyphonicOnsets separates the spectrogram into harmonic and
// percussive components and detects onsets on the percussive part only.
func (d *Detector) polyphonicOnsets(samples []float64) ([]int, error) {
	stftResult, err := d.stft.ComputeWithWindow(samples, onsetWindowSize, onsetHopSize, d.sampleRate, d.window)
	if err != nil {
		return nil, fmt.Errorf("onset stft: %w", err)
	}

	separated, err := d.hpss.Separate(stftResult.Magnitude)
	if err != nil {
		return nil, fmt.Errorf("hpss: %w", err)
	}

	return d.onsets.DetectOnsetsFromMagnitude(separated.Percussive, onsetHopSize, d.sampleRate, 0, d.minDuration), nil
}

// segment turns onset positions into contiguous note segments, dropping
// segments shorter than the minimum duration.
func (d *Detector) segment(samples []float64, onsetSamples []int) []NoteSegment {
	if len(onsetSamples) == 0 {
		onsetSamples = []int{0}
	}
	sort.Ints(onsetSamples)

	minSamples := int(d.minDuration * float64(d.sampleRate))

	var segments []NoteSegment
	for i, start := range onsetSamples {
		end := len(samples)
		if i+1 < len(onsetSamples) {
			end = onsetSamples[i+1]
		}
		if start >= len(samples) || end-start < minSamples {
			continue
		}
		segments = append(segments, NoteSegment{
			Index:     len(segments),
			StartTime: float64(start) / float64(d.sampleRate),
			EndTime:   float64(end) / float64(d.sampleRate),
			Samples:   samples[start:end],
		})
	}
	return segments
}

// refineEnd trims a segment's tail where its envelope has decayed below
// a fraction of the segment's own peak. Only the latter 80% of the
// segment is eligible so the attack itself can never be cut.
func (d *Detector) refineEnd(seg *NoteSegment) {
	env := d.envelope.ComputeRMS(seg.Samples, envelopeFrameSize, envelopeHopSize)
	if len(env) < 2 {
		return
	}

	peak := 0.0
	for _, v := range env {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return
	}

	searchStart := len(env) / 5
	for i := searchStart; i < len(env); i++ {
		if env[i] < decayFloor*peak {
			cut := i * envelopeHopSize
			minSamples := int(d.minDuration * float64(d.sampleRate))
			if cut < minSamples || cut >= len(seg.Samples) {
				return
			}
			seg.Samples = seg.Samples[:cut]
			seg.EndTime = seg.StartTime + float64(cut)/float64(d.sampleRate)
			return
		}
	}
}
