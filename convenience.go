package autoencoder

import (
	"fmt"

	"github.com/tphakala/go-audio-autoencoder/internal/pipeline"
	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// Common sample rates.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate and the mel transform default.
	RateDAT = 48000
)

// stereoChannels is the channel count of interleaved stereo.
const stereoChannels = 2

// defaultSegmentLength is the per-channel segment length used by
// Reconstruct, before rounding to the model's downsample factor.
const defaultSegmentLength = 1 << 16

// FromChannels packs planar audio, one slice per channel, into a
// [1, channels, time] tensor. All channels must have the same length.
func FromChannels(planar [][]float64) (*Tensor, error) {
	if len(planar) == 0 {
		return nil, &ShapeError{Op: "FromChannels", Msg: "no channels"}
	}
	length := len(planar[0])
	out := tensor.New(1, len(planar), length)
	for c, ch := range planar {
		if len(ch) != length {
			return nil, &ShapeError{Op: "FromChannels", Msg: fmt.Sprintf("channel %d has %d samples, channel 0 has %d", c, len(ch), length)}
		}
		copy(out.Row(0, c), ch)
	}
	return out, nil
}

// ToChannels copies batch item b of a [batch, channels, time] tensor into
// planar slices.
func ToChannels(t *Tensor, b int) (planar [][]float64, err error) {
	defer recoverShape(&err)
	if t.Rank() != 3 {
		return nil, &ShapeError{Op: "ToChannels", Msg: fmt.Sprintf("expected [batch, channels, time], got %v", t.Shape())}
	}
	planar = make([][]float64, t.Dim(1))
	for c := range planar {
		planar[c] = append([]float64(nil), t.Row(b, c)...)
	}
	return planar, nil
}

// Reconstruct runs planar audio of any length through an autoencoder. The
// audio is cut into segments whose length is a multiple of the model's
// downsample factor, the last one zero-padded; the segments are
// autoencoded as one batch and the padding is dropped from the output.
func Reconstruct(p Pass, ae *AutoEncoder1d, planar [][]float64) ([][]float64, error) {
	if len(planar) == 0 {
		return nil, &ShapeError{Op: "Reconstruct", Msg: "no channels"}
	}
	seg, err := pipeline.NewSegmenter(len(planar), min(defaultSegmentLength, max(len(planar[0]), 1)), ae.DownsampleFactor())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	segments, err := seg.Split(planar)
	if err != nil {
		return nil, &ShapeError{Op: "Reconstruct", Msg: err.Error()}
	}
	if len(segments) == 0 {
		return make([][]float64, len(planar)), nil
	}

	length := seg.SegmentLength()
	batch := tensor.New(len(segments), len(planar), length)
	for i, s := range segments {
		for c, ch := range s.Channels {
			copy(batch.Row(i, c), ch)
		}
	}

	y, _, err := ae.Forward(p, batch)
	if err != nil {
		return nil, err
	}
	if y.Dim(1) != len(planar) {
		return nil, &ShapeError{Op: "Reconstruct", Msg: fmt.Sprintf("model maps %d channels to %d", len(planar), y.Dim(1))}
	}

	out := make([][]float64, len(planar))
	for c := range out {
		out[c] = make([]float64, 0, len(planar[c]))
		for i, s := range segments {
			out[c] = append(out[c], y.Row(i, c)[:s.Valid]...)
		}
	}
	return out, nil
}

// InterleaveToStereo converts two mono channels to interleaved stereo.
// Output format: [L0, R0, L1, R1, L2, R2, ...]
func InterleaveToStereo(left, right []float64) []float64 {
	minLen := min(len(left), len(right))
	result := make([]float64, minLen*stereoChannels)
	for i := range minLen {
		result[i*stereoChannels] = left[i]
		result[i*stereoChannels+1] = right[i]
	}
	return result
}

// Deinterleave splits interleaved audio into planar channels. Trailing
// samples that do not fill a frame are dropped.
func Deinterleave(interleaved []float64, channels int) [][]float64 {
	if channels < 1 {
		return nil
	}
	n := len(interleaved) / channels
	planar := make([][]float64, channels)
	for c := range planar {
		planar[c] = make([]float64, n)
		for i := range n {
			planar[c][i] = interleaved[i*channels+c]
		}
	}
	return planar
}

// Interleave is the inverse of Deinterleave. Channels are truncated to
// the shortest one.
func Interleave(planar [][]float64) []float64 {
	if len(planar) == 0 {
		return nil
	}
	n := len(planar[0])
	for _, ch := range planar[1:] {
		n = min(n, len(ch))
	}
	out := make([]float64, n*len(planar))
	for c, ch := range planar {
		for i := range n {
			out[i*len(planar)+c] = ch[i]
		}
	}
	return out
}
