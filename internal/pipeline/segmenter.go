package pipeline

import (
	"errors"
	"fmt"
)

// ErrChannelMismatch is returned when written audio does not have the
// segmenter's channel count.
var ErrChannelMismatch = errors.New("pipeline: channel count mismatch")

// Segment is one fixed-length window of planar audio. Valid counts the
// leading samples per channel that came from the input; the rest is zero
// padding added on flush.
type Segment struct {
	Channels [][]float64
	Valid    int
}

// Segmenter buffers planar multichannel audio and emits segments of a
// fixed length that is a multiple of a model's downsample factor.
type Segmenter struct {
	length  int
	buffers []*RingBuffer
}

// NewSegmenter returns a segmenter for the given channel count. The
// requested segment length is rounded up to a multiple of multiple.
func NewSegmenter(channels, length, multiple int) (*Segmenter, error) {
	if channels < 1 {
		return nil, fmt.Errorf("pipeline: channels must be positive, got %d", channels)
	}
	if length < 1 || multiple < 1 {
		return nil, fmt.Errorf("pipeline: segment length %d and multiple %d must be positive", length, multiple)
	}
	length = (length + multiple - 1) / multiple * multiple

	buffers := make([]*RingBuffer, channels)
	for i := range buffers {
		buffers[i] = NewRingBuffer(length * defaultSegmentBuffers)
	}
	return &Segmenter{length: length, buffers: buffers}, nil
}

// SegmentLength returns the per-channel length of every emitted segment.
func (s *Segmenter) SegmentLength() int { return s.length }

// NumChannels returns the channel count.
func (s *Segmenter) NumChannels() int { return len(s.buffers) }

// Write appends planar audio, one slice per channel, all of equal length.
func (s *Segmenter) Write(planar [][]float64) error {
	if len(planar) != len(s.buffers) {
		return fmt.Errorf("%w: got %d, want %d", ErrChannelMismatch, len(planar), len(s.buffers))
	}
	for i := range planar[1:] {
		if len(planar[i+1]) != len(planar[0]) {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d",
				ErrChannelMismatch, i+1, len(planar[i+1]), len(planar[0]))
		}
	}
	for i, ch := range planar {
		s.buffers[i].Write(ch)
	}
	return nil
}

// Next returns the next full segment, or false if fewer than
// SegmentLength samples are buffered.
func (s *Segmenter) Next() (Segment, bool) {
	if s.buffers[0].Available() < s.length {
		return Segment{}, false
	}
	seg := Segment{Channels: make([][]float64, len(s.buffers)), Valid: s.length}
	for i, b := range s.buffers {
		seg.Channels[i] = b.Read(s.length)
	}
	return seg, true
}

// Flush returns the buffered remainder zero-padded to SegmentLength, or
// false if nothing is buffered.
func (s *Segmenter) Flush() (Segment, bool) {
	n := s.buffers[0].Available()
	if n == 0 {
		return Segment{}, false
	}
	seg := Segment{Channels: make([][]float64, len(s.buffers)), Valid: n}
	for i, b := range s.buffers {
		ch := make([]float64, s.length)
		copy(ch, b.Read(n))
		seg.Channels[i] = ch
	}
	return seg, true
}

// Split is a convenience that segments a whole planar signal at once,
// padding the final segment.
func (s *Segmenter) Split(planar [][]float64) ([]Segment, error) {
	if err := s.Write(planar); err != nil {
		return nil, err
	}
	var segs []Segment
	for {
		seg, ok := s.Next()
		if !ok {
			break
		}
		segs = append(segs, seg)
	}
	if seg, ok := s.Flush(); ok {
		segs = append(segs, seg)
	}
	return segs, nil
}
