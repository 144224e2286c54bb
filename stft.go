package autoencoder

import (
	"fmt"
	"math"

	"github.com/tphakala/go-audio-autoencoder/internal/mathutil"
	"github.com/tphakala/go-audio-autoencoder/internal/spectral"
	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// STFT converts waveforms [b, c, t] to spectrogram pairs [b, c, f, l] and
// back, with f = NumFFT/2+1 bins and l frames. Framing is centred with
// reflect padding and the transform is scaled by 1/√NumFFT, so a
// spectrogram round trip reproduces the waveform.
//
// The pair is (magnitude, phase), or (real, imaginary) with UseComplex.
type STFT struct {
	cfg STFTConfig
	tf  *spectral.STFT
}

// NewSTFT creates the transform. The analysis window is computed once
// and shared read-only by every call.
func NewSTFT(cfg STFTConfig) (*STFT, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	var window []float64
	switch cfg.Window {
	case WindowKaiser:
		window = spectral.Kaiser(cfg.WindowLength, mathutil.KaiserBeta(cfg.KaiserAttenuation))
	default:
		window = spectral.Hann(cfg.WindowLength)
	}

	tf, err := spectral.New(spectral.Config{
		FFTSize:    cfg.NumFFT,
		Hop:        cfg.HopLength,
		Window:     window,
		Center:     true,
		Normalized: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &STFT{cfg: cfg, tf: tf}, nil
}

// Bins returns the number of frequency bins, NumFFT/2+1.
func (s *STFT) Bins() int { return s.tf.Bins() }

// HopLength returns the frame advance in samples.
func (s *STFT) HopLength() int { return s.cfg.HopLength }

// Frames returns the number of frames produced for t samples.
func (s *STFT) Frames(t int) int { return s.tf.Frames(t) }

// Encode returns the spectrogram pair of wave [b, c, t].
func (s *STFT) Encode(wave *Tensor) (a, b *Tensor, err error) {
	defer recoverShape(&err)
	if wave.Rank() != 3 {
		return nil, nil, &ShapeError{Op: "STFT.Encode", Msg: fmt.Sprintf("expected [batch, channels, time], got %v", wave.Shape())}
	}
	batch, channels, length := wave.Dim(0), wave.Dim(1), wave.Dim(2)
	bins, frames := s.tf.Bins(), s.tf.Frames(length)
	rows := wave.Reshape(batch*channels, length)

	a = tensor.New(batch*channels, bins*frames)
	b = tensor.New(batch*channels, bins*frames)
	for i := range batch * channels {
		sp, err := s.tf.Forward(rows.Row(i))
		if err != nil {
			return nil, nil, &ShapeError{Op: "STFT.Encode", Msg: err.Error()}
		}
		if s.cfg.UseComplex {
			copy(a.Row(i), sp.Re)
			copy(b.Row(i), sp.Im)
		} else {
			copy(a.Row(i), sp.Magnitude())
			copy(b.Row(i), sp.Phase())
		}
	}
	return a.Reshape(batch, channels, bins, frames), b.Reshape(batch, channels, bins, frames), nil
}

// Decode inverts Encode. The output length is Length when configured,
// otherwise the smallest power of two not below frames·HopLength.
func (s *STFT) Decode(a, b *Tensor) (wave *Tensor, err error) {
	defer recoverShape(&err)
	if a.Rank() != 4 || !a.SameShape(b) || a.Dim(2) != s.tf.Bins() {
		return nil, &ShapeError{Op: "STFT.Decode", Msg: fmt.Sprintf(
			"expected two [batch, channels, %d, frames] tensors, got %v and %v", s.tf.Bins(), a.Shape(), b.Shape())}
	}
	batch, channels, bins, frames := a.Dim(0), a.Dim(1), a.Dim(2), a.Dim(3)
	length := s.cfg.Length
	if length == 0 {
		length = mathutil.NextPowerOfTwo(frames * s.cfg.HopLength)
	}

	ar := a.Reshape(batch*channels, bins*frames)
	br := b.Reshape(batch*channels, bins*frames)
	wave = tensor.New(batch*channels, length)
	sp := spectral.NewSpectrum(bins, frames)
	for i := range batch * channels {
		if s.cfg.UseComplex {
			copy(sp.Re, ar.Row(i))
			copy(sp.Im, br.Row(i))
		} else {
			polarToComplex(sp, ar.Row(i), br.Row(i))
		}
		y, err := s.tf.Inverse(sp, length)
		if err != nil {
			return nil, &ShapeError{Op: "STFT.Decode", Msg: err.Error()}
		}
		copy(wave.Row(i), y)
	}
	return wave.Reshape(batch, channels, length), nil
}

// Encode1d returns the spectrogram pair stacked along channels:
// [b, 2·c·f, l], first all of A then all of B.
func (s *STFT) Encode1d(wave *Tensor) (*Tensor, error) {
	a, b, err := s.Encode(wave)
	if err != nil {
		return nil, err
	}
	return tensor.Concat(1, flattenFrequency(a), flattenFrequency(b)), nil
}

// Decode1d inverts Encode1d.
func (s *STFT) Decode1d(pair *Tensor) (wave *Tensor, err error) {
	a, b, err := s.Unstack(pair)
	if err != nil {
		return nil, err
	}
	return s.Decode(a, b)
}

// Unstack splits a stacked [b, 2·c·f, l] tensor into its [b, c, f, l]
// halves without inverting the transform.
func (s *STFT) Unstack(pair *Tensor) (a, b *Tensor, err error) {
	defer recoverShape(&err)
	f := s.tf.Bins()
	if pair.Rank() != 3 || pair.Dim(1)%(halfDivisor*f) != 0 {
		return nil, nil, &ShapeError{Op: "STFT.Decode1d", Msg: fmt.Sprintf(
			"expected [batch, 2·channels·%d, frames], got %v", f, pair.Shape())}
	}
	halves := pair.Chunk(1, halfDivisor)
	unflat := func(t *Tensor) *Tensor { return t.Reshape(t.Dim(0), t.Dim(1)/f, f, t.Dim(2)) }
	return unflat(halves[0]), unflat(halves[1]), nil
}

func polarToComplex(sp *spectral.Spectrum, magnitude, phase []float64) {
	for j := range magnitude {
		sin, cos := math.Sincos(phase[j])
		sp.Re[j] = magnitude[j] * cos
		sp.Im[j] = magnitude[j] * sin
	}
}
