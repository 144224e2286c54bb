package autoencoder

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/go-audio-autoencoder/internal/spectral"
	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// MelSpectrogram computes mel-scaled magnitude spectrograms
// [b, c, mels, frames] from waveforms [b, c, t]. It has no inverse.
type MelSpectrogram struct {
	cfg     MelConfig
	padding int
	tf      *spectral.STFT
	fb      *mat.Dense // [mels, bins], read-only
}

// NewMelSpectrogram creates the transform.
func NewMelSpectrogram(cfg MelConfig) (*MelSpectrogram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	tf, err := spectral.New(spectral.Config{
		FFTSize: cfg.NFFT,
		Hop:     cfg.HopLength,
		Window:  spectral.Hann(cfg.WinLength),
		Center:  cfg.Center,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	nyquist := float64(cfg.SampleRate / halfDivisor)
	fb, err := spectral.MelFilterbank(tf.Bins(), cfg.NMelChannels, cfg.SampleRate, 0, nyquist)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &MelSpectrogram{
		cfg:     cfg,
		padding: (cfg.NFFT - cfg.HopLength) / halfDivisor,
		tf:      tf,
		fb:      fb,
	}, nil
}

// HopLength returns the frame advance in samples.
func (m *MelSpectrogram) HopLength() int { return m.cfg.HopLength }

// NumMels returns the number of mel channels.
func (m *MelSpectrogram) NumMels() int { return m.cfg.NMelChannels }

// Frames returns the number of frames produced for t samples.
func (m *MelSpectrogram) Frames(t int) int { return m.tf.Frames(t + 2*m.padding) }

// Forward computes the mel spectrogram of wave.
//
// With Normalize the values are divided by their maximum over the whole
// batch and mapped through 2·p^0.25 - 1. With NormalizeLog they are
// replaced by log(max(p, 1e-5)). Both may be enabled, in that order.
func (m *MelSpectrogram) Forward(wave *Tensor) (out *Tensor, err error) {
	defer recoverShape(&err)
	if wave.Rank() != 3 {
		return nil, &ShapeError{Op: "MelSpectrogram", Msg: fmt.Sprintf("expected [batch, channels, time], got %v", wave.Shape())}
	}
	batch, channels, length := wave.Dim(0), wave.Dim(1), wave.Dim(2)
	mels, frames := m.cfg.NMelChannels, m.Frames(length)
	rows := wave.Reshape(batch*channels, length)

	out = tensor.New(batch*channels, mels*frames)
	for i := range batch * channels {
		padded, err := spectral.ReflectPad(rows.Row(i), m.padding, m.padding)
		if err != nil {
			return nil, &ShapeError{Op: "MelSpectrogram", Msg: err.Error()}
		}
		sp, err := m.tf.Forward(padded)
		if err != nil {
			return nil, &ShapeError{Op: "MelSpectrogram", Msg: err.Error()}
		}
		copy(out.Row(i), spectral.ApplyFilterbank(m.fb, sp.Magnitude(), sp.Frames))
	}

	if m.cfg.Normalize {
		out = out.Scale(1 / out.Max()).Pow(melPowerNorm).Scale(halfDivisor).AddScalar(-1)
	}
	if m.cfg.NormalizeLog {
		out = out.ClampMin(melLogFloor).Log()
	}
	return out.Reshape(batch, channels, mels, frames), nil
}

// MelE1d is an Encoder1d fronted by a MelSpectrogram: the mel channels
// of every audio channel are stacked into the encoder input channels.
type MelE1d struct {
	mel     *MelSpectrogram
	encoder *Encoder1d
}

// NewMelE1d creates a mel encoder. cfg.Encoder.InChannels counts audio
// channels.
func NewMelE1d(cfg MelEncoderConfig, opts ...Option) (*MelE1d, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mel, err := NewMelSpectrogram(cfg.Mel)
	if err != nil {
		return nil, err
	}
	ec := cfg.Encoder
	ec.InChannels *= mel.NumMels()
	enc, err := NewEncoder1d(ec, opts...)
	if err != nil {
		return nil, err
	}
	return &MelE1d{mel: mel, encoder: enc}, nil
}

// Mel returns the front-end transform.
func (e *MelE1d) Mel() *MelSpectrogram { return e.mel }

// DownsampleFactor returns the encoder factor times the mel hop length.
func (e *MelE1d) DownsampleFactor() int {
	return e.encoder.DownsampleFactor() * e.mel.HopLength()
}

// Forward encodes a waveform [b, c, t].
func (e *MelE1d) Forward(p Pass, x *Tensor) (*Tensor, Info, error) {
	spec, err := e.mel.Forward(x)
	if err != nil {
		return nil, nil, err
	}
	return e.encoder.Forward(p, flattenFrequency(spec))
}

// Parameters returns the encoder parameters. The mel transform has none.
func (e *MelE1d) Parameters() []Parameter { return e.encoder.Parameters() }

// flattenFrequency folds [b, c, f, l] into [b, c·f, l] without copying.
func flattenFrequency(t *Tensor) *Tensor {
	return t.Reshape(t.Dim(0), t.Dim(1)*t.Dim(2), t.Dim(3))
}
