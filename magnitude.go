package autoencoder

import (
	"fmt"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// ME1d is an Encoder1d fronted by an STFT magnitude: the frequency bins
// of every audio channel are stacked into the encoder input channels.
type ME1d struct {
	stft    *STFT
	encoder *Encoder1d
	useLog  bool
}

// NewME1d creates a magnitude encoder. cfg.Encoder.InChannels counts
// audio channels.
func NewME1d(cfg MagnitudeEncoderConfig, opts ...Option) (*ME1d, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stft, err := NewSTFT(cfg.STFT)
	if err != nil {
		return nil, err
	}
	ec := cfg.Encoder
	ec.InChannels *= stft.Bins()
	enc, err := NewEncoder1d(ec, opts...)
	if err != nil {
		return nil, err
	}
	return &ME1d{stft: stft, encoder: enc, useLog: cfg.UseLog}, nil
}

// STFT returns the front-end transform.
func (e *ME1d) STFT() *STFT { return e.stft }

// DownsampleFactor returns the encoder factor times the STFT hop length.
func (e *ME1d) DownsampleFactor() int {
	return e.encoder.DownsampleFactor() * e.stft.HopLength()
}

// Forward encodes a waveform [b, c, t] from its magnitude spectrogram,
// or its log when UseLog is set.
func (e *ME1d) Forward(p Pass, x *Tensor) (*Tensor, Info, error) {
	magnitude, _, err := e.stft.Encode(x)
	if err != nil {
		return nil, nil, err
	}
	flat := flattenFrequency(magnitude)
	if e.useLog {
		flat = flat.Log()
	}
	return e.encoder.Forward(p, flat)
}

// Parameters returns the encoder parameters.
func (e *ME1d) Parameters() []Parameter { return e.encoder.Parameters() }

// MAE1d autoencodes magnitude spectrograms [b, c, f, l] in the log
// domain. The decoded log-magnitude is clamped to [-30, 20] before
// exponentiation.
type MAE1d struct {
	stft *STFT
	ae   *AutoEncoder1d
}

// NewMAE1d creates a magnitude autoencoder. cfg.AutoEncoder.InChannels
// and OutChannels count audio channels.
func NewMAE1d(cfg MagnitudeAutoEncoderConfig, opts ...Option) (*MAE1d, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stft, err := NewSTFT(cfg.STFT)
	if err != nil {
		return nil, err
	}
	ac := cfg.AutoEncoder
	ac.InChannels *= stft.Bins()
	ac.OutChannels *= stft.Bins()
	ae, err := NewAutoEncoder1d(ac, opts...)
	if err != nil {
		return nil, err
	}
	return &MAE1d{stft: stft, ae: ae}, nil
}

// STFT returns the transform used by Loss.
func (m *MAE1d) STFT() *STFT { return m.stft }

// AutoEncoder returns the wrapped autoencoder.
func (m *MAE1d) AutoEncoder() *AutoEncoder1d { return m.ae }

// Encode maps a magnitude spectrogram to the latent.
func (m *MAE1d) Encode(p Pass, magnitude *Tensor) (z *Tensor, info Info, err error) {
	if magnitude.Rank() != 4 {
		return nil, nil, &ShapeError{Op: "MAE1d.Encode", Msg: fmt.Sprintf("expected [batch, channels, freq, frames], got %v", magnitude.Shape())}
	}
	return m.ae.Encode(p, flattenFrequency(magnitude.Log()))
}

// Decode maps a latent to a magnitude spectrogram. Info holds the
// clamped "log_magnitude" next to the decoder info.
func (m *MAE1d) Decode(z *Tensor) (magnitude *Tensor, info Info, err error) {
	defer recoverShape(&err)
	flat, info, err := m.ae.Decode(z)
	if err != nil {
		return nil, nil, err
	}
	f := m.stft.Bins()
	logMag := flat.Reshape(flat.Dim(0), flat.Dim(1)/f, f, flat.Dim(2)).Clamp(logMagnitudeMin, logMagnitudeMax)
	info[KeyLogMagnitude] = logMag
	return logMag.Exp(), info, nil
}

// Forward autoencodes a magnitude spectrogram. Info has the layout of
// AutoEncoder1d.Forward.
func (m *MAE1d) Forward(p Pass, magnitude *Tensor) (*Tensor, Info, error) {
	z, encInfo, err := m.Encode(p, magnitude)
	if err != nil {
		return nil, nil, err
	}
	y, decInfo, err := m.Decode(z)
	if err != nil {
		return nil, nil, err
	}
	info := Info{KeyLatent: z}
	info.merge(PrefixEncoder, encInfo)
	info.merge(PrefixDecoder, decInfo)
	return y, info, nil
}

// Loss returns the L1 distance between the true and reconstructed
// log-magnitude spectrograms of wave, along with the forward info.
func (m *MAE1d) Loss(p Pass, wave *Tensor) (loss float64, info Info, err error) {
	defer recoverShape(&err)
	magnitude, _, err := m.stft.Encode(wave)
	if err != nil {
		return 0, nil, err
	}
	pred, info, err := m.Forward(p, magnitude)
	if err != nil {
		return 0, nil, err
	}
	return tensor.L1Loss(magnitude.Log(), pred.Log()), info, nil
}

// Parameters returns the autoencoder parameters.
func (m *MAE1d) Parameters() []Parameter { return m.ae.Parameters() }
