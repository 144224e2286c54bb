package autoencoder

import "github.com/tphakala/go-audio-autoencoder/internal/nn"

// AutoEncoder1d pairs an Encoder1d with its mirrored Decoder1d.
type AutoEncoder1d struct {
	encoder *Encoder1d
	decoder *Decoder1d
}

// NewAutoEncoder1d creates an autoencoder. Encoder and decoder weights
// are drawn from the same source, encoder first.
func NewAutoEncoder1d(cfg AutoEncoderConfig, opts ...Option) (*AutoEncoder1d, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(cfg.Seed, opts)
	shared := []Option{WithInitSource(o.src), WithBottleneck(o.bottlenecks...)}

	enc, err := NewEncoder1d(cfg.encoderConfig(), shared...)
	if err != nil {
		return nil, err
	}
	dec, err := NewDecoder1d(cfg.decoderConfig(), WithInitSource(o.src))
	if err != nil {
		return nil, err
	}
	return &AutoEncoder1d{encoder: enc, decoder: dec}, nil
}

// Encoder returns the encoder half.
func (a *AutoEncoder1d) Encoder() *Encoder1d { return a.encoder }

// Decoder returns the decoder half.
func (a *AutoEncoder1d) Decoder() *Decoder1d { return a.decoder }

// DownsampleFactor returns the encoder downsample factor.
func (a *AutoEncoder1d) DownsampleFactor() int { return a.encoder.DownsampleFactor() }

// Encode maps x to the latent, running the bottlenecks.
func (a *AutoEncoder1d) Encode(p Pass, x *Tensor) (*Tensor, Info, error) {
	return a.encoder.Forward(p, x)
}

// Decode maps a latent back to a waveform.
func (a *AutoEncoder1d) Decode(z *Tensor) (*Tensor, Info, error) {
	return a.decoder.Forward(z)
}

// Forward encodes and decodes x. Info holds "latent" and the encoder and
// decoder info under the "encoder_" and "decoder_" prefixes.
func (a *AutoEncoder1d) Forward(p Pass, x *Tensor) (*Tensor, Info, error) {
	z, encInfo, err := a.Encode(p, x)
	if err != nil {
		return nil, nil, err
	}
	y, decInfo, err := a.Decode(z)
	if err != nil {
		return nil, nil, err
	}
	info := Info{KeyLatent: z}
	info.merge(PrefixEncoder, encInfo)
	info.merge(PrefixDecoder, decInfo)
	return y, info, nil
}

// Parameters returns the encoder and decoder parameters.
func (a *AutoEncoder1d) Parameters() []Parameter {
	ps := nn.Prefix("encoder", a.encoder.Parameters())
	return append(ps, nn.Prefix("decoder", a.decoder.Parameters())...)
}
