package autoencoder

import (
	"fmt"

	"github.com/tphakala/go-audio-autoencoder/internal/mathutil"
	"github.com/tphakala/go-audio-autoencoder/internal/nn"
)

// Encoder1d maps a waveform [b, in, t] to a latent
// [b, out, t/DownsampleFactor]: Patcher, one DownsampleBlock1d per
// stage, an optional 1×1 output projection and the bottlenecks in order.
type Encoder1d struct {
	cfg              EncoderConfig
	numLayers        int
	downsampleFactor int
	outChannels      int

	toIn        *Patcher
	downsamples []*DownsampleBlock1d
	toOut       *nn.Conv1d // nil when OutChannels is zero
	bottlenecks []Bottleneck
}

// NewEncoder1d creates an encoder. Weights are drawn from a source seeded
// with cfg.Seed unless WithInitSource is given.
func NewEncoder1d(cfg EncoderConfig, opts ...Option) (*Encoder1d, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(cfg.Seed, opts)
	l := cfg.layout()

	e := &Encoder1d{
		cfg:              cfg,
		numLayers:        l.numLayers(),
		downsampleFactor: l.patchSize * mathutil.Product(l.factors),
		outChannels:      l.width(l.numLayers()),
	}

	var err error
	if e.toIn, err = NewPatcher(o.src, cfg.InChannels, l.width(0), l.patchSize); err != nil {
		return nil, err
	}
	for i := range e.numLayers {
		stage, err := NewDownsampleBlock1d(o.src, StageConfig{
			InChannels:  l.width(i),
			OutChannels: l.width(i + 1),
			Factor:      l.factors[i],
			NumGroups:   l.resnetGroups,
			NumLayers:   l.numBlocks[i],
		})
		if err != nil {
			return nil, fmt.Errorf("downsample %d: %w", i, err)
		}
		e.downsamples = append(e.downsamples, stage)
	}
	if cfg.OutChannels > 0 {
		e.toOut = nn.NewConv1d(o.src, nn.ConvConfig{
			InChannels:  e.outChannels,
			OutChannels: cfg.OutChannels,
			KernelSize:  1,
		})
		e.outChannels = cfg.OutChannels
	}

	for i, bc := range cfg.Bottlenecks {
		b, err := NewBottleneck(o.src, bc, e.outChannels)
		if err != nil {
			return nil, fmt.Errorf("bottleneck %d: %w", i, err)
		}
		e.bottlenecks = append(e.bottlenecks, b)
	}
	e.bottlenecks = append(e.bottlenecks, o.bottlenecks...)
	return e, nil
}

// NumLayers returns the number of downsample stages.
func (e *Encoder1d) NumLayers() int { return e.numLayers }

// DownsampleFactor returns the ratio between input and latent time
// lengths. Input lengths must be a multiple of it.
func (e *Encoder1d) DownsampleFactor() int { return e.downsampleFactor }

// OutChannels returns the latent channel count.
func (e *Encoder1d) OutChannels() int { return e.outChannels }

// Forward encodes x. Info holds "xs", the input followed by the output of
// every layer (patcher, stages, projection), and the bottleneck info
// under the "bottleneck_" prefix.
func (e *Encoder1d) Forward(p Pass, x *Tensor) (y *Tensor, info Info, err error) {
	defer recoverShape(&err)

	xs := make([]*Tensor, 0, e.numLayers+3)
	xs = append(xs, x)
	x = e.toIn.forward(x)
	xs = append(xs, x)
	for _, d := range e.downsamples {
		x = d.forward(x)
		xs = append(xs, x)
	}
	if e.toOut != nil {
		x = e.toOut.Forward(x)
	}
	xs = append(xs, x)

	info = Info{KeyXs: xs}
	for _, b := range e.bottlenecks {
		var bi Info
		if x, bi, err = b.Forward(p, x); err != nil {
			return nil, nil, err
		}
		info.merge(PrefixBottleneck, bi)
	}
	return x, info, nil
}

// Parameters returns the encoder parameters.
func (e *Encoder1d) Parameters() []Parameter {
	ps := params("to_in", e.toIn)
	for i, d := range e.downsamples {
		ps = append(ps, nn.Indexed("downsamples", i, d.Parameters())...)
	}
	if e.toOut != nil {
		ps = append(ps, nn.Prefix("to_out", e.toOut.Params())...)
	}
	for i, b := range e.bottlenecks {
		ps = append(ps, nn.Indexed("bottlenecks", i, b.Parameters())...)
	}
	return ps
}

// Decoder1d is the mirror of Encoder1d: an optional 1×1 input
// projection, one UpsampleBlock1d per stage and an Unpatcher.
type Decoder1d struct {
	cfg            DecoderConfig
	upsampleFactor int

	toIn      *nn.Conv1d // nil when InChannels is zero
	upsamples []*UpsampleBlock1d
	toOut     *Unpatcher
}

// NewDecoder1d creates a decoder. The sequences in cfg are in decoder
// order.
func NewDecoder1d(cfg DecoderConfig, opts ...Option) (*Decoder1d, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(cfg.Seed, opts)
	l := cfg.layout()
	n := l.numLayers()

	d := &Decoder1d{
		cfg:            cfg,
		upsampleFactor: l.patchSize * mathutil.Product(l.factors),
	}
	if cfg.InChannels > 0 {
		d.toIn = nn.NewConv1d(o.src, nn.ConvConfig{
			InChannels:  cfg.InChannels,
			OutChannels: l.width(0),
			KernelSize:  1,
		})
	}
	for i := range n {
		stage, err := NewUpsampleBlock1d(o.src, StageConfig{
			InChannels:  l.width(i),
			OutChannels: l.width(i + 1),
			Factor:      l.factors[i],
			NumGroups:   l.resnetGroups,
			NumLayers:   l.numBlocks[i],
		})
		if err != nil {
			return nil, fmt.Errorf("upsample %d: %w", i, err)
		}
		d.upsamples = append(d.upsamples, stage)
	}

	var err error
	if d.toOut, err = NewUnpatcher(o.src, l.width(n), cfg.OutChannels, l.patchSize); err != nil {
		return nil, err
	}
	return d, nil
}

// UpsampleFactor returns the ratio between output and input time
// lengths.
func (d *Decoder1d) UpsampleFactor() int { return d.upsampleFactor }

// Forward decodes x. Info holds "xs": the input, the projected input, the
// output of every stage and the final output.
func (d *Decoder1d) Forward(x *Tensor) (y *Tensor, info Info, err error) {
	defer recoverShape(&err)

	xs := make([]*Tensor, 0, len(d.upsamples)+3)
	xs = append(xs, x)
	if d.toIn != nil {
		x = d.toIn.Forward(x)
	}
	xs = append(xs, x)
	for _, u := range d.upsamples {
		x = u.forward(x)
		xs = append(xs, x)
	}
	x = d.toOut.forward(x)
	xs = append(xs, x)
	return x, Info{KeyXs: xs}, nil
}

// Parameters returns the decoder parameters.
func (d *Decoder1d) Parameters() []Parameter {
	var ps []Parameter
	if d.toIn != nil {
		ps = nn.Prefix("to_in", d.toIn.Params())
	}
	for i, u := range d.upsamples {
		ps = append(ps, nn.Indexed("upsamples", i, u.Parameters())...)
	}
	return append(ps, params("to_out", d.toOut)...)
}
