package autoencoder

import (
	"fmt"
	"math/rand/v2"

	"github.com/tphakala/go-audio-autoencoder/internal/nn"
)

// ResnetBlockConfig describes a ResnetBlock1d. The first conv block uses
// KernelSize, Stride, Padding and Dilation; the second is always a 3-tap
// same-length convolution. Zero KernelSize selects the 3-tap kernel with
// padding 1; zero Stride, Dilation and NumGroups select 1, 1 and 8.
type ResnetBlockConfig struct {
	InChannels  int
	OutChannels int
	KernelSize  int
	Stride      int
	Padding     int
	Dilation    int
	NumGroups   int
	// DisableNorm replaces both group norms with the identity.
	DisableNorm bool
}

func (c ResnetBlockConfig) withDefaults() ResnetBlockConfig {
	if c.KernelSize == 0 {
		c.KernelSize = defaultKernelSize
		c.Padding = defaultPadding
	}
	if c.Stride == 0 {
		c.Stride = 1
	}
	if c.Dilation == 0 {
		c.Dilation = 1
	}
	if c.NumGroups == 0 {
		c.NumGroups = defaultResnetGroups
	}
	return c
}

// convBlock is GroupNorm -> SiLU -> Conv1d.
type convBlock struct {
	norm    *nn.GroupNorm // nil when disabled
	project *nn.Conv1d
}

func newConvBlock(src rand.Source, cfg nn.ConvConfig, groups int, useNorm bool) (*convBlock, error) {
	b := &convBlock{}
	if useNorm {
		norm, err := nn.NewGroupNorm(groups, cfg.InChannels)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		b.norm = norm
	}
	b.project = nn.NewConv1d(src, cfg)
	return b, nil
}

func (b *convBlock) forward(x *Tensor) *Tensor {
	if b.norm != nil {
		x = b.norm.Forward(x)
	}
	return b.project.Forward(x.SiLU())
}

func (b *convBlock) Parameters() []Parameter {
	var ps []Parameter
	if b.norm != nil {
		ps = nn.Prefix("groupnorm", b.norm.Params())
	}
	return append(ps, nn.Prefix("project", b.project.Params())...)
}

// ResnetBlock1d is two norm-activate-convolve blocks with a residual
// connection: out = block2(block1(x)) + skip(x). The skip path is the
// identity when the channel count is unchanged and a 1×1 convolution
// otherwise.
type ResnetBlock1d struct {
	block1 *convBlock
	block2 *convBlock
	toOut  *nn.Conv1d // nil for the identity skip
}

// NewResnetBlock1d creates a residual block.
func NewResnetBlock1d(src rand.Source, cfg ResnetBlockConfig) (*ResnetBlock1d, error) {
	cfg = cfg.withDefaults()
	if cfg.InChannels < 1 || cfg.OutChannels < 1 {
		return nil, fmt.Errorf("%w: resnet block channels must be positive, got %d -> %d",
			ErrInvalidConfig, cfg.InChannels, cfg.OutChannels)
	}
	if cfg.NumGroups < 1 {
		return nil, fmt.Errorf("%w: num_groups must be positive, got %d", ErrInvalidConfig, cfg.NumGroups)
	}

	block1, err := newConvBlock(src, nn.ConvConfig{
		InChannels:  cfg.InChannels,
		OutChannels: cfg.OutChannels,
		KernelSize:  cfg.KernelSize,
		Stride:      cfg.Stride,
		Padding:     cfg.Padding,
		Dilation:    cfg.Dilation,
	}, cfg.NumGroups, !cfg.DisableNorm)
	if err != nil {
		return nil, err
	}
	block2, err := newConvBlock(src, nn.ConvConfig{
		InChannels:  cfg.OutChannels,
		OutChannels: cfg.OutChannels,
		KernelSize:  defaultKernelSize,
		Padding:     defaultPadding,
	}, cfg.NumGroups, !cfg.DisableNorm)
	if err != nil {
		return nil, err
	}

	r := &ResnetBlock1d{block1: block1, block2: block2}
	if cfg.InChannels != cfg.OutChannels {
		r.toOut = nn.NewConv1d(src, nn.ConvConfig{
			InChannels:  cfg.InChannels,
			OutChannels: cfg.OutChannels,
			KernelSize:  1,
		})
	}
	return r, nil
}

// Forward applies the block to x of shape [batch, in, time].
func (r *ResnetBlock1d) Forward(x *Tensor) (y *Tensor, err error) {
	defer recoverShape(&err)
	return r.forward(x), nil
}

func (r *ResnetBlock1d) forward(x *Tensor) *Tensor {
	h := r.block2.forward(r.block1.forward(x))
	skip := x
	if r.toOut != nil {
		skip = r.toOut.Forward(x)
	}
	return h.AddInPlace(skip)
}

// Parameters returns the parameters of both blocks and the skip
// projection.
func (r *ResnetBlock1d) Parameters() []Parameter {
	ps := params("block1", r.block1)
	ps = append(ps, params("block2", r.block2)...)
	if r.toOut != nil {
		ps = append(ps, nn.Prefix("to_out", r.toOut.Params())...)
	}
	return ps
}
