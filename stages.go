package autoencoder

import (
	"fmt"
	"math/rand/v2"

	"github.com/tphakala/go-audio-autoencoder/internal/nn"
)

// StageConfig describes one encoder or decoder stage.
type StageConfig struct {
	InChannels  int
	OutChannels int
	Factor      int
	NumGroups   int // zero selects 8
	NumLayers   int // residual blocks in the stage
}

// DownsampleBlock1d resamples first and then refines: one Downsample1d
// followed by NumLayers residual blocks at the output width.
type DownsampleBlock1d struct {
	downsample *Downsample1d
	blocks     []*ResnetBlock1d
}

// NewDownsampleBlock1d creates an encoder stage.
func NewDownsampleBlock1d(src rand.Source, cfg StageConfig) (*DownsampleBlock1d, error) {
	down, err := NewDownsample1d(src, cfg.InChannels, cfg.OutChannels, cfg.Factor, defaultKernelMultiplier)
	if err != nil {
		return nil, err
	}
	blocks, err := newResnetStack(src, cfg.OutChannels, cfg.NumGroups, cfg.NumLayers)
	if err != nil {
		return nil, err
	}
	return &DownsampleBlock1d{downsample: down, blocks: blocks}, nil
}

// Forward applies the stage.
func (d *DownsampleBlock1d) Forward(x *Tensor) (y *Tensor, err error) {
	defer recoverShape(&err)
	return d.forward(x), nil
}

func (d *DownsampleBlock1d) forward(x *Tensor) *Tensor {
	x = d.downsample.forward(x)
	for _, b := range d.blocks {
		x = b.forward(x)
	}
	return x
}

// Parameters returns the stage parameters.
func (d *DownsampleBlock1d) Parameters() []Parameter {
	ps := params("downsample", d.downsample)
	for i, b := range d.blocks {
		ps = append(ps, nn.Indexed("blocks", i, b.Parameters())...)
	}
	return ps
}

// UpsampleBlock1d refines first and then resamples: NumLayers residual
// blocks at the input width followed by one Upsample1d, mirroring
// DownsampleBlock1d layer for layer.
type UpsampleBlock1d struct {
	blocks   []*ResnetBlock1d
	upsample *Upsample1d
}

// NewUpsampleBlock1d creates a decoder stage.
func NewUpsampleBlock1d(src rand.Source, cfg StageConfig) (*UpsampleBlock1d, error) {
	blocks, err := newResnetStack(src, cfg.InChannels, cfg.NumGroups, cfg.NumLayers)
	if err != nil {
		return nil, err
	}
	up, err := NewUpsample1d(src, cfg.InChannels, cfg.OutChannels, cfg.Factor)
	if err != nil {
		return nil, err
	}
	return &UpsampleBlock1d{blocks: blocks, upsample: up}, nil
}

// Forward applies the stage.
func (u *UpsampleBlock1d) Forward(x *Tensor) (y *Tensor, err error) {
	defer recoverShape(&err)
	return u.forward(x), nil
}

func (u *UpsampleBlock1d) forward(x *Tensor) *Tensor {
	for _, b := range u.blocks {
		x = b.forward(x)
	}
	return u.upsample.forward(x)
}

// Parameters returns the stage parameters.
func (u *UpsampleBlock1d) Parameters() []Parameter {
	var ps []Parameter
	for i, b := range u.blocks {
		ps = append(ps, nn.Indexed("blocks", i, b.Parameters())...)
	}
	return append(ps, params("upsample", u.upsample)...)
}

func newResnetStack(src rand.Source, channels, groups, n int) ([]*ResnetBlock1d, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: number of layers must not be negative, got %d", ErrInvalidConfig, n)
	}
	blocks := make([]*ResnetBlock1d, n)
	for i := range blocks {
		b, err := NewResnetBlock1d(src, ResnetBlockConfig{
			InChannels:  channels,
			OutChannels: channels,
			NumGroups:   groups,
		})
		if err != nil {
			return nil, err
		}
		blocks[i] = b
	}
	return blocks, nil
}
