package autoencoder

import (
	"fmt"
	"math/rand/v2"
)

// Patcher maps [b, in, l·p] to [b, out, l]: a residual block to out/p
// channels followed by folding every p consecutive time steps into
// channels.
type Patcher struct {
	PatchSize int
	block     *ResnetBlock1d
}

// NewPatcher creates a Patcher. outChannels must be divisible by
// patchSize.
func NewPatcher(src rand.Source, inChannels, outChannels, patchSize int) (*Patcher, error) {
	if patchSize < 1 || outChannels%patchSize != 0 {
		return nil, fmt.Errorf("%w: out_channels %d must be divisible by patch_size (%d)",
			ErrInvalidConfig, outChannels, patchSize)
	}
	block, err := NewResnetBlock1d(src, ResnetBlockConfig{
		InChannels:  inChannels,
		OutChannels: outChannels / patchSize,
		NumGroups:   min(patchSize, inChannels),
	})
	if err != nil {
		return nil, err
	}
	return &Patcher{PatchSize: patchSize, block: block}, nil
}

// Forward patches x. The time length must be a multiple of PatchSize.
func (p *Patcher) Forward(x *Tensor) (y *Tensor, err error) {
	defer recoverShape(&err)
	return p.forward(x), nil
}

func (p *Patcher) forward(x *Tensor) *Tensor {
	return p.block.forward(x).FoldTime(p.PatchSize)
}

// Parameters returns the residual block parameters.
func (p *Patcher) Parameters() []Parameter { return params("block", p.block) }

// Unpatcher is the mirror of Patcher: it unfolds [b, in, l] to
// [b, in/p, l·p] and applies a residual block to out channels.
type Unpatcher struct {
	PatchSize int
	block     *ResnetBlock1d
}

// NewUnpatcher creates an Unpatcher. inChannels must be divisible by
// patchSize.
func NewUnpatcher(src rand.Source, inChannels, outChannels, patchSize int) (*Unpatcher, error) {
	if patchSize < 1 || inChannels%patchSize != 0 {
		return nil, fmt.Errorf("%w: in_channels %d must be divisible by patch_size (%d)",
			ErrInvalidConfig, inChannels, patchSize)
	}
	block, err := NewResnetBlock1d(src, ResnetBlockConfig{
		InChannels:  inChannels / patchSize,
		OutChannels: outChannels,
		NumGroups:   min(patchSize, outChannels),
	})
	if err != nil {
		return nil, err
	}
	return &Unpatcher{PatchSize: patchSize, block: block}, nil
}

// Forward unpatches x.
func (u *Unpatcher) Forward(x *Tensor) (y *Tensor, err error) {
	defer recoverShape(&err)
	return u.forward(x), nil
}

func (u *Unpatcher) forward(x *Tensor) *Tensor {
	return u.block.forward(x.UnfoldTime(u.PatchSize))
}

// Parameters returns the residual block parameters.
func (u *Unpatcher) Parameters() []Parameter { return params("block", u.block) }
