package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

const groupNormEps = 1e-5

// GroupNorm normalises each group of channels to zero mean and unit
// variance over (channels in group × time), then applies a per-channel
// affine transform.
type GroupNorm struct {
	Groups   int
	Channels int
	Eps      float64
	Weight   *tensor.Tensor // [channels], initialised to 1
	Bias     *tensor.Tensor // [channels], initialised to 0
}

// NewGroupNorm returns a GroupNorm with identity affine parameters.
// Channels must be divisible by groups.
func NewGroupNorm(groups, channels int) (*GroupNorm, error) {
	if groups <= 0 || channels%groups != 0 {
		return nil, fmt.Errorf("num_channels %d must be divisible by num_groups %d", channels, groups)
	}
	return &GroupNorm{
		Groups:   groups,
		Channels: channels,
		Eps:      groupNormEps,
		Weight:   tensor.Full(1, channels),
		Bias:     tensor.New(channels),
	}, nil
}

// Forward normalises x of shape [batch, channels, time].
func (g *GroupNorm) Forward(x *tensor.Tensor) *tensor.Tensor {
	batch, length := checkInput("GroupNorm", x, g.Channels)
	perGroup := g.Channels / g.Groups
	block := perGroup * length
	out := tensor.New(x.Shape()...)
	src, dst := x.Data(), out.Data()
	w, b := g.Weight.Data(), g.Bias.Data()

	for bi := range batch {
		for gi := range g.Groups {
			start := (bi*g.Channels + gi*perGroup) * length
			mean, variance := stat.PopMeanVariance(src[start:start+block], nil)
			inv := 1 / math.Sqrt(variance+g.Eps)
			for c := range perGroup {
				ch := gi*perGroup + c
				scale := inv * w[ch]
				off := start + c*length
				for t := range length {
					dst[off+t] = (src[off+t]-mean)*scale + b[ch]
				}
			}
		}
	}
	return out
}

// Params returns the affine weight and bias.
func (g *GroupNorm) Params() []Param {
	return []Param{{Name: "weight", Value: g.Weight}, {Name: "bias", Value: g.Bias}}
}
