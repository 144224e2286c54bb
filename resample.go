package autoencoder

import (
	"fmt"
	"math/rand/v2"

	"github.com/tphakala/go-audio-autoencoder/internal/nn"
)

// Downsample1d reduces the time axis by Factor with a strided
// convolution of kernel Factor*KernelMultiplier+1 and padding
// Factor*KernelMultiplier/2, so a length divisible by Factor maps to
// exactly length/Factor.
type Downsample1d struct {
	Factor int
	conv   *nn.Conv1d
}

// NewDownsample1d creates a downsampling convolution. kernelMultiplier
// must be even.
func NewDownsample1d(src rand.Source, inChannels, outChannels, factor, kernelMultiplier int) (*Downsample1d, error) {
	if err := checkResample(inChannels, outChannels, factor); err != nil {
		return nil, err
	}
	if kernelMultiplier < 0 || kernelMultiplier%halfDivisor != 0 {
		return nil, fmt.Errorf("%w: kernel multiplier must be even, got %d", ErrInvalidConfig, kernelMultiplier)
	}
	return &Downsample1d{
		Factor: factor,
		conv: nn.NewConv1d(src, nn.ConvConfig{
			InChannels:  inChannels,
			OutChannels: outChannels,
			KernelSize:  factor*kernelMultiplier + 1,
			Stride:      factor,
			Padding:     factor * (kernelMultiplier / halfDivisor),
		}),
	}, nil
}

// Forward downsamples x of shape [batch, in, time].
func (d *Downsample1d) Forward(x *Tensor) (y *Tensor, err error) {
	defer recoverShape(&err)
	return d.forward(x), nil
}

func (d *Downsample1d) forward(x *Tensor) *Tensor { return d.conv.Forward(x) }

// Parameters returns the convolution weight and bias.
func (d *Downsample1d) Parameters() []Parameter { return d.conv.Params() }

// Upsample1d increases the time axis by Factor. Factor 1 is a
// shape-preserving 3-tap convolution; larger factors use a transposed
// convolution with kernel 2·Factor, stride Factor, padding
// Factor/2+Factor%2 and output padding Factor%2, which yields exactly
// Factor×length for every integer factor.
type Upsample1d struct {
	Factor int
	up     nn.Module
}

// NewUpsample1d creates an upsampling layer.
func NewUpsample1d(src rand.Source, inChannels, outChannels, factor int) (*Upsample1d, error) {
	if err := checkResample(inChannels, outChannels, factor); err != nil {
		return nil, err
	}
	if factor == 1 {
		return &Upsample1d{
			Factor: factor,
			up: nn.NewConv1d(src, nn.ConvConfig{
				InChannels:  inChannels,
				OutChannels: outChannels,
				KernelSize:  defaultKernelSize,
				Padding:     defaultPadding,
			}),
		}, nil
	}
	return &Upsample1d{
		Factor: factor,
		up: nn.NewConvTranspose1d(src, nn.ConvConfig{
			InChannels:    inChannels,
			OutChannels:   outChannels,
			KernelSize:    factor * halfDivisor,
			Stride:        factor,
			Padding:       factor/halfDivisor + factor%halfDivisor,
			OutputPadding: factor % halfDivisor,
		}),
	}, nil
}

// Forward upsamples x of shape [batch, in, time].
func (u *Upsample1d) Forward(x *Tensor) (y *Tensor, err error) {
	defer recoverShape(&err)
	return u.forward(x), nil
}

func (u *Upsample1d) forward(x *Tensor) *Tensor { return u.up.Forward(x) }

// Parameters returns the convolution weight and bias.
func (u *Upsample1d) Parameters() []Parameter { return u.up.Params() }

func checkResample(inChannels, outChannels, factor int) error {
	if inChannels < 1 || outChannels < 1 {
		return fmt.Errorf("%w: channels must be positive, got %d -> %d", ErrInvalidConfig, inChannels, outChannels)
	}
	if factor < 1 {
		return fmt.Errorf("%w: factor must be positive, got %d", ErrInvalidConfig, factor)
	}
	return nil
}
