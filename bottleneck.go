package autoencoder

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/tphakala/go-audio-autoencoder/internal/nn"
	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// Bottleneck transforms the encoder output into the latent and reports
// auxiliary values (losses, statistics, codes). Implementations hold no
// mutable state between calls.
type Bottleneck interface {
	Forward(p Pass, x *Tensor) (*Tensor, Info, error)
	Parameters() []Parameter
}

// NewBottleneck builds the bottleneck described by cfg. channels is the
// width of the tensor the bottleneck receives; it is used when
// cfg.Channels is zero.
func NewBottleneck(src rand.Source, cfg BottleneckConfig, channels int) (Bottleneck, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Channels > 0 {
		channels = cfg.Channels
	}
	switch cfg.Kind {
	case BottleneckVariational:
		return NewVariationalBottleneck(src, channels, valueOr(cfg.LossWeight, defaultLossWeight))
	case BottleneckTanh:
		return TanhBottleneck{}, nil
	case BottleneckNoiser:
		return NoiserBottleneck{Sigma: valueOr(cfg.Sigma, defaultSigma)}, nil
	case BottleneckBitcodes:
		q, err := NewSignQuantizer(src, channels, cfg.NumBits, valueOr(cfg.Temperature, defaultTemperature))
		if err != nil {
			return nil, err
		}
		return NewBitcodesBottleneck(q), nil
	}
	return nil, fmt.Errorf("%w: unknown bottleneck kind %q", ErrInvalidConfig, cfg.Kind)
}

// VariationalBottleneck projects to a mean and a spread, samples around
// the mean and reports a KL regulariser.
//
// The 1×1 projection doubles the width; the halves become
// mean = tanh(·) ∈ [-1, 1] and std = tanh(·)+1 ∈ [0, 2]. The output is
// mean + std⊙ε with ε ~ N(0, 1) drawn from the Pass on every call. The
// reported loss is LossWeight·mean(mean² + exp(std) - std - 1), which
// treats std as a log-variance; trained checkpoints depend on exactly
// this formula.
type VariationalBottleneck struct {
	LossWeight   float64
	toMeanAndStd *nn.Conv1d
}

// NewVariationalBottleneck creates a variational bottleneck over
// channels features.
func NewVariationalBottleneck(src rand.Source, channels int, lossWeight float64) (*VariationalBottleneck, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: variational channels must be positive, got %d", ErrInvalidConfig, channels)
	}
	return &VariationalBottleneck{
		LossWeight: lossWeight,
		toMeanAndStd: nn.NewConv1d(src, nn.ConvConfig{
			InChannels:  channels,
			OutChannels: channels * halfDivisor,
			KernelSize:  1,
		}),
	}, nil
}

// Forward samples the latent. Info carries variational_kl_loss
// (float64), variational_mean and variational_std.
func (v *VariationalBottleneck) Forward(p Pass, x *Tensor) (y *Tensor, info Info, err error) {
	defer recoverShape(&err)
	src, err := p.source("variational bottleneck")
	if err != nil {
		return nil, nil, err
	}

	halves := v.toMeanAndStd.Forward(x).Chunk(1, halfDivisor)
	mean := halves[0].Tanh()
	std := halves[1].Tanh().AddScalar(1)

	eps := tensor.RandNormal(src, 0, 1, mean.Shape()...)
	y = tensor.Add(mean, tensor.Mul(std, eps))

	info = Info{
		KeyKLLoss: klLoss(mean, std) * v.LossWeight,
		KeyMean:   mean,
		KeyStd:    std,
	}
	return y, info, nil
}

// klLoss is mean(mean² + exp(logvar) - logvar - 1) over all elements.
func klLoss(mean, logvar *Tensor) float64 {
	m, lv := mean.Data(), logvar.Data()
	sum := 0.0
	for i := range m {
		sum += m[i]*m[i] + math.Exp(lv[i]) - lv[i] - 1
	}
	return sum / float64(len(m))
}

// Parameters returns the projection parameters.
func (v *VariationalBottleneck) Parameters() []Parameter {
	return nn.Prefix("to_mean_and_std", v.toMeanAndStd.Params())
}

// TanhBottleneck squashes the latent into (-1, 1).
type TanhBottleneck struct{}

// Forward returns tanh(x) and an empty Info.
func (TanhBottleneck) Forward(_ Pass, x *Tensor) (*Tensor, Info, error) {
	return x.Tanh(), Info{}, nil
}

// Parameters returns nil.
func (TanhBottleneck) Parameters() []Parameter { return nil }

// NoiserBottleneck adds Gaussian noise of standard deviation Sigma in
// training mode and is the identity in evaluation mode.
type NoiserBottleneck struct {
	Sigma float64
}

// Forward returns x + Sigma·N(0, 1) when training, x otherwise. A zero
// Sigma is the identity in both modes.
func (n NoiserBottleneck) Forward(p Pass, x *Tensor) (*Tensor, Info, error) {
	if !p.training() || n.Sigma == 0 {
		return x, Info{}, nil
	}
	src, err := p.source("noiser bottleneck")
	if err != nil {
		return nil, nil, err
	}
	noise := tensor.RandNormal(src, 0, n.Sigma, x.Shape()...)
	return tensor.Add(x, noise), Info{}, nil
}

// Parameters returns nil.
func (NoiserBottleneck) Parameters() []Parameter { return nil }

// BitcodesBottleneck delegates to a Quantizer that replaces every time
// step's feature vector with the reconstruction of a discrete code. The
// code indices are reported under "bits".
type BitcodesBottleneck struct {
	quantizer Quantizer
}

// NewBitcodesBottleneck wraps q.
func NewBitcodesBottleneck(q Quantizer) *BitcodesBottleneck {
	return &BitcodesBottleneck{quantizer: q}
}

// Forward quantises x of shape [batch, channels, time].
func (b *BitcodesBottleneck) Forward(p Pass, x *Tensor) (y *Tensor, info Info, err error) {
	defer recoverShape(&err)
	recon, codes, err := b.quantizer.Quantize(p, x.TransposeLast())
	if err != nil {
		return nil, nil, err
	}
	return recon.TransposeLast(), Info{KeyBits: codes}, nil
}

// Parameters returns the quantizer parameters.
func (b *BitcodesBottleneck) Parameters() []Parameter {
	return nn.Prefix("bitcodes", b.quantizer.Parameters())
}
