package autoencoder

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/tphakala/go-audio-autoencoder/internal/nn"
	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// Quantizer maps every time step's feature vector to a discrete code and
// back. x is [batch, time, features]; recon has the same shape and codes
// is [batch, time] holding integer code indices.
type Quantizer interface {
	Quantize(p Pass, x *Tensor) (recon, codes *Tensor, err error)
	Parameters() []Parameter
}

// SignQuantizer is a binary code quantizer: features are projected to
// NumBits logits, each logit becomes a ±1 bit and the bits are projected
// back to the feature width. In training mode the bits are relaxed to
// tanh(logit/Temperature). The code index of a time step is its bit
// pattern read as an unsigned integer, first bit most significant.
type SignQuantizer struct {
	Features    int
	NumBits     int
	Temperature float64
	toBits      *nn.Linear
	fromBits    *nn.Linear
}

// NewSignQuantizer creates a quantizer with weights drawn from src.
func NewSignQuantizer(src rand.Source, features, numBits int, temperature float64) (*SignQuantizer, error) {
	if features < 1 {
		return nil, fmt.Errorf("%w: quantizer features must be positive, got %d", ErrInvalidConfig, features)
	}
	if numBits < 1 || numBits > maxCodeBits {
		return nil, fmt.Errorf("%w: num_bits must be in [1, %d], got %d", ErrInvalidConfig, maxCodeBits, numBits)
	}
	if temperature <= 0 {
		return nil, fmt.Errorf("%w: temperature must be positive, got %g", ErrInvalidConfig, temperature)
	}
	return &SignQuantizer{
		Features:    features,
		NumBits:     numBits,
		Temperature: temperature,
		toBits:      nn.NewLinear(src, features, numBits),
		fromBits:    nn.NewLinear(src, numBits, features),
	}, nil
}

// Quantize implements Quantizer.
func (q *SignQuantizer) Quantize(p Pass, x *Tensor) (recon, codes *Tensor, err error) {
	defer recoverShape(&err)
	if x.Rank() != 3 {
		return nil, nil, &ShapeError{Op: "SignQuantizer", Msg: fmt.Sprintf("expected [batch, time, features], got %v", x.Shape())}
	}

	logits := q.toBits.Forward(x)
	steps := x.Dim(0) * x.Dim(1)
	codes = tensor.New(x.Dim(0), x.Dim(1))
	bits := tensor.New(logits.Shape()...)
	ld, bd, cd := logits.Data(), bits.Data(), codes.Data()

	for s := range steps {
		code := 0
		for i := range q.NumBits {
			l := ld[s*q.NumBits+i]
			code <<= 1
			if l > 0 {
				code |= 1
			}
			switch {
			case p.training():
				bd[s*q.NumBits+i] = math.Tanh(l / q.Temperature)
			case l > 0:
				bd[s*q.NumBits+i] = 1
			default:
				bd[s*q.NumBits+i] = -1
			}
		}
		cd[s] = float64(code)
	}
	return q.fromBits.Forward(bits), codes, nil
}

// Parameters returns the projection parameters.
func (q *SignQuantizer) Parameters() []Parameter {
	ps := nn.Prefix("to_bits", q.toBits.Params())
	return append(ps, nn.Prefix("from_bits", q.fromBits.Params())...)
}
