package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// Linear is an affine map over the innermost dimension of a tensor of any
// rank: y = x·Wᵀ + b.
type Linear struct {
	In, Out int
	Weight  *tensor.Tensor // [out, in]
	Bias    *tensor.Tensor // [out]
}

// NewLinear creates a linear layer with Kaiming-uniform weights.
func NewLinear(src rand.Source, in, out int) *Linear {
	return &Linear{
		In:     in,
		Out:    out,
		Weight: kaimingUniform(src, in, out, in),
		Bias:   kaimingUniform(src, in, out),
	}
}

// Forward maps [..., in] to [..., out].
func (l *Linear) Forward(x *tensor.Tensor) *tensor.Tensor {
	if x.Rank() == 0 || x.Dim(-1) != l.In {
		panic(&tensor.ShapeError{Op: "Linear", Msg: fmt.Sprintf("expected innermost dimension %d, got shape %v", l.In, x.Shape())})
	}
	rows := x.Len() / l.In
	shape := x.Shape()
	shape[len(shape)-1] = l.Out
	out := tensor.New(shape...)
	if rows == 0 {
		return out
	}

	om := mat.NewDense(rows, l.Out, out.Data())
	om.Mul(mat.NewDense(rows, l.In, x.Data()), mat.NewDense(l.Out, l.In, l.Weight.Data()).T())
	bias := l.Bias.Data()
	for r := range rows {
		floats.Add(om.RawRowView(r), bias)
	}
	return out
}

// Params returns weight and bias.
func (l *Linear) Params() []Param {
	return []Param{{Name: "weight", Value: l.Weight}, {Name: "bias", Value: l.Bias}}
}
