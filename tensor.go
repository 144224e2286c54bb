package autoencoder

import (
	"github.com/tphakala/go-audio-autoencoder/internal/nn"
	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// Tensor is a dense row-major float64 array. Signals are
// [batch, channels, time]; spectrograms are [batch, channels, freq, frames].
type Tensor = tensor.Tensor

// Parameter is a named learnable tensor. Names follow the dotted
// state-dict convention ("encoder.downsamples.0.downsample.weight"), so
// weights exported from a trained checkpoint can be copied in by name.
type Parameter = nn.Param

// NewTensor returns a zero tensor of the given shape.
func NewTensor(shape ...int) (t *Tensor, err error) {
	defer recoverShape(&err)
	return tensor.New(shape...), nil
}

// TensorFromSlice wraps data in a tensor of the given shape without
// copying it.
func TensorFromSlice(data []float64, shape ...int) (t *Tensor, err error) {
	defer recoverShape(&err)
	return tensor.FromSlice(data, shape...), nil
}

// NumParameters returns the total number of scalars in ps.
func NumParameters(ps []Parameter) int {
	return nn.Count(ps)
}

// layer is the internal contract of every building block: a panicking
// forward transform plus named parameters.
type layer interface {
	forward(x *Tensor) *Tensor
	Parameters() []Parameter
}

// params collects the parameters of named sublayers, skipping nil ones.
func params(prefix string, l layer) []Parameter {
	if l == nil {
		return nil
	}
	return nn.Prefix(prefix, l.Parameters())
}
