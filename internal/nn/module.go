// Package nn implements the parameterised layers of the autoencoder:
// one-dimensional convolutions, transposed convolutions and group
// normalisation, together with PyTorch-compatible weight initialisation.
//
// Layers hold their weights as tensors that callers may overwrite in place
// (for example from a checkpoint); Forward never mutates them.
package nn

import (
	"fmt"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// Module is a layer with a forward transform and named parameters.
type Module interface {
	Forward(x *tensor.Tensor) *tensor.Tensor
	Params() []Param
}

// Param is a named learnable tensor. Names follow the dotted state-dict
// convention, e.g. "block1.project.weight".
type Param struct {
	Name  string
	Value *tensor.Tensor
}

// Prefix qualifies parameter names with prefix and a dot.
func Prefix(prefix string, ps []Param) []Param {
	out := make([]Param, len(ps))
	for i, p := range ps {
		out[i] = Param{Name: prefix + "." + p.Name, Value: p.Value}
	}
	return out
}

// Indexed qualifies parameter names with prefix and a list index.
func Indexed(prefix string, i int, ps []Param) []Param {
	return Prefix(fmt.Sprintf("%s.%d", prefix, i), ps)
}

// Count returns the total number of scalar parameters.
func Count(ps []Param) int {
	n := 0
	for _, p := range ps {
		n += p.Value.Len()
	}
	return n
}
