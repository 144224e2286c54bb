// Package tensor provides the dense float64 arrays the autoencoder is built
// on.
//
// A Tensor is a contiguous row-major buffer plus a shape. Signals are rank 3
// ([batch, channels, time]) and spectrograms rank 4 ([batch, channels,
// freq, frames]); the package itself places no limit on rank.
//
// Operations that receive incompatible shapes panic with a *ShapeError, in
// the same way gonum's mat package panics with mat.ErrShape. Callers that
// expose a public API recover these panics and return them as errors.
package tensor

import (
	"fmt"
	"slices"
)

// Tensor is a dense row-major float64 array.
type Tensor struct {
	shape []int
	data  []float64
}

// New returns a zero-filled tensor with the given shape.
func New(shape ...int) *Tensor {
	n := checkedSize("New", shape)
	return &Tensor{shape: slices.Clone(shape), data: make([]float64, n)}
}

// Full returns a tensor with every element set to v.
func Full(v float64, shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.data {
		t.data[i] = v
	}
	return t
}

// FromSlice wraps data in a tensor of the given shape. The tensor takes
// ownership of data; it is not copied.
func FromSlice(data []float64, shape ...int) *Tensor {
	n := checkedSize("FromSlice", shape)
	if n != len(data) {
		panic(&ShapeError{Op: "FromSlice", Msg: fmt.Sprintf("%d elements cannot fill shape %v", len(data), shape)})
	}
	return &Tensor{shape: slices.Clone(shape), data: data}
}

func checkedSize(op string, shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(&ShapeError{Op: op, Msg: fmt.Sprintf("negative dimension in %v", shape)})
		}
		n *= d
	}
	return n
}

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int {
	return slices.Clone(t.shape)
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension n. Negative n counts from the end.
func (t *Tensor) Dim(n int) int {
	if n < 0 {
		n += len(t.shape)
	}
	if n < 0 || n >= len(t.shape) {
		panic(&ShapeError{Op: "Dim", Msg: fmt.Sprintf("dimension %d out of range for shape %v", n, t.shape)})
	}
	return t.shape[n]
}

// Len returns the total number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns the underlying buffer. Mutating it mutates the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// SameShape reports whether t and u have identical dimensions.
func (t *Tensor) SameShape(u *Tensor) bool {
	return slices.Equal(t.shape, u.shape)
}

// Reshape returns a tensor sharing t's data with a new shape. One
// dimension may be -1, in which case it is inferred.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	shape = slices.Clone(shape)
	infer := -1
	known := 1
	for i, d := range shape {
		switch {
		case d == -1 && infer == -1:
			infer = i
		case d < 0:
			panic(&ShapeError{Op: "Reshape", Msg: fmt.Sprintf("invalid target shape %v", shape)})
		default:
			known *= d
		}
	}
	if infer >= 0 {
		if known == 0 || len(t.data)%known != 0 {
			panic(&ShapeError{Op: "Reshape", Msg: fmt.Sprintf("cannot infer dimension of %v from %v", shape, t.shape)})
		}
		shape[infer] = len(t.data) / known
		known *= shape[infer]
	}
	if known != len(t.data) {
		panic(&ShapeError{Op: "Reshape", Msg: fmt.Sprintf("cannot reshape %v into %v", t.shape, shape)})
	}
	return &Tensor{shape: shape, data: t.data}
}

// Row returns the contiguous innermost slice addressed by the leading
// indices, e.g. Row(b, c) of a [B, C, T] tensor is the T samples of channel
// c in batch b. The slice aliases the tensor.
func (t *Tensor) Row(idx ...int) []float64 {
	if len(idx) != len(t.shape)-1 {
		panic(&ShapeError{Op: "Row", Msg: fmt.Sprintf("%d indices for rank %d tensor", len(idx), len(t.shape))})
	}
	inner := t.shape[len(t.shape)-1]
	off := t.offset("Row", idx)
	return t.data[off*inner : (off+1)*inner]
}

// At returns the element at the given index.
func (t *Tensor) At(idx ...int) float64 {
	if len(idx) != len(t.shape) {
		panic(&ShapeError{Op: "At", Msg: fmt.Sprintf("%d indices for rank %d tensor", len(idx), len(t.shape))})
	}
	return t.data[t.offset("At", idx)]
}

// Set stores v at the given index.
func (t *Tensor) Set(v float64, idx ...int) {
	if len(idx) != len(t.shape) {
		panic(&ShapeError{Op: "Set", Msg: fmt.Sprintf("%d indices for rank %d tensor", len(idx), len(t.shape))})
	}
	t.data[t.offset("Set", idx)] = v
}

// offset folds the leading len(idx) indices into a flat offset in units of
// the remaining inner block.
func (t *Tensor) offset(op string, idx []int) int {
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(&ShapeError{Op: op, Msg: fmt.Sprintf("index %v out of range for shape %v", idx, t.shape)})
		}
		off = off*t.shape[i] + x
	}
	return off
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}
