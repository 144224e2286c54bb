// Package simdops exposes the float64 vector kernels used by the tensor and
// convolution code, backed by github.com/tphakala/simd.
//
// Kernels are reached through a function table so that hot loops can hold a
// single *Ops and call through it without re-dispatching on CPU features.
package simdops

import (
	"github.com/tphakala/simd/f64"
)

// Ops provides SIMD-accelerated float64 operations.
type Ops struct {
	// DotProduct returns sum(a[i]*b[i]) over the shorter of a and b.
	DotProduct func(a, b []float64) float64

	// DotProductUnsafe computes the dot product without bounds checking.
	// Use only when slices are guaranteed to have equal length.
	DotProductUnsafe func(a, b []float64) float64

	// ConvolveValid computes the valid cross-correlation of signal with kernel:
	//   dst[i] = Σ signal[i+k] * kernel[k]
	// len(dst) must be len(signal) - len(kernel) + 1.
	ConvolveValid func(dst, signal, kernel []float64)

	// ConvolveValidMulti runs ConvolveValid for several kernels over one signal.
	ConvolveValidMulti func(dsts [][]float64, signal []float64, kernels [][]float64)

	// Interleave2 interleaves two slices: dst[0]=a[0], dst[1]=b[0], dst[2]=a[1], ...
	Interleave2 func(dst, a, b []float64)

	// Sum returns the sum of all elements.
	Sum func(a []float64) float64

	// Scale multiplies each element by scalar s: dst[i] = a[i] * s
	Scale func(dst, a []float64, s float64)
}

var ops64 = Ops{
	DotProduct:         f64.DotProduct,
	DotProductUnsafe:   f64.DotProductUnsafe,
	ConvolveValid:      f64.ConvolveValid,
	ConvolveValidMulti: f64.ConvolveValidMulti,
	Interleave2:        f64.Interleave2,
	Sum:                f64.Sum,
	Scale:              f64.Scale,
}

// Float64Ops returns the float64 SIMD operations.
func Float64Ops() *Ops {
	return &ops64
}
