package tensor

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandNormal returns a tensor of independent N(mean, std²) samples drawn
// from src.
func RandNormal(src rand.Source, mean, std float64, shape ...int) *Tensor {
	t := New(shape...)
	d := distuv.Normal{Mu: mean, Sigma: std, Src: src}
	for i := range t.data {
		t.data[i] = d.Rand()
	}
	return t
}

// RandUniform returns a tensor of independent U(lo, hi) samples drawn from
// src.
func RandUniform(src rand.Source, lo, hi float64, shape ...int) *Tensor {
	t := New(shape...)
	d := distuv.Uniform{Min: lo, Max: hi, Src: src}
	for i := range t.data {
		t.data[i] = d.Rand()
	}
	return t
}
