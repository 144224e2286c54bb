package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/tphakala/go-audio-autoencoder/internal/simdops"
)

var ops = simdops.Float64Ops()

// Add returns a + b elementwise.
func Add(a, b *Tensor) *Tensor {
	mustSameShape("Add", a, b)
	out := New(a.shape...)
	floats.AddTo(out.data, a.data, b.data)
	return out
}

// Sub returns a - b elementwise.
func Sub(a, b *Tensor) *Tensor {
	mustSameShape("Sub", a, b)
	out := New(a.shape...)
	floats.SubTo(out.data, a.data, b.data)
	return out
}

// Mul returns a * b elementwise.
func Mul(a, b *Tensor) *Tensor {
	mustSameShape("Mul", a, b)
	out := New(a.shape...)
	floats.MulTo(out.data, a.data, b.data)
	return out
}

// AddInPlace accumulates u into t and returns t.
func (t *Tensor) AddInPlace(u *Tensor) *Tensor {
	mustSameShape("AddInPlace", t, u)
	floats.Add(t.data, u.data)
	return t
}

// Scale returns t * s.
func (t *Tensor) Scale(s float64) *Tensor {
	out := New(t.shape...)
	ops.Scale(out.data, t.data, s)
	return out
}

// AddScalar returns t + c.
func (t *Tensor) AddScalar(c float64) *Tensor {
	out := t.Clone()
	floats.AddConst(c, out.data)
	return out
}

// Map returns a tensor with fn applied to every element.
func (t *Tensor) Map(fn func(float64) float64) *Tensor {
	out := New(t.shape...)
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// Tanh returns tanh(t).
func (t *Tensor) Tanh() *Tensor { return t.Map(math.Tanh) }

// Exp returns e^t.
func (t *Tensor) Exp() *Tensor { return t.Map(math.Exp) }

// Log returns ln(t). Non-positive elements yield -Inf or NaN.
func (t *Tensor) Log() *Tensor { return t.Map(math.Log) }

// Pow returns t^p.
func (t *Tensor) Pow(p float64) *Tensor {
	return t.Map(func(v float64) float64 { return math.Pow(v, p) })
}

// SiLU returns t * sigmoid(t).
func (t *Tensor) SiLU() *Tensor {
	return t.Map(func(v float64) float64 { return v / (1 + math.Exp(-v)) })
}

// ReLU returns max(t, 0).
func (t *Tensor) ReLU() *Tensor {
	return t.Map(func(v float64) float64 { return math.Max(v, 0) })
}

// Clamp limits every element to [lo, hi].
func (t *Tensor) Clamp(lo, hi float64) *Tensor {
	return t.Map(func(v float64) float64 { return math.Min(math.Max(v, lo), hi) })
}

// ClampMin limits every element to at least lo.
func (t *Tensor) ClampMin(lo float64) *Tensor {
	return t.Map(func(v float64) float64 { return math.Max(v, lo) })
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return ops.Sum(t.data)
}

// Mean returns the arithmetic mean of all elements. An empty tensor has
// mean NaN.
func (t *Tensor) Mean() float64 {
	if len(t.data) == 0 {
		return math.NaN()
	}
	return ops.Sum(t.data) / float64(len(t.data))
}

// Max returns the largest element.
func (t *Tensor) Max() float64 {
	if len(t.data) == 0 {
		panic(&ShapeError{Op: "Max", Msg: "empty tensor"})
	}
	return floats.Max(t.data)
}

// Min returns the smallest element.
func (t *Tensor) Min() float64 {
	if len(t.data) == 0 {
		panic(&ShapeError{Op: "Min", Msg: "empty tensor"})
	}
	return floats.Min(t.data)
}

// L1Loss returns mean(|a - b|).
func L1Loss(a, b *Tensor) float64 {
	mustSameShape("L1Loss", a, b)
	if len(a.data) == 0 {
		return math.NaN()
	}
	return floats.Distance(a.data, b.data, 1) / float64(len(a.data))
}

// MSE returns mean((a - b)^2).
func MSE(a, b *Tensor) float64 {
	mustSameShape("MSE", a, b)
	if len(a.data) == 0 {
		return math.NaN()
	}
	d := floats.Distance(a.data, b.data, 2)
	return d * d / float64(len(a.data))
}
