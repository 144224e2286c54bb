package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/go-audio-autoencoder/internal/simdops"
	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

var ops = simdops.Float64Ops()

// ConvConfig describes a 1-D convolution. Zero Stride and Dilation mean 1.
type ConvConfig struct {
	InChannels    int
	OutChannels   int
	KernelSize    int
	Stride        int
	Padding       int
	Dilation      int
	OutputPadding int // transposed convolution only
}

func (c ConvConfig) withDefaults() ConvConfig {
	if c.Stride == 0 {
		c.Stride = 1
	}
	if c.Dilation == 0 {
		c.Dilation = 1
	}
	return c
}

// Conv1d is a 1-D cross-correlation with zero padding and bias, operating
// on [batch, channels, time] tensors.
type Conv1d struct {
	ConvConfig
	Weight *tensor.Tensor // [out, in, kernel]
	Bias   *tensor.Tensor // [out]
}

// NewConv1d creates a convolution with Kaiming-uniform weights drawn from src.
func NewConv1d(src rand.Source, cfg ConvConfig) *Conv1d {
	cfg = cfg.withDefaults()
	fanIn := cfg.InChannels * cfg.KernelSize
	return &Conv1d{
		ConvConfig: cfg,
		Weight:     kaimingUniform(src, fanIn, cfg.OutChannels, cfg.InChannels, cfg.KernelSize),
		Bias:       kaimingUniform(src, fanIn, cfg.OutChannels),
	}
}

// OutputLength returns the output time length for an input of length l.
func (c *Conv1d) OutputLength(l int) int {
	span := c.Dilation*(c.KernelSize-1) + 1
	return (l+2*c.Padding-span)/c.Stride + 1
}

// Forward applies the convolution.
func (c *Conv1d) Forward(x *tensor.Tensor) *tensor.Tensor {
	batch, length := checkInput("Conv1d", x, c.InChannels)
	outLen := c.OutputLength(length)
	if length+2*c.Padding < c.Dilation*(c.KernelSize-1)+1 {
		panic(&tensor.ShapeError{Op: "Conv1d", Msg: fmt.Sprintf("input length %d too short for kernel %d", length, c.KernelSize)})
	}

	out := tensor.New(batch, c.OutChannels, outLen)
	paddedLen := length + 2*c.Padding
	padded := make([]float64, c.InChannels*paddedLen)

	for b := range batch {
		for i := range c.InChannels {
			row := padded[i*paddedLen : (i+1)*paddedLen]
			copy(row[c.Padding:c.Padding+length], x.Row(b, i))
		}

		dst := out.Data()[b*c.OutChannels*outLen : (b+1)*c.OutChannels*outLen]
		if c.Stride == 1 && c.Dilation == 1 {
			c.forwardDirect(dst, padded, paddedLen, outLen)
		} else {
			c.forwardGEMM(dst, padded, paddedLen, outLen)
		}

		bias := c.Bias.Data()
		for o := range c.OutChannels {
			floats.AddConst(bias[o], dst[o*outLen:(o+1)*outLen])
		}
	}
	return out
}

// forwardDirect runs SIMD valid-correlation per input channel and
// accumulates into every output channel.
func (c *Conv1d) forwardDirect(dst, padded []float64, paddedLen, outLen int) {
	w := c.Weight.Data()
	k := c.KernelSize
	kernels := make([][]float64, c.OutChannels)
	tmps := make([][]float64, c.OutChannels)
	for o := range tmps {
		tmps[o] = make([]float64, outLen)
	}

	for i := range c.InChannels {
		for o := range c.OutChannels {
			base := (o*c.InChannels + i) * k
			kernels[o] = w[base : base+k]
		}
		ops.ConvolveValidMulti(tmps, padded[i*paddedLen:(i+1)*paddedLen], kernels)
		for o := range c.OutChannels {
			floats.Add(dst[o*outLen:(o+1)*outLen], tmps[o])
		}
	}
}

// forwardGEMM lowers the strided/dilated case to a matrix product:
// out[out, T] = W[out, in*k] × cols[in*k, T].
func (c *Conv1d) forwardGEMM(dst, padded []float64, paddedLen, outLen int) {
	k := c.KernelSize
	rows := c.InChannels * k
	cols := make([]float64, rows*outLen)
	for i := range c.InChannels {
		src := padded[i*paddedLen : (i+1)*paddedLen]
		for j := range k {
			row := cols[(i*k+j)*outLen : (i*k+j+1)*outLen]
			for t := range outLen {
				row[t] = src[t*c.Stride+j*c.Dilation]
			}
		}
	}

	wm := mat.NewDense(c.OutChannels, rows, c.Weight.Data())
	cm := mat.NewDense(rows, outLen, cols)
	om := mat.NewDense(c.OutChannels, outLen, dst)
	om.Mul(wm, cm)
}

// Params returns weight and bias.
func (c *Conv1d) Params() []Param {
	return []Param{{Name: "weight", Value: c.Weight}, {Name: "bias", Value: c.Bias}}
}

// ConvTranspose1d is the fractionally-strided counterpart of Conv1d.
type ConvTranspose1d struct {
	ConvConfig
	Weight *tensor.Tensor // [in, out, kernel]
	Bias   *tensor.Tensor // [out]
}

// NewConvTranspose1d creates a transposed convolution with Kaiming-uniform
// weights drawn from src.
func NewConvTranspose1d(src rand.Source, cfg ConvConfig) *ConvTranspose1d {
	cfg = cfg.withDefaults()
	fanIn := cfg.OutChannels * cfg.KernelSize
	return &ConvTranspose1d{
		ConvConfig: cfg,
		Weight:     kaimingUniform(src, fanIn, cfg.InChannels, cfg.OutChannels, cfg.KernelSize),
		Bias:       kaimingUniform(src, fanIn, cfg.OutChannels),
	}
}

// OutputLength returns the output time length for an input of length l.
func (c *ConvTranspose1d) OutputLength(l int) int {
	return (l-1)*c.Stride - 2*c.Padding + c.Dilation*(c.KernelSize-1) + c.OutputPadding + 1
}

// Forward applies the transposed convolution: every input sample scatters
// a scaled kernel into the output at stride spacing, then Padding samples
// are cropped from both ends.
func (c *ConvTranspose1d) Forward(x *tensor.Tensor) *tensor.Tensor {
	batch, length := checkInput("ConvTranspose1d", x, c.InChannels)
	outLen := c.OutputLength(length)
	if outLen <= 0 {
		panic(&tensor.ShapeError{Op: "ConvTranspose1d", Msg: fmt.Sprintf("input length %d gives empty output", length)})
	}

	k := c.KernelSize
	fullLen := (length-1)*c.Stride + c.Dilation*(k-1) + 1 + c.OutputPadding
	wm := mat.NewDense(c.InChannels, c.OutChannels*k, c.Weight.Data())
	cols := mat.NewDense(c.OutChannels*k, length, nil)
	full := make([]float64, fullLen)
	out := tensor.New(batch, c.OutChannels, outLen)
	bias := c.Bias.Data()

	for b := range batch {
		xb := x.Data()[b*c.InChannels*length : (b+1)*c.InChannels*length]
		cols.Mul(wm.T(), mat.NewDense(c.InChannels, length, xb))
		raw := cols.RawMatrix()

		for o := range c.OutChannels {
			clear(full)
			for j := range k {
				row := raw.Data[(o*k+j)*raw.Stride : (o*k+j)*raw.Stride+length]
				shift := j * c.Dilation
				for i, v := range row {
					full[i*c.Stride+shift] += v
				}
			}
			dst := out.Row(b, o)
			copy(dst, full[c.Padding:c.Padding+outLen])
			floats.AddConst(bias[o], dst)
		}
	}
	return out
}

// Params returns weight and bias.
func (c *ConvTranspose1d) Params() []Param {
	return []Param{{Name: "weight", Value: c.Weight}, {Name: "bias", Value: c.Bias}}
}

func checkInput(op string, x *tensor.Tensor, channels int) (batch, length int) {
	if x.Rank() != 3 || x.Dim(1) != channels {
		panic(&tensor.ShapeError{Op: op, Msg: fmt.Sprintf("expected [batch, %d, time], got %v", channels, x.Shape())})
	}
	return x.Dim(0), x.Dim(2)
}
