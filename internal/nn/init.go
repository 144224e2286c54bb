package nn

import (
	"math"
	"math/rand/v2"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// kaimingUniform draws weights from U(-1/√fanIn, 1/√fanIn), the default
// initialisation of PyTorch convolution weights and biases
// (kaiming_uniform with a=√5).
func kaimingUniform(src rand.Source, fanIn int, shape ...int) *tensor.Tensor {
	bound := 1 / math.Sqrt(float64(fanIn))
	return tensor.RandUniform(src, -bound, bound, shape...)
}
