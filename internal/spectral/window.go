// Package spectral implements the time-frequency transforms used by the
// spectral encoders: analysis windows, reflect padding, a framed real-FFT
// STFT with its overlap-add inverse, and the HTK mel filterbank.
//
// Framing, padding and scaling follow the conventions of torch.stft and
// torchaudio so that spectra computed here line up bin for bin with
// models trained against those libraries.
package spectral

import (
	"math"

	"github.com/tphakala/go-audio-autoencoder/internal/mathutil"
)

// Hann returns a periodic Hann window of length n:
// w[i] = 0.5 - 0.5·cos(2πi/n).
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// Kaiser returns a periodic Kaiser window of length n with shape
// parameter beta. It is the first n samples of a symmetric window of
// length n+1.
//
// w[i] = I₀(β·√(1 - ((i - α)/α)²)) / I₀(β), α = n/2
func Kaiser(n int, beta float64) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	alpha := float64(n) / windowHalf
	i0Beta := mathutil.BesselI0(beta)
	for i := range w {
		x := (float64(i) - alpha) / alpha
		w[i] = mathutil.BesselI0(beta*math.Sqrt(max(0, 1-x*x))) / i0Beta
	}
	return w
}

// PadCentered zero-pads w symmetrically to length n, placing the extra
// sample (if any) on the right. Windows already of length n are returned
// unchanged.
func PadCentered(w []float64, n int) []float64 {
	if len(w) >= n {
		return w
	}
	out := make([]float64, n)
	left := (n - len(w)) / windowHalf
	copy(out[left:], w)
	return out
}
