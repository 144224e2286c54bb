package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// HzToMel converts a frequency in Hz to the HTK mel scale.
func HzToMel(hz float64) float64 {
	return melScaleFactor * math.Log10(1+hz/melBreakFreq)
}

// MelToHz converts an HTK mel value back to Hz.
func MelToHz(mel float64) float64 {
	return melBreakFreq * (math.Pow(10, mel/melScaleFactor) - 1)
}

// MelFilterbank builds a [numMels, numBins] matrix of triangular filters
// spaced evenly on the HTK mel scale between fMin and fMax, without area
// normalisation. Bin i sits at frequency i·(sampleRate/2)/(numBins-1),
// with the Nyquist frequency truncated to an integer.
func MelFilterbank(numBins, numMels, sampleRate int, fMin, fMax float64) (*mat.Dense, error) {
	if numBins < 2 || numMels < 1 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: filterbank needs bins >= 2, mels >= 1 and a positive rate (got %d, %d, %d)",
			ErrInvalidParams, numBins, numMels, sampleRate)
	}
	if fMin < 0 || fMax <= fMin {
		return nil, fmt.Errorf("%w: frequency range [%g, %g]", ErrInvalidParams, fMin, fMax)
	}

	binFreqs := make([]float64, numBins)
	floats.Span(binFreqs, 0, float64(sampleRate/windowHalf))

	melPts := make([]float64, numMels+2)
	floats.Span(melPts, HzToMel(fMin), HzToMel(fMax))
	hzPts := make([]float64, len(melPts))
	for i, m := range melPts {
		hzPts[i] = MelToHz(m)
	}

	fb := mat.NewDense(numMels, numBins, nil)
	for m := range numMels {
		lower, centre, upper := hzPts[m], hzPts[m+1], hzPts[m+2]
		for b, f := range binFreqs {
			down := (f - lower) / (centre - lower)
			up := (upper - f) / (upper - centre)
			fb.Set(m, b, max(0, min(down, up)))
		}
	}
	return fb, nil
}

// ApplyFilterbank projects a [numBins][frames] row-major spectrum onto the
// filterbank rows, returning [numMels][frames] row-major values.
func ApplyFilterbank(fb *mat.Dense, spectrum []float64, frames int) []float64 {
	mels, bins := fb.Dims()
	out := make([]float64, mels*frames)
	dst := mat.NewDense(mels, frames, out)
	dst.Mul(fb, mat.NewDense(bins, frames, spectrum))
	return out
}
