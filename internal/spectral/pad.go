package spectral

import (
	"errors"
	"fmt"
)

// ErrSignalTooShort is returned when a signal is too short for the
// requested padding or framing.
var ErrSignalTooShort = errors.New("spectral: signal too short")

// ReflectPad pads x on both sides by mirroring it about its end samples
// (the edge sample itself is not repeated). Both pads must be shorter
// than x.
func ReflectPad(x []float64, left, right int) ([]float64, error) {
	n := len(x)
	if left >= n || right >= n {
		return nil, fmt.Errorf("%w: reflect padding (%d, %d) needs more than %d samples",
			ErrSignalTooShort, left, right, n)
	}
	out := make([]float64, left+n+right)
	for i := range left {
		out[i] = x[left-i]
	}
	copy(out[left:], x)
	for i := range right {
		out[left+n+i] = x[n-2-i]
	}
	return out, nil
}
