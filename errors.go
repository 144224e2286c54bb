package autoencoder

import (
	"errors"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// Common errors returned by the autoencoder.
var (
	// ErrInvalidConfig indicates invalid configuration parameters. Every
	// construction failure wraps it.
	ErrInvalidConfig = errors.New("invalid autoencoder configuration")

	// ErrNoRandSource indicates a sampling operation was run without a
	// random source in its Pass.
	ErrNoRandSource = errors.New("pass has no random source")
)

// ShapeError reports a forward call whose input shape is incompatible with
// the module, for example a time length that is not a multiple of the
// patch size. Use errors.As to inspect it.
type ShapeError = tensor.ShapeError

// recoverShape converts a tensor shape panic into a returned error. It
// must be deferred directly by an exported method with a named error
// result.
func recoverShape(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if se, ok := r.(*tensor.ShapeError); ok {
		*err = se
		return
	}
	panic(r)
}
