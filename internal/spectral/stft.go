package spectral

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidParams is returned for inconsistent transform parameters.
var ErrInvalidParams = errors.New("spectral: invalid parameters")

// Config describes a short-time Fourier transform.
type Config struct {
	FFTSize int
	Hop     int
	// Window is the analysis window. Windows shorter than FFTSize are
	// zero-padded on both sides. A nil window selects a periodic Hann
	// window of length FFTSize.
	Window []float64
	// Center pads the signal by FFTSize/2 on each side with reflect
	// padding so that frame t is centred on sample t·Hop.
	Center bool
	// Normalized scales the forward transform by 1/√FFTSize and the
	// inverse by √FFTSize.
	Normalized bool
}

// Spectrum is a one-sided complex spectrogram stored as separate real
// and imaginary planes, each laid out [Bins][Frames] row-major.
type Spectrum struct {
	Bins   int
	Frames int
	Re     []float64
	Im     []float64
}

// NewSpectrum allocates a zero spectrum.
func NewSpectrum(bins, frames int) *Spectrum {
	return &Spectrum{
		Bins:   bins,
		Frames: frames,
		Re:     make([]float64, bins*frames),
		Im:     make([]float64, bins*frames),
	}
}

// Magnitude returns |z| per bin and frame.
func (s *Spectrum) Magnitude() []float64 {
	out := make([]float64, len(s.Re))
	for i := range out {
		out[i] = math.Hypot(s.Re[i], s.Im[i])
	}
	return out
}

// Phase returns arg(z) per bin and frame, in (-π, π].
func (s *Spectrum) Phase() []float64 {
	out := make([]float64, len(s.Re))
	for i := range out {
		out[i] = math.Atan2(s.Im[i], s.Re[i])
	}
	return out
}

// STFT computes framed real FFTs of a signal and inverts them by
// weighted overlap-add. An STFT is immutable after construction and safe
// for concurrent use; scratch buffers are allocated per call.
type STFT struct {
	cfg    Config
	window []float64 // padded to FFTSize, read-only
	bins   int
}

// New validates cfg and builds the transform.
func New(cfg Config) (*STFT, error) {
	if cfg.FFTSize < 2 {
		return nil, fmt.Errorf("%w: FFT size %d must be at least 2", ErrInvalidParams, cfg.FFTSize)
	}
	if cfg.Hop <= 0 {
		return nil, fmt.Errorf("%w: hop length %d must be positive", ErrInvalidParams, cfg.Hop)
	}
	window := cfg.Window
	if window == nil {
		window = Hann(cfg.FFTSize)
	}
	if len(window) == 0 || len(window) > cfg.FFTSize {
		return nil, fmt.Errorf("%w: window length %d must be in [1, %d]", ErrInvalidParams, len(window), cfg.FFTSize)
	}
	return &STFT{
		cfg:    cfg,
		window: PadCentered(window, cfg.FFTSize),
		bins:   cfg.FFTSize/windowHalf + 1,
	}, nil
}

// Bins returns the number of one-sided frequency bins, FFTSize/2+1.
func (s *STFT) Bins() int { return s.bins }

// Hop returns the frame advance in samples.
func (s *STFT) Hop() int { return s.cfg.Hop }

// FFTSize returns the transform length.
func (s *STFT) FFTSize() int { return s.cfg.FFTSize }

// Frames returns the number of frames produced for a signal of n samples.
func (s *STFT) Frames(n int) int {
	if s.cfg.Center {
		n += 2 * (s.cfg.FFTSize / windowHalf)
	}
	if n < s.cfg.FFTSize {
		return 0
	}
	return 1 + (n-s.cfg.FFTSize)/s.cfg.Hop
}

// Forward computes the spectrum of x.
func (s *STFT) Forward(x []float64) (*Spectrum, error) {
	n := s.cfg.FFTSize
	padded := x
	if s.cfg.Center {
		var err error
		if padded, err = ReflectPad(x, n/windowHalf, n/windowHalf); err != nil {
			return nil, err
		}
	}
	if len(padded) < n {
		return nil, fmt.Errorf("%w: %d samples cannot fill a frame of %d", ErrSignalTooShort, len(padded), n)
	}

	frames := 1 + (len(padded)-n)/s.cfg.Hop
	out := NewSpectrum(s.bins, frames)
	fft := fourier.NewFFT(n)
	frame := make([]float64, n)
	coeff := make([]complex128, s.bins)
	scale := 1.0
	if s.cfg.Normalized {
		scale = 1 / math.Sqrt(float64(n))
	}

	for f := range frames {
		start := f * s.cfg.Hop
		floats.MulTo(frame, padded[start:start+n], s.window)
		fft.Coefficients(coeff, frame)
		for k, c := range coeff {
			out.Re[k*frames+f] = real(c) * scale
			out.Im[k*frames+f] = imag(c) * scale
		}
	}
	return out, nil
}

// Inverse reconstructs a signal from sp by windowed overlap-add, dividing
// by the summed squared window. If length is positive the output is
// trimmed or zero-padded to exactly length samples; otherwise the full
// overlap-add span is returned (minus the centre padding).
func (s *STFT) Inverse(sp *Spectrum, length int) ([]float64, error) {
	n := s.cfg.FFTSize
	if sp.Bins != s.bins {
		return nil, fmt.Errorf("%w: spectrum has %d bins, transform expects %d", ErrInvalidParams, sp.Bins, s.bins)
	}
	if sp.Frames < 1 {
		return nil, fmt.Errorf("%w: spectrum has no frames", ErrSignalTooShort)
	}

	hop := s.cfg.Hop
	span := n + hop*(sp.Frames-1)
	y := make([]float64, span)
	envelope := make([]float64, span)
	fft := fourier.NewFFT(n)
	coeff := make([]complex128, s.bins)
	seq := make([]float64, n)

	// Sequence is unnormalised: divide by n, undo the forward scaling.
	scale := 1 / float64(n)
	if s.cfg.Normalized {
		scale *= math.Sqrt(float64(n))
	}
	frames := sp.Frames
	for f := range frames {
		for k := range coeff {
			coeff[k] = complex(sp.Re[k*frames+f], sp.Im[k*frames+f])
		}
		fft.Sequence(seq, coeff)
		start := f * hop
		for i, w := range s.window {
			y[start+i] += seq[i] * scale * w
			envelope[start+i] += w * w
		}
	}

	begin := 0
	if s.cfg.Center {
		begin = n / windowHalf
	}
	end := span
	if length > 0 {
		end = begin + length
	} else if s.cfg.Center {
		end = span - n/windowHalf
	}

	out := make([]float64, end-begin)
	for i := range out {
		j := begin + i
		if j >= span {
			break
		}
		if envelope[j] > envelopeFloor {
			out[i] = y[j] / envelope[j]
		} else {
			out[i] = y[j]
		}
	}
	return out, nil
}
