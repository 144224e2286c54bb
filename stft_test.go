package autoencoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
	"github.com/tphakala/go-audio-autoencoder/internal/testutil"
)

func stereoSine(length int) *Tensor {
	x := tensor.New(1, 2, length)
	copy(x.Row(0, 0), testutil.Sine(length, 0.01))
	copy(x.Row(0, 1), testutil.Sine(length, 0.037))
	return x
}

func TestSTFT_Defaults(t *testing.T) {
	s, err := NewSTFT(STFTConfig{})
	require.NoError(t, err)
	assert.Equal(t, 512, s.Bins())
	assert.Equal(t, 256, s.HopLength())

	tests := []struct {
		name string
		cfg  STFTConfig
		want int
	}{
		{"fft_512", STFTConfig{NumFFT: 512}, 256},
		{"fft_2048", STFTConfig{NumFFT: 2048}, 256},
		{"fft_2047", STFTConfig{NumFFT: 2047}, 256},
		{"explicit_hop", STFTConfig{NumFFT: 2048, HopLength: 512}, 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSTFT(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.HopLength())
		})
	}
}

func TestSTFT_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cfg  STFTConfig
	}{
		{"polar", STFTConfig{}},
		{"complex", STFTConfig{UseComplex: true}},
		{"kaiser", STFTConfig{Window: WindowKaiser, KaiserAttenuation: 60}},
		{"short_window", STFTConfig{NumFFT: 256, HopLength: 64, WindowLength: 200, Length: 1024}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSTFT(tt.cfg)
			require.NoError(t, err)
			x := stereoSine(1024)

			a, b, err := s.Encode(x)
			require.NoError(t, err)
			testutil.AssertShape(t, a.Shape(), 1, 2, s.Bins(), s.Frames(1024))
			testutil.AssertShape(t, b.Shape(), a.Shape()...)

			y, err := s.Decode(a, b)
			require.NoError(t, err)
			testutil.AssertShape(t, y.Shape(), 1, 2, 1024)
			testutil.AssertReconstructs(t, x.Row(0, 0), y.Row(0, 0))
			testutil.AssertReconstructs(t, x.Row(0, 1), y.Row(0, 1))
		})
	}
}

func TestSTFT_PolarRanges(t *testing.T) {
	s, err := NewSTFT(STFTConfig{NumFFT: 128, HopLength: 32})
	require.NoError(t, err)
	mag, phase, err := s.Encode(randomInput(1, 1, 512))
	require.NoError(t, err)
	testutil.AssertAllInRange(t, mag.Data(), 0, 1e6)
	testutil.AssertAllInRange(t, phase.Data(), -3.1415927, 3.1415927)
}

func TestSTFT_DecodeLength(t *testing.T) {
	s, err := NewSTFT(STFTConfig{Length: 1000})
	require.NoError(t, err)
	a, b, err := s.Encode(stereoSine(1024))
	require.NoError(t, err)
	y, err := s.Decode(a, b)
	require.NoError(t, err)
	testutil.AssertShape(t, y.Shape(), 1, 2, 1000)
}

// TestSTFT_Stacking checks that Encode1d/Decode1d only stack and unstack
// the pair.
func TestSTFT_Stacking(t *testing.T) {
	for _, useComplex := range []bool{false, true} {
		s, err := NewSTFT(STFTConfig{NumFFT: 64, HopLength: 16, UseComplex: useComplex})
		require.NoError(t, err)
		x := stereoSine(256)

		a, b, err := s.Encode(x)
		require.NoError(t, err)
		stacked, err := s.Encode1d(x)
		require.NoError(t, err)
		testutil.AssertShape(t, stacked.Shape(), 1, 2*2*33, s.Frames(256))

		ua, ub, err := s.Unstack(stacked)
		require.NoError(t, err)
		assert.Equal(t, a.Shape(), ua.Shape())
		assert.Equal(t, a.Data(), ua.Data())
		assert.Equal(t, b.Data(), ub.Data())

		want, err := s.Decode(a, b)
		require.NoError(t, err)
		got, err := s.Decode1d(stacked)
		require.NoError(t, err)
		assert.Equal(t, want.Data(), got.Data())
	}
}

func TestSTFT_ShapeErrors(t *testing.T) {
	s, err := NewSTFT(STFTConfig{NumFFT: 64, HopLength: 16})
	require.NoError(t, err)
	var se *ShapeError

	_, _, err = s.Encode(tensor.New(2, 64))
	assert.ErrorAs(t, err, &se)

	_, _, err = s.Encode(tensor.New(1, 1, 8))
	assert.ErrorAs(t, err, &se)

	_, err = s.Decode(tensor.New(1, 1, 10, 4), tensor.New(1, 1, 10, 4))
	assert.ErrorAs(t, err, &se)

	_, err = s.Decode1d(tensor.New(1, 33, 4))
	assert.ErrorAs(t, err, &se)
}

func TestSTFTConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  STFTConfig
	}{
		{"fft_too_small", STFTConfig{NumFFT: 1}},
		{"negative_hop", STFTConfig{HopLength: -1}},
		{"window_too_long", STFTConfig{NumFFT: 64, WindowLength: 65}},
		{"unknown_window", STFTConfig{Window: "hamming"}},
		{"negative_length", STFTConfig{Length: -4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSTFT(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
