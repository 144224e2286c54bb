package autoencoder

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
	"github.com/tphakala/go-audio-autoencoder/internal/testutil"
)

func testSource() rand.Source { return rand.NewPCG(1, 2) }

func randomInput(shape ...int) *Tensor {
	return tensor.RandNormal(rand.NewPCG(3, 4), 0, 1, shape...)
}

// TestResample_RoundTripLength checks that Downsample1d followed by
// Upsample1d restores the time length for every factor.
func TestResample_RoundTripLength(t *testing.T) {
	for factor := 1; factor <= 6; factor++ {
		t.Run(fmt.Sprintf("factor_%d", factor), func(t *testing.T) {
			down, err := NewDownsample1d(testSource(), 4, 6, factor, defaultKernelMultiplier)
			require.NoError(t, err)
			up, err := NewUpsample1d(testSource(), 6, 4, factor)
			require.NoError(t, err)

			length := factor * 7
			h, err := down.Forward(randomInput(2, 4, length))
			require.NoError(t, err)
			testutil.AssertShape(t, h.Shape(), 2, 6, 7)

			y, err := up.Forward(h)
			require.NoError(t, err)
			testutil.AssertShape(t, y.Shape(), 2, 4, length)
		})
	}
}

func TestDownsample1d_KernelMultiplier(t *testing.T) {
	_, err := NewDownsample1d(testSource(), 4, 4, 2, 3)
	require.ErrorIs(t, err, ErrInvalidConfig)

	d, err := NewDownsample1d(testSource(), 4, 4, 3, 4)
	require.NoError(t, err)
	w := d.Parameters()[0]
	assert.Equal(t, "weight", w.Name)
	testutil.AssertShape(t, w.Value.Shape(), 4, 4, 13)
}

func TestNewResample_InvalidFactor(t *testing.T) {
	_, err := NewDownsample1d(testSource(), 4, 4, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewUpsample1d(testSource(), 4, 4, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResnetBlock1d(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ResnetBlockConfig
		wantShape []int
		wantToOut bool
	}{
		{"same_width", ResnetBlockConfig{InChannels: 8, OutChannels: 8}, []int{2, 8, 16}, false},
		{"projected", ResnetBlockConfig{InChannels: 8, OutChannels: 16}, []int{2, 16, 16}, true},
		{"no_norm", ResnetBlockConfig{InChannels: 4, OutChannels: 4, DisableNorm: true}, []int{2, 4, 16}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResnetBlock1d(testSource(), tt.cfg)
			require.NoError(t, err)

			y, err := r.Forward(randomInput(2, tt.cfg.InChannels, 16))
			require.NoError(t, err)
			assert.Equal(t, tt.wantShape, y.Shape())
			testutil.AssertNoNaNOrInf(t, y.Data())

			names := paramNames(r.Parameters())
			assert.Equal(t, tt.wantToOut, names["to_out.weight"])
			assert.Equal(t, !tt.cfg.DisableNorm, names["block1.groupnorm.weight"])
			assert.True(t, names["block2.project.bias"])
		})
	}
}

func TestResnetBlock1d_StridedIdentitySkip(t *testing.T) {
	r, err := NewResnetBlock1d(testSource(), ResnetBlockConfig{InChannels: 8, OutChannels: 8, KernelSize: 3, Stride: 2, Padding: 1})
	require.NoError(t, err)

	// The identity skip keeps the input length, so the sum cannot align.
	_, err = r.Forward(randomInput(1, 8, 16))
	var se *ShapeError
	assert.ErrorAs(t, err, &se)
}

func TestResnetBlock1d_IndivisibleGroups(t *testing.T) {
	_, err := NewResnetBlock1d(testSource(), ResnetBlockConfig{InChannels: 6, OutChannels: 6, NumGroups: 4})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestPatcher_RoundTripShape checks that patching then unpatching with
// the same patch size restores channels and time.
func TestPatcher_RoundTripShape(t *testing.T) {
	for _, patch := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("patch_%d", patch), func(t *testing.T) {
			p, err := NewPatcher(testSource(), 2, 8, patch)
			require.NoError(t, err)
			u, err := NewUnpatcher(testSource(), 8, 2, patch)
			require.NoError(t, err)

			h, err := p.Forward(randomInput(1, 2, 32))
			require.NoError(t, err)
			testutil.AssertShape(t, h.Shape(), 1, 8, 32/patch)

			y, err := u.Forward(h)
			require.NoError(t, err)
			testutil.AssertShape(t, y.Shape(), 1, 2, 32)
		})
	}
}

func TestPatcher_Errors(t *testing.T) {
	_, err := NewPatcher(testSource(), 1, 6, 4)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewUnpatcher(testSource(), 6, 1, 4)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err := NewPatcher(testSource(), 1, 8, 4)
	require.NoError(t, err)
	_, err = p.Forward(randomInput(1, 1, 30))
	var se *ShapeError
	assert.True(t, errors.As(err, &se), "expected ShapeError, got %v", err)
}

func TestStages(t *testing.T) {
	cfg := StageConfig{InChannels: 8, OutChannels: 16, Factor: 2, NumLayers: 2}
	down, err := NewDownsampleBlock1d(testSource(), cfg)
	require.NoError(t, err)
	h, err := down.Forward(randomInput(1, 8, 32))
	require.NoError(t, err)
	testutil.AssertShape(t, h.Shape(), 1, 16, 16)

	up, err := NewUpsampleBlock1d(testSource(), StageConfig{InChannels: 16, OutChannels: 8, Factor: 2, NumLayers: 2})
	require.NoError(t, err)
	y, err := up.Forward(h)
	require.NoError(t, err)
	testutil.AssertShape(t, y.Shape(), 1, 8, 32)

	downNames := paramNames(down.Parameters())
	assert.True(t, downNames["downsample.weight"])
	assert.True(t, downNames["blocks.1.block2.project.weight"])
	upNames := paramNames(up.Parameters())
	assert.True(t, upNames["blocks.0.block1.groupnorm.bias"])
	assert.True(t, upNames["upsample.bias"])
}

func paramNames(ps []Parameter) map[string]bool {
	names := make(map[string]bool, len(ps))
	for _, p := range ps {
		names[p.Name] = true
	}
	return names
}
