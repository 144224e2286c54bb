package autoencoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func testDiscriminatorConfig() DiscriminatorConfig {
	return DiscriminatorConfig{
		Encoder: EncoderConfig{
			InChannels:  1,
			Channels:    8,
			Multipliers: []int{1, 2, 4},
			Factors:     []int{2, 2},
			NumBlocks:   []int{1, 1},
			Seed:        7,
		},
	}
}

// TestDiscriminator1d_IdenticalInputs checks that identical real and fake
// signals zero the feature term and leave the hinge loss at or above 2.
func TestDiscriminator1d_IdenticalInputs(t *testing.T) {
	d, err := NewDiscriminator1d(testDiscriminatorConfig())
	require.NoError(t, err)

	x := randomInput(2, 1, 64)
	lossG, lossD, info, err := d.Forward(Eval(nil), x, x)
	require.NoError(t, err)

	scoresTrue, ok := info.Floats(KeyScoresTrue)
	require.True(t, ok)
	scoresFake, ok := info.Floats(KeyScoresFake)
	require.True(t, ok)
	require.Len(t, scoresFake, 2)
	assert.Equal(t, scoresTrue, scoresFake)

	assert.InDelta(t, -stat.Mean(scoresFake, nil), lossG, 1e-12)
	assert.GreaterOrEqual(t, lossD, 2.0)
}

func TestDiscriminator1d_Mask(t *testing.T) {
	cfg := testDiscriminatorConfig()
	cfg.UseLoss = []bool{false, true}
	d, err := NewDiscriminator1d(cfg)
	require.NoError(t, err)

	lossG, lossD, info, err := d.Forward(Eval(nil), randomInput(1, 1, 64), randomInput(1, 1, 64).Scale(2))
	require.NoError(t, err)
	scores, _ := info.Floats(KeyScoresTrue)
	assert.Len(t, scores, 1)
	assert.False(t, math.IsNaN(lossG) || math.IsNaN(lossD), "losses must not be NaN")
	assert.Positive(t, lossD)

	assert.True(t, paramNames(d.Parameters())["discriminator.downsamples.1.downsample.weight"])
}

func TestDiscriminator1d_ConfigErrors(t *testing.T) {
	for _, mask := range [][]bool{{true}, {true, true, true}, {false, false}} {
		cfg := testDiscriminatorConfig()
		cfg.UseLoss = mask
		_, err := NewDiscriminator1d(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, "mask %v", mask)
	}
}

func TestDiscriminator1d_OddChannels(t *testing.T) {
	d, err := NewDiscriminator1d(DiscriminatorConfig{
		Encoder: EncoderConfig{
			InChannels:   1,
			Channels:     3,
			Multipliers:  []int{1, 2},
			Factors:      []int{2},
			NumBlocks:    []int{1},
			ResnetGroups: 1,
		},
	})
	require.NoError(t, err)

	x := randomInput(1, 1, 16)
	_, _, _, err = d.Forward(Eval(nil), x, x)
	var se *ShapeError
	assert.ErrorAs(t, err, &se)
}
