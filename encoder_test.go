package autoencoder

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-autoencoder/internal/testutil"
)

func testAutoEncoderConfig() AutoEncoderConfig {
	return AutoEncoderConfig{
		InChannels:  1,
		Channels:    8,
		Multipliers: []int{1, 2, 4},
		Factors:     []int{2, 2},
		NumBlocks:   []int{1, 1},
		PatchSize:   1,
		Seed:        42,
	}
}

func TestAutoEncoder1d_EndToEnd(t *testing.T) {
	ae, err := NewAutoEncoder1d(testAutoEncoderConfig())
	require.NoError(t, err)
	assert.Equal(t, 4, ae.DownsampleFactor())

	y, info, err := ae.Forward(Eval(nil), randomInput(1, 1, 64))
	require.NoError(t, err)
	testutil.AssertShape(t, y.Shape(), 1, 1, 64)
	testutil.AssertNoNaNOrInf(t, y.Data())

	latent, ok := info.Tensor(KeyLatent)
	require.True(t, ok)
	testutil.AssertShape(t, latent.Shape(), 1, 32, 16)

	encXs, ok := info.Tensors(PrefixEncoder + KeyXs)
	require.True(t, ok)
	require.Len(t, encXs, 5)
	wantEnc := [][]int{{1, 1, 64}, {1, 8, 64}, {1, 16, 32}, {1, 32, 16}, {1, 32, 16}}
	for i, w := range wantEnc {
		assert.Equal(t, w, encXs[i].Shape(), "encoder xs[%d]", i)
	}

	decXs, ok := info.Tensors(PrefixDecoder + KeyXs)
	require.True(t, ok)
	require.Len(t, decXs, 5)
	wantDec := [][]int{{1, 32, 16}, {1, 32, 16}, {1, 16, 32}, {1, 8, 64}, {1, 1, 64}}
	for i, w := range wantDec {
		assert.Equal(t, w, decXs[i].Shape(), "decoder xs[%d]", i)
	}
}

func TestAutoEncoder1d_BottleneckInfo(t *testing.T) {
	cfg := testAutoEncoderConfig()
	cfg.BottleneckChannels = 4
	cfg.Bottlenecks = []BottleneckConfig{
		{Kind: BottleneckVariational, LossWeight: float64Ptr(0.1)},
		{Kind: BottleneckTanh},
	}
	ae, err := NewAutoEncoder1d(cfg)
	require.NoError(t, err)

	y, info, err := ae.Forward(Train(rand.NewPCG(1, 1)), randomInput(2, 1, 32))
	require.NoError(t, err)
	testutil.AssertShape(t, y.Shape(), 2, 1, 32)

	latent, _ := info.Tensor(KeyLatent)
	testutil.AssertShape(t, latent.Shape(), 2, 4, 8)
	testutil.AssertAllInRange(t, latent.Data(), -1, 1)

	kl, ok := info.Float(PrefixEncoder + PrefixBottleneck + KeyKLLoss)
	require.True(t, ok)
	assert.GreaterOrEqual(t, kl, 0.0)
	_, ok = info.Tensor(PrefixEncoder + PrefixBottleneck + KeyMean)
	assert.True(t, ok)

	names := paramNames(ae.Parameters())
	assert.True(t, names["encoder.to_out.weight"])
	assert.True(t, names["encoder.bottlenecks.0.to_mean_and_std.weight"])
	assert.True(t, names["decoder.to_in.weight"])
}

func TestAutoEncoder1d_ParameterNames(t *testing.T) {
	ae, err := NewAutoEncoder1d(testAutoEncoderConfig())
	require.NoError(t, err)

	ps := ae.Parameters()
	names := paramNames(ps)
	assert.Len(t, names, len(ps), "parameter names must be unique")
	for _, want := range []string{
		"encoder.to_in.block.block1.groupnorm.weight",
		"encoder.to_in.block.to_out.weight",
		"encoder.downsamples.0.downsample.weight",
		"encoder.downsamples.1.blocks.0.block2.project.bias",
		"decoder.upsamples.0.blocks.0.block1.project.weight",
		"decoder.upsamples.1.upsample.weight",
		"decoder.to_out.block.block2.groupnorm.bias",
	} {
		assert.True(t, names[want], "missing parameter %s", want)
	}
	assert.False(t, names["encoder.to_out.weight"])
	assert.False(t, names["decoder.to_in.weight"])
	assert.Positive(t, NumParameters(ps))
}

func TestAutoEncoder1d_SeedReproducible(t *testing.T) {
	a, err := NewAutoEncoder1d(testAutoEncoderConfig())
	require.NoError(t, err)
	b, err := NewAutoEncoder1d(testAutoEncoderConfig())
	require.NoError(t, err)

	x := randomInput(1, 1, 16)
	ya, _, err := a.Forward(Eval(nil), x)
	require.NoError(t, err)
	yb, _, err := b.Forward(Eval(nil), x)
	require.NoError(t, err)
	assert.Equal(t, ya.Data(), yb.Data())

	c, err := NewAutoEncoder1d(testAutoEncoderConfig(), WithInitSource(rand.NewPCG(99, 99)))
	require.NoError(t, err)
	yc, _, err := c.Forward(Eval(nil), x)
	require.NoError(t, err)
	assert.NotEqual(t, ya.Data(), yc.Data())
}

func TestEncoder1d_PatchSize(t *testing.T) {
	e, err := NewEncoder1d(EncoderConfig{
		InChannels:  2,
		Channels:    8,
		Multipliers: []int{1, 1},
		Factors:     []int{4},
		NumBlocks:   []int{0},
		PatchSize:   2,
		OutChannels: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, e.DownsampleFactor())
	assert.Equal(t, 3, e.OutChannels())
	assert.Equal(t, 1, e.NumLayers())

	y, info, err := e.Forward(Eval(nil), randomInput(1, 2, 64))
	require.NoError(t, err)
	testutil.AssertShape(t, y.Shape(), 1, 3, 8)
	xs, _ := info.Tensors(KeyXs)
	assert.Len(t, xs, 4)

	_, _, err = e.Forward(Eval(nil), randomInput(1, 2, 63))
	var se *ShapeError
	assert.ErrorAs(t, err, &se)

	_, _, err = e.Forward(Eval(nil), randomInput(1, 3, 64))
	assert.ErrorAs(t, err, &se)
}

func TestEncoder1d_InjectedBottleneck(t *testing.T) {
	cfg := EncoderConfig{
		InChannels:  1,
		Channels:    8,
		Multipliers: []int{1, 1},
		Factors:     []int{2},
		NumBlocks:   []int{1},
		Bottlenecks: []BottleneckConfig{{Kind: BottleneckTanh}},
	}
	e, err := NewEncoder1d(cfg, WithBottleneck(NewBitcodesBottleneck(constQuantizer{code: 1})))
	require.NoError(t, err)

	_, info, err := e.Forward(Eval(nil), randomInput(1, 1, 16))
	require.NoError(t, err)
	codes, ok := info.Tensor(PrefixBottleneck + KeyBits)
	require.True(t, ok)
	testutil.AssertShape(t, codes.Shape(), 1, 8)
}

func TestDecoder1d_Standalone(t *testing.T) {
	d, err := NewDecoder1d(DecoderConfig{
		OutChannels:  2,
		Channels:     4,
		Multipliers:  []int{4, 2, 1},
		Factors:      []int{3, 2},
		NumBlocks:    []int{1, 0},
		ResnetGroups: 2,
		InChannels:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, d.UpsampleFactor())

	y, info, err := d.Forward(randomInput(1, 5, 10))
	require.NoError(t, err)
	testutil.AssertShape(t, y.Shape(), 1, 2, 60)
	xs, _ := info.Tensors(KeyXs)
	assert.Len(t, xs, 5)
}

func TestConfigErrors(t *testing.T) {
	base := testAutoEncoderConfig
	tests := []struct {
		name   string
		mutate func(*AutoEncoderConfig)
	}{
		{"factor_count", func(c *AutoEncoderConfig) { c.Factors = []int{2} }},
		{"block_count", func(c *AutoEncoderConfig) { c.NumBlocks = []int{1, 1, 1} }},
		{"empty_multipliers", func(c *AutoEncoderConfig) { c.Multipliers = nil; c.Factors = nil; c.NumBlocks = nil }},
		{"zero_factor", func(c *AutoEncoderConfig) { c.Factors = []int{2, 0} }},
		{"zero_channels", func(c *AutoEncoderConfig) { c.Channels = 0 }},
		{"patch_indivisible", func(c *AutoEncoderConfig) { c.Channels = 6; c.ResnetGroups = 2; c.PatchSize = 4 }},
		{"groups_indivisible", func(c *AutoEncoderConfig) { c.ResnetGroups = 3 }},
		{"negative_bottleneck_channels", func(c *AutoEncoderConfig) { c.BottleneckChannels = -1 }},
		{"unknown_bottleneck", func(c *AutoEncoderConfig) { c.Bottlenecks = []BottleneckConfig{{Kind: "vq"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			_, err := NewAutoEncoder1d(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
