package autoencoder

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
	"github.com/tphakala/go-audio-autoencoder/internal/testutil"
)

func TestVariationalBottleneck_Ranges(t *testing.T) {
	v, err := NewVariationalBottleneck(testSource(), 4, 0.5)
	require.NoError(t, err)

	x := randomInput(2, 4, 32).Scale(10)
	y, info, err := v.Forward(Train(rand.NewPCG(7, 7)), x)
	require.NoError(t, err)
	testutil.AssertShape(t, y.Shape(), 2, 4, 32)

	mean, ok := info.Tensor(KeyMean)
	require.True(t, ok)
	std, ok := info.Tensor(KeyStd)
	require.True(t, ok)
	testutil.AssertAllInRange(t, mean.Data(), -1, 1)
	testutil.AssertAllInRange(t, std.Data(), 0, 2)

	kl, ok := info.Float(KeyKLLoss)
	require.True(t, ok)
	want := 0.0
	for i, m := range mean.Data() {
		s := std.Data()[i]
		want += m*m + math.Exp(s) - s - 1
	}
	want = want / float64(mean.Len()) * 0.5
	assert.InDelta(t, want, kl, 1e-12)
	assert.GreaterOrEqual(t, kl, 0.0)
}

// TestVariationalBottleneck_Sample checks y = mean + std·ε against the
// same normal stream.
func TestVariationalBottleneck_Sample(t *testing.T) {
	v, err := NewVariationalBottleneck(testSource(), 2, 1)
	require.NoError(t, err)
	x := randomInput(1, 2, 8)

	y, info, err := v.Forward(Eval(rand.NewPCG(5, 5)), x)
	require.NoError(t, err)
	mean, _ := info.Tensor(KeyMean)
	std, _ := info.Tensor(KeyStd)
	eps := tensor.RandNormal(rand.NewPCG(5, 5), 0, 1, 1, 2, 8)

	want := tensor.Add(mean, tensor.Mul(std, eps))
	assert.InDeltaSlice(t, want.Data(), y.Data(), 1e-12)

	again, _, err := v.Forward(Eval(rand.NewPCG(5, 5)), x)
	require.NoError(t, err)
	assert.Equal(t, y.Data(), again.Data())
}

func TestVariationalBottleneck_KLMinimum(t *testing.T) {
	mean := tensor.New(1, 1, 4)
	logvar := tensor.New(1, 1, 4)
	assert.InDelta(t, 0.0, klLoss(mean, logvar), 1e-15)

	// std = tanh(·)+1 never reaches 0, so the smallest reachable term is
	// positive.
	assert.Greater(t, klLoss(mean, tensor.Full(1, 1, 1, 4)), 0.0)
}

func TestVariationalBottleneck_NoSource(t *testing.T) {
	v, err := NewVariationalBottleneck(testSource(), 2, 1)
	require.NoError(t, err)
	_, _, err = v.Forward(Eval(nil), randomInput(1, 2, 4))
	assert.ErrorIs(t, err, ErrNoRandSource)
}

func TestTanhBottleneck(t *testing.T) {
	y, info, err := TanhBottleneck{}.Forward(Eval(nil), randomInput(1, 3, 16).Scale(100))
	require.NoError(t, err)
	assert.Empty(t, info)
	testutil.AssertAllInRange(t, y.Data(), -1, 1)
}

func TestNoiserBottleneck(t *testing.T) {
	n := NoiserBottleneck{Sigma: 0.5}
	x := tensor.New(1, 4, 4096)

	y, info, err := n.Forward(Eval(nil), x)
	require.NoError(t, err)
	assert.Empty(t, info)
	assert.Equal(t, x.Data(), y.Data())

	y, _, err = n.Forward(Train(rand.NewPCG(9, 9)), x)
	require.NoError(t, err)
	mean, variance := stat.PopMeanVariance(y.Data(), nil)
	assert.InDelta(t, 0.0, mean, 0.02)
	assert.InDelta(t, 0.5, math.Sqrt(variance), 0.02)

	_, _, err = n.Forward(Train(nil), x)
	assert.ErrorIs(t, err, ErrNoRandSource)
}

func TestBitcodesBottleneck(t *testing.T) {
	q, err := NewSignQuantizer(testSource(), 6, 4, 1)
	require.NoError(t, err)
	b := NewBitcodesBottleneck(q)

	x := randomInput(2, 6, 10)
	y, info, err := b.Forward(Eval(nil), x)
	require.NoError(t, err)
	testutil.AssertShape(t, y.Shape(), 2, 6, 10)

	codes, ok := info.Tensor(KeyBits)
	require.True(t, ok)
	testutil.AssertShape(t, codes.Shape(), 2, 10)
	for _, c := range codes.Data() {
		assert.Equal(t, math.Trunc(c), c)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.Less(t, c, 16.0)
	}

	// Hard codes: equal codes reconstruct to equal vectors.
	seen := map[float64][]float64{}
	yt := y.TransposeLast()
	for s, c := range codes.Data() {
		vec := yt.Data()[s*6 : (s+1)*6]
		if prev, ok := seen[c]; ok {
			assert.InDeltaSlice(t, prev, vec, 1e-12)
		}
		seen[c] = vec
	}

	names := paramNames(b.Parameters())
	assert.True(t, names["bitcodes.to_bits.weight"])
	assert.True(t, names["bitcodes.from_bits.bias"])
}

func TestSignQuantizer_SoftInTraining(t *testing.T) {
	q, err := NewSignQuantizer(testSource(), 3, 2, 1e-9)
	require.NoError(t, err)
	x := randomInput(1, 5, 3)

	hard, hardCodes, err := q.Quantize(Eval(nil), x)
	require.NoError(t, err)
	soft, softCodes, err := q.Quantize(Train(nil), x)
	require.NoError(t, err)

	// A vanishing temperature makes the relaxation saturate to the signs.
	assert.Equal(t, hardCodes.Data(), softCodes.Data())
	assert.InDeltaSlice(t, hard.Data(), soft.Data(), 1e-9)
}

type constQuantizer struct{ code float64 }

func (c constQuantizer) Quantize(_ Pass, x *Tensor) (*Tensor, *Tensor, error) {
	return x.Clone(), tensor.Full(c.code, x.Dim(0), x.Dim(1)), nil
}

func (constQuantizer) Parameters() []Parameter { return nil }

func TestBitcodesBottleneck_InjectedQuantizer(t *testing.T) {
	b := NewBitcodesBottleneck(constQuantizer{code: 3})
	x := randomInput(1, 4, 6)

	y, info, err := b.Forward(Eval(nil), x)
	require.NoError(t, err)
	assert.Equal(t, x.Data(), y.Data())
	codes, _ := info.Tensor(KeyBits)
	testutil.AssertShape(t, codes.Shape(), 1, 6)
	assert.Equal(t, 3.0, codes.At(0, 5))
}

func TestNewBottleneck(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BottleneckConfig
		wantErr bool
	}{
		{"variational", BottleneckConfig{Kind: BottleneckVariational}, false},
		{"variational_explicit_channels", BottleneckConfig{Kind: BottleneckVariational, Channels: 4}, false},
		{"tanh", BottleneckConfig{Kind: BottleneckTanh}, false},
		{"noiser", BottleneckConfig{Kind: BottleneckNoiser, Sigma: float64Ptr(0.1)}, false},
		{"bitcodes", BottleneckConfig{Kind: BottleneckBitcodes, NumBits: 8}, false},
		{"bitcodes_no_bits", BottleneckConfig{Kind: BottleneckBitcodes}, true},
		{"bitcodes_too_many_bits", BottleneckConfig{Kind: BottleneckBitcodes, NumBits: 31}, true},
		{"negative_sigma", BottleneckConfig{Kind: BottleneckNoiser, Sigma: float64Ptr(-1)}, true},
		{"negative_loss_weight", BottleneckConfig{Kind: BottleneckVariational, LossWeight: float64Ptr(-0.1)}, true},
		{"zero_temperature", BottleneckConfig{Kind: BottleneckBitcodes, NumBits: 8, Temperature: float64Ptr(0)}, true},
		{"unknown", BottleneckConfig{Kind: "vq"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBottleneck(testSource(), tt.cfg, 4)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			y, _, err := b.Forward(Train(rand.NewPCG(1, 1)), randomInput(1, 4, 8))
			require.NoError(t, err)
			testutil.AssertShape(t, y.Shape(), 1, 4, 8)
		})
	}
}

func float64Ptr(v float64) *float64 { return &v }

func TestNewBottleneck_ExplicitZero(t *testing.T) {
	x := randomInput(1, 4, 64)

	t.Run("variational_loss_weight", func(t *testing.T) {
		b, err := NewBottleneck(testSource(), BottleneckConfig{Kind: BottleneckVariational, LossWeight: float64Ptr(0)}, 4)
		require.NoError(t, err)
		_, info, err := b.Forward(Train(rand.NewPCG(1, 1)), x.Scale(10))
		require.NoError(t, err)
		kl, ok := info.Float(KeyKLLoss)
		require.True(t, ok)
		assert.InDelta(t, 0.0, kl, 0)
	})

	t.Run("noiser_sigma", func(t *testing.T) {
		b, err := NewBottleneck(testSource(), BottleneckConfig{Kind: BottleneckNoiser, Sigma: float64Ptr(0)}, 4)
		require.NoError(t, err)
		zeros := tensor.New(1, 4, 64)
		y, _, err := b.Forward(Train(rand.NewPCG(1, 1)), zeros)
		require.NoError(t, err)
		assert.Equal(t, zeros.Data(), y.Data())
		y, _, err = b.Forward(Train(rand.NewPCG(1, 1)), x)
		require.NoError(t, err)
		assert.Equal(t, x.Data(), y.Data())
	})
}

func TestNewBottleneck_Defaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  BottleneckConfig
		want float64
	}{
		{"loss_weight_unset", BottleneckConfig{Kind: BottleneckVariational}, defaultLossWeight},
		{"loss_weight_set", BottleneckConfig{Kind: BottleneckVariational, LossWeight: float64Ptr(0.25)}, 0.25},
		{"sigma_unset", BottleneckConfig{Kind: BottleneckNoiser}, defaultSigma},
		{"sigma_set", BottleneckConfig{Kind: BottleneckNoiser, Sigma: float64Ptr(0.3)}, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBottleneck(testSource(), tt.cfg, 4)
			require.NoError(t, err)
			switch v := b.(type) {
			case *VariationalBottleneck:
				assert.InDelta(t, tt.want, v.LossWeight, 0)
			case NoiserBottleneck:
				assert.InDelta(t, tt.want, v.Sigma, 0)
			default:
				t.Fatalf("unexpected bottleneck %T", b)
			}
		})
	}
}
