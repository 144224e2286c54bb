package tensor

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTolerance = 1e-12

func arange(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i)
	}
	return s
}

func TestFromSlice_ShapeMismatchPanics(t *testing.T) {
	assert.PanicsWithError(t, "tensor: FromSlice: 5 elements cannot fill shape [2 3]", func() {
		FromSlice(make([]float64, 5), 2, 3)
	})
}

func TestReshape(t *testing.T) {
	x := FromSlice(arange(24), 2, 3, 4)

	y := x.Reshape(2, -1, 4)
	assert.Equal(t, []int{2, 3, 4}, y.Shape())

	z := x.Reshape(6, 4)
	assert.Equal(t, []int{6, 4}, z.Shape())
	z.Data()[0] = 42
	assert.InDelta(t, 42.0, x.At(0, 0, 0), testTolerance, "reshape must share data")

	var se *ShapeError
	assert.Panics(t, func() { x.Reshape(5, 5) })
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			var ok bool
			se, ok = r.(*ShapeError)
			require.True(t, ok)
		}()
		x.Reshape(7, -1)
	}()
	assert.Equal(t, "Reshape", se.Op)
}

func TestRowAndAt(t *testing.T) {
	x := FromSlice(arange(12), 2, 2, 3)
	assert.Equal(t, []float64{9, 10, 11}, x.Row(1, 1))
	assert.InDelta(t, 7.0, x.At(1, 0, 1), testTolerance)
	x.Set(-1, 0, 1, 2)
	assert.InDelta(t, -1.0, x.Data()[5], testTolerance)
	assert.Equal(t, 3, x.Dim(-1))
}

func TestChunkConcat_RoundTrip(t *testing.T) {
	x := FromSlice(arange(2*6*5), 2, 6, 5)

	parts := x.Chunk(1, 2)
	require.Len(t, parts, 2)
	assert.Equal(t, []int{2, 3, 5}, parts[0].Shape())
	assert.Equal(t, x.Row(0, 3), parts[1].Row(0, 0))
	assert.Equal(t, x.Row(1, 2), parts[0].Row(1, 2))

	back := Concat(1, parts...)
	assert.Equal(t, x.Shape(), back.Shape())
	assert.Equal(t, x.Data(), back.Data())
}

func TestChunk_UnevenPanics(t *testing.T) {
	x := New(1, 5, 2)
	assert.Panics(t, func() { x.Chunk(1, 2) })
}

func TestConcat_MismatchPanics(t *testing.T) {
	assert.Panics(t, func() { Concat(1, New(1, 2, 3), New(1, 2, 4)) })
}

func TestFoldTime_Layout(t *testing.T) {
	// one channel, six steps, patch 3: steps (0,3) (1,4) (2,5) become channels
	x := FromSlice(arange(6), 1, 1, 6)
	y := x.FoldTime(3)

	assert.Equal(t, []int{1, 3, 2}, y.Shape())
	assert.Equal(t, []float64{0, 3}, y.Row(0, 0))
	assert.Equal(t, []float64{1, 4}, y.Row(0, 1))
	assert.Equal(t, []float64{2, 5}, y.Row(0, 2))
}

func TestFoldUnfold_RoundTrip(t *testing.T) {
	for _, p := range []int{1, 2, 3, 4} {
		x := FromSlice(arange(2*3*12), 2, 3, 12)
		y := x.FoldTime(p).UnfoldTime(p)
		assert.Equal(t, x.Shape(), y.Shape(), "patch %d", p)
		assert.Equal(t, x.Data(), y.Data(), "patch %d", p)
	}
}

func TestFoldTime_NotDivisiblePanics(t *testing.T) {
	assert.Panics(t, func() { New(1, 1, 7).FoldTime(2) })
	assert.Panics(t, func() { New(1, 3, 7).UnfoldTime(2) })
}

func TestElementwise(t *testing.T) {
	a := FromSlice([]float64{-2, -0.5, 0, 1.5}, 4)
	b := FromSlice([]float64{1, 1, 1, 1}, 4)

	assert.InDeltaSlice(t, []float64{-1, 0.5, 1, 2.5}, Add(a, b).Data(), testTolerance)
	assert.InDeltaSlice(t, []float64{-3, -1.5, -1, 0.5}, Sub(a, b).Data(), testTolerance)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 1.5}, a.ReLU().Data(), testTolerance)
	assert.InDeltaSlice(t, []float64{-1, -0.5, 0, 1}, a.Clamp(-1, 1).Data(), testTolerance)
	assert.InDeltaSlice(t, []float64{-4, -1, 0, 3}, a.Scale(2).Data(), testTolerance)
	assert.InDelta(t, 1.5/(1+math.Exp(-1.5)), a.SiLU().Data()[3], testTolerance)
	assert.InDelta(t, -0.25, a.Mean(), testTolerance)
	assert.InDelta(t, 1.5, a.Max(), testTolerance)
	assert.InDelta(t, -2.0, a.Min(), testTolerance)

	assert.Panics(t, func() { Add(a, New(3)) })
}

func TestLosses(t *testing.T) {
	a := FromSlice([]float64{1, 2, 3, 4}, 1, 1, 4)
	b := FromSlice([]float64{1, 0, 3, 8}, 1, 1, 4)

	assert.InDelta(t, 1.5, L1Loss(a, b), testTolerance)
	assert.InDelta(t, 5.0, MSE(a, b), testTolerance)
	assert.InDelta(t, 0.0, L1Loss(a, a), testTolerance)
}

func TestRandNormal_Reproducible(t *testing.T) {
	x := RandNormal(rand.NewPCG(1, 2), 0, 1, 3, 4)
	y := RandNormal(rand.NewPCG(1, 2), 0, 1, 3, 4)
	assert.Equal(t, x.Data(), y.Data())

	big := RandNormal(rand.NewPCG(7, 7), 0, 1, 20000)
	assert.InDelta(t, 0.0, big.Mean(), 0.05)
}

func TestRandUniform_Bounds(t *testing.T) {
	x := RandUniform(rand.NewPCG(3, 4), -0.5, 0.5, 1000)
	assert.GreaterOrEqual(t, x.Min(), -0.5)
	assert.LessOrEqual(t, x.Max(), 0.5)
}

func TestTransposeLast(t *testing.T) {
	x := FromSlice(arange(12), 2, 2, 3)
	y := x.TransposeLast()

	require.Equal(t, []int{2, 3, 2}, y.Shape())
	assert.Equal(t, []float64{0, 3, 1, 4, 2, 5, 6, 9, 7, 10, 8, 11}, y.Data())
	assert.Equal(t, x.Data(), y.TransposeLast().Data())
}
