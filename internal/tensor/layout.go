package tensor

import (
	"fmt"
	"slices"
)

// split returns the product of dimensions before dim, the size of dim and
// the product of dimensions after it.
func (t *Tensor) split(op string, dim int) (outer, size, inner int) {
	if dim < 0 {
		dim += len(t.shape)
	}
	if dim < 0 || dim >= len(t.shape) {
		panic(&ShapeError{Op: op, Msg: fmt.Sprintf("dimension %d out of range for shape %v", dim, t.shape)})
	}
	outer, inner = 1, 1
	for _, d := range t.shape[:dim] {
		outer *= d
	}
	for _, d := range t.shape[dim+1:] {
		inner *= d
	}
	return outer, t.shape[dim], inner
}

// Chunk splits t into n equal parts along dim. The size of dim must be
// divisible by n.
func (t *Tensor) Chunk(dim, n int) []*Tensor {
	outer, size, inner := t.split("Chunk", dim)
	if n <= 0 || size%n != 0 {
		panic(&ShapeError{Op: "Chunk", Msg: fmt.Sprintf("cannot split dimension of size %d into %d chunks", size, n)})
	}
	if dim < 0 {
		dim += len(t.shape)
	}
	cs := size / n
	shape := slices.Clone(t.shape)
	shape[dim] = cs

	chunks := make([]*Tensor, n)
	for k := range n {
		out := New(shape...)
		block := cs * inner
		for o := range outer {
			src := o*size*inner + k*block
			copy(out.data[o*block:(o+1)*block], t.data[src:src+block])
		}
		chunks[k] = out
	}
	return chunks
}

// Concat joins tensors along dim. All other dimensions must agree.
func Concat(dim int, ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic(&ShapeError{Op: "Concat", Msg: "no tensors"})
	}
	first := ts[0]
	if dim < 0 {
		dim += len(first.shape)
	}
	outer, _, inner := first.split("Concat", dim)

	shape := slices.Clone(first.shape)
	shape[dim] = 0
	for _, t := range ts {
		if len(t.shape) != len(first.shape) {
			panic(&ShapeError{Op: "Concat", Msg: fmt.Sprintf("rank mismatch %v vs %v", first.shape, t.shape)})
		}
		for i := range t.shape {
			if i != dim && t.shape[i] != first.shape[i] {
				panic(&ShapeError{Op: "Concat", Msg: fmt.Sprintf("shape mismatch %v vs %v on dimension %d", first.shape, t.shape, i)})
			}
		}
		shape[dim] += t.shape[dim]
	}

	out := New(shape...)
	stride := shape[dim] * inner
	off := 0
	for _, t := range ts {
		block := t.shape[dim] * inner
		for o := range outer {
			copy(out.data[o*stride+off:o*stride+off+block], t.data[o*block:(o+1)*block])
		}
		off += block
	}
	return out
}

// FoldTime moves groups of p consecutive time steps into channels:
// [b, c, l*p] -> [b, c*p, l] with out[b, c*p+j, i] = in[b, c, i*p+j].
func (t *Tensor) FoldTime(p int) *Tensor {
	mustRank("FoldTime", t, 3)
	b, c, lp := t.shape[0], t.shape[1], t.shape[2]
	if p <= 0 || lp%p != 0 {
		panic(&ShapeError{Op: "FoldTime", Msg: fmt.Sprintf("time length %d is not a multiple of patch size %d", lp, p)})
	}
	if p == 1 {
		return t.Clone()
	}
	l := lp / p
	out := New(b, c*p, l)
	for bi := range b {
		for ci := range c {
			src := t.Row(bi, ci)
			for j := range p {
				dst := out.Row(bi, ci*p+j)
				for i := range l {
					dst[i] = src[i*p+j]
				}
			}
		}
	}
	return out
}

// UnfoldTime is the inverse of FoldTime: [b, c*p, l] -> [b, c, l*p].
func (t *Tensor) UnfoldTime(p int) *Tensor {
	mustRank("UnfoldTime", t, 3)
	b, cp, l := t.shape[0], t.shape[1], t.shape[2]
	if p <= 0 || cp%p != 0 {
		panic(&ShapeError{Op: "UnfoldTime", Msg: fmt.Sprintf("channel count %d is not a multiple of patch size %d", cp, p)})
	}
	if p == 1 {
		return t.Clone()
	}
	c := cp / p
	out := New(b, c, l*p)
	for bi := range b {
		for ci := range c {
			dst := out.Row(bi, ci)
			if p == 2 {
				ops.Interleave2(dst, t.Row(bi, ci*2), t.Row(bi, ci*2+1))
				continue
			}
			for j := range p {
				src := t.Row(bi, ci*p+j)
				for i := range l {
					dst[i*p+j] = src[i]
				}
			}
		}
	}
	return out
}

// TransposeLast swaps the two innermost dimensions of a rank-3 tensor:
// [b, m, n] -> [b, n, m].
func (t *Tensor) TransposeLast() *Tensor {
	mustRank("TransposeLast", t, 3)
	b, m, n := t.shape[0], t.shape[1], t.shape[2]
	out := New(b, n, m)
	for bi := range b {
		base := bi * m * n
		for i := range m {
			row := t.data[base+i*n : base+(i+1)*n]
			for j, v := range row {
				out.data[base+j*m+i] = v
			}
		}
	}
	return out
}
