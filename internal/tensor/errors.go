package tensor

import "fmt"

// ShapeError reports an operation applied to tensors of incompatible shape.
type ShapeError struct {
	Op  string
	Msg string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("tensor: %s: %s", e.Op, e.Msg)
}

func mustSameShape(op string, a, b *Tensor) {
	if !a.SameShape(b) {
		panic(&ShapeError{Op: op, Msg: fmt.Sprintf("shape mismatch %v vs %v", a.shape, b.shape)})
	}
}

func mustRank(op string, t *Tensor, rank int) {
	if len(t.shape) != rank {
		panic(&ShapeError{Op: op, Msg: fmt.Sprintf("expected rank %d, got shape %v", rank, t.shape)})
	}
}
