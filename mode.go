package autoencoder

import (
	"fmt"
	"math/rand/v2"
)

// Mode selects training or evaluation behaviour for the stochastic
// bottlenecks.
type Mode int

const (
	// ModeEval disables noise injection and uses hard codes.
	ModeEval Mode = iota
	// ModeTrain enables noise injection and soft codes.
	ModeTrain
)

// String returns "eval" or "train".
func (m Mode) String() string {
	switch m {
	case ModeEval:
		return "eval"
	case ModeTrain:
		return "train"
	default:
		return "unknown"
	}
}

// Pass carries the per-call execution state of a forward pass: the mode
// and the random source used by any module that samples. Modules never
// keep a Pass between calls.
type Pass struct {
	Mode Mode
	Rand rand.Source
}

// Eval returns an evaluation pass drawing from src. src may be nil when
// no bottleneck samples in evaluation mode.
func Eval(src rand.Source) Pass { return Pass{Mode: ModeEval, Rand: src} }

// Train returns a training pass drawing from src.
func Train(src rand.Source) Pass { return Pass{Mode: ModeTrain, Rand: src} }

func (p Pass) training() bool { return p.Mode == ModeTrain }

func (p Pass) source(op string) (rand.Source, error) {
	if p.Rand == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoRandSource)
	}
	return p.Rand, nil
}
