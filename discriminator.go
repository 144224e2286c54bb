package autoencoder

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/tphakala/go-audio-autoencoder/internal/nn"
	"github.com/tphakala/go-audio-autoencoder/internal/tensor"
)

// Discriminator1d scores real against synthesised signals with an
// Encoder1d. Every enabled layer activation is split along channels into
// a score half and a feature half; the generator is trained to match the
// real features and raise the fake score, the discriminator with a hinge
// loss on both scores.
type Discriminator1d struct {
	encoder *Encoder1d
	useLoss []bool
}

// NewDiscriminator1d creates a discriminator. A nil cfg.UseLoss enables
// every layer.
func NewDiscriminator1d(cfg DiscriminatorConfig, opts ...Option) (*Discriminator1d, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := NewEncoder1d(cfg.Encoder, opts...)
	if err != nil {
		return nil, err
	}
	useLoss := slices.Clone(cfg.UseLoss)
	if useLoss == nil {
		useLoss = make([]bool, enc.NumLayers())
		for i := range useLoss {
			useLoss[i] = true
		}
	}
	return &Discriminator1d{encoder: enc, useLoss: useLoss}, nil
}

// Forward returns the generator and discriminator losses, each the mean
// over enabled layers. Mask entry i applies to activation i+1 of the
// encoder "xs", so the patched input comes first. Info holds the mean
// scores of every enabled layer under "scores_true" and "scores_fake".
// Layer activations must have an even channel count.
func (d *Discriminator1d) Forward(p Pass, truth, fake *Tensor) (lossG, lossD float64, info Info, err error) {
	defer recoverShape(&err)
	_, infoTrue, err := d.encoder.Forward(p, truth)
	if err != nil {
		return 0, 0, nil, err
	}
	_, infoFake, err := d.encoder.Forward(p, fake)
	if err != nil {
		return 0, 0, nil, err
	}
	xsTrue, _ := infoTrue.Tensors(KeyXs)
	xsFake, _ := infoFake.Tensors(KeyXs)
	xsTrue, xsFake = xsTrue[1:], xsFake[1:]

	var lossGs, lossDs, scoresTrue, scoresFake []float64
	for i, use := range d.useLoss {
		if !use {
			continue
		}
		t := xsTrue[i].Chunk(1, halfDivisor)
		f := xsFake[i].Chunk(1, halfDivisor)
		scoreTrue, featTrue := t[0], t[1]
		scoreFake, featFake := f[0], f[1]

		lossGs = append(lossGs, tensor.L1Loss(featTrue, featFake)-scoreFake.Mean())
		hinge := tensor.Add(scoreTrue.Scale(-1).AddScalar(1).ReLU(), scoreFake.AddScalar(1).ReLU())
		lossDs = append(lossDs, hinge.Mean())
		scoresTrue = append(scoresTrue, scoreTrue.Mean())
		scoresFake = append(scoresFake, scoreFake.Mean())
	}

	info = Info{KeyScoresTrue: scoresTrue, KeyScoresFake: scoresFake}
	return stat.Mean(lossGs, nil), stat.Mean(lossDs, nil), info, nil
}

// Parameters returns the encoder parameters.
func (d *Discriminator1d) Parameters() []Parameter {
	return nn.Prefix("discriminator", d.encoder.Parameters())
}
