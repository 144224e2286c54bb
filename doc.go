// Package autoencoder provides 1-D convolutional audio autoencoders in
// pure Go.
//
// Models are built from a small set of blocks: strided resample
// convolutions, residual blocks with group normalisation, and lossless
// patching that folds time steps into channels. Encoders and decoders
// are exact structural mirrors, and a configurable chain of bottlenecks
// shapes the latent between them.
//
// # Features
//
//   - Encoder1d, Decoder1d and AutoEncoder1d with per-stage channel
//     multipliers, resample factors and residual depth
//   - Bottlenecks: variational (with KL loss), tanh, Gaussian noise
//     injection and discrete bit codes behind an injectable [Quantizer]
//   - STFT analysis/synthesis with magnitude/phase or real/imaginary
//     pairs, and a forward-only mel spectrogram
//   - Spectral front ends: [ME1d] (magnitude encoder), [MAE1d]
//     (log-magnitude autoencoder) and [MelE1d] (mel encoder)
//   - [Discriminator1d] computing hinge and feature-matching losses
//   - YAML model configuration via [LoadModelConfig]
//   - Named parameters following the dotted state-dict convention
//   - Optional SIMD acceleration via github.com/tphakala/simd
//
// # Quick Start
//
//	ae, err := autoencoder.NewAutoEncoder1d(autoencoder.AutoEncoderConfig{
//	    InChannels:  1,
//	    Channels:    32,
//	    Multipliers: []int{1, 2, 4},
//	    Factors:     []int{2, 2},
//	    NumBlocks:   []int{2, 2},
//	    Bottlenecks: []autoencoder.BottleneckConfig{{Kind: autoencoder.BottleneckTanh}},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	x, _ := autoencoder.FromChannels([][]float64{samples})
//	y, info, err := ae.Forward(autoencoder.Eval(nil), x)
//	latent, _ := info.Tensor(autoencoder.KeyLatent)
//
// Input lengths must be a multiple of DownsampleFactor. [Reconstruct]
// handles arbitrary lengths by segmenting and padding.
//
// # Modes and Randomness
//
// Every forward call takes a [Pass] carrying the [Mode] and the random
// source used for sampling. The variational bottleneck samples in both
// modes; the noiser only in [ModeTrain]; the bit-code quantizer uses soft
// codes in [ModeTrain]. Modules never hold random state, so a fixed
// source makes a pass fully reproducible.
//
// # Errors
//
// Construction validates the whole configuration and returns errors
// wrapping [ErrInvalidConfig]. Forward calls return a [*ShapeError] when
// an input shape does not fit the model; inputs are never padded or
// truncated silently.
//
// # Thread Safety
//
// Models are immutable after construction and safe for concurrent
// forward calls, provided each goroutine uses its own random source.
package autoencoder
