package autoencoder

// Info carries the auxiliary outputs of a forward pass: intermediate
// activations, bottleneck statistics and losses, discriminator scores.
// Keys from nested modules are prefixed with the name of the module that
// produced them, e.g. "encoder_xs" or "encoder_bottleneck_variational_kl_loss".
//
// Info is purely observational; nothing in the package reads it back.
type Info map[string]any

// Info keys produced by the package. Composite modules add prefixes.
const (
	KeyXs           = "xs"            // []*Tensor, input to output order
	KeyLatent       = "latent"        // *Tensor
	KeyLogMagnitude = "log_magnitude" // *Tensor
	KeyBits         = "bits"          // *Tensor of code indices [batch, time]
	KeyKLLoss       = "variational_kl_loss"
	KeyMean         = "variational_mean"
	KeyStd          = "variational_std"
	KeyScoresTrue   = "scores_true" // []float64, one per enabled layer
	KeyScoresFake   = "scores_fake" // []float64, one per enabled layer

	PrefixEncoder    = "encoder_"
	PrefixDecoder    = "decoder_"
	PrefixBottleneck = "bottleneck_"
)

// merge copies other into i with every key prefixed. Later keys win.
func (i Info) merge(prefix string, other Info) {
	for k, v := range other {
		i[prefix+k] = v
	}
}

// Tensor returns the tensor stored under key.
func (i Info) Tensor(key string) (*Tensor, bool) {
	t, ok := i[key].(*Tensor)
	return t, ok
}

// Tensors returns the tensor sequence stored under key, such as "xs".
func (i Info) Tensors(key string) ([]*Tensor, bool) {
	ts, ok := i[key].([]*Tensor)
	return ts, ok
}

// Float returns the scalar stored under key, such as a loss.
func (i Info) Float(key string) (float64, bool) {
	f, ok := i[key].(float64)
	return f, ok
}

// Floats returns the scalar sequence stored under key.
func (i Info) Floats(key string) ([]float64, bool) {
	fs, ok := i[key].([]float64)
	return fs, ok
}
