package autoencoder

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"

	"gopkg.in/yaml.v3"
)

// EncoderConfig describes an Encoder1d.
//
// Multipliers has one entry per stage boundary: stage i maps
// Channels*Multipliers[i] to Channels*Multipliers[i+1] channels while
// reducing time by Factors[i]. Zero values of PatchSize and ResnetGroups
// select the defaults (1 and 8).
type EncoderConfig struct {
	InChannels   int   `yaml:"in_channels"`
	Channels     int   `yaml:"channels"`
	Multipliers  []int `yaml:"multipliers"`
	Factors      []int `yaml:"factors"`
	NumBlocks    []int `yaml:"num_blocks"`
	PatchSize    int   `yaml:"patch_size"`
	ResnetGroups int   `yaml:"resnet_groups"`

	// OutChannels, when positive, adds a 1×1 projection after the last
	// stage. Zero keeps Channels*Multipliers[last].
	OutChannels int `yaml:"out_channels"`

	// Bottlenecks run in order after the output projection.
	Bottlenecks []BottleneckConfig `yaml:"bottlenecks"`

	// Seed seeds weight initialisation unless WithInitSource is given.
	Seed uint64 `yaml:"seed"`
}

// DecoderConfig describes a Decoder1d. The sequences are given in decoder
// order, i.e. reversed relative to the matching encoder.
type DecoderConfig struct {
	OutChannels  int   `yaml:"out_channels"`
	Channels     int   `yaml:"channels"`
	Multipliers  []int `yaml:"multipliers"`
	Factors      []int `yaml:"factors"`
	NumBlocks    []int `yaml:"num_blocks"`
	PatchSize    int   `yaml:"patch_size"`
	ResnetGroups int   `yaml:"resnet_groups"`

	// InChannels, when positive, adds a 1×1 projection from InChannels to
	// Channels*Multipliers[0] before the first stage.
	InChannels int `yaml:"in_channels"`

	Seed uint64 `yaml:"seed"`
}

// AutoEncoderConfig describes an AutoEncoder1d: an encoder and its mirror
// decoder sharing channel, factor and block sequences.
type AutoEncoderConfig struct {
	InChannels   int   `yaml:"in_channels"`
	Channels     int   `yaml:"channels"`
	Multipliers  []int `yaml:"multipliers"`
	Factors      []int `yaml:"factors"`
	NumBlocks    []int `yaml:"num_blocks"`
	PatchSize    int   `yaml:"patch_size"`
	ResnetGroups int   `yaml:"resnet_groups"`

	// OutChannels defaults to InChannels.
	OutChannels int `yaml:"out_channels"`

	Bottlenecks []BottleneckConfig `yaml:"bottlenecks"`

	// BottleneckChannels, when positive, sets the latent width through
	// 1×1 projections on both sides.
	BottleneckChannels int `yaml:"bottleneck_channels"`

	Seed uint64 `yaml:"seed"`
}

// BottleneckKind names a bottleneck variant.
type BottleneckKind string

// Bottleneck variants.
const (
	BottleneckVariational BottleneckKind = "variational"
	BottleneckTanh        BottleneckKind = "tanh"
	BottleneckNoiser      BottleneckKind = "noiser"
	BottleneckBitcodes    BottleneckKind = "bitcodes"
)

// BottleneckConfig selects and parameterises one bottleneck.
//
// Channels is the feature width for the variants that have weights
// (variational, bitcodes); zero means the width of the tensor feeding the
// bottleneck. A nil LossWeight, Sigma or Temperature selects 1; an
// explicit zero is kept, so loss_weight: 0 turns the KL term off and
// sigma: 0 disables the noise.
type BottleneckConfig struct {
	Kind        BottleneckKind `yaml:"kind"`
	Channels    int            `yaml:"channels"`
	LossWeight  *float64       `yaml:"loss_weight,omitempty"`
	Sigma       *float64       `yaml:"sigma,omitempty"`
	NumBits     int            `yaml:"num_bits"`
	Temperature *float64       `yaml:"temperature,omitempty"`
}

// valueOr returns *p, or def when p is nil.
func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// STFTConfig describes the STFT transform. Zero values select the
// defaults: a 1023-point FFT with hop 256, a Hann window as long as the
// FFT, and an inverse length chosen from the frame count. The hop stays
// 256 for every FFT size unless HopLength is set.
type STFTConfig struct {
	NumFFT       int  `yaml:"num_fft"`
	HopLength    int  `yaml:"hop_length"`
	WindowLength int  `yaml:"window_length"`
	Length       int  `yaml:"length"`
	UseComplex   bool `yaml:"use_complex"`

	// Window is "hann" (default) or "kaiser".
	Window string `yaml:"window"`
	// KaiserAttenuation is the Kaiser sidelobe attenuation in dB
	// (default 80).
	KaiserAttenuation float64 `yaml:"kaiser_attenuation"`
}

// MelConfig describes the mel spectrogram. Zero values select
// 1024/256/1024 FFT/hop/window, 48 kHz and 80 mel channels.
type MelConfig struct {
	NFFT         int  `yaml:"n_fft"`
	HopLength    int  `yaml:"hop_length"`
	WinLength    int  `yaml:"win_length"`
	SampleRate   int  `yaml:"sample_rate"`
	NMelChannels int  `yaml:"n_mel_channels"`
	Center       bool `yaml:"center"`
	Normalize    bool `yaml:"normalize"`
	NormalizeLog bool `yaml:"normalize_log"`
}

// MagnitudeEncoderConfig describes an ME1d. Encoder.InChannels counts
// audio channels; the encoder sees InChannels*(NumFFT/2+1) channels.
type MagnitudeEncoderConfig struct {
	Encoder EncoderConfig `yaml:"encoder"`
	STFT    STFTConfig    `yaml:"stft"`
	UseLog  bool          `yaml:"use_log"`
}

// MagnitudeAutoEncoderConfig describes an MAE1d. AutoEncoder.InChannels
// counts audio channels.
type MagnitudeAutoEncoderConfig struct {
	AutoEncoder AutoEncoderConfig `yaml:"autoencoder"`
	STFT        STFTConfig        `yaml:"stft"`
}

// MelEncoderConfig describes a MelE1d. Encoder.InChannels counts audio
// channels; the encoder sees InChannels*NMelChannels channels.
type MelEncoderConfig struct {
	Encoder EncoderConfig `yaml:"encoder"`
	Mel     MelConfig     `yaml:"mel"`
}

// DiscriminatorConfig describes a Discriminator1d.
type DiscriminatorConfig struct {
	Encoder EncoderConfig `yaml:"encoder"`
	// UseLoss enables the loss per encoder stage. Nil enables all stages.
	UseLoss []bool `yaml:"use_loss"`
}

// ModelConfig is the top-level document read by LoadModelConfig. Absent
// sections are nil.
type ModelConfig struct {
	AutoEncoder   *AutoEncoderConfig   `yaml:"autoencoder"`
	STFT          *STFTConfig          `yaml:"stft"`
	Mel           *MelConfig           `yaml:"mel"`
	Discriminator *DiscriminatorConfig `yaml:"discriminator"`
}

// LoadModelConfig parses a YAML model document and validates every
// section that is present. Unknown keys are rejected.
func LoadModelConfig(r io.Reader) (*ModelConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg ModelConfig
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every present section.
func (c *ModelConfig) Validate() error {
	if c.AutoEncoder != nil {
		if err := c.AutoEncoder.Validate(); err != nil {
			return fmt.Errorf("autoencoder: %w", err)
		}
	}
	if c.STFT != nil {
		if err := c.STFT.Validate(); err != nil {
			return fmt.Errorf("stft: %w", err)
		}
	}
	if c.Mel != nil {
		if err := c.Mel.Validate(); err != nil {
			return fmt.Errorf("mel: %w", err)
		}
	}
	if c.Discriminator != nil {
		if err := c.Discriminator.Validate(); err != nil {
			return fmt.Errorf("discriminator: %w", err)
		}
	}
	return nil
}

// stageLayout is the part shared by encoder, decoder and autoencoder
// configs.
type stageLayout struct {
	channels     int
	multipliers  []int
	factors      []int
	numBlocks    []int
	patchSize    int
	resnetGroups int
}

func (s stageLayout) numLayers() int { return len(s.multipliers) - 1 }

func (s stageLayout) width(i int) int { return s.channels * s.multipliers[i] }

func (s stageLayout) withDefaults() stageLayout {
	if s.patchSize == 0 {
		s.patchSize = defaultPatchSize
	}
	if s.resnetGroups == 0 {
		s.resnetGroups = defaultResnetGroups
	}
	return s
}

func (s stageLayout) validate() error {
	if s.channels < 1 {
		return fmt.Errorf("%w: channels must be positive, got %d", ErrInvalidConfig, s.channels)
	}
	if len(s.multipliers) == 0 {
		return fmt.Errorf("%w: multipliers must not be empty", ErrInvalidConfig)
	}
	n := s.numLayers()
	if len(s.factors) != n || len(s.numBlocks) != n {
		return fmt.Errorf("%w: %d multipliers need %d factors and %d num_blocks, got %d and %d",
			ErrInvalidConfig, len(s.multipliers), n, n, len(s.factors), len(s.numBlocks))
	}
	for i, m := range s.multipliers {
		if m < 1 {
			return fmt.Errorf("%w: multipliers[%d] must be positive, got %d", ErrInvalidConfig, i, m)
		}
	}
	for i, f := range s.factors {
		if f < 1 {
			return fmt.Errorf("%w: factors[%d] must be positive, got %d", ErrInvalidConfig, i, f)
		}
	}
	for i, b := range s.numBlocks {
		if b < 0 {
			return fmt.Errorf("%w: num_blocks[%d] must not be negative, got %d", ErrInvalidConfig, i, b)
		}
	}
	if s.patchSize < 1 {
		return fmt.Errorf("%w: patch size must be positive, got %d", ErrInvalidConfig, s.patchSize)
	}
	if s.resnetGroups < 1 {
		return fmt.Errorf("%w: resnet groups must be positive, got %d", ErrInvalidConfig, s.resnetGroups)
	}
	return nil
}

// reversed returns the layout in mirror order.
func (s stageLayout) reversed() stageLayout {
	r := s
	r.multipliers = slices.Clone(s.multipliers)
	r.factors = slices.Clone(s.factors)
	r.numBlocks = slices.Clone(s.numBlocks)
	slices.Reverse(r.multipliers)
	slices.Reverse(r.factors)
	slices.Reverse(r.numBlocks)
	return r
}

func (c *EncoderConfig) layout() stageLayout {
	return stageLayout{
		channels:     c.Channels,
		multipliers:  c.Multipliers,
		factors:      c.Factors,
		numBlocks:    c.NumBlocks,
		patchSize:    c.PatchSize,
		resnetGroups: c.ResnetGroups,
	}.withDefaults()
}

// Validate checks if the configuration is valid.
func (c *EncoderConfig) Validate() error {
	if c.InChannels < 1 {
		return fmt.Errorf("%w: in_channels must be positive, got %d", ErrInvalidConfig, c.InChannels)
	}
	if c.OutChannels < 0 {
		return fmt.Errorf("%w: out_channels must not be negative, got %d", ErrInvalidConfig, c.OutChannels)
	}
	if err := c.layout().validate(); err != nil {
		return err
	}
	for i := range c.Bottlenecks {
		if err := c.Bottlenecks[i].Validate(); err != nil {
			return fmt.Errorf("bottleneck %d: %w", i, err)
		}
	}
	return nil
}

func (c *DecoderConfig) layout() stageLayout {
	return stageLayout{
		channels:     c.Channels,
		multipliers:  c.Multipliers,
		factors:      c.Factors,
		numBlocks:    c.NumBlocks,
		patchSize:    c.PatchSize,
		resnetGroups: c.ResnetGroups,
	}.withDefaults()
}

// Validate checks if the configuration is valid.
func (c *DecoderConfig) Validate() error {
	if c.OutChannels < 1 {
		return fmt.Errorf("%w: out_channels must be positive, got %d", ErrInvalidConfig, c.OutChannels)
	}
	if c.InChannels < 0 {
		return fmt.Errorf("%w: in_channels must not be negative, got %d", ErrInvalidConfig, c.InChannels)
	}
	return c.layout().validate()
}

// encoderConfig returns the encoder half of the autoencoder.
func (c *AutoEncoderConfig) encoderConfig() EncoderConfig {
	return EncoderConfig{
		InChannels:   c.InChannels,
		Channels:     c.Channels,
		Multipliers:  c.Multipliers,
		Factors:      c.Factors,
		NumBlocks:    c.NumBlocks,
		PatchSize:    c.PatchSize,
		ResnetGroups: c.ResnetGroups,
		OutChannels:  c.BottleneckChannels,
		Bottlenecks:  c.Bottlenecks,
		Seed:         c.Seed,
	}
}

// decoderConfig returns the mirrored decoder half of the autoencoder.
func (c *AutoEncoderConfig) decoderConfig() DecoderConfig {
	out := c.OutChannels
	if out == 0 {
		out = c.InChannels
	}
	r := stageLayout{
		multipliers: c.Multipliers,
		factors:     c.Factors,
		numBlocks:   c.NumBlocks,
	}.reversed()
	return DecoderConfig{
		OutChannels:  out,
		Channels:     c.Channels,
		Multipliers:  r.multipliers,
		Factors:      r.factors,
		NumBlocks:    r.numBlocks,
		PatchSize:    c.PatchSize,
		ResnetGroups: c.ResnetGroups,
		InChannels:   c.BottleneckChannels,
		Seed:         c.Seed,
	}
}

// Validate checks if the configuration is valid.
func (c *AutoEncoderConfig) Validate() error {
	if c.OutChannels < 0 || c.BottleneckChannels < 0 {
		return fmt.Errorf("%w: out_channels and bottleneck_channels must not be negative", ErrInvalidConfig)
	}
	enc := c.encoderConfig()
	if err := enc.Validate(); err != nil {
		return err
	}
	dec := c.decoderConfig()
	return dec.Validate()
}

// Validate checks if the configuration is valid.
func (c *BottleneckConfig) Validate() error {
	switch c.Kind {
	case BottleneckTanh:
	case BottleneckVariational, BottleneckNoiser:
		if c.Channels < 0 {
			return fmt.Errorf("%w: bottleneck channels must not be negative", ErrInvalidConfig)
		}
		if valueOr(c.LossWeight, 0) < 0 || valueOr(c.Sigma, 0) < 0 {
			return fmt.Errorf("%w: loss weight and sigma must not be negative", ErrInvalidConfig)
		}
	case BottleneckBitcodes:
		if c.Channels < 0 {
			return fmt.Errorf("%w: bottleneck channels must not be negative", ErrInvalidConfig)
		}
		if c.NumBits < 1 || c.NumBits > maxCodeBits {
			return fmt.Errorf("%w: num_bits must be in [1, %d], got %d", ErrInvalidConfig, maxCodeBits, c.NumBits)
		}
		if valueOr(c.Temperature, defaultTemperature) <= 0 {
			return fmt.Errorf("%w: temperature must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown bottleneck kind %q", ErrInvalidConfig, c.Kind)
	}
	return nil
}

// withDefaults resolves the zero values of an STFT configuration.
func (c STFTConfig) withDefaults() STFTConfig {
	if c.NumFFT == 0 {
		c.NumFFT = defaultNumFFT
	}
	if c.HopLength == 0 {
		c.HopLength = defaultHopLength
	}
	if c.WindowLength == 0 {
		c.WindowLength = c.NumFFT
	}
	if c.Window == "" {
		c.Window = WindowHann
	}
	if c.KaiserAttenuation == 0 {
		c.KaiserAttenuation = defaultKaiserAttenuation
	}
	return c
}

// Validate checks if the configuration is valid.
func (c *STFTConfig) Validate() error {
	r := c.withDefaults()
	if r.NumFFT < 2 {
		return fmt.Errorf("%w: num_fft must be at least 2, got %d", ErrInvalidConfig, r.NumFFT)
	}
	if r.HopLength < 1 {
		return fmt.Errorf("%w: hop_length must be positive, got %d", ErrInvalidConfig, r.HopLength)
	}
	if r.WindowLength < 1 || r.WindowLength > r.NumFFT {
		return fmt.Errorf("%w: window_length must be in [1, num_fft], got %d", ErrInvalidConfig, r.WindowLength)
	}
	if r.Length < 0 {
		return fmt.Errorf("%w: length must not be negative, got %d", ErrInvalidConfig, r.Length)
	}
	if r.Window != WindowHann && r.Window != WindowKaiser {
		return fmt.Errorf("%w: unknown window %q", ErrInvalidConfig, r.Window)
	}
	if r.KaiserAttenuation < 0 {
		return fmt.Errorf("%w: kaiser attenuation must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c MelConfig) withDefaults() MelConfig {
	if c.NFFT == 0 {
		c.NFFT = defaultMelFFT
	}
	if c.HopLength == 0 {
		c.HopLength = defaultMelHop
	}
	if c.WinLength == 0 {
		c.WinLength = min(defaultMelWin, c.NFFT)
	}
	if c.SampleRate == 0 {
		c.SampleRate = defaultMelSampleRate
	}
	if c.NMelChannels == 0 {
		c.NMelChannels = defaultMelChannels
	}
	return c
}

// Validate checks if the configuration is valid.
func (c *MelConfig) Validate() error {
	r := c.withDefaults()
	if r.NFFT < 2 || r.HopLength < 1 {
		return fmt.Errorf("%w: n_fft must be at least 2 and hop_length positive", ErrInvalidConfig)
	}
	if r.HopLength > r.NFFT {
		return fmt.Errorf("%w: hop_length %d exceeds n_fft %d", ErrInvalidConfig, r.HopLength, r.NFFT)
	}
	if r.WinLength < 1 || r.WinLength > r.NFFT {
		return fmt.Errorf("%w: win_length must be in [1, n_fft], got %d", ErrInvalidConfig, r.WinLength)
	}
	if r.SampleRate < 1 || r.NMelChannels < 1 {
		return fmt.Errorf("%w: sample_rate and n_mel_channels must be positive", ErrInvalidConfig)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *MagnitudeEncoderConfig) Validate() error {
	if err := c.STFT.Validate(); err != nil {
		return err
	}
	return c.Encoder.Validate()
}

// Validate checks if the configuration is valid.
func (c *MagnitudeAutoEncoderConfig) Validate() error {
	if err := c.STFT.Validate(); err != nil {
		return err
	}
	return c.AutoEncoder.Validate()
}

// Validate checks if the configuration is valid.
func (c *MelEncoderConfig) Validate() error {
	if err := c.Mel.Validate(); err != nil {
		return err
	}
	return c.Encoder.Validate()
}

// Validate checks if the configuration is valid.
func (c *DiscriminatorConfig) Validate() error {
	if err := c.Encoder.Validate(); err != nil {
		return err
	}
	n := len(c.Encoder.Multipliers) - 1
	if c.UseLoss == nil {
		return nil
	}
	if len(c.UseLoss) != n {
		return fmt.Errorf("%w: use_loss length must match the number of layers (%d), got %d",
			ErrInvalidConfig, n, len(c.UseLoss))
	}
	if !slices.Contains(c.UseLoss, true) {
		return fmt.Errorf("%w: use_loss enables no layer", ErrInvalidConfig)
	}
	return nil
}

// Option customises model construction.
type Option func(*options)

type options struct {
	src         rand.Source
	bottlenecks []Bottleneck
}

// WithInitSource draws initial weights from src instead of a source
// seeded from the config's Seed.
func WithInitSource(src rand.Source) Option {
	return func(o *options) { o.src = src }
}

// WithBottleneck appends prebuilt bottlenecks after the configured ones,
// for example a Bitcodes bottleneck around an external quantizer.
func WithBottleneck(b ...Bottleneck) Option {
	return func(o *options) { o.bottlenecks = append(o.bottlenecks, b...) }
}

func applyOptions(seed uint64, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		o.src = rand.NewPCG(seed, initStream)
	}
	return o
}
