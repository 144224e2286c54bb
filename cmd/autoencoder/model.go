package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/sirupsen/logrus"

	autoencoder "github.com/tphakala/go-audio-autoencoder"
)

// passStream is the PCG stream selector for forward-pass sampling.
const passStream = 0x5851f42d4c957f2d

// Default model used when no config file is given.
const (
	defaultModelChannels = 16
	defaultModelPatch    = 2
	defaultModelSeed     = 1
)

// loadModelConfig reads the YAML model description at path. An empty path
// gives an empty document.
func loadModelConfig(path string) (*autoencoder.ModelConfig, error) {
	if path == "" {
		return &autoencoder.ModelConfig{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := autoencoder.LoadModelConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logrus.WithField("config", path).Debug("loaded model config")
	return cfg, nil
}

// defaultAutoEncoderConfig is a small tanh-bottleneck model with a
// downsample factor of 8.
func defaultAutoEncoderConfig(channels int) autoencoder.AutoEncoderConfig {
	return autoencoder.AutoEncoderConfig{
		InChannels:  channels,
		Channels:    defaultModelChannels,
		Multipliers: []int{1, 2, 4},
		Factors:     []int{2, 2},
		NumBlocks:   []int{1, 1},
		PatchSize:   defaultModelPatch,
		Bottlenecks: []autoencoder.BottleneckConfig{{Kind: autoencoder.BottleneckTanh}},
		Seed:        defaultModelSeed,
	}
}

// autoEncoderConfig picks the configured autoencoder or the default one
// for the given channel count. A positive channels must match the config.
func (g *globalFlags) autoEncoderConfig(channels int) (autoencoder.AutoEncoderConfig, error) {
	mc, err := loadModelConfig(g.configPath)
	if err != nil {
		return autoencoder.AutoEncoderConfig{}, err
	}
	if mc.AutoEncoder == nil {
		return defaultAutoEncoderConfig(max(channels, 1)), nil
	}
	cfg := *mc.AutoEncoder
	if channels > 0 && cfg.InChannels != channels {
		return cfg, fmt.Errorf("model expects %d channels, input has %d", cfg.InChannels, channels)
	}
	return cfg, nil
}

// buildAutoEncoder builds the model described by cfg.
func buildAutoEncoder(cfg autoencoder.AutoEncoderConfig) (*autoencoder.AutoEncoder1d, error) {
	ae, err := autoencoder.NewAutoEncoder1d(cfg)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"in_channels":       cfg.InChannels,
		"downsample_factor": ae.DownsampleFactor(),
		"parameters":        autoencoder.NumParameters(ae.Parameters()),
	}).Debug("built autoencoder")
	return ae, nil
}

// pass returns the forward-pass mode and sampling source.
func (g *globalFlags) pass() autoencoder.Pass {
	src := rand.NewPCG(g.seed, passStream)
	if g.train {
		return autoencoder.Train(src)
	}
	return autoencoder.Eval(src)
}

// stftConfig returns the configured STFT section, or defaults.
func (g *globalFlags) stftConfig() (autoencoder.STFTConfig, error) {
	mc, err := loadModelConfig(g.configPath)
	if err != nil || mc.STFT == nil {
		return autoencoder.STFTConfig{}, err
	}
	return *mc.STFT, nil
}

// melConfig returns the configured mel section, or defaults.
func (g *globalFlags) melConfig() (autoencoder.MelConfig, error) {
	mc, err := loadModelConfig(g.configPath)
	if err != nil || mc.Mel == nil {
		return autoencoder.MelConfig{}, err
	}
	return *mc.Mel, nil
}
