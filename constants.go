package autoencoder

// Architecture defaults
const (
	defaultPatchSize        = 1
	defaultResnetGroups     = 8
	defaultKernelMultiplier = 2 // Downsample kernel = factor*multiplier + 1
	defaultKernelSize       = 3
	defaultPadding          = 1
)

// STFT defaults
const (
	defaultNumFFT            = 1023
	defaultHopLength         = 256
	defaultKaiserAttenuation = 80.0
)

// Analysis window names
const (
	WindowHann   = "hann"
	WindowKaiser = "kaiser"
)

// Mel defaults
const (
	defaultMelFFT        = 1024
	defaultMelHop        = 256
	defaultMelWin        = 1024
	defaultMelSampleRate = 48000
	defaultMelChannels   = 80
)

// Numeric guards
const (
	logMagnitudeMin = -30.0 // clamp of decoded log-magnitude
	logMagnitudeMax = 20.0
	melLogFloor     = 1e-5 // log-normalisation floor
	melPowerNorm    = 0.25 // exponent of the power-law normalisation
)

// Bottleneck defaults
const (
	defaultLossWeight  = 1.0
	defaultSigma       = 1.0
	defaultTemperature = 1.0
	maxCodeBits        = 30 // code indices must fit an int on every platform
)

// initStream is the PCG stream selector used with Config.Seed.
const initStream = 0x9e3779b97f4a7c15

// halfDivisor is used for channel halving and symmetric padding.
const halfDivisor = 2
