package spectral

const (
	windowHalf = 2

	// envelopeFloor is the smallest window-power sum by which overlap-add
	// output is normalised; samples below it are left as accumulated.
	envelopeFloor = 1e-11

	// HTK mel scale: mel = 2595·log10(1 + f/700)
	melScaleFactor = 2595.0
	melBreakFreq   = 700.0
)
