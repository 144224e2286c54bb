package pipeline

const (
	bufferGrowthFactor = 2 // Factor for buffer growth

	// defaultSegmentBuffers is the number of segments each channel buffer
	// holds before it has to grow.
	defaultSegmentBuffers = 2
)
