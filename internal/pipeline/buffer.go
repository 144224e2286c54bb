// Package pipeline provides the streaming plumbing between audio decoders
// and the model: a growable ring buffer and a multichannel segmenter that
// cuts a stream into fixed-length windows the model can consume.
package pipeline

import (
	"sync"
)

// RingBuffer implements a growable circular buffer for audio samples.
type RingBuffer struct {
	data     []float64
	size     int
	readPos  int
	writePos int
	mu       sync.Mutex
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{data: make([]float64, capacity)}
}

// Write appends samples, growing the buffer if needed.
func (b *RingBuffer) Write(samples []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(samples) == 0 {
		return
	}
	if b.size+len(samples) > len(b.data) {
		b.grow(b.size + len(samples))
	}

	n := copy(b.data[b.writePos:], samples)
	if n < len(samples) {
		copy(b.data, samples[n:])
	}
	b.writePos = (b.writePos + len(samples)) % len(b.data)
	b.size += len(samples)
}

// Read removes and returns up to n samples.
func (b *RingBuffer) Read(n int) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.peek(n)
	b.readPos = (b.readPos + len(out)) % len(b.data)
	b.size -= len(out)
	return out
}

// Peek returns up to n samples without removing them.
func (b *RingBuffer) Peek(n int) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peek(n)
}

func (b *RingBuffer) peek(n int) []float64 {
	n = min(n, b.size)
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	c := copy(out, b.data[b.readPos:min(b.readPos+n, len(b.data))])
	copy(out[c:], b.data)
	return out
}

// Available returns the number of samples available for reading.
func (b *RingBuffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Capacity returns the current buffer capacity.
func (b *RingBuffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Clear removes all samples from the buffer.
func (b *RingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size, b.readPos, b.writePos = 0, 0, 0
}

// grow increases the capacity to at least minCapacity, unwrapping the
// stored samples to the front of the new storage.
func (b *RingBuffer) grow(minCapacity int) {
	newCapacity := len(b.data)
	for newCapacity < minCapacity {
		newCapacity *= bufferGrowthFactor
	}
	newData := make([]float64, newCapacity)
	copy(newData, b.peek(b.size))

	b.data = newData
	b.readPos = 0
	b.writePos = b.size
}
