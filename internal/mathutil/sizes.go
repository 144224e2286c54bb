package mathutil

import "math/bits"

// NextPowerOfTwo returns the smallest power of two that is >= n.
// It returns 1 for n <= 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Product multiplies the given factors. The empty product is 1.
func Product(factors []int) int {
	p := 1
	for _, f := range factors {
		p *= f
	}
	return p
}
