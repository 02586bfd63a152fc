/*
Package bitint provides the power-of-two helpers used when sizing FFT
and capture buffers. Both functions are constant time and never allocate.

	frames := bitint.NextPowerOfTwo(735) // 1024
	ok := bitint.IsPowerOfTwo(frames)    // true

NextPowerOfTwo subtracts one before looking for the highest set bit, so an
exact power of two maps onto itself instead of being doubled:

	8 -> 7 (0111) -> bits.Len = 3 -> 1<<3 = 8
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
