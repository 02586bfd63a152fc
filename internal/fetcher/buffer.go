// SPDX-License-Identifier: MIT
package fetcher

import "sync"

// baseCapacity is the buffer length for sample rates below 8125 Hz. Faster
// rates scale it by a power of two so one FFT frame always spans a similar
// slice of time.
const baseCapacity = 128

// SampleBuffer holds the most recent interleaved samples, newest first.
// Producers call PushBefore from any goroutine; the sample processor reads
// under the same lock.
type SampleBuffer struct {
	mu         sync.Mutex
	buffer     []float32
	sampleRate int
}

// NewSampleBuffer allocates a zeroed buffer sized for sampleRate.
func NewSampleBuffer(sampleRate int) *SampleBuffer {
	return &SampleBuffer{
		buffer:     make([]float32, CapacityFor(sampleRate)),
		sampleRate: sampleRate,
	}
}

// CapacityFor returns the buffer length used for the given sample rate.
func CapacityFor(sampleRate int) int {
	var factor int
	switch {
	case sampleRate < 8_125:
		factor = 1
	case sampleRate <= 16_250:
		factor = 2
	case sampleRate <= 32_500:
		factor = 4
	case sampleRate <= 75_000:
		factor = 8
	case sampleRate <= 150_000:
		factor = 16
	case sampleRate <= 300_000:
		factor = 32
	default:
		factor = 64
	}
	return factor * baseCapacity
}

// PushBefore writes data to the front of the buffer and shifts the older
// samples towards the back. Whatever falls off the end is discarded. When
// data is at least as long as the buffer only its first Capacity values are
// kept.
func (b *SampleBuffer) PushBefore(data []float32) {
	if len(data) == 0 {
		return
	}

	b.mu.Lock()
	n := min(len(data), len(b.buffer))
	copy(b.buffer[n:], b.buffer[:len(b.buffer)-n])
	copy(b.buffer[:n], data[:n])
	b.mu.Unlock()
}

// Read calls fn with the buffer contents while holding the lock. fn must
// not retain the slice.
func (b *SampleBuffer) Read(fn func(samples []float32)) {
	b.mu.Lock()
	fn(b.buffer)
	b.mu.Unlock()
}

// Capacity is the fixed number of interleaved values the buffer holds.
func (b *SampleBuffer) Capacity() int {
	return len(b.buffer)
}

func (b *SampleBuffer) SampleRate() int {
	return b.sampleRate
}
