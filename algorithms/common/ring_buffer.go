package common

// RingBuffer is a fixed-capacity circular sample store with wrap-aware
// reads of the most recent samples. The write cursor is monotonic mod
// capacity: the most recently written sample always sits at
// (cursor-1) mod capacity, so reading the last n samples for n <= capacity
// is always well-defined.
//
// Access discipline is single-writer/single-reader: mutation happens only
// inside the coordinator's ingestion step, reads happen synchronously
// afterward. No locking.
type RingBuffer struct {
	data   []float64
	cursor int
}

// NewRingBuffer creates a ring buffer with the given fixed capacity.
// The buffer is never resized.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{
		data: make([]float64, capacity),
	}
}

// Write appends one sample, advancing the cursor and silently overwriting
// the oldest entry once full
func (rb *RingBuffer) Write(sample float64) {
	rb.data[rb.cursor] = sample
	rb.cursor = (rb.cursor + 1) % len(rb.data)
}

// WriteSlice appends every sample in order
func (rb *RingBuffer) WriteSlice(samples []float64) {
	for _, s := range samples {
		rb.Write(s)
	}
}

// OverwriteLast replaces the most recently written sample in place. The
// coordinator uses this when a late-arriving external estimate supersedes
// the slot written this hop.
func (rb *RingBuffer) OverwriteLast(sample float64) {
	last := (rb.cursor - 1 + len(rb.data)) % len(rb.data)
	rb.data[last] = sample
}

// ReadLast fills dst with the most recent len(dst) samples in chronological
// order (oldest first) without mutating state. Returns false and zero-fills
// dst if len(dst) exceeds capacity; callers must size buffers >= any window
// they intend to read.
func (rb *RingBuffer) ReadLast(dst []float64) bool {
	n := len(dst)
	if n > len(rb.data) {
		for i := range dst {
			dst[i] = 0
		}
		return false
	}

	start := (rb.cursor - n + len(rb.data)) % len(rb.data)
	for i := range n {
		dst[i] = rb.data[(start+i)%len(rb.data)]
	}
	return true
}

// Last returns the most recent n samples oldest-first as a new slice,
// or nil if n exceeds capacity
func (rb *RingBuffer) Last(n int) []float64 {
	if n > len(rb.data) {
		return nil
	}
	dst := make([]float64, n)
	rb.ReadLast(dst)
	return dst
}

// Capacity returns the fixed capacity
func (rb *RingBuffer) Capacity() int {
	return len(rb.data)
}

// Reset zeroes the buffer and rewinds the cursor
func (rb *RingBuffer) Reset() {
	for i := range rb.data {
		rb.data[i] = 0
	}
	rb.cursor = 0
}
