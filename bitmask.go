package chunkdata

import (
	"iter"
	"math/bits"
)

// MaxSegments is the maximum number of sub chunks a SubChunkMask can address.
const MaxSegments = 64

// SubChunkMask is a bitmask with one bit per sub chunk index, used to mark the
// segments of a chunk whose data must be (re)synchronised.
type SubChunkMask uint64

// AllSegments returns a mask with the lowest n bits set.
func AllSegments(n int) SubChunkMask {
	if n >= MaxSegments {
		return ^SubChunkMask(0)
	}
	if n <= 0 {
		return 0
	}
	return SubChunkMask(1)<<n - 1
}

// Set sets the bit for the given sub chunk index.
func (m *SubChunkMask) Set(index int16) {
	*m |= 1 << uint(index)
}

// Clear clears the bit for the given sub chunk index.
func (m *SubChunkMask) Clear(index int16) {
	*m &^= 1 << uint(index)
}

// Has returns true if the bit for the given sub chunk index is set.
func (m SubChunkMask) Has(index int16) bool {
	if index < 0 || index >= MaxSegments {
		return false
	}
	return m&(1<<uint(index)) != 0
}

// ContainsAll returns true if all bits set in other are also set in m.
func (m SubChunkMask) ContainsAll(other SubChunkMask) bool {
	return m&other == other
}

// IsZero returns true if no bits are set.
func (m SubChunkMask) IsZero() bool {
	return m == 0
}

// Count returns the number of bits set.
func (m SubChunkMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Segments yields the index of every set bit in ascending order.
func (m SubChunkMask) Segments() iter.Seq[int16] {
	return func(yield func(int16) bool) {
		for v := uint64(m); v != 0; v &= v - 1 {
			if !yield(int16(bits.TrailingZeros64(v))) {
				return
			}
		}
	}
}
