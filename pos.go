package chunkdata

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
)

// Packed block position layout: x in the top 26 bits, z in the next 26 bits and
// y in the low 12 bits. All three components are two's complement.
const (
	packBitsXZ = 26
	packBitsY  = 12

	packShiftZ = packBitsY
	packShiftX = packBitsY + packBitsXZ

	packMaskXZ = 1<<packBitsXZ - 1
	packMaskY  = 1<<packBitsY - 1

	// MinPackedXZ and MaxPackedXZ bound the horizontal components accepted by Pack.
	MinPackedXZ = -1 << (packBitsXZ - 1)
	MaxPackedXZ = 1<<(packBitsXZ-1) - 1

	// MinPackedY and MaxPackedY bound the vertical component accepted by Pack.
	MinPackedY = -1 << (packBitsY - 1)
	MaxPackedY = 1<<(packBitsY-1) - 1
)

// Pack packs a block position into a single 64-bit value.
// It panics if any component is out of range.
func Pack(pos cube.Pos) uint64 {
	return PackXYZ(pos[0], pos[1], pos[2])
}

// PackXYZ packs block coordinates into a single 64-bit value.
// It panics if any component is out of range.
func PackXYZ(x, y, z int) uint64 {
	if x < MinPackedXZ || x > MaxPackedXZ || z < MinPackedXZ || z > MaxPackedXZ || y < MinPackedY || y > MaxPackedY {
		panic(fmt.Sprintf("chunkdata: block position (%d, %d, %d) out of packable range", x, y, z))
	}
	return uint64(x&packMaskXZ)<<packShiftX | uint64(z&packMaskXZ)<<packShiftZ | uint64(y&packMaskY)
}

// Unpack reverses Pack.
func Unpack(v uint64) cube.Pos {
	x := int64(v) >> packShiftX
	z := int64(v<<(64-packShiftX)) >> (64 - packBitsXZ)
	y := int64(v<<(64-packBitsY)) >> (64 - packBitsY)
	return cube.Pos{int(x), int(y), int(z)}
}

// ChunkPosOf returns the position of the chunk containing pos.
func ChunkPosOf(pos cube.Pos) world.ChunkPos {
	return world.ChunkPos{int32(pos[0] >> 4), int32(pos[2] >> 4)}
}

// LocalXZ returns the chunk-local horizontal components of pos.
func LocalXZ(pos cube.Pos) (x, z uint8) {
	return uint8(pos[0] & 0xf), uint8(pos[2] & 0xf)
}
