package chunkdata

import (
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/chunk"
)

// Chunk is a dragonfly chunk together with its position in the world.
// Dragonfly chunks do not know their own position, and managers usually key
// side-stored data by it, so both are handed to managers together.
type Chunk struct {
	Pos world.ChunkPos
	*chunk.Chunk
}

// NewChunk wraps c at the given position.
func NewChunk(pos world.ChunkPos, c *chunk.Chunk) Chunk {
	return Chunk{Pos: pos, Chunk: c}
}

// Segments returns the number of sub chunks in the chunk.
func (c Chunk) Segments() int {
	return len(c.Sub())
}

// Segment returns the sub chunk at the given index.
func (c Chunk) Segment(index int16) Segment {
	return Segment{Index: index, SubChunk: c.Sub()[index]}
}

// Segment is one vertical sub chunk of a Chunk.
type Segment struct {
	// Index is the position of the sub chunk in Chunk.Sub().
	Index int16
	*chunk.SubChunk
}

// Document is an NBT compound tag as decoded by gophertunnel's nbt package.
// A nil Document marks absent data and is distinct from an empty compound.
type Document = map[string]any

// child returns the compound stored under key in doc.
// The second return value is false if the key is missing.
func child(doc Document, key string) (Document, bool, error) {
	v, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil, true, ErrNotDocument
	}
	return sub, true, nil
}
