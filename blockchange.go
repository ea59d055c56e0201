package chunkdata

import (
	"encoding/binary"
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// packedPosSize is the size of the packed block position heading every block
// change packet.
const packedPosSize = 8

// BlockChange is a single block change packet. It carries the world position of
// the block and the data each BlockPacketDataManager captured for it.
//
// The position may be changed after decoding, for example to remap coordinates
// while replaying recorded packets.
type BlockChange struct {
	pos    cube.Pos
	values map[string]any
}

// X returns the world x coordinate of the block.
func (p *BlockChange) X() int { return p.pos[0] }

// Y returns the world y coordinate of the block.
func (p *BlockChange) Y() int { return p.pos[1] }

// Z returns the world z coordinate of the block.
func (p *BlockChange) Z() int { return p.pos[2] }

// SetX sets the world x coordinate of the block.
func (p *BlockChange) SetX(x int) { p.pos[0] = x }

// SetY sets the world y coordinate of the block.
func (p *BlockChange) SetY(y int) { p.pos[1] = y }

// SetZ sets the world z coordinate of the block.
func (p *BlockChange) SetZ(z int) { p.pos[2] = z }

// Pos returns the world position of the block.
func (p *BlockChange) Pos() cube.Pos { return p.pos }

// Centre returns the centre of the block.
func (p *BlockChange) Centre() mgl64.Vec3 { return p.pos.Vec3Centre() }

// Value returns the value m stored in the packet.
func (p *BlockChange) Value(m DataManager) (any, bool) {
	v, ok := p.values[Key(m)]
	return v, ok
}

// SetValue stores a value for m in the packet. Managers use it to carry the data
// captured in WriteBlockToPacket or decoded in ReadBlockPacketFromBuffer.
func (p *BlockChange) SetValue(m DataManager, v any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	p.values[Key(m)] = v
}

// local returns the chunk-local coordinates of the block, checking that it lies
// within c.
func (p *BlockChange) local(c Chunk) (x uint8, y int16, z uint8, err error) {
	if pos := ChunkPosOf(p.pos); pos != c.Pos {
		return 0, 0, 0, fmt.Errorf("chunkdata: block %v is not in chunk %v", p.pos, c.Pos)
	}
	if r := c.Range(); p.pos[1] < r[0] || p.pos[1] > r[1] {
		return 0, 0, 0, fmt.Errorf("chunkdata: block %v is outside of chunk range %v", p.pos, r)
	}
	x, z = LocalXZ(p.pos)
	return x, int16(p.pos[1]), z, nil
}

// NewBlockChange creates a block change packet for the block at the world
// position (x, y, z) in c and lets every block packet manager capture its data.
func (r *Registry) NewBlockChange(c Chunk, x, y, z int) (*BlockChange, error) {
	r.mustBeFinalized("NewBlockChange")
	r.metrics.call("new_block_change")

	p := &BlockChange{pos: cube.Pos{x, y, z}}
	lx, ly, lz, err := p.local(c)
	if err != nil {
		return nil, err
	}
	for _, m := range r.blocks {
		if err := m.WriteBlockToPacket(c, lx, ly, lz, p); err != nil {
			return nil, r.metrics.observe(ioError(m, "WriteBlockToPacket", err))
		}
	}
	return p, nil
}

// ApplyBlockChange applies the data carried by p to c through every block
// packet manager.
func (r *Registry) ApplyBlockChange(c Chunk, p *BlockChange) error {
	r.mustBeFinalized("ApplyBlockChange")
	r.metrics.call("apply_block_change")

	lx, ly, lz, err := p.local(c)
	if err != nil {
		return err
	}
	for _, m := range r.blocks {
		if err := m.ReadBlockFromPacket(c, lx, ly, lz, p); err != nil {
			return r.metrics.observe(ioError(m, "ReadBlockFromPacket", err))
		}
	}
	return nil
}

// EncodeBlockChange serialises p. The encoding is the packed block position as
// 8 big endian bytes, followed by the payload of every block packet manager in
// layout order, each prefixed with its length as an unsigned varint.
func (r *Registry) EncodeBlockChange(p *BlockChange) ([]byte, error) {
	r.mustBeFinalized("EncodeBlockChange")
	return r.appendBlockChange(make([]byte, 0, packedPosSize+len(r.blocks)*4), p)
}

func (r *Registry) appendBlockChange(out []byte, p *BlockChange) ([]byte, error) {
	out = binary.BigEndian.AppendUint64(out, Pack(p.pos))
	for _, m := range r.blocks {
		buf := NewBuffer(nil)
		if err := m.WriteBlockPacketToBuffer(p, buf); err != nil {
			return nil, r.metrics.observe(ioError(m, "WriteBlockPacketToBuffer", err))
		}
		out = binary.AppendUvarint(out, uint64(buf.Written()))
		out = append(out, buf.Bytes()...)
	}
	return out, nil
}

// DecodeBlockChange deserialises a packet produced by EncodeBlockChange.
// Every manager must consume its payload entirely, and no bytes may follow the
// last payload.
func (r *Registry) DecodeBlockChange(data []byte) (*BlockChange, error) {
	r.mustBeFinalized("DecodeBlockChange")
	buf := NewBuffer(data)
	p, err := r.readBlockChange(buf)
	if err != nil {
		return nil, err
	}
	if n := buf.Remaining(); n != 0 {
		return nil, fmt.Errorf("chunkdata: %d trailing bytes after block change", n)
	}
	return p, nil
}

func (r *Registry) readBlockChange(buf *Buffer) (*BlockChange, error) {
	head, err := buf.Next(packedPosSize)
	if err != nil {
		return nil, fmt.Errorf("chunkdata: read block position: %w", err)
	}
	p := &BlockChange{pos: Unpack(binary.BigEndian.Uint64(head))}
	for _, m := range r.blocks {
		n, err := buf.ReadUvarint()
		if err != nil {
			return nil, ioError(m, "ReadBlockPacketFromBuffer", fmt.Errorf("read payload length: %w", err))
		}
		payload, err := buf.Next(int(n))
		if err != nil {
			return nil, ioError(m, "ReadBlockPacketFromBuffer", fmt.Errorf("read payload of %d bytes: %w", n, err))
		}
		mb := NewBuffer(payload)
		if err := m.ReadBlockPacketFromBuffer(p, mb); err != nil {
			return nil, r.metrics.observe(ioError(m, "ReadBlockPacketFromBuffer", err))
		}
		if left := mb.Remaining(); left != 0 {
			return nil, r.metrics.observe(ioError(m, "ReadBlockPacketFromBuffer", fmt.Errorf("%d unread payload bytes", left)))
		}
	}
	return p, nil
}

// MultiBlockChange is a batch of block changes within one chunk.
type MultiBlockChange struct {
	Chunk   world.ChunkPos
	Changes []*BlockChange
}

// NewMultiBlockChange creates a block change for every world position passed.
// All positions must lie within c.
func (r *Registry) NewMultiBlockChange(c Chunk, positions ...cube.Pos) (*MultiBlockChange, error) {
	mc := &MultiBlockChange{Chunk: c.Pos, Changes: make([]*BlockChange, 0, len(positions))}
	for _, pos := range positions {
		p, err := r.NewBlockChange(c, pos[0], pos[1], pos[2])
		if err != nil {
			return nil, err
		}
		mc.Changes = append(mc.Changes, p)
	}
	return mc, nil
}

// EncodeMultiBlockChange serialises mc as the number of changes, as an
// unsigned varint, followed by every change as encoded by EncodeBlockChange.
func (r *Registry) EncodeMultiBlockChange(mc *MultiBlockChange) ([]byte, error) {
	r.mustBeFinalized("EncodeMultiBlockChange")
	out := binary.AppendUvarint(nil, uint64(len(mc.Changes)))
	var err error
	for _, p := range mc.Changes {
		if ChunkPosOf(p.pos) != mc.Chunk {
			return nil, fmt.Errorf("chunkdata: block %v is not in chunk %v", p.pos, mc.Chunk)
		}
		if out, err = r.appendBlockChange(out, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeMultiBlockChange deserialises a packet produced by EncodeMultiBlockChange.
func (r *Registry) DecodeMultiBlockChange(data []byte) (*MultiBlockChange, error) {
	r.mustBeFinalized("DecodeMultiBlockChange")
	buf := NewBuffer(data)
	n, err := buf.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("chunkdata: read block change count: %w", err)
	}
	// Every change takes at least its packed position.
	if n > uint64(buf.Remaining()/packedPosSize) {
		return nil, fmt.Errorf("chunkdata: block change count %d exceeds packet size", n)
	}
	mc := &MultiBlockChange{Changes: make([]*BlockChange, 0, n)}
	for i := uint64(0); i < n; i++ {
		p, err := r.readBlockChange(buf)
		if err != nil {
			return nil, err
		}
		pos := ChunkPosOf(p.pos)
		if i == 0 {
			mc.Chunk = pos
		} else if pos != mc.Chunk {
			return nil, fmt.Errorf("chunkdata: block %v is not in chunk %v", p.pos, mc.Chunk)
		}
		mc.Changes = append(mc.Changes, p)
	}
	if left := buf.Remaining(); left != 0 {
		return nil, fmt.Errorf("chunkdata: %d trailing bytes after multi block change", left)
	}
	return mc, nil
}

// ApplyMultiBlockChange applies every change in mc to c.
func (r *Registry) ApplyMultiBlockChange(c Chunk, mc *MultiBlockChange) error {
	for _, p := range mc.Changes {
		if err := r.ApplyBlockChange(c, p); err != nil {
			return err
		}
	}
	return nil
}

// Within returns the changes of mc whose block centre lies within box.
func (mc *MultiBlockChange) Within(box cube.BBox) *MultiBlockChange {
	out := &MultiBlockChange{Chunk: mc.Chunk}
	for _, p := range mc.Changes {
		if box.Vec3Within(p.Centre()) {
			out.Changes = append(out.Changes, p)
		}
	}
	return out
}
