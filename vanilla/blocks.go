// Package vanilla implements the chunk data that dragonfly itself stores, as
// chunkdata managers. Registering these managers routes block state through the
// registry alongside extension data.
package vanilla

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/oriumgames/chunkdata"
)

// Domain is the domain of every manager in this package.
const Domain = "dragonfly"

// subChunkVolume is the number of blocks in a sub chunk.
const subChunkVolume = 16 * 16 * 16

// blocksKey is the sub chunk document key holding the block runtime IDs.
const blocksKey = "Blocks"

// Blocks carries the layer 0 block runtime IDs of a chunk.
//
// It synchronises whole sub chunks in chunk packets, single blocks in block
// change packets, and persists sub chunks with privileged access under the
// "Blocks" key of the sub chunk document.
//
// The persisted values are dragonfly runtime IDs, which are only meaningful to
// the block registry that assigned them. They change between dragonfly and game
// versions, so a host that upgrades must convert or discard saved blocks. Set
// the palette with Palette so that Version changes along with it and loading
// a world saved under another palette reports a version change.
type Blocks struct {
	r       cube.Range
	palette string
}

// NewBlocks returns a Blocks manager for chunks of the given range.
func NewBlocks(r cube.Range) *Blocks {
	return &Blocks{r: r}
}

// Palette records the block palette the runtime IDs belong to, such as the
// protocol version of the running dragonfly build, and returns b.
func (b *Blocks) Palette(palette string) *Blocks {
	b.palette = palette
	return b
}

// Domain implements chunkdata.DataManager.
func (*Blocks) Domain() string { return Domain }

// ID implements chunkdata.DataManager.
func (*Blocks) ID() string { return "blocks" }

// segments returns the number of sub chunks in a chunk of the manager's range.
func (b *Blocks) segments() int {
	return (b.r.Height() >> 4) + 1
}

// MaxPacketSize implements chunkdata.PacketDataManager.
func (b *Blocks) MaxPacketSize() int {
	return b.segments() * subChunkVolume * 4
}

// WriteToBuffer implements chunkdata.PacketDataManager.
func (b *Blocks) WriteToBuffer(c chunkdata.Chunk, mask chunkdata.SubChunkMask, _ bool, buf *chunkdata.Buffer) error {
	for index := range mask.Segments() {
		if int(index) >= c.Segments() {
			break
		}
		sub := c.Sub()[index]
		for y := byte(0); y < 16; y++ {
			for z := byte(0); z < 16; z++ {
				for x := byte(0); x < 16; x++ {
					if err := buf.WriteUint32(sub.Block(x, y, z, 0)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// ReadFromBuffer implements chunkdata.PacketDataManager.
func (b *Blocks) ReadFromBuffer(c chunkdata.Chunk, mask chunkdata.SubChunkMask, _ bool, buf *chunkdata.Buffer) error {
	for index := range mask.Segments() {
		if int(index) >= c.Segments() {
			break
		}
		sub := c.Sub()[index]
		for y := byte(0); y < 16; y++ {
			for z := byte(0); z < 16; z++ {
				for x := byte(0); x < 16; x++ {
					rid, err := buf.ReadUint32()
					if err != nil {
						return err
					}
					sub.SetBlock(x, y, z, 0, rid)
				}
			}
		}
	}
	return nil
}

// WriteBlockToPacket implements chunkdata.BlockPacketDataManager.
func (b *Blocks) WriteBlockToPacket(c chunkdata.Chunk, x uint8, y int16, z uint8, p *chunkdata.BlockChange) error {
	p.SetValue(b, c.Block(x, y, z, 0))
	return nil
}

// ReadBlockFromPacket implements chunkdata.BlockPacketDataManager.
func (b *Blocks) ReadBlockFromPacket(c chunkdata.Chunk, x uint8, y int16, z uint8, p *chunkdata.BlockChange) error {
	rid, err := b.runtimeID(p)
	if err != nil {
		return err
	}
	c.SetBlock(x, y, z, 0, rid)
	return nil
}

// WriteBlockPacketToBuffer implements chunkdata.BlockPacketDataManager.
func (b *Blocks) WriteBlockPacketToBuffer(p *chunkdata.BlockChange, buf *chunkdata.Buffer) error {
	rid, err := b.runtimeID(p)
	if err != nil {
		return err
	}
	return buf.WriteUvarint(uint64(rid))
}

// ReadBlockPacketFromBuffer implements chunkdata.BlockPacketDataManager.
func (b *Blocks) ReadBlockPacketFromBuffer(p *chunkdata.BlockChange, buf *chunkdata.Buffer) error {
	v, err := buf.ReadUvarint()
	if err != nil {
		return err
	}
	p.SetValue(b, uint32(v))
	return nil
}

func (b *Blocks) runtimeID(p *chunkdata.BlockChange) (uint32, error) {
	v, ok := p.Value(b)
	if !ok {
		return 0, fmt.Errorf("no block captured for %v", p.Pos())
	}
	rid, ok := v.(uint32)
	if !ok {
		return 0, fmt.Errorf("captured block is %T, expected uint32", v)
	}
	return rid, nil
}

// blocksFormat is the version of the sub chunk document layout.
const blocksFormat = "1"

// Version implements chunkdata.StorageDataManager. It is the document layout
// version followed by the palette, if one was set.
func (b *Blocks) Version() string {
	if b.palette == "" {
		return blocksFormat
	}
	return blocksFormat + "@" + b.palette
}

// NewInstallDescription implements chunkdata.StorageDataManager. Block storage
// is always compatible with worlds saved without it.
func (*Blocks) NewInstallDescription() (string, bool) { return "", false }

// UninstallMessage implements chunkdata.StorageDataManager.
func (*Blocks) UninstallMessage() string {
	return "Blocks stored through chunkdata will no longer be loaded."
}

// VersionChangeMessage implements chunkdata.StorageDataManager.
func (b *Blocks) VersionChangeMessage(prior string) (string, bool) {
	return fmt.Sprintf("Blocks were saved as runtime IDs of version %q and are loaded as %q; they may come back as different blocks.", prior, b.Version()), true
}

// SubChunkPrivilegedAccess implements chunkdata.SubChunkDataManager. Blocks are
// stored in the sub chunk document itself, as the host expects them there.
func (*Blocks) SubChunkPrivilegedAccess() bool { return true }

// WriteSubChunkToNBT implements chunkdata.SubChunkDataManager.
func (b *Blocks) WriteSubChunkToNBT(_ chunkdata.Chunk, s chunkdata.Segment, doc chunkdata.Document) error {
	var rids [subChunkVolume]int32
	for i := range rids {
		x, y, z := unindex(i)
		rids[i] = int32(s.Block(x, y, z, 0))
	}
	doc[blocksKey] = rids
	return nil
}

// ReadSubChunkFromNBT implements chunkdata.SubChunkDataManager.
func (b *Blocks) ReadSubChunkFromNBT(_ chunkdata.Chunk, s chunkdata.Segment, doc chunkdata.Document) error {
	v, ok := doc[blocksKey]
	if !ok {
		// Sub chunks saved without blocks keep the air they were created with.
		return nil
	}
	rids, err := runtimeIDs(v)
	if err != nil {
		return fmt.Errorf("read %q: %w", blocksKey, err)
	}
	for i, rid := range rids {
		x, y, z := unindex(i)
		s.SetBlock(x, y, z, 0, uint32(rid))
	}
	return nil
}

// CloneSubChunk implements chunkdata.SubChunkDataManager.
func (b *Blocks) CloneSubChunk(_ chunkdata.Chunk, from, to chunkdata.Segment) error {
	for i := 0; i < subChunkVolume; i++ {
		x, y, z := unindex(i)
		to.SetBlock(x, y, z, 0, from.Block(x, y, z, 0))
	}
	return nil
}

// unindex returns the position of the i-th block in YZX order.
func unindex(i int) (x, y, z byte) {
	return byte(i & 0xf), byte(i >> 8), byte((i >> 4) & 0xf)
}

// runtimeIDs converts the decoded forms of an NBT int array or int list.
func runtimeIDs(v any) ([]int32, error) {
	switch v := v.(type) {
	case [subChunkVolume]int32:
		return v[:], nil
	case []int32:
		if len(v) != subChunkVolume {
			return nil, fmt.Errorf("expected %d runtime IDs, got %d", subChunkVolume, len(v))
		}
		return v, nil
	case []any:
		if len(v) != subChunkVolume {
			return nil, fmt.Errorf("expected %d runtime IDs, got %d", subChunkVolume, len(v))
		}
		out := make([]int32, len(v))
		for i, e := range v {
			rid, ok := e.(int32)
			if !ok {
				return nil, fmt.Errorf("runtime ID %d is %T, expected int32", i, e)
			}
			out[i] = rid
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}
