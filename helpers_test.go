package chunkdata

import (
	"errors"
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/chunk"
)

var testRange = cube.Range{0, 63}

func newTestChunk(x, z int32) Chunk {
	return NewChunk(world.ChunkPos{x, z}, chunk.New(0, testRange))
}

// worldPos returns the world position of a chunk-local block.
func worldPos(c Chunk, x uint8, y int16, z uint8) cube.Pos {
	return cube.Pos{int(c.Pos[0])<<4 | int(x), int(y), int(c.Pos[1])<<4 | int(z)}
}

var errBoom = errors.New("boom")

// bytesManager writes a fixed payload per chunk into its packet slot.
type bytesManager struct {
	domain, id string
	size       int
	sizeCalls  int

	payload  map[world.ChunkPos][]byte
	received map[world.ChunkPos][]byte
	masks    []SubChunkMask
	fail     bool
}

func newBytesManager(domain, id string, size int) *bytesManager {
	return &bytesManager{
		domain:   domain,
		id:       id,
		size:     size,
		payload:  make(map[world.ChunkPos][]byte),
		received: make(map[world.ChunkPos][]byte),
	}
}

func (m *bytesManager) Domain() string { return m.domain }
func (m *bytesManager) ID() string     { return m.id }

func (m *bytesManager) MaxPacketSize() int {
	m.sizeCalls++
	return m.size
}

func (m *bytesManager) WriteToBuffer(c Chunk, mask SubChunkMask, _ bool, buf *Buffer) error {
	if m.fail {
		return errBoom
	}
	m.masks = append(m.masks, mask)
	_, err := buf.Write(m.payload[c.Pos])
	return err
}

func (m *bytesManager) ReadFromBuffer(c Chunk, mask SubChunkMask, _ bool, buf *Buffer) error {
	if m.fail {
		return errBoom
	}
	m.masks = append(m.masks, mask)
	p, err := buf.Next(m.size)
	if err != nil {
		return err
	}
	m.received[c.Pos] = append([]byte(nil), p...)
	return nil
}

// markManager carries one byte per block in block change packets.
type markManager struct {
	domain, id string
	marks      map[cube.Pos]byte
}

func newMarkManager(domain, id string) *markManager {
	return &markManager{domain: domain, id: id, marks: make(map[cube.Pos]byte)}
}

func (m *markManager) Domain() string { return m.domain }
func (m *markManager) ID() string     { return m.id }

func (m *markManager) WriteBlockToPacket(c Chunk, x uint8, y int16, z uint8, p *BlockChange) error {
	p.SetValue(m, m.marks[worldPos(c, x, y, z)])
	return nil
}

func (m *markManager) ReadBlockFromPacket(c Chunk, x uint8, y int16, z uint8, p *BlockChange) error {
	v, _ := p.Value(m)
	b, _ := v.(byte)
	m.marks[worldPos(c, x, y, z)] = b
	return nil
}

func (m *markManager) WriteBlockPacketToBuffer(p *BlockChange, buf *Buffer) error {
	v, ok := p.Value(m)
	if !ok {
		return fmt.Errorf("no mark captured")
	}
	return buf.WriteByte(v.(byte))
}

func (m *markManager) ReadBlockPacketFromBuffer(p *BlockChange, buf *Buffer) error {
	b, err := buf.ReadByte()
	if err != nil {
		return err
	}
	p.SetValue(m, b)
	return nil
}

// greedyMarkManager writes two bytes but only reads one.
type greedyMarkManager struct{ *markManager }

func (m greedyMarkManager) WriteBlockPacketToBuffer(p *BlockChange, buf *Buffer) error {
	if err := m.markManager.WriteBlockPacketToBuffer(p, buf); err != nil {
		return err
	}
	return buf.WriteByte(0xff)
}

// storeManager persists one int32 per chunk and one per sub chunk.
type storeManager struct {
	domain, id string
	version    string
	privileged bool

	installMsg   string
	uninstallMsg string
	changeMsg    string

	chunkValues map[world.ChunkPos]int32
	subValues   map[*chunk.SubChunk]int32

	// chunkDocs and subDocs record the documents handed to the read methods.
	chunkDocs []Document
	subDocs   []Document
}

func newStoreManager(domain, id string, privileged bool) *storeManager {
	return &storeManager{
		domain:      domain,
		id:          id,
		version:     "1",
		privileged:  privileged,
		chunkValues: make(map[world.ChunkPos]int32),
		subValues:   make(map[*chunk.SubChunk]int32),
	}
}

func (m *storeManager) Domain() string { return m.domain }
func (m *storeManager) ID() string     { return m.id }

func (m *storeManager) Version() string { return m.version }

func (m *storeManager) NewInstallDescription() (string, bool) {
	return m.installMsg, m.installMsg != ""
}

func (m *storeManager) UninstallMessage() string { return m.uninstallMsg }

func (m *storeManager) VersionChangeMessage(prior string) (string, bool) {
	if m.changeMsg == "" {
		return "", false
	}
	return m.changeMsg + " from " + prior, true
}

// valueKey is namespaced for privileged managers so they do not clash with the
// host's own tags.
func (m *storeManager) valueKey() string {
	if m.privileged {
		return m.id + "Value"
	}
	return "Value"
}

func (m *storeManager) ChunkPrivilegedAccess() bool { return m.privileged }

func (m *storeManager) WriteChunkToNBT(c Chunk, doc Document) error {
	doc[m.valueKey()] = m.chunkValues[c.Pos]
	return nil
}

func (m *storeManager) ReadChunkFromNBT(c Chunk, doc Document) error {
	m.chunkDocs = append(m.chunkDocs, doc)
	if doc == nil {
		m.chunkValues[c.Pos] = -1
		return nil
	}
	v, ok := doc[m.valueKey()].(int32)
	if !ok {
		return fmt.Errorf("missing %q", m.valueKey())
	}
	m.chunkValues[c.Pos] = v
	return nil
}

func (m *storeManager) CloneChunk(from, to Chunk) error {
	m.chunkValues[to.Pos] = m.chunkValues[from.Pos]
	return nil
}

func (m *storeManager) SubChunkPrivilegedAccess() bool { return m.privileged }

func (m *storeManager) WriteSubChunkToNBT(c Chunk, s Segment, doc Document) error {
	doc[m.valueKey()] = m.subValues[s.SubChunk]
	return nil
}

func (m *storeManager) ReadSubChunkFromNBT(c Chunk, s Segment, doc Document) error {
	m.subDocs = append(m.subDocs, doc)
	if doc == nil {
		m.subValues[s.SubChunk] = -1
		return nil
	}
	v, ok := doc[m.valueKey()].(int32)
	if !ok {
		return fmt.Errorf("missing %q", m.valueKey())
	}
	m.subValues[s.SubChunk] = v
	return nil
}

func (m *storeManager) CloneSubChunk(_ Chunk, from, to Segment) error {
	m.subValues[to.SubChunk] = m.subValues[from.SubChunk]
	return nil
}

// nameOnly implements no capability.
type nameOnly struct{ domain, id string }

func (m nameOnly) Domain() string { return m.domain }
func (m nameOnly) ID() string     { return m.id }
