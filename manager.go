package chunkdata

// DataManager is the base interface of every chunk data manager.
// A DataManager does nothing by itself: it must also implement one or more of
// PacketDataManager, BlockPacketDataManager, ChunkDataManager or
// SubChunkDataManager.
type DataManager interface {
	// Domain returns the namespace of the manager, usually the name of the
	// extension that owns it.
	Domain() string
	// ID returns the name of the manager. Unique per domain.
	ID() string
}

// Key returns the "domain:id" key of a manager. It is used as the child tag name
// in persisted documents and as the manager's identity in the registry.
func Key(m DataManager) string {
	return key(m.Domain(), m.ID())
}

func key(domain, id string) string {
	return domain + ":" + id
}

// PacketDataManager synchronises its data with clients through chunk packets.
type PacketDataManager interface {
	DataManager

	// MaxPacketSize returns the maximum number of bytes the manager writes for a
	// single chunk. It is called once, when the registry layout is finalized.
	MaxPacketSize() int

	// WriteToBuffer serialises the data of the segments in mask into buf.
	// forceUpdate is true for the initial send of a chunk.
	WriteToBuffer(c Chunk, mask SubChunkMask, forceUpdate bool, buf *Buffer) error

	// ReadFromBuffer deserialises what WriteToBuffer wrote.
	ReadFromBuffer(c Chunk, mask SubChunkMask, forceUpdate bool, buf *Buffer) error
}

// BlockPacketDataManager additionally synchronises its data on single and multi
// block changes.
type BlockPacketDataManager interface {
	DataManager

	// WriteBlockToPacket captures the manager's data for the block at the
	// chunk-local position into p.
	WriteBlockToPacket(c Chunk, x uint8, y int16, z uint8, p *BlockChange) error

	// ReadBlockFromPacket applies the data captured in p to the block at the
	// chunk-local position.
	ReadBlockFromPacket(c Chunk, x uint8, y int16, z uint8, p *BlockChange) error

	// WriteBlockPacketToBuffer serialises the data captured in p.
	WriteBlockPacketToBuffer(p *BlockChange, buf *Buffer) error

	// ReadBlockPacketFromBuffer deserialises what WriteBlockPacketToBuffer wrote
	// into p. buf is bounded to the manager's own payload and must be consumed
	// entirely.
	ReadBlockPacketFromBuffer(p *BlockChange, buf *Buffer) error
}

// StorageDataManager is the common interface of ChunkDataManager and
// SubChunkDataManager. It carries the version information used to warn users
// when a world is opened with a different set of managers than it was saved with.
type StorageDataManager interface {
	DataManager

	// Version returns the current version of the manager's data format.
	Version() string

	// NewInstallDescription returns the message shown when a world is opened with
	// this manager for the first time. ok is false if no message is needed and the
	// manager is fully compatible with worlds saved without it.
	NewInstallDescription() (msg string, ok bool)

	// UninstallMessage returns the message shown when a world saved with this
	// manager is opened without it. It is stored in the world on save.
	UninstallMessage() string

	// VersionChangeMessage returns the message shown when a world saved with
	// priorVersion is opened. ok is false if the versions are compatible.
	VersionChangeMessage(priorVersion string) (msg string, ok bool)
}

// ChunkDataManager persists its data once per chunk.
type ChunkDataManager interface {
	StorageDataManager

	// ChunkPrivilegedAccess reports whether the manager receives the raw chunk
	// document instead of a fresh compound stored under its key. Only managers
	// reimplementing data that the host also reads should return true.
	ChunkPrivilegedAccess() bool

	// WriteChunkToNBT serialises the manager's chunk data into doc.
	WriteChunkToNBT(c Chunk, doc Document) error

	// ReadChunkFromNBT deserialises the manager's chunk data from doc. doc is nil
	// if the chunk was saved without this manager and the manager is not
	// privileged; the manager must then initialise sane defaults.
	ReadChunkFromNBT(c Chunk, doc Document) error

	// CloneChunk copies the manager's data from one chunk to another.
	CloneChunk(from, to Chunk) error
}

// SubChunkDataManager persists its data once per sub chunk.
type SubChunkDataManager interface {
	StorageDataManager

	// SubChunkPrivilegedAccess reports whether the manager receives the raw
	// sub chunk document instead of a fresh compound stored under its key.
	SubChunkPrivilegedAccess() bool

	// WriteSubChunkToNBT serialises the manager's data for s into doc.
	WriteSubChunkToNBT(c Chunk, s Segment, doc Document) error

	// ReadSubChunkFromNBT deserialises the manager's data for s from doc. doc is
	// nil if the sub chunk was saved without this manager and the manager is not
	// privileged.
	ReadSubChunkFromNBT(c Chunk, s Segment, doc Document) error

	// CloneSubChunk copies the manager's data from one sub chunk to another.
	CloneSubChunk(fromChunk Chunk, from, to Segment) error
}
