// Package chunkdata provides a pluggable chunk data registry for Dragonfly servers.
//
// chunkdata lets independently written extensions attach named, versioned data to
// chunks and sub chunks without knowing about each other:
//   - Chunk packets are multiplexed into one shared fixed-size buffer
//   - Single and multi block change packets carry per-manager payloads
//   - Chunk and sub chunk data is persisted into NBT documents
//   - Stored manager versions drive install, upgrade and removal notices
//
// # Quick Start
//
// Register managers once, before any world is loaded:
//
//	reg := chunkdata.NewBuilder().
//	    Manager(&LightManager{}, &ColourManager{}).
//	    Option(chunkdata.WithLayoutOrder(chunkdata.OrderCanonical)).
//	    Init()
//
// Then drive the registry from the host's chunk events:
//
//	data, err := reg.WriteChunkPacket(c, chunkdata.AllSegments(len(c.Sub())), true)
//	err = reg.ReadChunkPacket(c, mask, true, data)
//
//	doc := chunkdata.Document{}
//	err = reg.WriteColumn(c, doc)
//	err = reg.ReadColumn(c, doc)
//
// # Managers
//
// A manager is any value with a Domain and an ID that implements one or more of
// the capability interfaces:
//
//	PacketDataManager       chunk packet sync
//	BlockPacketDataManager  block change packet sync
//	ChunkDataManager        chunk level persistence
//	SubChunkDataManager     sub chunk level persistence
//
// # Concurrency
//
// Registration is single threaded. Once Finalize has run the registry is immutable
// and may be shared by any number of goroutines. Orchestration calls may run
// concurrently for different chunks; callers serialize access to the same chunk.
package chunkdata

// Version is the chunkdata version.
const Version = "0.6.0"
