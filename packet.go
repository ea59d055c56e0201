package chunkdata

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// WriteChunkPacket serialises the data of every packet manager for the
// segments in mask into a new chunk packet of Capacity() bytes.
//
// Each manager writes into its own slot, starting at the slot offset. Bytes a
// manager leaves unwritten stay zero; slots are never compacted since readers
// rely on the fixed offsets. The first failing manager aborts the call with a
// *ManagerIOError.
func (r *Registry) WriteChunkPacket(c Chunk, mask SubChunkMask, forceUpdate bool) ([]byte, error) {
	r.mustBeFinalized("WriteChunkPacket")
	dst := make([]byte, r.capacity)
	if err := r.writeChunkPacket(dst, c, mask, forceUpdate); err != nil {
		return nil, err
	}
	return dst, nil
}

// WriteChunkPacketTo is like WriteChunkPacket but serialises into dst, which
// must be exactly Capacity() bytes long. dst is zeroed first.
func (r *Registry) WriteChunkPacketTo(dst []byte, c Chunk, mask SubChunkMask, forceUpdate bool) error {
	r.mustBeFinalized("WriteChunkPacketTo")
	if len(dst) != r.capacity {
		return &PacketSizeError{Want: r.capacity, Got: len(dst)}
	}
	clear(dst)
	return r.writeChunkPacket(dst, c, mask, forceUpdate)
}

func (r *Registry) writeChunkPacket(dst []byte, c Chunk, mask SubChunkMask, forceUpdate bool) error {
	r.metrics.call("write_chunk_packet")
	for _, p := range r.packets {
		buf := newSlotBuffer(dst[p.Offset : p.Offset+p.Size])
		if err := p.manager.WriteToBuffer(c, mask, forceUpdate, buf); err != nil {
			return r.metrics.observe(ioError(p.manager, "WriteToBuffer", err))
		}
	}
	return nil
}

// ReadChunkPacket hands every packet manager its slot of data, which must be a
// chunk packet produced by WriteChunkPacket with the same layout.
// The first failing manager aborts the call with a *ManagerIOError; data
// already applied by earlier managers is not rolled back.
func (r *Registry) ReadChunkPacket(c Chunk, mask SubChunkMask, forceUpdate bool, data []byte) error {
	r.mustBeFinalized("ReadChunkPacket")
	if len(data) != r.capacity {
		return &PacketSizeError{Want: r.capacity, Got: len(data)}
	}
	r.metrics.call("read_chunk_packet")
	for _, p := range r.packets {
		buf := newSlotBuffer(data[p.Offset : p.Offset+p.Size])
		if err := p.manager.ReadFromBuffer(c, mask, forceUpdate, buf); err != nil {
			return r.metrics.observe(ioError(p.manager, "ReadFromBuffer", err))
		}
	}
	return nil
}

// CompressChunkPacket deflates a chunk packet with zlib for transmission.
func (r *Registry) CompressChunkPacket(data []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := zlib.NewWriterLevel(&out, r.opts.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("chunkdata: create zlib writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("chunkdata: compress chunk packet: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("chunkdata: compress chunk packet: %w", err)
	}
	r.metrics.compressed(out.Len())
	return out.Bytes(), nil
}

// DecompressChunkPacket inflates a packet produced by CompressChunkPacket.
// It returns a *PacketSizeError if the inflated packet is not exactly
// Capacity() bytes, which indicates a layout mismatch between the peers.
func (r *Registry) DecompressChunkPacket(data []byte) ([]byte, error) {
	r.mustBeFinalized("DecompressChunkPacket")
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("chunkdata: decompress chunk packet: %w", err)
	}
	defer zr.Close()

	// Read one byte past the capacity so oversized packets are detected.
	out, err := io.ReadAll(io.LimitReader(zr, int64(r.capacity)+1))
	if err != nil {
		return nil, fmt.Errorf("chunkdata: decompress chunk packet: %w", err)
	}
	if len(out) != r.capacity {
		return nil, &PacketSizeError{Want: r.capacity, Got: len(out)}
	}
	return out, nil
}
