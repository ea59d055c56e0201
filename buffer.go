package chunkdata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Buffer is a byte cursor handed to managers for packet serialisation.
//
// Buffers passed to PacketDataManager are bounded to the manager's slot in the
// shared chunk packet: writing past the slot returns ErrBufferOverflow and
// reading past it returns ErrBufferUnderflow. Block packet buffers grow on
// write and are bounded to the manager's payload on read.
//
// Multi-byte integers are little endian.
type Buffer struct {
	data  []byte
	r, w  int
	fixed bool
}

// NewBuffer returns a growable buffer that reads from data and appends writes
// after it.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data, w: len(data)}
}

// newSlotBuffer returns a buffer bounded to slot. Writes fill slot in place.
func newSlotBuffer(slot []byte) *Buffer {
	return &Buffer{data: slot, fixed: true}
}

// Bytes returns the bytes written so far.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.w]
}

// Written returns the number of bytes written so far.
func (b *Buffer) Written() int {
	return b.w
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.r
}

// Available returns the number of bytes that may still be written, or -1 if
// the buffer grows on demand.
func (b *Buffer) Available() int {
	if !b.fixed {
		return -1
	}
	return len(b.data) - b.w
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	if !b.fixed {
		b.data = append(b.data, p...)
		b.w = len(b.data)
		return len(p), nil
	}
	if len(p) > len(b.data)-b.w {
		return 0, ErrBufferOverflow
	}
	n := copy(b.data[b.w:], p)
	b.w += n
	return n, nil
}

// WriteByte implements io.ByteWriter.
func (b *Buffer) WriteByte(c byte) error {
	_, err := b.Write([]byte{c})
	return err
}

// WriteBool writes a single byte, 1 for true and 0 for false.
func (b *Buffer) WriteBool(v bool) error {
	if v {
		return b.WriteByte(1)
	}
	return b.WriteByte(0)
}

// WriteUint16 writes v as two bytes.
func (b *Buffer) WriteUint16(v uint16) error {
	_, err := b.Write(binary.LittleEndian.AppendUint16(nil, v))
	return err
}

// WriteUint32 writes v as four bytes.
func (b *Buffer) WriteUint32(v uint32) error {
	_, err := b.Write(binary.LittleEndian.AppendUint32(nil, v))
	return err
}

// WriteUint64 writes v as eight bytes.
func (b *Buffer) WriteUint64(v uint64) error {
	_, err := b.Write(binary.LittleEndian.AppendUint64(nil, v))
	return err
}

// WriteUvarint writes v as an unsigned varint.
func (b *Buffer) WriteUvarint(v uint64) error {
	_, err := b.Write(binary.AppendUvarint(nil, v))
	return err
}

// WriteVarint writes v as a zig-zag encoded varint.
func (b *Buffer) WriteVarint(v int64) error {
	_, err := b.Write(binary.AppendVarint(nil, v))
	return err
}

// Read implements io.Reader. Unlike most readers it fails with
// ErrBufferUnderflow instead of returning a short read.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.r >= len(b.data) {
		return 0, io.EOF
	}
	if len(p) > len(b.data)-b.r {
		return 0, ErrBufferUnderflow
	}
	n := copy(p, b.data[b.r:])
	b.r += n
	return n, nil
}

// Next returns the next n unread bytes. The returned slice aliases the buffer.
func (b *Buffer) Next(n int) ([]byte, error) {
	if n < 0 || n > len(b.data)-b.r {
		return nil, ErrBufferUnderflow
	}
	p := b.data[b.r : b.r+n : b.r+n]
	b.r += n
	return p, nil
}

// ReadByte implements io.ByteReader.
func (b *Buffer) ReadByte() (byte, error) {
	if b.r >= len(b.data) {
		return 0, ErrBufferUnderflow
	}
	c := b.data[b.r]
	b.r++
	return c, nil
}

// ReadBool reads a byte written by WriteBool.
func (b *Buffer) ReadBool() (bool, error) {
	c, err := b.ReadByte()
	return c != 0, err
}

// ReadUint16 reads two bytes.
func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.Next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

// ReadUint32 reads four bytes.
func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// ReadUint64 reads eight bytes.
func (b *Buffer) ReadUint64() (uint64, error) {
	p, err := b.Next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// ReadUvarint reads an unsigned varint.
func (b *Buffer) ReadUvarint() (uint64, error) {
	v, err := binary.ReadUvarint(b)
	if err != nil {
		return 0, varintError(err)
	}
	return v, nil
}

// ReadVarint reads a zig-zag encoded varint.
func (b *Buffer) ReadVarint() (int64, error) {
	v, err := binary.ReadVarint(b)
	if err != nil {
		return 0, varintError(err)
	}
	return v, nil
}

// varintError reports a varint cut short by the end of the buffer as
// ErrBufferUnderflow and wraps anything else, such as an overlong encoding.
func varintError(err error) error {
	if errors.Is(err, ErrBufferUnderflow) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrBufferUnderflow
	}
	return fmt.Errorf("chunkdata: read varint: %w", err)
}
