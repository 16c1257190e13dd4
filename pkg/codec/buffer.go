package codec

import (
	"encoding/binary"
	"math"
)

// MaxVarIntLen is the longest VarInt encoding of a non-negative int32.
const MaxVarIntLen = 5

// Buffer is a byte sequence with absolute-offset little-endian access.
//
// Reads are bounds checked and report InsufficientData instead of
// panicking, so they are safe on untrusted input. Put methods write into
// space that already exists (see Grow) and panic when it does not, the
// same contract as encoding/binary's PutUint32.
//
// A Buffer is owned by one goroutine for the duration of a call.
type Buffer struct {
	b []byte
}

// NewBuffer wraps b. The buffer borrows b; it does not copy it.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

// Bytes returns the underlying slice.
func (b *Buffer) Bytes() []byte { return b.b }

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int { return len(b.b) }

// ReadableBytes returns how many bytes can be read starting at from.
func (b *Buffer) ReadableBytes(from int) int {
	if from < 0 || from > len(b.b) {
		return 0
	}
	return len(b.b) - from
}

func (b *Buffer) check(off, n int) error {
	if off < 0 || n < 0 || off > len(b.b) || n > len(b.b)-off {
		return newError(KindInsufficientData, "need %d bytes at offset %d, have %d", n, off, b.ReadableBytes(off))
	}
	return nil
}

func (b *Buffer) Uint8(off int) (uint8, error) {
	if err := b.check(off, 1); err != nil {
		return 0, err
	}
	return b.b[off], nil
}

func (b *Buffer) Int8(off int) (int8, error) {
	v, err := b.Uint8(off)
	return int8(v), err
}

// Bool reads a single byte; any non-zero value is true.
func (b *Buffer) Bool(off int) (bool, error) {
	v, err := b.Uint8(off)
	return v != 0, err
}

func (b *Buffer) Uint16(off int) (uint16, error) {
	if err := b.check(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b.b[off:]), nil
}

func (b *Buffer) Int16(off int) (int16, error) {
	v, err := b.Uint16(off)
	return int16(v), err
}

func (b *Buffer) Uint32(off int) (uint32, error) {
	if err := b.check(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.b[off:]), nil
}

func (b *Buffer) Int32(off int) (int32, error) {
	v, err := b.Uint32(off)
	return int32(v), err
}

func (b *Buffer) Uint64(off int) (uint64, error) {
	if err := b.check(off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.b[off:]), nil
}

func (b *Buffer) Int64(off int) (int64, error) {
	v, err := b.Uint64(off)
	return int64(v), err
}

func (b *Buffer) Float32(off int) (float32, error) {
	v, err := b.Uint32(off)
	return math.Float32frombits(v), err
}

func (b *Buffer) Float64(off int) (float64, error) {
	v, err := b.Uint64(off)
	return math.Float64frombits(v), err
}

// Slice returns n bytes at off without copying.
func (b *Buffer) Slice(off, n int) ([]byte, error) {
	if err := b.check(off, n); err != nil {
		return nil, err
	}
	return b.b[off : off+n : off+n], nil
}

// VarInt reads an unsigned LEB128 value that must fit a non-negative
// int32 and use the fewest bytes possible, so every value has one
// encoding. It returns the value and the number of bytes it occupied.
func (b *Buffer) VarInt(off int) (int32, int, error) {
	var v uint32
	for i := 0; i < MaxVarIntLen; i++ {
		c, err := b.Uint8(off + i)
		if err != nil {
			return 0, 0, err
		}
		if i == MaxVarIntLen-1 && c > 0x07 {
			return 0, 0, newError(KindMalformedOffset, "varint at offset %d overflows int32", off)
		}
		v |= uint32(c&0x7f) << (7 * i)
		if c < 0x80 {
			if c == 0 && i > 0 {
				return 0, 0, newError(KindMalformedOffset, "varint at offset %d is not minimally encoded", off)
			}
			return int32(v), i + 1, nil
		}
	}
	// unreachable: the last byte is either rejected or terminates
	return 0, 0, newError(KindMalformedOffset, "varint at offset %d is too long", off)
}

// VarIntSize returns the encoded size of a non-negative v.
func VarIntSize(v int32) int {
	u := uint32(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// Grow appends n zero bytes and returns the offset of the first one.
func (b *Buffer) Grow(n int) int {
	start := len(b.b)
	if cap(b.b)-start >= n {
		b.b = b.b[:start+n]
		clear(b.b[start:])
		return start
	}
	nb := make([]byte, start+n, 2*cap(b.b)+n)
	copy(nb, b.b)
	b.b = nb
	return start
}

func (b *Buffer) PutUint8(off int, v uint8) { b.b[off] = v }

func (b *Buffer) PutInt8(off int, v int8) { b.b[off] = byte(v) }

func (b *Buffer) PutBool(off int, v bool) {
	if v {
		b.b[off] = 1
	} else {
		b.b[off] = 0
	}
}

func (b *Buffer) PutUint16(off int, v uint16) { binary.LittleEndian.PutUint16(b.b[off:], v) }

func (b *Buffer) PutInt16(off int, v int16) { b.PutUint16(off, uint16(v)) }

func (b *Buffer) PutUint32(off int, v uint32) { binary.LittleEndian.PutUint32(b.b[off:], v) }

func (b *Buffer) PutInt32(off int, v int32) { b.PutUint32(off, uint32(v)) }

func (b *Buffer) PutUint64(off int, v uint64) { binary.LittleEndian.PutUint64(b.b[off:], v) }

func (b *Buffer) PutInt64(off int, v int64) { b.PutUint64(off, uint64(v)) }

func (b *Buffer) PutFloat32(off int, v float32) { b.PutUint32(off, math.Float32bits(v)) }

func (b *Buffer) PutFloat64(off int, v float64) { b.PutUint64(off, math.Float64bits(v)) }

// PutVarInt writes v at off and returns the bytes written.
func (b *Buffer) PutVarInt(off int, v int32) int {
	u := uint32(v)
	n := 0
	for u >= 0x80 {
		b.b[off+n] = byte(u) | 0x80
		u >>= 7
		n++
	}
	b.b[off+n] = byte(u)
	return n + 1
}

// AppendVarInt appends v. Negative values are a programming error.
func (b *Buffer) AppendVarInt(v int32) {
	if v < 0 {
		panic("codec: negative varint")
	}
	off := b.Grow(VarIntSize(v))
	b.PutVarInt(off, v)
}

func (b *Buffer) AppendBytes(p []byte) {
	off := b.Grow(len(p))
	copy(b.b[off:], p)
}

func (b *Buffer) AppendUint8(v uint8) { b.b = append(b.b, v) }

func (b *Buffer) AppendBool(v bool) { b.PutBool(b.Grow(1), v) }

func (b *Buffer) AppendInt32(v int32) { b.PutInt32(b.Grow(4), v) }

func (b *Buffer) AppendInt64(v int64) { b.PutInt64(b.Grow(8), v) }

func (b *Buffer) AppendFloat32(v float32) { b.PutFloat32(b.Grow(4), v) }

func (b *Buffer) AppendFloat64(v float64) { b.PutFloat64(b.Grow(8), v) }

// AppendString appends a VarInt byte length followed by the UTF-8 bytes.
func (b *Buffer) AppendString(s string) {
	b.AppendVarInt(int32(len(s)))
	off := b.Grow(len(s))
	copy(b.b[off:], s)
}
