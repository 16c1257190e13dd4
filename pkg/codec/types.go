package codec

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Type describes how one value is laid out on the wire. Every Type can
// measure an encoded value in place without decoding it, which is what
// the validation pass and BytesConsumed are built on.
type Type interface {
	TypeName() string
	// FixedSize returns the encoded size and true when every value of
	// the type encodes to the same number of bytes.
	FixedSize() (int, bool)
	// MaxSize is an upper bound on the encoded size, saturating at math.MaxInt32.
	MaxSize() int
	measure(m measurer, off int) (int, error)
}

type measurer struct {
	buf    *Buffer
	limits Limits
	depth  int
}

func (m measurer) child() measurer {
	m.depth++
	return m
}

func addSat(a, b int) int {
	if a > math.MaxInt32-b {
		return math.MaxInt32
	}
	return a + b
}

func mulSat(a, b int) int {
	if a != 0 && b > math.MaxInt32/a {
		return math.MaxInt32
	}
	return a * b
}

type primitive struct {
	name string
	size int
}

// Primitive field types. All multi-byte values are little-endian.
var (
	Int8    Type = primitive{"int8", 1}
	Uint8   Type = primitive{"uint8", 1}
	Bool    Type = primitive{"bool", 1}
	Int16   Type = primitive{"int16", 2}
	Uint16  Type = primitive{"uint16", 2}
	Int32   Type = primitive{"int32", 4}
	Uint32  Type = primitive{"uint32", 4}
	Int64   Type = primitive{"int64", 8}
	Float32 Type = primitive{"float32", 4}
	Float64 Type = primitive{"float64", 8}
)

func (p primitive) TypeName() string       { return p.name }
func (p primitive) FixedSize() (int, bool) { return p.size, true }
func (p primitive) MaxSize() int           { return p.size }

func (p primitive) measure(m measurer, off int) (int, error) {
	if err := m.buf.check(off, p.size); err != nil {
		return 0, err
	}
	return p.size, nil
}

// enumType is a single byte holding an index into a closed constant set.
type enumType struct {
	name  string
	count int
}

// Enum returns a one-byte enum type with values [0, count).
func Enum(name string, count int) Type {
	if count <= 0 || count > 256 {
		panic(fmt.Sprintf("codec: enum %s: invalid count %d", name, count))
	}
	return enumType{name: name, count: count}
}

func (e enumType) TypeName() string       { return e.name }
func (e enumType) FixedSize() (int, bool) { return 1, true }
func (e enumType) MaxSize() int           { return 1 }

func (e enumType) measure(m measurer, off int) (int, error) {
	v, err := m.buf.Uint8(off)
	if err != nil {
		return 0, err
	}
	if int(v) >= e.count {
		return 0, newError(KindUndefinedEnumValue, "%s has no value %d", e.name, v)
	}
	return 1, nil
}

// lengthPrefixed is a VarInt byte length followed by that many bytes.
type lengthPrefixed struct {
	name string
	max  int
}

// String returns a UTF-8 string type holding at most max bytes. A
// non-positive max means MaxStringBytes.
func String(max int) Type {
	if max <= 0 {
		max = MaxStringBytes
	}
	return lengthPrefixed{name: "string", max: max}
}

// Bytes returns an opaque byte string type holding at most max bytes.
func Bytes(max int) Type {
	if max <= 0 {
		max = MaxStringBytes
	}
	return lengthPrefixed{name: "bytes", max: max}
}

func (l lengthPrefixed) TypeName() string       { return l.name }
func (l lengthPrefixed) FixedSize() (int, bool) { return 0, false }
func (l lengthPrefixed) MaxSize() int           { return addSat(VarIntSize(int32(l.max)), l.max) }

func (l lengthPrefixed) limit(lim Limits) int {
	return min(l.max, lim.MaxStringBytes)
}

func (l lengthPrefixed) measure(m measurer, off int) (int, error) {
	n, k, err := m.buf.VarInt(off)
	if err != nil {
		return 0, err
	}
	if max := l.limit(m.limits); int(n) > max {
		return 0, newError(KindLengthLimitExceeded, "%s length %d exceeds %d", l.name, n, max)
	}
	if err := m.buf.check(off+k, int(n)); err != nil {
		return 0, err
	}
	return k + int(n), nil
}

type arrayType struct {
	elem Type
	max  int
}

// Array returns a VarInt-counted sequence of at most max elements.
func Array(elem Type, max int) Type {
	if max <= 0 {
		max = MaxCollectionLen
	}
	return arrayType{elem: elem, max: max}
}

func (a arrayType) TypeName() string       { return "[]" + a.elem.TypeName() }
func (a arrayType) FixedSize() (int, bool) { return 0, false }
func (a arrayType) MaxSize() int {
	return addSat(VarIntSize(int32(a.max)), mulSat(a.max, a.elem.MaxSize()))
}

func (a arrayType) limit(lim Limits) int {
	return min(a.max, lim.MaxCollectionLen)
}

func (a arrayType) measure(m measurer, off int) (int, error) {
	c, k, err := m.buf.VarInt(off)
	if err != nil {
		return 0, err
	}
	if max := a.limit(m.limits); int(c) > max {
		return 0, newError(KindLengthLimitExceeded, "array count %d exceeds %d", c, max)
	}
	return measureRun(m, off+k, int(c), k, a.elem)
}

// measureRun measures count consecutive values of t starting at off.
// Fixed-size elements with nothing to check are bounds checked in bulk.
func measureRun(m measurer, off, count, used int, t Type) (int, error) {
	if s, ok := t.FixedSize(); ok && !needsCheck(t) {
		if err := m.buf.check(off, mulSat(count, s)); err != nil {
			return 0, err
		}
		return used + count*s, nil
	}
	// every remaining element occupies at least one byte
	if count > m.buf.ReadableBytes(off) {
		return 0, newError(KindInsufficientData, "count %d exceeds the %d remaining bytes", count, m.buf.ReadableBytes(off))
	}
	child := m.child()
	pos := off
	for i := 0; i < count; i++ {
		n, err := t.measure(child, pos)
		if err != nil {
			return 0, err
		}
		pos += n
	}
	return used + pos - off, nil
}

type mapType struct {
	key, value Type
	max        int
}

// Map returns a VarInt-counted sequence of key/value pairs with keys in
// strictly ascending order.
func Map(key, value Type, max int) Type {
	if max <= 0 {
		max = MaxCollectionLen
	}
	return mapType{key: key, value: value, max: max}
}

func (t mapType) TypeName() string {
	return "map[" + t.key.TypeName() + "]" + t.value.TypeName()
}
func (t mapType) FixedSize() (int, bool) { return 0, false }
func (t mapType) MaxSize() int {
	return addSat(VarIntSize(int32(t.max)), mulSat(t.max, addSat(t.key.MaxSize(), t.value.MaxSize())))
}

func (t mapType) limit(lim Limits) int {
	return min(t.max, lim.MaxCollectionLen)
}

func (t mapType) measure(m measurer, off int) (int, error) {
	c, k, err := m.buf.VarInt(off)
	if err != nil {
		return 0, err
	}
	if max := t.limit(m.limits); int(c) > max {
		return 0, newError(KindLengthLimitExceeded, "map count %d exceeds %d", c, max)
	}
	count := int(c)
	pos := off + k
	// every remaining entry occupies at least one byte
	if count > m.buf.ReadableBytes(pos) {
		return 0, newError(KindInsufficientData, "count %d exceeds the %d remaining bytes", count, m.buf.ReadableBytes(pos))
	}
	child := m.child()
	prev := -1
	for i := 0; i < count; i++ {
		n, err := t.key.measure(child, pos)
		if err != nil {
			return 0, err
		}
		if prev >= 0 {
			if c, ok := compareKeys(t.key, m.buf, prev, pos); ok && c >= 0 {
				return 0, newError(KindConstraintViolation, "map key %d is not greater than the key before it", i)
			}
		}
		prev = pos
		pos += n
		if n, err = t.value.measure(child, pos); err != nil {
			return 0, err
		}
		pos += n
	}
	return pos - off, nil
}

// compareKeys orders two encoded map keys the way WriteMap sorts them. It
// reports false for key types without an order.
func compareKeys(t Type, buf *Buffer, a, b int) (int, bool) {
	switch t := t.(type) {
	case enumType:
		return compareAt(buf.Uint8, a, b), true
	case lengthPrefixed:
		x, _, errX := readLengthPrefixed(buf, a, t.max)
		y, _, errY := readLengthPrefixed(buf, b, t.max)
		if errX != nil || errY != nil {
			return 0, false
		}
		return bytes.Compare(x, y), true
	case primitive:
		switch t {
		case Int8:
			return compareAt(buf.Int8, a, b), true
		case Uint8:
			return compareAt(buf.Uint8, a, b), true
		case Int16:
			return compareAt(buf.Int16, a, b), true
		case Uint16:
			return compareAt(buf.Uint16, a, b), true
		case Int32:
			return compareAt(buf.Int32, a, b), true
		case Uint32:
			return compareAt(buf.Uint32, a, b), true
		case Int64:
			return compareAt(buf.Int64, a, b), true
		case Float32:
			return compareAt(buf.Float32, a, b), true
		case Float64:
			return compareAt(buf.Float64, a, b), true
		}
	}
	return 0, false
}

func compareAt[T cmp.Ordered](read func(int) (T, error), a, b int) int {
	x, _ := read(a)
	y, _ := read(b)
	return cmp.Compare(x, y)
}

// UnionType is a closed set of struct variants. On the wire it is a
// VarInt type id followed by the variant's own encoding.
type UnionType struct {
	name     string
	variants map[int32]*Schema
	ids      []int32
	maxSize  int
}

// Union builds a union from type id to variant schema.
func Union(name string, variants map[int32]*Schema) *UnionType {
	u := &UnionType{name: name, variants: make(map[int32]*Schema, len(variants))}
	for id, s := range variants {
		if id < 0 || s == nil {
			panic(fmt.Sprintf("codec: union %s: invalid variant %d", name, id))
		}
		u.variants[id] = s
		u.ids = append(u.ids, id)
		u.maxSize = max(u.maxSize, addSat(VarIntSize(id), s.MaxSize()))
	}
	slices.Sort(u.ids)
	return u
}

func (u *UnionType) TypeName() string       { return u.name }
func (u *UnionType) FixedSize() (int, bool) { return 0, false }
func (u *UnionType) MaxSize() int           { return u.maxSize }

// IDs returns the variant type ids in ascending order.
func (u *UnionType) IDs() []int32 { return slices.Clone(u.ids) }

// Variant returns the schema registered for id.
func (u *UnionType) Variant(id int32) (*Schema, bool) {
	s, ok := u.variants[id]
	return s, ok
}

// Tag reads the variant id at off and returns it with its size.
func (u *UnionType) Tag(buf *Buffer, off int) (int32, int, error) {
	id, k, err := buf.VarInt(off)
	if err != nil {
		return 0, 0, err
	}
	if _, ok := u.variants[id]; !ok {
		return 0, 0, newError(KindUndefinedEnumValue, "%s has no variant %d", u.name, id)
	}
	return id, k, nil
}

func (u *UnionType) measure(m measurer, off int) (int, error) {
	id, k, err := u.Tag(m.buf, off)
	if err != nil {
		return 0, err
	}
	n, err := u.variants[id].measure(m.child(), off+k)
	if err != nil {
		return 0, err
	}
	return k + n, nil
}

// needsCheck reports whether a fixed-size type has byte patterns that are
// invalid, so it cannot be skipped by a bounds check alone.
func needsCheck(t Type) bool {
	switch t := t.(type) {
	case enumType:
		return true
	case *Schema:
		return t.checked
	}
	return false
}
