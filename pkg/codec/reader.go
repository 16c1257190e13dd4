package codec

import (
	"cmp"
	"fmt"
)

// Decoder reads one value at off and returns it with the bytes it used.
type Decoder[T any] func(buf *Buffer, off int) (T, int, error)

// StructReader decodes one struct. The fixed block is bounds checked when
// the reader is opened; variable fields are located through their own
// offset slots, only when their mask bit is set, and must not overlap. The
// first error sticks and is returned by End.
type StructReader struct {
	buf    *Buffer
	schema *Schema
	start  int
	mask   NullMask
	spans  []span
	end    int // furthest byte of any variable field read, relative to the variable block
	err    error
}

// OpenStruct starts decoding an instance of s at off.
func OpenStruct(buf *Buffer, off int, s *Schema) (*StructReader, error) {
	if err := buf.check(off, s.fixedSize); err != nil {
		return nil, annotate(err, s.name, "")
	}
	return &StructReader{
		buf:    buf,
		schema: s,
		start:  off,
		mask:   NullMask(buf.b[off : off+s.maskWidth]),
	}, nil
}

// Err returns the first error recorded so far.
func (r *StructReader) Err() error { return r.err }

// End returns the bytes consumed by the struct, or the first error.
func (r *StructReader) End() (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.schema.fixedSize + r.end, nil
}

func (r *StructReader) fail(fd *FieldDescriptor, err error) {
	if r.err == nil {
		r.err = annotate(err, r.schema.name, fd.Name)
	}
}

// Present reports whether field is present. Fields without a mask bit are
// always present.
func (r *StructReader) Present(field int) bool {
	fd := &r.schema.fields[field]
	return !fd.Nullable || r.mask.IsSet(fd.Bit)
}

// inline returns the absolute offset of a present inline field.
func (r *StructReader) inline(field int) (int, bool) {
	if r.err != nil {
		return 0, false
	}
	fd := &r.schema.fields[field]
	if fd.Variable {
		r.fail(fd, newError(KindConstraintViolation, "field is not inline"))
		return 0, false
	}
	if fd.Nullable && !r.mask.IsSet(fd.Bit) {
		return 0, false
	}
	return r.start + fd.Pos, true
}

func (r *StructReader) Int8(field int) int8 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Int8(at)
	return v
}

func (r *StructReader) Uint8(field int) uint8 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Uint8(at)
	return v
}

func (r *StructReader) Bool(field int) bool {
	at, ok := r.inline(field)
	if !ok {
		return false
	}
	v, _ := r.buf.Bool(at)
	return v
}

func (r *StructReader) Int16(field int) int16 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Int16(at)
	return v
}

func (r *StructReader) Uint16(field int) uint16 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Uint16(at)
	return v
}

func (r *StructReader) Int32(field int) int32 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Int32(at)
	return v
}

func (r *StructReader) Uint32(field int) uint32 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Uint32(at)
	return v
}

func (r *StructReader) Int64(field int) int64 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Int64(at)
	return v
}

func (r *StructReader) Float32(field int) float32 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Float32(at)
	return v
}

func (r *StructReader) Float64(field int) float64 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	v, _ := r.buf.Float64(at)
	return v
}

// Enum reads an enum index and records UndefinedEnumValue when it is out
// of range.
func (r *StructReader) Enum(field int) uint8 {
	at, ok := r.inline(field)
	if !ok {
		return 0
	}
	fd := &r.schema.fields[field]
	if _, err := fd.Type.measure(measurer{buf: r.buf, limits: DefaultLimits()}, at); err != nil {
		r.fail(fd, err)
		return 0
	}
	v, _ := r.buf.Uint8(at)
	return v
}

// ReadFixed decodes an inline composite. It returns false when the field
// is absent or an error was recorded.
func ReadFixed[T any](r *StructReader, field int, dec Decoder[T]) (T, bool) {
	var zero T
	at, ok := r.inline(field)
	if !ok {
		return zero, false
	}
	v, _, err := dec(r.buf, at)
	if err != nil {
		r.fail(&r.schema.fields[field], err)
		return zero, false
	}
	return v, true
}

// locate returns the absolute offset of a present variable field.
func (r *StructReader) locate(field int) (int, bool) {
	if r.err != nil {
		return 0, false
	}
	fd := &r.schema.fields[field]
	if !fd.Variable {
		r.fail(fd, newError(KindConstraintViolation, "field is not variable-size"))
		return 0, false
	}
	if !r.mask.IsSet(fd.Bit) {
		return 0, false
	}
	at, err := r.schema.locate(r.buf, r.start, r.start+r.schema.fixedSize, fd)
	if err != nil {
		r.fail(fd, err)
		return 0, false
	}
	return at, true
}

// extend records the n bytes a variable field occupies at the absolute
// offset at. It returns false when they overlap a field already read.
func (r *StructReader) extend(field, at, n int) bool {
	rel := at - r.start - r.schema.fixedSize
	spans, err := claim(r.spans, rel, n)
	if err != nil {
		r.fail(&r.schema.fields[field], err)
		return false
	}
	r.spans = spans
	r.end = max(r.end, rel+n)
	return true
}

func (r *StructReader) lengthPrefixed(field int) ([]byte, bool) {
	at, ok := r.locate(field)
	if !ok {
		return nil, false
	}
	fd := &r.schema.fields[field]
	lp, ok := fd.Type.(lengthPrefixed)
	if !ok {
		r.fail(fd, newError(KindConstraintViolation, "field is %s, not a string", fd.Type.TypeName()))
		return nil, false
	}
	p, n, err := readLengthPrefixed(r.buf, at, lp.max)
	if err != nil {
		r.fail(fd, err)
		return nil, false
	}
	if !r.extend(field, at, n) {
		return nil, false
	}
	return p, true
}

func readLengthPrefixed(buf *Buffer, off, max int) ([]byte, int, error) {
	n, k, err := buf.VarInt(off)
	if err != nil {
		return nil, 0, err
	}
	if int(n) > max {
		return nil, 0, newError(KindLengthLimitExceeded, "length %d exceeds %d", n, max)
	}
	p, err := buf.Slice(off+k, int(n))
	if err != nil {
		return nil, 0, err
	}
	return p, k + int(n), nil
}

// String returns the field's string, or nil when it is absent.
func (r *StructReader) String(field int) *string {
	p, ok := r.lengthPrefixed(field)
	if !ok {
		return nil
	}
	s := string(p)
	return &s
}

// Bytes returns a copy of the field's bytes, or nil when it is absent.
func (r *StructReader) Bytes(field int) []byte {
	p, ok := r.lengthPrefixed(field)
	if !ok {
		return nil
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out
}

// ReadValue decodes a nested variable-size value.
func ReadValue[T any](r *StructReader, field int, dec Decoder[T]) (T, bool) {
	var zero T
	at, ok := r.locate(field)
	if !ok {
		return zero, false
	}
	v, n, err := dec(r.buf, at)
	if err != nil {
		r.fail(&r.schema.fields[field], err)
		return zero, false
	}
	if !r.extend(field, at, n) {
		return zero, false
	}
	return v, true
}

// ReadArray decodes a counted array. An absent field yields nil and a
// present empty array yields a non-nil empty slice.
func ReadArray[T any](r *StructReader, field int, dec Decoder[T]) []T {
	at, ok := r.locate(field)
	if !ok {
		return nil
	}
	fd := &r.schema.fields[field]
	arr, ok := fd.Type.(arrayType)
	if !ok {
		r.fail(fd, newError(KindConstraintViolation, "field is %s, not an array", fd.Type.TypeName()))
		return nil
	}
	count, pos, err := readCount(r.buf, at, arr.max, arr.elem)
	if err != nil {
		r.fail(fd, err)
		return nil
	}
	out := make([]T, 0, count)
	for i := 0; i < count; i++ {
		v, n, err := dec(r.buf, pos)
		if err != nil {
			r.fail(fd, fmt.Errorf("element %d: %w", i, err))
			return nil
		}
		out = append(out, v)
		pos += n
	}
	if !r.extend(field, at, pos-at) {
		return nil
	}
	return out
}

// readCount reads a collection count and checks it against max and the
// bytes that remain, before anything is allocated for it.
func readCount(buf *Buffer, off, max int, elem Type) (int, int, error) {
	c, k, err := buf.VarInt(off)
	if err != nil {
		return 0, 0, err
	}
	count := int(c)
	if count > max {
		return 0, 0, newError(KindLengthLimitExceeded, "count %d exceeds %d", count, max)
	}
	body := off + k
	minSize := 1
	if s, ok := elem.FixedSize(); ok && s > 0 {
		minSize = s
	}
	if count > buf.ReadableBytes(body)/minSize {
		return 0, 0, newError(KindInsufficientData, "count %d needs at least %d bytes, have %d", count, count*minSize, buf.ReadableBytes(body))
	}
	return count, body, nil
}

// ReadStrings decodes a string array.
func ReadStrings(r *StructReader, field int) []string {
	fd := &r.schema.fields[field]
	arr, ok := fd.Type.(arrayType)
	if !ok {
		if r.err == nil {
			r.fail(fd, newError(KindConstraintViolation, "field is %s, not an array", fd.Type.TypeName()))
		}
		return nil
	}
	return ReadArray(r, field, StringDecoder(arr.elem))
}

// ReadMap decodes a counted map. Keys must be strictly ascending, the
// order WriteMap emits, so a map has one encoding and no duplicates.
func ReadMap[K cmp.Ordered, V any](r *StructReader, field int, decKey Decoder[K], decValue Decoder[V]) map[K]V {
	at, ok := r.locate(field)
	if !ok {
		return nil
	}
	fd := &r.schema.fields[field]
	mt, ok := fd.Type.(mapType)
	if !ok {
		r.fail(fd, newError(KindConstraintViolation, "field is %s, not a map", fd.Type.TypeName()))
		return nil
	}
	count, pos, err := readCount(r.buf, at, mt.max, mt.key)
	if err != nil {
		r.fail(fd, err)
		return nil
	}
	out := make(map[K]V, count)
	var prev K
	for i := 0; i < count; i++ {
		k, n, err := decKey(r.buf, pos)
		if err != nil {
			r.fail(fd, fmt.Errorf("key %d: %w", i, err))
			return nil
		}
		if i > 0 && cmp.Compare(prev, k) >= 0 {
			r.fail(fd, newError(KindConstraintViolation, "map key %d is not greater than the key before it", i))
			return nil
		}
		prev = k
		pos += n
		v, n, err := decValue(r.buf, pos)
		if err != nil {
			r.fail(fd, fmt.Errorf("value %d: %w", i, err))
			return nil
		}
		pos += n
		out[k] = v
	}
	if !r.extend(field, at, pos-at) {
		return nil
	}
	return out
}

// StringDecoder returns a decoder bounded by a String type's maximum.
func StringDecoder(t Type) Decoder[string] {
	max := MaxStringBytes
	if lp, ok := t.(lengthPrefixed); ok {
		max = lp.max
	}
	return func(buf *Buffer, off int) (string, int, error) {
		p, n, err := readLengthPrefixed(buf, off, max)
		if err != nil {
			return "", 0, err
		}
		return string(p), n, nil
	}
}

func DecodeInt32(buf *Buffer, off int) (int32, int, error) {
	v, err := buf.Int32(off)
	return v, 4, err
}

func DecodeFloat32(buf *Buffer, off int) (float32, int, error) {
	v, err := buf.Float32(off)
	return v, 4, err
}
