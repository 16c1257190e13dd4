package codec

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// Encoder appends one value to buf.
type Encoder[T any] func(buf *Buffer, v T) error

// StructWriter writes one struct: the fixed block is reserved up front,
// inline fields are written in place, and variable fields are appended
// after it in declaration order. The first error sticks and is returned
// by Finish; later calls become no-ops.
type StructWriter struct {
	buf    *Buffer
	schema *Schema
	start  int
	next   int // position in schema.variable of the next writable field
	err    error
}

// BeginStruct appends a fixed block for s to buf, with every offset slot
// set to the absent marker.
func BeginStruct(buf *Buffer, s *Schema) *StructWriter {
	start := buf.Grow(s.fixedSize)
	for _, i := range s.variable {
		buf.PutInt32(start+s.fields[i].Pos, absentOffset)
	}
	return structAt(buf, start, s)
}

// StructAt writes a fixed-size struct into space that already exists at
// off, as for a composite stored inline in its parent's fixed block.
func StructAt(buf *Buffer, off int, s *Schema) *StructWriter {
	w := structAt(buf, off, s)
	if len(s.variable) > 0 {
		w.err = &ProtocolError{Kind: KindConstraintViolation, Type: s.name, Msg: "variable-size struct cannot be written inline"}
	} else if err := buf.check(off, s.fixedSize); err != nil {
		w.err = annotate(err, s.name, "")
	}
	return w
}

func structAt(buf *Buffer, off int, s *Schema) *StructWriter {
	return &StructWriter{buf: buf, schema: s, start: off}
}

// setBit goes through the buffer each time because appending variable
// data may reallocate it.
func (w *StructWriter) setBit(bit int) {
	NullMask(w.buf.b[w.start : w.start+w.schema.maskWidth]).Set(bit)
}

// Buffer returns the buffer being written.
func (w *StructWriter) Buffer() *Buffer { return w.buf }

// Err returns the first error recorded so far.
func (w *StructWriter) Err() error { return w.err }

// Finish returns the first error encountered while writing.
func (w *StructWriter) Finish() error { return w.err }

func (w *StructWriter) fail(fd *FieldDescriptor, err error) {
	if w.err == nil {
		w.err = annotate(err, w.schema.name, fd.Name)
	}
}

// inline returns the descriptor for an inline field, or nil after an error.
func (w *StructWriter) inline(field int) *FieldDescriptor {
	if w.err != nil {
		return nil
	}
	fd := &w.schema.fields[field]
	if fd.Variable {
		w.fail(fd, newError(KindConstraintViolation, "field is not inline"))
		return nil
	}
	if fd.Nullable {
		w.setBit(fd.Bit)
	}
	return fd
}

func (w *StructWriter) PutInt8(field int, v int8) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutInt8(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutUint8(field int, v uint8) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutUint8(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutBool(field int, v bool) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutBool(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutInt16(field int, v int16) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutInt16(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutUint16(field int, v uint16) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutUint16(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutInt32(field int, v int32) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutInt32(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutUint32(field int, v uint32) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutUint32(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutInt64(field int, v int64) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutInt64(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutFloat32(field int, v float32) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutFloat32(w.start+fd.Pos, v)
	}
}

func (w *StructWriter) PutFloat64(field int, v float64) {
	if fd := w.inline(field); fd != nil {
		w.buf.PutFloat64(w.start+fd.Pos, v)
	}
}

// PutEnum writes an enum index, rejecting values outside the constant set.
func (w *StructWriter) PutEnum(field int, v uint8) {
	fd := w.inline(field)
	if fd == nil {
		return
	}
	if et, ok := fd.Type.(enumType); ok && int(v) >= et.count {
		e := newError(KindConstraintViolation, "%s has no value %d", et.name, v)
		e.Err = ErrUndefinedEnumValue
		w.fail(fd, e)
		return
	}
	w.buf.PutUint8(w.start+fd.Pos, v)
}

// Fixed marks an inline composite present and returns its absolute offset,
// or -1 after an error.
func (w *StructWriter) Fixed(field int) int {
	fd := w.inline(field)
	if fd == nil {
		return -1
	}
	return w.start + fd.Pos
}

// Nested marks an inline composite present and writes it through fn.
func (w *StructWriter) Nested(field int, fn func(buf *Buffer, off int) error) {
	if at := w.Fixed(field); at >= 0 {
		if err := fn(w.buf, at); err != nil {
			w.fail(&w.schema.fields[field], err)
		}
	}
}

// Begin marks a variable field present and records its offset. The caller
// then appends the field's bytes. It returns false after an error.
func (w *StructWriter) Begin(field int) bool {
	if w.err != nil {
		return false
	}
	fd := &w.schema.fields[field]
	if !fd.Variable {
		w.fail(fd, newError(KindConstraintViolation, "field is not variable-size"))
		return false
	}
	pos := slices.Index(w.schema.variable[w.next:], field)
	if pos < 0 {
		w.fail(fd, newError(KindConstraintViolation, "variable field written out of declaration order"))
		return false
	}
	w.next += pos + 1

	base := w.start + w.schema.fixedSize
	rel := w.buf.Len() - base
	w.setBit(fd.Bit)
	w.buf.PutInt32(w.start+fd.Pos, int32(rel))
	return true
}

func (w *StructWriter) variable(field int) *FieldDescriptor {
	return &w.schema.fields[field]
}

// PutString writes a nullable string; nil leaves the field absent.
func (w *StructWriter) PutString(field int, s *string) {
	if s == nil || w.err != nil {
		return
	}
	w.putLengthPrefixed(field, len(*s), func() { w.buf.AppendString(*s) })
}

// PutBytes writes a byte string; nil leaves the field absent.
func (w *StructWriter) PutBytes(field int, p []byte) {
	if p == nil || w.err != nil {
		return
	}
	w.putLengthPrefixed(field, len(p), func() {
		w.buf.AppendVarInt(int32(len(p)))
		w.buf.AppendBytes(p)
	})
}

func (w *StructWriter) putLengthPrefixed(field, n int, appendFn func()) {
	fd := w.variable(field)
	lp, ok := fd.Type.(lengthPrefixed)
	if !ok {
		w.fail(fd, newError(KindConstraintViolation, "field is %s, not a string", fd.Type.TypeName()))
		return
	}
	if n > lp.max {
		w.fail(fd, limitViolation("%s length %d exceeds %d", lp.name, n, lp.max))
		return
	}
	if w.Begin(field) {
		appendFn()
	}
}

// PutValue writes a nested variable-size value; present false leaves the
// field absent.
func PutValue[T any](w *StructWriter, field int, present bool, v T, enc Encoder[T]) {
	if !present || !w.Begin(field) {
		return
	}
	if err := enc(w.buf, v); err != nil {
		w.fail(w.variable(field), err)
	}
}

// WriteArray writes items as a counted array; a nil slice leaves the field
// absent while an empty one is present with count zero.
func WriteArray[T any](w *StructWriter, field int, items []T, enc Encoder[T]) {
	if items == nil || w.err != nil {
		return
	}
	fd := w.variable(field)
	at, ok := fd.Type.(arrayType)
	if !ok {
		w.fail(fd, newError(KindConstraintViolation, "field is %s, not an array", fd.Type.TypeName()))
		return
	}
	if len(items) > at.max {
		w.fail(fd, limitViolation("array count %d exceeds %d", len(items), at.max))
		return
	}
	if !w.Begin(field) {
		return
	}
	w.buf.AppendVarInt(int32(len(items)))
	for i, it := range items {
		if err := enc(w.buf, it); err != nil {
			w.fail(fd, fmt.Errorf("element %d: %w", i, err))
			return
		}
	}
}

// WriteStrings writes a string array, enforcing the element type's maximum.
func WriteStrings(w *StructWriter, field int, items []string) {
	if items == nil || w.err != nil {
		return
	}
	fd := w.variable(field)
	at, ok := fd.Type.(arrayType)
	if !ok {
		w.fail(fd, newError(KindConstraintViolation, "field is %s, not an array", fd.Type.TypeName()))
		return
	}
	WriteArray(w, field, items, StringEncoder(at.elem))
}

// WriteMap writes m with keys in ascending order so that one map value
// has exactly one encoding.
func WriteMap[K cmp.Ordered, V any](w *StructWriter, field int, m map[K]V, encKey Encoder[K], encValue Encoder[V]) {
	if m == nil || w.err != nil {
		return
	}
	fd := w.variable(field)
	mt, ok := fd.Type.(mapType)
	if !ok {
		w.fail(fd, newError(KindConstraintViolation, "field is %s, not a map", fd.Type.TypeName()))
		return
	}
	if len(m) > mt.max {
		w.fail(fd, limitViolation("map count %d exceeds %d", len(m), mt.max))
		return
	}
	if !w.Begin(field) {
		return
	}
	keys := maps.Keys(m)
	slices.Sort(keys)
	// only NaN keys can compare equal after sorting
	for i := 1; i < len(keys); i++ {
		if cmp.Compare(keys[i-1], keys[i]) == 0 {
			w.fail(fd, newError(KindConstraintViolation, "map key %v has no unique order", keys[i]))
			return
		}
	}
	w.buf.AppendVarInt(int32(len(keys)))
	for _, k := range keys {
		if err := encKey(w.buf, k); err != nil {
			w.fail(fd, fmt.Errorf("key %v: %w", k, err))
			return
		}
		if err := encValue(w.buf, m[k]); err != nil {
			w.fail(fd, fmt.Errorf("value for %v: %w", k, err))
			return
		}
	}
}

// StringEncoder returns an encoder bounded by a String type's maximum.
func StringEncoder(t Type) Encoder[string] {
	max := MaxStringBytes
	if lp, ok := t.(lengthPrefixed); ok {
		max = lp.max
	}
	return func(buf *Buffer, s string) error {
		if len(s) > max {
			return limitViolation("string length %d exceeds %d", len(s), max)
		}
		buf.AppendString(s)
		return nil
	}
}

func EncodeInt32(buf *Buffer, v int32) error {
	buf.AppendInt32(v)
	return nil
}

func EncodeFloat32(buf *Buffer, v float32) error {
	buf.AppendFloat32(v)
	return nil
}

// EncodeMessage appends a Message using its own Serialize.
func EncodeMessage[T Message](buf *Buffer, v T) error {
	return v.Serialize(buf)
}
