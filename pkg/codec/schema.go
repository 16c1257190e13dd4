package codec

import (
	"fmt"
)

// offsetSlotSize is the width of a variable field's offset in the fixed block.
const offsetSlotSize = 4

// absentOffset is written to the slot of an absent variable field.
const absentOffset = -1

// Field declares one schema field. Use Required or Optional.
type Field struct {
	Name     string
	Type     Type
	Optional bool
}

// Required declares a field that is always present. Variable-size types
// are located through the null mask regardless, so Required only affects
// fixed-size fields.
func Required(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

// Optional declares a nullable field with its own null-mask bit.
func Optional(name string, t Type) Field {
	return Field{Name: name, Type: t, Optional: true}
}

// FieldDescriptor is a field's resolved position in the layout.
type FieldDescriptor struct {
	Name     string
	Type     Type
	Index    int
	Nullable bool // has a null-mask bit
	Variable bool // stored in the variable block through an offset slot
	Bit      int  // null-mask bit, -1 if none
	Pos      int  // byte position in the fixed block
	Width    int  // inline width, or the offset slot width
}

// Schema is the layout of one struct type, derived from its field list
// alone. Schemas are immutable once built and safe to share.
type Schema struct {
	name      string
	fields    []FieldDescriptor
	byName    map[string]int
	maskWidth int
	fixedSize int
	maxSize   int
	variable  []int
	checked   bool
}

// NewSchema lays out fields in declaration order: the null mask first,
// then each field inline or as an offset slot. It panics on an invalid
// declaration, which is a programming error caught at init.
func NewSchema(name string, fields ...Field) *Schema {
	s := &Schema{name: name, byName: make(map[string]int, len(fields))}

	bits := 0
	for _, f := range fields {
		if f.Type == nil {
			panic(fmt.Sprintf("codec: schema %s: field %s has no type", name, f.Name))
		}
		if _, dup := s.byName[f.Name]; dup {
			panic(fmt.Sprintf("codec: schema %s: duplicate field %s", name, f.Name))
		}
		_, fixed := f.Type.FixedSize()
		if f.Optional || !fixed {
			bits++
		}
		s.byName[f.Name] = len(s.byName)
	}
	s.maskWidth = MaskWidth(bits)

	pos, bit := s.maskWidth, 0
	for i, f := range fields {
		fd := FieldDescriptor{Name: f.Name, Type: f.Type, Index: i, Bit: -1, Pos: pos}
		size, fixed := f.Type.FixedSize()
		if f.Optional || !fixed {
			fd.Nullable = true
			fd.Bit = bit
			bit++
		}
		if fixed {
			fd.Width = size
			if needsCheck(f.Type) {
				s.checked = true
			}
		} else {
			fd.Variable = true
			fd.Width = offsetSlotSize
			s.variable = append(s.variable, i)
		}
		pos += fd.Width
		s.fields = append(s.fields, fd)
	}
	s.fixedSize = pos

	s.maxSize = s.fixedSize
	for _, i := range s.variable {
		s.maxSize = addSat(s.maxSize, s.fields[i].Type.MaxSize())
	}
	return s
}

func (s *Schema) Name() string     { return s.name }
func (s *Schema) TypeName() string { return s.name }

// FixedBlockSize is the size of the mask plus all inline fields and slots.
func (s *Schema) FixedBlockSize() int { return s.fixedSize }

// MaskWidth is the size of the null mask in bytes.
func (s *Schema) MaskWidth() int { return s.maskWidth }

// MaxSize is the largest legal encoding, used as a denial-of-service bound.
func (s *Schema) MaxSize() int { return s.maxSize }

// FixedSize reports the size of schemas without variable fields.
func (s *Schema) FixedSize() (int, bool) {
	return s.fixedSize, len(s.variable) == 0
}

// Fields returns the field descriptors in declaration order.
func (s *Schema) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks a descriptor up by name.
func (s *Schema) Field(name string) (FieldDescriptor, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.fields[i], true
}

// Validate checks that buf holds a well-formed instance at off using the
// default limits. It never panics and allocates nothing per field.
func (s *Schema) Validate(buf *Buffer, off int) ValidationResult {
	return s.ValidateWith(buf, off, DefaultLimits())
}

// ValidateWith is Validate under caller-supplied limits.
func (s *Schema) ValidateWith(buf *Buffer, off int, limits Limits) ValidationResult {
	if _, err := s.measure(measurer{buf: buf, limits: limits.Clamp()}, off); err != nil {
		return Invalid(err)
	}
	return Valid()
}

// BytesConsumed returns the size of the instance encoded at off.
func (s *Schema) BytesConsumed(buf *Buffer, off int) (int, error) {
	return s.measure(measurer{buf: buf, limits: DefaultLimits()}, off)
}

func (s *Schema) measure(m measurer, off int) (int, error) {
	if m.depth > m.limits.MaxDepth {
		return 0, &ProtocolError{Kind: KindLengthLimitExceeded, Type: s.name,
			Msg: fmt.Sprintf("nesting depth exceeds %d", m.limits.MaxDepth)}
	}
	if err := m.buf.check(off, s.fixedSize); err != nil {
		return 0, annotate(err, s.name, "")
	}
	mask := NullMask(m.buf.b[off : off+s.maskWidth])

	if s.checked {
		child := m.child()
		for _, fd := range s.fields {
			if fd.Variable || !needsCheck(fd.Type) || (fd.Nullable && !mask.IsSet(fd.Bit)) {
				continue
			}
			if _, err := fd.Type.measure(child, off+fd.Pos); err != nil {
				return 0, annotate(err, s.name, fd.Name)
			}
		}
	}

	base := off + s.fixedSize
	var local [8]span
	spans := local[:0]
	end := 0
	for _, i := range s.variable {
		fd := &s.fields[i]
		if !mask.IsSet(fd.Bit) {
			continue
		}
		at, err := s.locate(m.buf, off, base, fd)
		if err != nil {
			return 0, err
		}
		n, err := fd.Type.measure(m.child(), at)
		if err != nil {
			return 0, annotate(err, s.name, fd.Name)
		}
		if spans, err = claim(spans, at-base, n); err != nil {
			return 0, annotate(err, s.name, fd.Name)
		}
		end = max(end, at-base+n)
	}
	return s.fixedSize + end, nil
}

// locate resolves a present variable field's absolute offset from its
// slot. Offsets are relative to the variable block; fields may sit
// anywhere in it as long as they do not overlap.
func (s *Schema) locate(buf *Buffer, off, base int, fd *FieldDescriptor) (int, error) {
	slot, err := buf.Int32(off + fd.Pos)
	if err != nil {
		return 0, annotate(err, s.name, fd.Name)
	}
	if slot < 0 || int(slot) >= buf.ReadableBytes(base) {
		return 0, &ProtocolError{Kind: KindMalformedOffset, Type: s.name, Field: fd.Name,
			Msg: fmt.Sprintf("offset %d outside variable block of %d bytes", slot, buf.ReadableBytes(base))}
	}
	return base + int(slot), nil
}

// span is the extent of one variable field, relative to the variable block.
type span struct{ start, end int }

// claim records the n bytes at start and rejects them if they overlap a
// field already placed.
func claim(spans []span, start, n int) ([]span, error) {
	sp := span{start: start, end: start + n}
	for _, o := range spans {
		if sp.start < o.end && o.start < sp.end {
			return spans, newError(KindMalformedOffset, "bytes [%d,%d) overlap another field at [%d,%d)", sp.start, sp.end, o.start, o.end)
		}
	}
	return append(spans, sp), nil
}
