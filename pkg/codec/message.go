package codec

import "fmt"

// Message is implemented by every struct type carried on the wire.
//
// Values are single-owner: a decoded value belongs to the goroutine that
// decoded it, and a value being serialized must not be mutated
// concurrently. Hand a value to another goroutine through its Clone.
type Message interface {
	Schema() *Schema
	// Serialize appends the encoding to buf.
	Serialize(buf *Buffer) error
	// ComputeSize returns the exact number of bytes Serialize appends.
	ComputeSize() int
}

// Marshal serializes m into a new slice sized by ComputeSize.
func Marshal(m Message) ([]byte, error) {
	buf := NewBuffer(make([]byte, 0, m.ComputeSize()))
	if err := m.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StringSize is the encoded size of a nullable string field.
func StringSize(s *string) int {
	if s == nil {
		return 0
	}
	return VarIntSize(int32(len(*s))) + len(*s)
}

// BytesSize is the encoded size of a byte-string field; nil is absent.
func BytesSize(p []byte) int {
	if p == nil {
		return 0
	}
	return VarIntSize(int32(len(p))) + len(p)
}

// FixedArraySize is the encoded size of a present array of n fixed-size
// elements.
func FixedArraySize(n, elemSize int) int {
	return VarIntSize(int32(n)) + n*elemSize
}

// ArraySize is the encoded size of an array field; nil is absent.
func ArraySize[T any](items []T, size func(T) int) int {
	if items == nil {
		return 0
	}
	n := VarIntSize(int32(len(items)))
	for _, it := range items {
		n += size(it)
	}
	return n
}

// MessagesSize is ArraySize for Message elements.
func MessagesSize[T Message](items []T) int {
	return ArraySize(items, func(m T) int { return m.ComputeSize() })
}

// StringsSize is ArraySize for string elements.
func StringsSize(items []string) int {
	return ArraySize(items, func(s string) int { return VarIntSize(int32(len(s))) + len(s) })
}

// MapSize is the encoded size of a map field; nil is absent.
func MapSize[K comparable, V any](m map[K]V, keySize func(K) int, valueSize func(V) int) int {
	if m == nil {
		return 0
	}
	n := VarIntSize(int32(len(m)))
	for k, v := range m {
		n += keySize(k) + valueSize(v)
	}
	return n
}

// EnumTable maps the integers of a closed enum to its constants. Lookups
// are O(1) slice indexing.
type EnumTable[E ~uint8] struct {
	name   string
	names  []string
	values []E
}

// NewEnumTable declares an enum whose constants are 0..len(names)-1.
func NewEnumTable[E ~uint8](name string, names ...string) *EnumTable[E] {
	if len(names) == 0 || len(names) > 256 {
		panic(fmt.Sprintf("codec: enum %s: invalid constant count %d", name, len(names)))
	}
	t := &EnumTable[E]{name: name, names: names, values: make([]E, len(names))}
	for i := range names {
		t.values[i] = E(i)
	}
	return t
}

// FromValue returns the constant for v or an UndefinedEnumValue error.
func (t *EnumTable[E]) FromValue(v int) (E, error) {
	if v < 0 || v >= len(t.values) {
		return 0, &ProtocolError{Kind: KindUndefinedEnumValue, Type: t.name, Msg: fmt.Sprintf("no constant for value %d", v)}
	}
	return t.values[v], nil
}

// Lookup returns the constant with the given name.
func (t *EnumTable[E]) Lookup(name string) (E, bool) {
	for i, n := range t.names {
		if n == name {
			return t.values[i], true
		}
	}
	return 0, false
}

// Name returns the constant's declared name.
func (t *EnumTable[E]) Name(e E) string {
	if int(e) < len(t.names) {
		return t.names[e]
	}
	return fmt.Sprintf("%s(%d)", t.name, e)
}

// Count returns the number of constants.
func (t *EnumTable[E]) Count() int { return len(t.values) }

// Type returns the one-byte wire type for the enum.
func (t *EnumTable[E]) Type() Type { return Enum(t.name, len(t.values)) }
