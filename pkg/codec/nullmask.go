package codec

// MaskWidth returns the bytes needed for n presence bits.
func MaskWidth(n int) int {
	return (n + 7) / 8
}

// NullMask is a presence bitfield, one bit per nullable field in
// declaration order, least significant bit first within each byte.
type NullMask []byte

// Set marks field bit i as present.
func (m NullMask) Set(i int) {
	m[i>>3] |= 1 << uint(i&7)
}

// IsSet reports whether field bit i is present.
func (m NullMask) IsSet(i int) bool {
	return m[i>>3]&(1<<uint(i&7)) != 0
}

// Limits bounds what a decoder accepts from untrusted input. Each type
// also carries its own maxima; the smaller of the two applies.
type Limits struct {
	MaxStringBytes   int
	MaxCollectionLen int
	MaxDepth         int
}

const (
	// MaxStringBytes is the protocol-wide string ceiling.
	MaxStringBytes = 4096000
	// MaxCollectionLen is the protocol-wide array and map ceiling.
	MaxCollectionLen = 4096000
	// MaxDepth bounds schema nesting during validation.
	MaxDepth = 32
)

// DefaultLimits returns the protocol-wide defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxStringBytes:   MaxStringBytes,
		MaxCollectionLen: MaxCollectionLen,
		MaxDepth:         MaxDepth,
	}
}

// Clamp replaces non-positive fields with the defaults and caps the rest
// at the protocol-wide ceilings.
func (l Limits) Clamp() Limits {
	d := DefaultLimits()
	if l.MaxStringBytes <= 0 || l.MaxStringBytes > d.MaxStringBytes {
		l.MaxStringBytes = d.MaxStringBytes
	}
	if l.MaxCollectionLen <= 0 || l.MaxCollectionLen > d.MaxCollectionLen {
		l.MaxCollectionLen = d.MaxCollectionLen
	}
	if l.MaxDepth <= 0 || l.MaxDepth > d.MaxDepth {
		l.MaxDepth = d.MaxDepth
	}
	return l
}
