package proto

import "github.com/ssargent/wiredto/pkg/codec"

// TintMode selects how a fog color is combined with scene lighting.
type TintMode uint8

const (
	TintModeColor TintMode = iota
	TintModeColorLight
	TintModeEnvironmentTint
)

var tintModes = codec.NewEnumTable[TintMode]("TintMode", "Color", "ColorLight", "EnvironmentTint")

// Value returns the integer carried on the wire.
func (m TintMode) Value() int { return int(m) }

func (m TintMode) String() string { return tintModes.Name(m) }

// TintModeFromValue maps a wire integer to its constant.
func TintModeFromValue(v int) (TintMode, error) {
	return tintModes.FromValue(v)
}

func (m TintMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TintMode) UnmarshalText(text []byte) error {
	v, ok := tintModes.Lookup(string(text))
	if !ok {
		return &codec.ProtocolError{Kind: codec.KindUndefinedEnumValue, Type: "TintMode", Msg: "no constant named " + string(text)}
	}
	*m = v
	return nil
}
