package proto

import "github.com/ssargent/wiredto/pkg/codec"

// FluidFogSize is the encoded size of a FluidFog.
const FluidFogSize = 17

var fluidFogSchema = codec.NewSchema("FluidFog",
	codec.Optional("Color", colorSchema),
	codec.Required("Mode", tintModes.Type()),
	codec.Required("Density", codec.Float32),
	codec.Required("Start", codec.Float32),
	codec.Required("End", codec.Float32),
)

// FluidFog describes fog inside a fluid volume. It is fixed size: an
// absent Color still occupies its three bytes, zero filled.
type FluidFog struct {
	Color   *Color   `json:"color,omitempty"`
	Mode    TintMode `json:"mode"`
	Density float32  `json:"density"`
	Start   float32  `json:"start"`
	End     float32  `json:"end"`
}

func (f FluidFog) Schema() *codec.Schema { return fluidFogSchema }

func (f FluidFog) Serialize(buf *codec.Buffer) error {
	return f.writeAt(buf, buf.Grow(FluidFogSize))
}

func (f FluidFog) ComputeSize() int { return FluidFogSize }

func (f FluidFog) writeAt(buf *codec.Buffer, off int) error {
	w := codec.StructAt(buf, off, fluidFogSchema)
	if f.Color != nil {
		w.Nested(0, f.Color.writeAt)
	}
	w.PutEnum(1, uint8(f.Mode))
	w.PutFloat32(2, f.Density)
	w.PutFloat32(3, f.Start)
	w.PutFloat32(4, f.End)
	return w.Finish()
}

// Clone returns a copy that shares nothing with f.
func (f FluidFog) Clone() FluidFog {
	if f.Color != nil {
		c := *f.Color
		f.Color = &c
	}
	return f
}

func decodeFluidFog(buf *codec.Buffer, off int) (FluidFog, int, error) {
	r, err := codec.OpenStruct(buf, off, fluidFogSchema)
	if err != nil {
		return FluidFog{}, 0, err
	}
	var f FluidFog
	if c, ok := codec.ReadFixed(r, 0, decodeColor); ok {
		f.Color = &c
	}
	f.Mode = TintMode(r.Enum(1))
	f.Density = r.Float32(2)
	f.Start = r.Float32(3)
	f.End = r.Float32(4)
	n, err := r.End()
	return f, n, err
}

func DeserializeFluidFog(buf *codec.Buffer, off int) (FluidFog, error) {
	f, _, err := decodeFluidFog(buf, off)
	return f, err
}

func ValidateFluidFogStructure(buf *codec.Buffer, off int) codec.ValidationResult {
	return fluidFogSchema.Validate(buf, off)
}

func FluidFogBytesConsumed(buf *codec.Buffer, off int) (int, error) {
	return fluidFogSchema.BytesConsumed(buf, off)
}
