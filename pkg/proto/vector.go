package proto

import "github.com/ssargent/wiredto/pkg/codec"

// Vector3fSize is the encoded size of a Vector3f.
const Vector3fSize = 12

var vector3fSchema = codec.NewSchema("Vector3f",
	codec.Required("X", codec.Float32),
	codec.Required("Y", codec.Float32),
	codec.Required("Z", codec.Float32),
)

// Vector3f is a position or direction in world space.
type Vector3f struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v Vector3f) Schema() *codec.Schema { return vector3fSchema }

func (v Vector3f) Serialize(buf *codec.Buffer) error {
	return v.writeAt(buf, buf.Grow(Vector3fSize))
}

func (v Vector3f) ComputeSize() int { return Vector3fSize }

func (v Vector3f) writeAt(buf *codec.Buffer, off int) error {
	w := codec.StructAt(buf, off, vector3fSchema)
	w.PutFloat32(0, v.X)
	w.PutFloat32(1, v.Y)
	w.PutFloat32(2, v.Z)
	return w.Finish()
}

func decodeVector3f(buf *codec.Buffer, off int) (Vector3f, int, error) {
	r, err := codec.OpenStruct(buf, off, vector3fSchema)
	if err != nil {
		return Vector3f{}, 0, err
	}
	v := Vector3f{X: r.Float32(0), Y: r.Float32(1), Z: r.Float32(2)}
	n, err := r.End()
	return v, n, err
}

func DeserializeVector3f(buf *codec.Buffer, off int) (Vector3f, error) {
	v, _, err := decodeVector3f(buf, off)
	return v, err
}

func ValidateVector3fStructure(buf *codec.Buffer, off int) codec.ValidationResult {
	return vector3fSchema.Validate(buf, off)
}

func Vector3fBytesConsumed(buf *codec.Buffer, off int) (int, error) {
	return vector3fSchema.BytesConsumed(buf, off)
}

// ColorSize is the encoded size of a Color.
const ColorSize = 3

var colorSchema = codec.NewSchema("Color",
	codec.Required("R", codec.Uint8),
	codec.Required("G", codec.Uint8),
	codec.Required("B", codec.Uint8),
)

// Color is an opaque 8-bit RGB color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c Color) Schema() *codec.Schema { return colorSchema }

func (c Color) Serialize(buf *codec.Buffer) error {
	return c.writeAt(buf, buf.Grow(ColorSize))
}

func (c Color) ComputeSize() int { return ColorSize }

func (c Color) writeAt(buf *codec.Buffer, off int) error {
	w := codec.StructAt(buf, off, colorSchema)
	w.PutUint8(0, c.R)
	w.PutUint8(1, c.G)
	w.PutUint8(2, c.B)
	return w.Finish()
}

func decodeColor(buf *codec.Buffer, off int) (Color, int, error) {
	r, err := codec.OpenStruct(buf, off, colorSchema)
	if err != nil {
		return Color{}, 0, err
	}
	c := Color{R: r.Uint8(0), G: r.Uint8(1), B: r.Uint8(2)}
	n, err := r.End()
	return c, n, err
}

func DeserializeColor(buf *codec.Buffer, off int) (Color, error) {
	c, _, err := decodeColor(buf, off)
	return c, err
}

func ValidateColorStructure(buf *codec.Buffer, off int) codec.ValidationResult {
	return colorSchema.Validate(buf, off)
}

func ColorBytesConsumed(buf *codec.Buffer, off int) (int, error) {
	return colorSchema.BytesConsumed(buf, off)
}
