package proto

import (
	"slices"

	"github.com/ssargent/wiredto/pkg/codec"
)

// MaxTrailPoints bounds Trail.Points.
const MaxTrailPoints = 1024

var trailSchema = codec.NewSchema("Trail",
	codec.Required("ID", codec.Int32),
	codec.Required("Width", codec.Float32),
	codec.Optional("Points", codec.Array(vector3fSchema, MaxTrailPoints)),
)

// Trail is a ribbon drawn through a sequence of points.
type Trail struct {
	ID     int32      `json:"id"`
	Width  float32    `json:"width"`
	Points []Vector3f `json:"points"`
}

func (t Trail) Schema() *codec.Schema { return trailSchema }

func (t Trail) Serialize(buf *codec.Buffer) error {
	w := codec.BeginStruct(buf, trailSchema)
	w.PutInt32(0, t.ID)
	w.PutFloat32(1, t.Width)
	codec.WriteArray(w, 2, t.Points, codec.EncodeMessage[Vector3f])
	return w.Finish()
}

func (t Trail) ComputeSize() int {
	size := trailSchema.FixedBlockSize()
	if t.Points != nil {
		size += codec.FixedArraySize(len(t.Points), Vector3fSize)
	}
	return size
}

func (t Trail) Clone() Trail {
	t.Points = slices.Clone(t.Points)
	return t
}

func decodeTrail(buf *codec.Buffer, off int) (Trail, int, error) {
	r, err := codec.OpenStruct(buf, off, trailSchema)
	if err != nil {
		return Trail{}, 0, err
	}
	t := Trail{ID: r.Int32(0), Width: r.Float32(1)}
	t.Points = codec.ReadArray(r, 2, decodeVector3f)
	n, err := r.End()
	return t, n, err
}

func DeserializeTrail(buf *codec.Buffer, off int) (Trail, error) {
	t, _, err := decodeTrail(buf, off)
	return t, err
}

func ValidateTrailStructure(buf *codec.Buffer, off int) codec.ValidationResult {
	return trailSchema.Validate(buf, off)
}

func TrailBytesConsumed(buf *codec.Buffer, off int) (int, error) {
	return trailSchema.BytesConsumed(buf, off)
}
