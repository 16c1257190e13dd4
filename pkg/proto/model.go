package proto

import (
	"slices"

	"golang.org/x/exp/maps"

	"github.com/ssargent/wiredto/pkg/codec"
)

const (
	MaxModelLabels     = 64
	MaxModelTextures   = 32
	MaxModelAttributes = 256
)

var (
	modelIDType        = codec.String(0)
	textureType        = codec.String(1024)
	attributeKeyType   = codec.String(256)
	modelAttributeType = codec.Map(attributeKeyType, codec.Float32, MaxModelAttributes)
)

var modelAssetSchema = codec.NewSchema("ModelAsset",
	codec.Optional("ID", modelIDType),
	codec.Required("Scale", codec.Float32),
	codec.Optional("Fog", fluidFogSchema),
	codec.Required("Offset", vector3fSchema),
	codec.Optional("Labels", codec.Array(assetLabelSchema, MaxModelLabels)),
	codec.Optional("Textures", codec.Array(textureType, MaxModelTextures)),
	codec.Optional("Attributes", modelAttributeType),
	codec.Optional("Trail", trailSchema),
)

// ModelAsset is a renderable model with its labels, textures and effects.
type ModelAsset struct {
	ID         *string            `json:"id,omitempty"`
	Scale      float32            `json:"scale"`
	Fog        *FluidFog          `json:"fog,omitempty"`
	Offset     Vector3f           `json:"offset"`
	Labels     []AssetLabel       `json:"labels,omitempty"`
	Textures   []string           `json:"textures,omitempty"`
	Attributes map[string]float32 `json:"attributes,omitempty"`
	Trail      *Trail             `json:"trail,omitempty"`
}

func (m ModelAsset) Schema() *codec.Schema { return modelAssetSchema }

func (m ModelAsset) Serialize(buf *codec.Buffer) error {
	w := codec.BeginStruct(buf, modelAssetSchema)
	w.PutString(0, m.ID)
	w.PutFloat32(1, m.Scale)
	if m.Fog != nil {
		w.Nested(2, m.Fog.writeAt)
	}
	w.Nested(3, m.Offset.writeAt)
	codec.WriteArray(w, 4, m.Labels, codec.EncodeMessage[AssetLabel])
	codec.WriteStrings(w, 5, m.Textures)
	codec.WriteMap(w, 6, m.Attributes, codec.StringEncoder(attributeKeyType), codec.EncodeFloat32)
	if m.Trail != nil {
		codec.PutValue(w, 7, true, *m.Trail, codec.EncodeMessage[Trail])
	}
	return w.Finish()
}

func (m ModelAsset) ComputeSize() int {
	size := modelAssetSchema.FixedBlockSize() +
		codec.StringSize(m.ID) +
		codec.MessagesSize(m.Labels) +
		codec.StringsSize(m.Textures) +
		codec.MapSize(m.Attributes, keySize, func(float32) int { return 4 })
	if m.Trail != nil {
		size += m.Trail.ComputeSize()
	}
	return size
}

func keySize(k string) int {
	return codec.StringSize(&k)
}

// Clone returns a deep copy; no slice, map or pointer is shared with m.
func (m ModelAsset) Clone() ModelAsset {
	m.ID = cloneString(m.ID)
	if m.Fog != nil {
		f := m.Fog.Clone()
		m.Fog = &f
	}
	if m.Labels != nil {
		labels := make([]AssetLabel, len(m.Labels))
		for i, l := range m.Labels {
			labels[i] = l.Clone()
		}
		m.Labels = labels
	}
	m.Textures = slices.Clone(m.Textures)
	m.Attributes = maps.Clone(m.Attributes)
	if m.Trail != nil {
		t := m.Trail.Clone()
		m.Trail = &t
	}
	return m
}

func decodeModelAsset(buf *codec.Buffer, off int) (ModelAsset, int, error) {
	r, err := codec.OpenStruct(buf, off, modelAssetSchema)
	if err != nil {
		return ModelAsset{}, 0, err
	}
	m := ModelAsset{ID: r.String(0), Scale: r.Float32(1)}
	if fog, ok := codec.ReadFixed(r, 2, decodeFluidFog); ok {
		m.Fog = &fog
	}
	m.Offset, _ = codec.ReadFixed(r, 3, decodeVector3f)
	m.Labels = codec.ReadArray(r, 4, decodeAssetLabel)
	m.Textures = codec.ReadStrings(r, 5)
	m.Attributes = codec.ReadMap(r, 6, codec.StringDecoder(attributeKeyType), codec.DecodeFloat32)
	if t, ok := codec.ReadValue(r, 7, decodeTrail); ok {
		m.Trail = &t
	}
	n, err := r.End()
	return m, n, err
}

func DeserializeModelAsset(buf *codec.Buffer, off int) (ModelAsset, error) {
	m, _, err := decodeModelAsset(buf, off)
	return m, err
}

func ValidateModelAssetStructure(buf *codec.Buffer, off int) codec.ValidationResult {
	return modelAssetSchema.Validate(buf, off)
}

func ModelAssetBytesConsumed(buf *codec.Buffer, off int) (int, error) {
	return modelAssetSchema.BytesConsumed(buf, off)
}
