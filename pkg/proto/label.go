package proto

import "github.com/ssargent/wiredto/pkg/codec"

// MaxLabelNameBytes bounds AssetLabel.Name.
const MaxLabelNameBytes = codec.MaxStringBytes

var assetLabelSchema = codec.NewSchema("AssetLabel",
	codec.Required("Weight", codec.Int32),
	codec.Optional("Name", codec.String(MaxLabelNameBytes)),
)

// AssetLabel is a weighted, optionally named tag on a model asset.
type AssetLabel struct {
	Weight int32   `json:"weight"`
	Name   *string `json:"name,omitempty"`
}

func (l AssetLabel) Schema() *codec.Schema { return assetLabelSchema }

func (l AssetLabel) Serialize(buf *codec.Buffer) error {
	w := codec.BeginStruct(buf, assetLabelSchema)
	w.PutInt32(0, l.Weight)
	w.PutString(1, l.Name)
	return w.Finish()
}

func (l AssetLabel) ComputeSize() int {
	return assetLabelSchema.FixedBlockSize() + codec.StringSize(l.Name)
}

func (l AssetLabel) Clone() AssetLabel {
	l.Name = cloneString(l.Name)
	return l
}

func decodeAssetLabel(buf *codec.Buffer, off int) (AssetLabel, int, error) {
	r, err := codec.OpenStruct(buf, off, assetLabelSchema)
	if err != nil {
		return AssetLabel{}, 0, err
	}
	l := AssetLabel{Weight: r.Int32(0), Name: r.String(1)}
	n, err := r.End()
	return l, n, err
}

func DeserializeAssetLabel(buf *codec.Buffer, off int) (AssetLabel, error) {
	l, _, err := decodeAssetLabel(buf, off)
	return l, err
}

func ValidateAssetLabelStructure(buf *codec.Buffer, off int) codec.ValidationResult {
	return assetLabelSchema.Validate(buf, off)
}

func AssetLabelBytesConsumed(buf *codec.Buffer, off int) (int, error) {
	return assetLabelSchema.BytesConsumed(buf, off)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
