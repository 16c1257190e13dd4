package proto

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/exp/maps"

	"github.com/ssargent/wiredto/pkg/codec"
)

// Interaction type ids as carried on the wire.
const (
	SimpleInteractionType   int32 = 0
	RepeatInteractionType   int32 = 1
	ChargingInteractionType int32 = 2
)

// NoInteraction is the link value for "no next step".
const NoInteraction int32 = -1

const MaxChainInteractions = 4096

var simpleInteractionSchema = codec.NewSchema("SimpleInteraction",
	codec.Required("Next", codec.Int32),
	codec.Required("Failed", codec.Int32),
	codec.Required("RunTime", codec.Float32),
	codec.Optional("Effect", codec.String(0)),
)

var repeatInteractionSchema = codec.NewSchema("RepeatInteraction",
	codec.Required("Next", codec.Int32),
	codec.Required("Failed", codec.Int32),
	codec.Required("Body", codec.Int32),
	codec.Required("Repeat", codec.Int32),
)

var chargingInteractionSchema = codec.NewSchema("ChargingInteraction",
	codec.Required("Next", codec.Int32),
	codec.Required("Failed", codec.Int32),
	codec.Required("AllowIndefiniteHold", codec.Bool),
	codec.Required("DisplayProgress", codec.Bool),
	codec.Optional("ChargedNext", codec.Map(codec.Float32, codec.Int32, 64)),
)

var interactionUnion = codec.Union("Interaction", map[int32]*codec.Schema{
	SimpleInteractionType:   simpleInteractionSchema,
	RepeatInteractionType:   repeatInteractionSchema,
	ChargingInteractionType: chargingInteractionSchema,
})

// Interaction is one node of an interaction chain. The set of
// implementations is closed; the wire carries TypeID ahead of the
// variant's own encoding.
//
// Links are indices into the owning chain's Interactions, or
// NoInteraction.
type Interaction interface {
	codec.Message
	TypeID() int32
	Links() []int32
	CloneInteraction() Interaction
	isInteraction()
}

// SimpleInteraction runs once and moves on.
type SimpleInteraction struct {
	Next    int32   `json:"next"`
	Failed  int32   `json:"failed"`
	RunTime float32 `json:"runTime"`
	Effect  *string `json:"effect,omitempty"`
}

func (s SimpleInteraction) Schema() *codec.Schema { return simpleInteractionSchema }
func (s SimpleInteraction) TypeID() int32         { return SimpleInteractionType }
func (s SimpleInteraction) Links() []int32        { return []int32{s.Next, s.Failed} }
func (SimpleInteraction) isInteraction()          {}

func (s SimpleInteraction) Serialize(buf *codec.Buffer) error {
	w := codec.BeginStruct(buf, simpleInteractionSchema)
	w.PutInt32(0, s.Next)
	w.PutInt32(1, s.Failed)
	w.PutFloat32(2, s.RunTime)
	w.PutString(3, s.Effect)
	return w.Finish()
}

func (s SimpleInteraction) ComputeSize() int {
	return simpleInteractionSchema.FixedBlockSize() + codec.StringSize(s.Effect)
}

func (s SimpleInteraction) Clone() SimpleInteraction {
	s.Effect = cloneString(s.Effect)
	return s
}

func (s SimpleInteraction) CloneInteraction() Interaction { return s.Clone() }

func decodeSimpleInteraction(buf *codec.Buffer, off int) (SimpleInteraction, int, error) {
	r, err := codec.OpenStruct(buf, off, simpleInteractionSchema)
	if err != nil {
		return SimpleInteraction{}, 0, err
	}
	s := SimpleInteraction{
		Next:    r.Int32(0),
		Failed:  r.Int32(1),
		RunTime: r.Float32(2),
		Effect:  r.String(3),
	}
	n, err := r.End()
	return s, n, err
}

// RepeatInteraction runs Body Repeat times before following Next.
type RepeatInteraction struct {
	Next   int32 `json:"next"`
	Failed int32 `json:"failed"`
	Body   int32 `json:"body"`
	Repeat int32 `json:"repeat"`
}

func (r RepeatInteraction) Schema() *codec.Schema        { return repeatInteractionSchema }
func (r RepeatInteraction) TypeID() int32                { return RepeatInteractionType }
func (r RepeatInteraction) Links() []int32               { return []int32{r.Next, r.Failed, r.Body} }
func (r RepeatInteraction) ComputeSize() int             { return repeatInteractionSchema.FixedBlockSize() }
func (r RepeatInteraction) CloneInteraction() Interaction { return r }
func (RepeatInteraction) isInteraction()                 {}

func (r RepeatInteraction) Serialize(buf *codec.Buffer) error {
	w := codec.BeginStruct(buf, repeatInteractionSchema)
	w.PutInt32(0, r.Next)
	w.PutInt32(1, r.Failed)
	w.PutInt32(2, r.Body)
	w.PutInt32(3, r.Repeat)
	return w.Finish()
}

func decodeRepeatInteraction(buf *codec.Buffer, off int) (RepeatInteraction, int, error) {
	sr, err := codec.OpenStruct(buf, off, repeatInteractionSchema)
	if err != nil {
		return RepeatInteraction{}, 0, err
	}
	r := RepeatInteraction{
		Next:   sr.Int32(0),
		Failed: sr.Int32(1),
		Body:   sr.Int32(2),
		Repeat: sr.Int32(3),
	}
	n, err := sr.End()
	return r, n, err
}

// ChargingInteraction is held down; ChargedNext picks the next step by the
// charge time reached, in seconds.
type ChargingInteraction struct {
	Next                int32             `json:"next"`
	Failed              int32             `json:"failed"`
	AllowIndefiniteHold bool              `json:"allowIndefiniteHold"`
	DisplayProgress     bool              `json:"displayProgress"`
	ChargedNext         map[float32]int32 `json:"chargedNext,omitempty"`
}

func (c ChargingInteraction) Schema() *codec.Schema { return chargingInteractionSchema }
func (c ChargingInteraction) TypeID() int32         { return ChargingInteractionType }
func (ChargingInteraction) isInteraction()          {}

func (c ChargingInteraction) Links() []int32 {
	links := []int32{c.Next, c.Failed}
	return append(links, maps.Values(c.ChargedNext)...)
}

func (c ChargingInteraction) Serialize(buf *codec.Buffer) error {
	w := codec.BeginStruct(buf, chargingInteractionSchema)
	w.PutInt32(0, c.Next)
	w.PutInt32(1, c.Failed)
	w.PutBool(2, c.AllowIndefiniteHold)
	w.PutBool(3, c.DisplayProgress)
	codec.WriteMap(w, 4, c.ChargedNext, codec.EncodeFloat32, codec.EncodeInt32)
	return w.Finish()
}

func (c ChargingInteraction) ComputeSize() int {
	return chargingInteractionSchema.FixedBlockSize() +
		codec.MapSize(c.ChargedNext, func(float32) int { return 4 }, func(int32) int { return 4 })
}

func (c ChargingInteraction) Clone() ChargingInteraction {
	c.ChargedNext = maps.Clone(c.ChargedNext)
	return c
}

func (c ChargingInteraction) CloneInteraction() Interaction { return c.Clone() }

// MarshalJSON writes ChargedNext with its charge times as string keys.
func (c ChargingInteraction) MarshalJSON() ([]byte, error) {
	type plain ChargingInteraction
	out := struct {
		plain
		ChargedNext map[string]int32 `json:"chargedNext,omitempty"`
	}{plain: plain(c)}
	if c.ChargedNext != nil {
		out.ChargedNext = make(map[string]int32, len(c.ChargedNext))
		for k, v := range c.ChargedNext {
			out.ChargedNext[strconv.FormatFloat(float64(k), 'g', -1, 32)] = v
		}
	}
	return json.Marshal(out)
}

func decodeChargingInteraction(buf *codec.Buffer, off int) (ChargingInteraction, int, error) {
	r, err := codec.OpenStruct(buf, off, chargingInteractionSchema)
	if err != nil {
		return ChargingInteraction{}, 0, err
	}
	c := ChargingInteraction{
		Next:                r.Int32(0),
		Failed:              r.Int32(1),
		AllowIndefiniteHold: r.Bool(2),
		DisplayProgress:     r.Bool(3),
	}
	c.ChargedNext = codec.ReadMap(r, 4, codec.DecodeFloat32, codec.DecodeInt32)
	n, err := r.End()
	return c, n, err
}

// encodeInteraction writes the type id and then the variant.
func encodeInteraction(buf *codec.Buffer, it Interaction) error {
	if it == nil {
		return &codec.ProtocolError{Kind: codec.KindConstraintViolation, Type: "Interaction", Msg: "nil interaction"}
	}
	buf.AppendVarInt(it.TypeID())
	return it.Serialize(buf)
}

func interactionSize(it Interaction) int {
	if it == nil {
		return 0
	}
	return codec.VarIntSize(it.TypeID()) + it.ComputeSize()
}

// decodeInteraction dispatches on the type id.
func decodeInteraction(buf *codec.Buffer, off int) (Interaction, int, error) {
	id, k, err := interactionUnion.Tag(buf, off)
	if err != nil {
		return nil, 0, err
	}
	var (
		it Interaction
		n  int
	)
	switch id {
	case SimpleInteractionType:
		var v SimpleInteraction
		v, n, err = decodeSimpleInteraction(buf, off+k)
		it = v
	case RepeatInteractionType:
		var v RepeatInteraction
		v, n, err = decodeRepeatInteraction(buf, off+k)
		it = v
	case ChargingInteractionType:
		var v ChargingInteraction
		v, n, err = decodeChargingInteraction(buf, off+k)
		it = v
	default:
		// Tag only returns registered ids
		return nil, 0, fmt.Errorf("interaction type %d has no decoder", id)
	}
	if err != nil {
		return nil, 0, err
	}
	return it, k + n, nil
}

// DeserializeInteraction reads a tagged interaction at off.
func DeserializeInteraction(buf *codec.Buffer, off int) (Interaction, error) {
	it, _, err := decodeInteraction(buf, off)
	return it, err
}

// InteractionName returns the variant name for a type id.
func InteractionName(id int32) string {
	if s, ok := interactionUnion.Variant(id); ok {
		return s.Name()
	}
	return fmt.Sprintf("Interaction(%d)", id)
}

var interactionChainSchema = codec.NewSchema("InteractionChain",
	codec.Optional("Name", codec.String(0)),
	codec.Required("Root", codec.Int32),
	codec.Optional("Interactions", codec.Array(interactionUnion, MaxChainInteractions)),
)

// InteractionChain is an arena of interactions linked by index. Root is
// the entry point.
type InteractionChain struct {
	Name         *string       `json:"name,omitempty"`
	Root         int32         `json:"root"`
	Interactions []Interaction `json:"interactions,omitempty"`
}

func (c InteractionChain) Schema() *codec.Schema { return interactionChainSchema }

// Serialize refuses chains whose links point outside the arena.
func (c InteractionChain) Serialize(buf *codec.Buffer) error {
	if err := c.Verify(); err != nil {
		return err
	}
	w := codec.BeginStruct(buf, interactionChainSchema)
	w.PutString(0, c.Name)
	w.PutInt32(1, c.Root)
	codec.WriteArray(w, 2, c.Interactions, encodeInteraction)
	return w.Finish()
}

func (c InteractionChain) ComputeSize() int {
	return interactionChainSchema.FixedBlockSize() +
		codec.StringSize(c.Name) +
		codec.ArraySize(c.Interactions, interactionSize)
}

// Verify checks that Root and every link index an interaction in the
// chain or are NoInteraction.
func (c InteractionChain) Verify() error {
	n := int32(len(c.Interactions))
	check := func(where string, link int32) error {
		if link == NoInteraction || (link >= 0 && link < n) {
			return nil
		}
		return &codec.ProtocolError{Kind: codec.KindConstraintViolation, Type: "InteractionChain", Field: where,
			Msg: fmt.Sprintf("link %d outside %d interactions", link, n)}
	}
	if err := check("Root", c.Root); err != nil {
		return err
	}
	for i, it := range c.Interactions {
		if it == nil {
			return &codec.ProtocolError{Kind: codec.KindConstraintViolation, Type: "InteractionChain", Field: "Interactions",
				Msg: fmt.Sprintf("interaction %d is nil", i)}
		}
		for _, link := range it.Links() {
			if err := check(fmt.Sprintf("Interactions[%d]", i), link); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the chain and every interaction in it.
func (c InteractionChain) Clone() InteractionChain {
	c.Name = cloneString(c.Name)
	if c.Interactions != nil {
		its := make([]Interaction, len(c.Interactions))
		for i, it := range c.Interactions {
			if it != nil {
				its[i] = it.CloneInteraction()
			}
		}
		c.Interactions = its
	}
	return c
}

type taggedInteraction struct {
	Type  string      `json:"type"`
	Value Interaction `json:"value"`
}

// MarshalJSON tags each interaction with its variant name.
func (c InteractionChain) MarshalJSON() ([]byte, error) {
	out := struct {
		Name         *string             `json:"name,omitempty"`
		Root         int32               `json:"root"`
		Interactions []taggedInteraction `json:"interactions,omitempty"`
	}{Name: c.Name, Root: c.Root}
	for _, it := range c.Interactions {
		out.Interactions = append(out.Interactions, taggedInteraction{Type: InteractionName(it.TypeID()), Value: it})
	}
	return json.Marshal(out)
}

func decodeInteractionChain(buf *codec.Buffer, off int) (InteractionChain, int, error) {
	r, err := codec.OpenStruct(buf, off, interactionChainSchema)
	if err != nil {
		return InteractionChain{}, 0, err
	}
	c := InteractionChain{Name: r.String(0), Root: r.Int32(1)}
	c.Interactions = codec.ReadArray(r, 2, decodeInteraction)
	n, err := r.End()
	return c, n, err
}

// DeserializeInteractionChain decodes a chain. Links are not checked; call
// Verify before walking the graph.
func DeserializeInteractionChain(buf *codec.Buffer, off int) (InteractionChain, error) {
	c, _, err := decodeInteractionChain(buf, off)
	return c, err
}

func ValidateInteractionChainStructure(buf *codec.Buffer, off int) codec.ValidationResult {
	return interactionChainSchema.Validate(buf, off)
}

func InteractionChainBytesConsumed(buf *codec.Buffer, off int) (int, error) {
	return interactionChainSchema.BytesConsumed(buf, off)
}
