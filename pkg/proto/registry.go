package proto

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/ssargent/wiredto/pkg/codec"
)

// Descriptor describes one registered wire type.
type Descriptor struct {
	Name   string
	Schema *codec.Schema
	// Decode reads one value at off and returns it with the bytes used.
	Decode func(buf *codec.Buffer, off int) (codec.Message, int, error)
	// Sample returns a representative value, used by tooling and tests.
	Sample func() codec.Message
}

// Validate runs the schema's structural check under limits.
func (d Descriptor) Validate(buf *codec.Buffer, off int, limits codec.Limits) codec.ValidationResult {
	return d.Schema.ValidateWith(buf, off, limits)
}

// ErrTrailingData marks a payload with bytes after the encoded value.
var ErrTrailingData = errors.New("proto: trailing data after value")

// CheckPayload reports whether payload holds exactly one well-formed value
// of the type under limits.
func (d Descriptor) CheckPayload(payload []byte, limits codec.Limits) error {
	buf := codec.NewBuffer(payload)
	if res := d.Validate(buf, 0, limits); !res.OK {
		return res.Err()
	}
	n, err := d.Schema.BytesConsumed(buf, 0)
	if err != nil {
		return err
	}
	if n != len(payload) {
		return fmt.Errorf("%w: %s uses %d of %d bytes", ErrTrailingData, d.Name, n, len(payload))
	}
	return nil
}

// ErrUnknownType is returned for names with no registered descriptor.
var ErrUnknownType = errors.New("proto: unknown type")

// Resolve is Lookup returning ErrUnknownType for unregistered names.
func Resolve(name string) (Descriptor, error) {
	d, ok := registry[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return d, nil
}

func describe[T codec.Message](dec codec.Decoder[T], sample func() T) Descriptor {
	s := sample().Schema()
	return Descriptor{
		Name:   s.Name(),
		Schema: s,
		Decode: func(buf *codec.Buffer, off int) (codec.Message, int, error) {
			v, n, err := dec(buf, off)
			if err != nil {
				return nil, 0, err
			}
			return v, n, nil
		},
		Sample: func() codec.Message { return sample() },
	}
}

var registry = func() map[string]Descriptor {
	descs := []Descriptor{
		describe(decodeVector3f, sampleVector3f),
		describe(decodeColor, sampleColor),
		describe(decodeFluidFog, sampleFluidFog),
		describe(decodeAssetLabel, sampleAssetLabel),
		describe(decodeTrail, sampleTrail),
		describe(decodeModelAsset, sampleModelAsset),
		describe(decodeSimpleInteraction, func() SimpleInteraction { return sampleSimpleInteraction(1, NoInteraction) }),
		describe(decodeRepeatInteraction, func() RepeatInteraction { return RepeatInteraction{Next: NoInteraction, Failed: NoInteraction, Body: 0, Repeat: 3} }),
		describe(decodeChargingInteraction, sampleChargingInteraction),
		describe(decodeInteractionChain, sampleInteractionChain),
	}
	m := make(map[string]Descriptor, len(descs))
	for _, d := range descs {
		if _, dup := m[d.Name]; dup {
			panic(fmt.Sprintf("proto: duplicate type %s", d.Name))
		}
		m[d.Name] = d
	}
	return m
}()

// Lookup returns the descriptor registered under name.
func Lookup(name string) (Descriptor, bool) {
	d, ok := registry[name]
	return d, ok
}

// Names returns the registered type names in sorted order.
func Names() []string {
	names := maps.Keys(registry)
	slices.Sort(names)
	return names
}

// Descriptors returns every descriptor, sorted by name.
func Descriptors() []Descriptor {
	names := Names()
	out := make([]Descriptor, len(names))
	for i, n := range names {
		out[i] = registry[n]
	}
	return out
}

func sampleVector3f() Vector3f { return Vector3f{X: 1, Y: 2, Z: 3} }

func sampleColor() Color { return Color{R: 200, G: 120, B: 40} }

func sampleFluidFog() FluidFog {
	c := sampleColor()
	return FluidFog{Color: &c, Mode: TintModeColorLight, Density: 0.4, Start: 1, End: 24}
}

func sampleAssetLabel() AssetLabel {
	name := "abc"
	return AssetLabel{Weight: 10, Name: &name}
}

func sampleTrail() Trail {
	return Trail{ID: 7, Width: 0.25, Points: []Vector3f{{X: 0, Y: 1, Z: 0}, {X: 4, Y: 1, Z: -2}}}
}

func sampleModelAsset() ModelAsset {
	id := "model:lantern"
	fog := sampleFluidFog()
	trail := sampleTrail()
	plain := "plain"
	return ModelAsset{
		ID:     &id,
		Scale:  1.5,
		Fog:    &fog,
		Offset: Vector3f{X: 0, Y: 0.5, Z: 0},
		Labels: []AssetLabel{sampleAssetLabel(), {Weight: 1}, {Weight: 2, Name: &plain}},
		Textures: []string{
			"textures/lantern_diffuse.png",
			"textures/lantern_glow.png",
		},
		Attributes: map[string]float32{"glow": 0.8, "flicker": 0.1},
		Trail:      &trail,
	}
}

func sampleSimpleInteraction(next, failed int32) SimpleInteraction {
	effect := "spark"
	return SimpleInteraction{Next: next, Failed: failed, RunTime: 0.5, Effect: &effect}
}

func sampleChargingInteraction() ChargingInteraction {
	return ChargingInteraction{
		Next:            NoInteraction,
		Failed:          NoInteraction,
		DisplayProgress: true,
		ChargedNext:     map[float32]int32{0.5: NoInteraction, 1.5: NoInteraction},
	}
}

func sampleInteractionChain() InteractionChain {
	name := "swing"
	return InteractionChain{
		Name: &name,
		Root: 0,
		Interactions: []Interaction{
			sampleSimpleInteraction(1, 2),
			RepeatInteraction{Next: 3, Failed: NoInteraction, Body: 0, Repeat: 2},
			SimpleInteraction{Next: NoInteraction, Failed: NoInteraction, RunTime: 0.1},
			ChargingInteraction{
				Next:        NoInteraction,
				Failed:      2,
				ChargedNext: map[float32]int32{0.25: 0, 1: 2},
			},
		},
	}
}
