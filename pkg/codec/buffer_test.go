package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_VarIntRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		value int32
		wire  []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one", 1, []byte{0x01}},
		{"largest single byte", 127, []byte{0x7f}},
		{"smallest two bytes", 128, []byte{0x80, 0x01}},
		{"three hundred", 300, []byte{0xac, 0x02}},
		{"max int32", math.MaxInt32, []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := NewBuffer(nil)
			buf.AppendVarInt(tc.value)
			assert.Equal(t, tc.wire, buf.Bytes())
			assert.Equal(t, len(tc.wire), VarIntSize(tc.value))

			v, n, err := buf.VarInt(0)
			require.NoError(t, err)
			assert.Equal(t, tc.value, v)
			assert.Equal(t, len(tc.wire), n)
		})
	}
}

func TestBuffer_VarIntMalformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		kind ErrorKind
	}{
		{"empty", nil, KindInsufficientData},
		{"truncated continuation", []byte{0x80}, KindInsufficientData},
		{"truncated four bytes", []byte{0xff, 0xff, 0xff, 0xff}, KindInsufficientData},
		{"fifth byte overflows int32", []byte{0xff, 0xff, 0xff, 0xff, 0x08}, KindMalformedOffset},
		{"six byte encoding", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, KindMalformedOffset},
		{"zero in two bytes", []byte{0x80, 0x00}, KindMalformedOffset},
		{"one padded to three bytes", []byte{0x81, 0x80, 0x00}, KindMalformedOffset},
		{"127 in two bytes", []byte{0xff, 0x00}, KindMalformedOffset},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := NewBuffer(tc.data).VarInt(0)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestBuffer_ReadsAreBoundsChecked(t *testing.T) {
	buf := NewBuffer([]byte{1, 2, 3})

	_, err := buf.Int32(0)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, err = buf.Uint8(3)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, err = buf.Uint8(-1)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, err = buf.Slice(1, 3)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	p, err := buf.Slice(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, p)

	assert.Equal(t, 3, buf.ReadableBytes(0))
	assert.Equal(t, 0, buf.ReadableBytes(3))
	assert.Equal(t, 0, buf.ReadableBytes(10))
}

func TestBuffer_LittleEndianPrimitives(t *testing.T) {
	buf := NewBuffer(nil)
	buf.AppendInt32(-2)
	buf.AppendFloat32(1.5)
	buf.AppendInt64(math.MinInt64)
	buf.AppendFloat64(-0.25)
	buf.AppendBool(true)

	assert.Equal(t, []byte{0xfe, 0xff, 0xff, 0xff}, buf.Bytes()[:4])

	i32, err := buf.Int32(0)
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i32)

	f32, err := buf.Float32(4)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)

	i64, err := buf.Int64(8)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), i64)

	f64, err := buf.Float64(16)
	require.NoError(t, err)
	assert.Equal(t, -0.25, f64)

	b, err := buf.Bool(24)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestBuffer_BoolAcceptsAnyNonZeroByte(t *testing.T) {
	b, err := NewBuffer([]byte{0x7f}).Bool(0)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestBuffer_GrowZeroesReusedCapacity(t *testing.T) {
	raw := make([]byte, 0, 8)
	raw = append(raw, 0xaa, 0xbb, 0xcc, 0xdd)
	buf := NewBuffer(raw[:0])

	off := buf.Grow(4)
	assert.Equal(t, 0, off)
	assert.Equal(t, []byte{0, 0, 0, 0}, buf.Bytes())

	off = buf.Grow(16)
	assert.Equal(t, 4, off)
	assert.Equal(t, 20, buf.Len())
}

func TestBuffer_AppendVarIntRejectsNegative(t *testing.T) {
	assert.Panics(t, func() { NewBuffer(nil).AppendVarInt(-1) })
}

func TestNullMask(t *testing.T) {
	assert.Equal(t, 0, MaskWidth(0))
	assert.Equal(t, 1, MaskWidth(1))
	assert.Equal(t, 1, MaskWidth(8))
	assert.Equal(t, 2, MaskWidth(9))

	m := NullMask(make([]byte, 2))
	m.Set(0)
	m.Set(3)
	m.Set(9)
	assert.Equal(t, NullMask{0x09, 0x02}, m)
	assert.True(t, m.IsSet(3))
	assert.False(t, m.IsSet(1))
	assert.True(t, m.IsSet(9))
}

func TestLimits_Clamp(t *testing.T) {
	assert.Equal(t, DefaultLimits(), Limits{}.Clamp())

	l := Limits{MaxStringBytes: 10, MaxCollectionLen: MaxCollectionLen + 1, MaxDepth: 4}.Clamp()
	assert.Equal(t, 10, l.MaxStringBytes)
	assert.Equal(t, MaxCollectionLen, l.MaxCollectionLen)
	assert.Equal(t, 4, l.MaxDepth)
}

func TestProtocolError(t *testing.T) {
	err := &ProtocolError{Kind: KindMalformedOffset, Type: "Label", Field: "Name", Msg: "offset 9"}
	assert.Equal(t, "codec: Label.Name: malformed offset: offset 9", err.Error())
	assert.True(t, errors.Is(err, ErrMalformedOffset))
	assert.False(t, errors.Is(err, ErrInsufficientData))

	lv := limitViolation("string length %d exceeds %d", 9, 8)
	assert.True(t, errors.Is(lv, ErrConstraintViolation))
	assert.True(t, errors.Is(lv, ErrLengthLimitExceeded))
	assert.Equal(t, KindConstraintViolation, KindOf(lv))

	assert.Equal(t, KindNone, KindOf(errors.New("plain")))
}

func TestEnumTable(t *testing.T) {
	assert.Equal(t, 2, testKinds.Count())

	k, err := testKinds.FromValue(1)
	require.NoError(t, err)
	assert.Equal(t, kindLarge, k)
	assert.Equal(t, "Large", testKinds.Name(k))

	_, err = testKinds.FromValue(2)
	assert.True(t, errors.Is(err, ErrUndefinedEnumValue))
	_, err = testKinds.FromValue(-1)
	assert.True(t, errors.Is(err, ErrUndefinedEnumValue))

	k, ok := testKinds.Lookup("Small")
	assert.True(t, ok)
	assert.Equal(t, kindSmall, k)
	_, ok = testKinds.Lookup("Medium")
	assert.False(t, ok)
}
