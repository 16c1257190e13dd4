package codec

type testKind uint8

const (
	kindSmall testKind = iota
	kindLarge
)

var (
	testKinds = NewEnumTable[testKind]("Kind", "Small", "Large")

	vecSchema = NewSchema("Vec",
		Required("X", Float32),
		Required("Y", Float32),
		Required("Z", Float32),
	)

	labelSchema = NewSchema("Label",
		Required("Weight", Int32),
		Optional("Name", String(8)),
	)

	bagSchema = NewSchema("Bag",
		Optional("Title", String(16)),
		Required("Count", Int32),
		Optional("Kind", testKinds.Type()),
		Optional("Points", Array(vecSchema, 4)),
		Optional("Tags", Array(String(8), 4)),
		Optional("Scores", Map(String(8), Int32, 4)),
		Optional("Labels", Array(labelSchema, 4)),
	)
)

type testVec struct{ X, Y, Z float32 }

func (v testVec) Schema() *Schema { return vecSchema }

func (v testVec) Serialize(buf *Buffer) error {
	w := BeginStruct(buf, vecSchema)
	w.PutFloat32(0, v.X)
	w.PutFloat32(1, v.Y)
	w.PutFloat32(2, v.Z)
	return w.Finish()
}

func (v testVec) ComputeSize() int { return vecSchema.FixedBlockSize() }

func decodeTestVec(buf *Buffer, off int) (testVec, int, error) {
	r, err := OpenStruct(buf, off, vecSchema)
	if err != nil {
		return testVec{}, 0, err
	}
	v := testVec{X: r.Float32(0), Y: r.Float32(1), Z: r.Float32(2)}
	n, err := r.End()
	return v, n, err
}

type testLabel struct {
	Weight int32
	Name   *string
}

func (l testLabel) Schema() *Schema { return labelSchema }

func (l testLabel) Serialize(buf *Buffer) error {
	w := BeginStruct(buf, labelSchema)
	w.PutInt32(0, l.Weight)
	w.PutString(1, l.Name)
	return w.Finish()
}

func (l testLabel) ComputeSize() int {
	return labelSchema.FixedBlockSize() + StringSize(l.Name)
}

func decodeTestLabel(buf *Buffer, off int) (testLabel, int, error) {
	r, err := OpenStruct(buf, off, labelSchema)
	if err != nil {
		return testLabel{}, 0, err
	}
	l := testLabel{Weight: r.Int32(0), Name: r.String(1)}
	n, err := r.End()
	return l, n, err
}

type testBag struct {
	Title  *string
	Count  int32
	Kind   *testKind
	Points []testVec
	Tags   []string
	Scores map[string]int32
	Labels []testLabel
}

func (b testBag) Schema() *Schema { return bagSchema }

func (b testBag) Serialize(buf *Buffer) error {
	w := BeginStruct(buf, bagSchema)
	w.PutString(0, b.Title)
	w.PutInt32(1, b.Count)
	if b.Kind != nil {
		w.PutEnum(2, uint8(*b.Kind))
	}
	WriteArray(w, 3, b.Points, EncodeMessage[testVec])
	WriteStrings(w, 4, b.Tags)
	WriteMap(w, 5, b.Scores, StringEncoder(String(8)), EncodeInt32)
	WriteArray(w, 6, b.Labels, EncodeMessage[testLabel])
	return w.Finish()
}

func (b testBag) ComputeSize() int {
	return bagSchema.FixedBlockSize() +
		StringSize(b.Title) +
		MessagesSize(b.Points) +
		StringsSize(b.Tags) +
		MapSize(b.Scores, func(k string) int { return VarIntSize(int32(len(k))) + len(k) }, func(int32) int { return 4 }) +
		MessagesSize(b.Labels)
}

func decodeTestBag(buf *Buffer, off int) (testBag, int, error) {
	r, err := OpenStruct(buf, off, bagSchema)
	if err != nil {
		return testBag{}, 0, err
	}
	b := testBag{Title: r.String(0), Count: r.Int32(1)}
	if r.Present(2) {
		k := testKind(r.Enum(2))
		b.Kind = &k
	}
	b.Points = ReadArray(r, 3, decodeTestVec)
	b.Tags = ReadStrings(r, 4)
	b.Scores = ReadMap(r, 5, StringDecoder(String(8)), DecodeInt32)
	b.Labels = ReadArray(r, 6, decodeTestLabel)
	n, err := r.End()
	return b, n, err
}

func strPtr(s string) *string { return &s }

func marshalTest(t interface{ Fatalf(string, ...interface{}) }, m Message) []byte {
	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return data
}
