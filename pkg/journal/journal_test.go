package journal

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/proto"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "journal.log")
	w, err := NewWriter(WriterConfig{
		FilePath:   path,
		BufferSize: 4096,
		Limits:     codec.DefaultLimits(),
	})
	require.NoError(t, err)
	return w, path
}

func marshal(t *testing.T, m codec.Message) []byte {
	t.Helper()
	b, err := codec.Marshal(m)
	require.NoError(t, err)
	return b
}

func readAll(t *testing.T, path string) []Entry {
	t.Helper()
	r, err := NewReader(ReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()

	var out []Entry
	it := r.Iterator()
	for it.Next() {
		out = append(out, it.Entry())
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())
	return out
}

func TestNewWriter(t *testing.T) {
	w, path := newTestWriter(t)
	assert.FileExists(t, path)
	assert.Equal(t, int64(0), w.Size())
	assert.Equal(t, path, w.Path())
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close(), "second close is a no-op")
}

func TestWriter_AppendAndRead(t *testing.T) {
	w, path := newTestWriter(t)

	vec := proto.Vector3f{X: 1, Y: 2, Z: 3}
	off1, err := w.AppendMessage(vec)
	require.NoError(t, err)
	assert.Equal(t, int64(0), off1)

	label := proto.AssetLabel{Weight: 7}
	name := "door"
	label.Name = &name
	off2, err := w.AppendMessage(label)
	require.NoError(t, err)
	assert.Greater(t, off2, off1)
	require.NoError(t, w.Close())

	entries := readAll(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, off1, entries[0].Offset)
	assert.Equal(t, off2, entries[1].Offset)
	assert.Equal(t, "Vector3f", entries[0].Record.TypeName())
	assert.Equal(t, "AssetLabel", entries[1].Record.TypeName())

	got, err := proto.DeserializeAssetLabel(codec.NewBuffer(entries[1].Record.Payload), 0)
	require.NoError(t, err)
	assert.Equal(t, label, got)
}

func TestWriter_RejectsInvalidPayloads(t *testing.T) {
	w, _ := newTestWriter(t)
	defer w.Close()

	_, err := w.Append("NoSuchType", []byte{1})
	assert.ErrorIs(t, err, proto.ErrUnknownType)

	_, err = w.Append("Vector3f", []byte{1, 2, 3})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	payload := append(marshal(t, proto.Vector3f{X: 1}), 0xFF)
	_, err = w.Append("Vector3f", payload)
	assert.ErrorIs(t, err, proto.ErrTrailingData)

	assert.Equal(t, int64(0), w.Size(), "nothing was written")
}

func TestWriter_AppendAfterClose(t *testing.T) {
	w, _ := newTestWriter(t)
	require.NoError(t, w.Close())

	_, err := w.AppendMessage(proto.Vector3f{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, w.Sync(), ErrClosed)
}

func TestWriter_ReopenContinuesAtEnd(t *testing.T) {
	w, path := newTestWriter(t)
	_, err := w.AppendMessage(proto.Color{R: 1, G: 2, B: 3})
	require.NoError(t, err)
	size := w.Size()
	require.NoError(t, w.Close())

	w2, err := NewWriter(WriterConfig{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, size, w2.Size())
	off, err := w2.AppendMessage(proto.Color{R: 4})
	require.NoError(t, err)
	assert.Equal(t, size, off)
	require.NoError(t, w2.Close())

	assert.Len(t, readAll(t, path), 2)
}

func TestWriter_PeriodicFsync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	w, err := NewWriter(WriterConfig{FilePath: path, FsyncInterval: 50_000_000})
	require.NoError(t, err)

	_, err = w.AppendMessage(proto.Vector3f{X: 9})
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, w.Size(), info.Size())
	require.NoError(t, w.Close())
}

func TestRepair_TornTail(t *testing.T) {
	w, path := newTestWriter(t)
	_, err := w.AppendMessage(proto.Vector3f{X: 1})
	require.NoError(t, err)
	good := w.Size()
	_, err = w.AppendMessage(proto.Vector3f{X: 2})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Cut the second record in half.
	require.NoError(t, os.Truncate(path, good+5))

	r, err := NewReader(ReaderConfig{FilePath: path})
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrTruncated)
	r.Close()

	w2, err := NewWriter(WriterConfig{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, good, w2.Size())
	require.NoError(t, w2.Close())

	assert.Len(t, readAll(t, path), 1)
}

func TestRepair_MissingFile(t *testing.T) {
	end, err := Repair(filepath.Join(t.TempDir(), "absent.log"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), end)
}

func TestReader_Corruption(t *testing.T) {
	w, path := newTestWriter(t)
	_, err := w.AppendMessage(proto.Vector3f{X: 1})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0600))

	r, err := NewReader(ReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrCorruption)

	it := r.Iterator()
	assert.False(t, it.Next())
}

func TestReader_BadHeaderSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	header := make([]byte, codec.RecordHeaderSize)
	header[4] = 0 // type size zero is never written
	require.NoError(t, os.WriteFile(path, header, 0600))

	r, err := NewReader(ReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestReader_ReadAtAndSeek(t *testing.T) {
	w, path := newTestWriter(t)
	var offsets []int64
	for i := 0; i < 3; i++ {
		off, err := w.AppendMessage(proto.Vector3f{X: float32(i)})
		require.NoError(t, err)
		offsets = append(offsets, off)
	}
	require.NoError(t, w.Close())

	r, err := NewReader(ReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.ReadAt(offsets[2])
	require.NoError(t, err)
	v, err := proto.DeserializeVector3f(codec.NewBuffer(rec.Payload), 0)
	require.NoError(t, err)
	assert.Equal(t, float32(2), v.X)
	assert.Equal(t, int64(0), r.Offset(), "ReadAt leaves the cursor alone")

	require.NoError(t, r.Seek(offsets[1]))
	rec, err = r.Next()
	require.NoError(t, err)
	v, err = proto.DeserializeVector3f(codec.NewBuffer(rec.Payload), 0)
	require.NoError(t, err)
	assert.Equal(t, float32(1), v.X)
	assert.Equal(t, offsets[2], r.Offset())

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)

	_, err = r.ReadAt(r.Offset())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReader_StartOffset(t *testing.T) {
	w, path := newTestWriter(t)
	_, err := w.AppendMessage(proto.Vector3f{X: 1})
	require.NoError(t, err)
	second, err := w.AppendMessage(proto.Vector3f{X: 2})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(ReaderConfig{FilePath: path, StartOffset: second})
	require.NoError(t, err)
	defer r.Close()
	it := r.Iterator()
	require.True(t, it.Next())
	assert.Equal(t, second, it.Entry().Offset)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}
