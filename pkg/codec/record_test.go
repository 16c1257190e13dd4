package codec

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestRecordCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewRecordCodec(0)

	testCases := []struct {
		name     string
		typeName string
		payload  []byte
	}{
		{
			name:     "encoded label",
			typeName: "Label",
			payload:  []byte{0x01, 0x07, 0, 0, 0, 0, 0, 0, 0, 0x03, 'a', 'b', 'c'},
		},
		{
			name:     "empty payload",
			typeName: "Label",
			payload:  []byte{},
		},
		{
			name:     "binary data",
			typeName: "Bag",
			payload:  []byte{0x00, 0x01, 0xFF, 0xFE},
		},
		{
			name:     "large payload",
			typeName: "Bag",
			payload:  bytes.Repeat([]byte("v"), 10240),
		},
		{
			name:     "longest type name",
			typeName: string(bytes.Repeat([]byte("t"), MaxRecordTypeSize)),
			payload:  []byte("x"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(tc.typeName, tc.payload)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			record, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if err := record.Validate(); err != nil {
				t.Fatalf("Record validation failed: %v", err)
			}

			if record.TypeName() != tc.typeName {
				t.Errorf("Type mismatch: got %q, want %q", record.TypeName(), tc.typeName)
			}

			if !bytes.Equal(record.Payload, tc.payload) {
				t.Errorf("Payload mismatch: got %v, want %v", record.Payload, tc.payload)
			}

			if record.PayloadSize != uint32(len(tc.payload)) {
				t.Errorf("PayloadSize mismatch: got %d, want %d", record.PayloadSize, len(tc.payload))
			}

			if record.Size() != len(encoded) {
				t.Errorf("Size mismatch: got %d, want %d", record.Size(), len(encoded))
			}

			now := time.Now().UnixNano()
			if record.Timestamp > uint64(now) || record.Timestamp < uint64(now-int64(time.Minute)) {
				t.Errorf("Timestamp seems unreasonable: %d", record.Timestamp)
			}
		})
	}
}

func TestRecordCodec_EncodeRejects(t *testing.T) {
	codec := NewRecordCodec(16)

	if _, err := codec.Encode("", []byte("x")); err == nil {
		t.Error("Expected empty type name to be rejected")
	}

	long := string(bytes.Repeat([]byte("t"), MaxRecordTypeSize+1))
	if _, err := codec.Encode(long, []byte("x")); err == nil {
		t.Error("Expected oversized type name to be rejected")
	}

	if _, err := codec.Encode("Label", make([]byte, 17)); err == nil {
		t.Error("Expected oversized payload to be rejected")
	}

	if _, err := codec.Encode("Label", make([]byte, 16)); err != nil {
		t.Errorf("Payload at the limit rejected: %v", err)
	}
}

func TestRecordCodec_CRCValidation(t *testing.T) {
	codec := NewRecordCodec(0)
	payload := []byte("test payload")

	corruptAt := map[string]int{
		"corrupted CRC":     0,
		"corrupted type":    RecordHeaderSize,
		"corrupted payload": RecordHeaderSize + len("Label"),
		"corrupted time":    12,
	}

	for name, off := range corruptAt {
		t.Run(name, func(t *testing.T) {
			encoded, err := codec.Encode("Label", payload)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			encoded[off] ^= 0xFF

			record, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if err := record.Validate(); err == nil {
				t.Error("Expected validation to fail, but it passed")
			}
		})
	}
}

func TestRecordCodec_MalformedData(t *testing.T) {
	codec := NewRecordCodec(1024)

	header := func(typeSize, payloadSize uint32, total int) []byte {
		buf := make([]byte, total)
		binary.LittleEndian.PutUint32(buf[4:8], typeSize)
		binary.LittleEndian.PutUint32(buf[8:12], payloadSize)
		return buf
	}

	testCases := []struct {
		name string
		data []byte
	}{
		{name: "empty data", data: []byte{}},
		{name: "too short for header", data: []byte{0x01, 0x02, 0x03}},
		{name: "zero type size", data: header(0, 0, 20)},
		{name: "type size above limit", data: header(MaxRecordTypeSize+1, 0, 20+MaxRecordTypeSize+1)},
		{name: "payload size above limit", data: header(1, 1025, 20+1+1025)},
		{name: "insufficient data for type", data: header(100, 0, 20)},
		{name: "insufficient data for payload", data: header(5, 100, 25)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Decode(tc.data); err == nil {
				t.Errorf("Expected decode to fail for malformed data (%s)", tc.name)
			}
		})
	}
}

func TestRecord_Size(t *testing.T) {
	testCases := []struct {
		name         string
		typeName     string
		payload      []byte
		expectedSize int
	}{
		{"empty payload", "A", nil, 20 + 1},
		{"small payload", "Label", []byte("value"), 20 + 5 + 5},
		{"large payload", "Bag", bytes.Repeat([]byte("v"), 2000), 20 + 3 + 2000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			record := NewRecord(tc.typeName, tc.payload)
			if record.Size() != tc.expectedSize {
				t.Errorf("Size mismatch: got %d, want %d", record.Size(), tc.expectedSize)
			}
		})
	}
}

func TestNewRecord(t *testing.T) {
	payload := []byte("test payload")
	record := NewRecord("Label", payload)

	if record.TypeSize != 5 {
		t.Errorf("TypeSize mismatch: got %d, want 5", record.TypeSize)
	}

	if record.PayloadSize != uint32(len(payload)) {
		t.Errorf("PayloadSize mismatch: got %d, want %d", record.PayloadSize, len(payload))
	}

	now := time.Now().UnixNano()
	if record.Timestamp > uint64(now) || record.Timestamp < uint64(now-int64(time.Second)) {
		t.Errorf("Timestamp seems unreasonable: %d", record.Timestamp)
	}

	// CRC32 is set during encoding
	if record.CRC32 != 0 {
		t.Errorf("Expected CRC32 to be zero initially, got %d", record.CRC32)
	}
}

func TestRecord_CalculateCRC32(t *testing.T) {
	record := NewRecord("Label", []byte("payload"))

	crc := record.calculateCRC32()
	if crc != record.calculateCRC32() {
		t.Error("CRC32 calculation is not deterministic")
	}

	other := *record
	other.Type = []byte("Other")
	if crc == other.calculateCRC32() {
		t.Error("Different records produced same CRC32 (highly unlikely)")
	}
}
