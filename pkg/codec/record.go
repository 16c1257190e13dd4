package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"
)

// RecordHeaderSize is the size of the fixed record header.
const RecordHeaderSize = 20

// MaxRecordTypeSize bounds the type name stored in a record.
const MaxRecordTypeSize = 256

// Record frames one encoded payload with its type name for storage.
type Record struct {
	CRC32       uint32 // CRC32 over every field after this one
	TypeSize    uint32 // Size of the type name in bytes
	PayloadSize uint32 // Size of the payload in bytes
	Timestamp   uint64 // Unix timestamp in nanoseconds
	Type        []byte // Registered type name
	Payload     []byte // Encoded message
}

// RecordCodec handles serialization and deserialization of records
type RecordCodec struct {
	maxPayload int
}

// NewRecordCodec creates a record codec that accepts payloads up to
// maxPayload bytes; zero means MaxStringBytes.
func NewRecordCodec(maxPayload int) *RecordCodec {
	if maxPayload <= 0 {
		maxPayload = MaxStringBytes
	}
	return &RecordCodec{maxPayload: maxPayload}
}

// Encode frames a payload.
// Format: [CRC32(4)][TypeSize(4)][PayloadSize(4)][Timestamp(8)][Type][Payload]
func (c *RecordCodec) Encode(typeName string, payload []byte) ([]byte, error) {
	if len(typeName) == 0 || len(typeName) > MaxRecordTypeSize {
		return nil, fmt.Errorf("invalid record type name length %d", len(typeName))
	}
	if len(payload) > c.maxPayload {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), c.maxPayload)
	}

	r := NewRecord(typeName, payload)
	r.CRC32 = r.calculateCRC32()

	buf := make([]byte, r.Size())

	binary.LittleEndian.PutUint32(buf[0:], r.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], r.TypeSize)
	binary.LittleEndian.PutUint32(buf[8:], r.PayloadSize)
	binary.LittleEndian.PutUint64(buf[12:], r.Timestamp)
	copy(buf[RecordHeaderSize:], r.Type)
	copy(buf[RecordHeaderSize+int(r.TypeSize):], r.Payload)

	return buf, nil
}

// Decode parses a framed record. The returned slices alias data.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	if len(data) < RecordHeaderSize {
		return nil, fmt.Errorf("data too short for record header")
	}

	r := &Record{}
	r.CRC32 = binary.LittleEndian.Uint32(data[0:4])
	r.TypeSize = binary.LittleEndian.Uint32(data[4:8])
	r.PayloadSize = binary.LittleEndian.Uint32(data[8:12])
	r.Timestamp = binary.LittleEndian.Uint64(data[12:20])

	if err := c.CheckSizes(r.TypeSize, r.PayloadSize); err != nil {
		return nil, err
	}
	end := RecordHeaderSize + int(r.TypeSize) + int(r.PayloadSize)
	if len(data) < end {
		return nil, fmt.Errorf("data too short for type/payload sizes: %d < %d", len(data), end)
	}

	r.Type = data[RecordHeaderSize : RecordHeaderSize+int(r.TypeSize)]
	r.Payload = data[RecordHeaderSize+int(r.TypeSize) : end]

	return r, nil
}

// CheckSizes rejects header sizes this codec would never have written.
func (c *RecordCodec) CheckSizes(typeSize, payloadSize uint32) error {
	if typeSize == 0 || typeSize > MaxRecordTypeSize {
		return fmt.Errorf("invalid record type size %d", typeSize)
	}
	if uint64(payloadSize) > uint64(c.maxPayload) {
		return fmt.Errorf("record payload size %d exceeds %d", payloadSize, c.maxPayload)
	}
	return nil
}

// Validate checks the integrity of a record using CRC32
func (r *Record) Validate() error {
	if sum := r.calculateCRC32(); r.CRC32 != sum {
		return fmt.Errorf("CRC32 mismatch: %d != %d", r.CRC32, sum)
	}
	return nil
}

// Size returns the total size of the record when encoded
func (r *Record) Size() int {
	return RecordHeaderSize + len(r.Type) + len(r.Payload)
}

// TypeName returns the record's type as a string.
func (r *Record) TypeName() string {
	return string(r.Type)
}

// NewRecord creates a new record with current timestamp
func NewRecord(typeName string, payload []byte) *Record {
	return &Record{
		TypeSize:    uint32(len(typeName)),
		PayloadSize: uint32(len(payload)),
		Timestamp:   uint64(time.Now().UnixNano()),
		Type:        []byte(typeName),
		Payload:     payload,
	}
}

// calculateCRC32 computes the checksum over TypeSize, PayloadSize,
// Timestamp, Type and Payload.
func (r *Record) calculateCRC32() uint32 {
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], r.TypeSize)
	binary.LittleEndian.PutUint32(hdr[4:], r.PayloadSize)
	binary.LittleEndian.PutUint64(hdr[8:], r.Timestamp)

	crc := crc32.NewIEEE()
	crc.Write(hdr[:])
	crc.Write(r.Type)
	crc.Write(r.Payload)
	return crc.Sum32()
}
