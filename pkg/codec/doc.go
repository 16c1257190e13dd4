// Package codec implements the binary layout shared by every wire type in
// wiredto: a fixed block with a null mask and offset slots, followed by a
// variable block of length-prefixed data.
//
// # Wire Format
//
// Every struct type is described by a Schema built from its field list:
//
//	[null-mask: ceil(nullable/8) bytes][fixed block][variable block]
//
// Fields:
//   - Null mask: one bit per nullable or variable-size field, in
//     declaration order, least significant bit first
//   - Fixed block: primitives and fixed-size composites inline at
//     positions known from the schema alone, plus a 4-byte little-endian
//     offset slot per variable-size field (-1 when absent)
//   - Variable block: strings (VarInt byte length + UTF-8), arrays and
//     maps (VarInt count + elements) and nested structs. Writers emit
//     them in declaration order with no gaps
//
// Offsets are relative to the start of the variable block. Readers follow
// each present field's own slot, so fields may sit in any order as long as
// they do not overlap. A field whose mask bit is clear is absent whatever
// its slot holds, and its data is never read. An instance ends at the
// furthest byte of any present field.
//
// Map keys are strictly ascending and VarInts use the fewest bytes
// possible; readers reject anything else.
//
// Enums are a single byte holding an index into a closed constant set.
// Unions are a VarInt type id followed by the variant's own encoding.
//
// # Usage
//
// A type declares its schema once and implements Serialize, ComputeSize
// and a decode function on top of StructWriter and StructReader:
//
//	var labelSchema = codec.NewSchema("Label",
//	    codec.Required("Weight", codec.Int32),
//	    codec.Optional("Name", codec.String(64)),
//	)
//
//	func (l Label) Serialize(buf *codec.Buffer) error {
//	    w := codec.BeginStruct(buf, labelSchema)
//	    w.PutInt32(0, l.Weight)
//	    w.PutString(1, l.Name)
//	    return w.Finish()
//	}
//
// # Validation
//
// Schema.Validate checks a buffer region without decoding it: the fixed
// block fits, offsets are in range and fields do not overlap, lengths and counts are
// within the type's maximum and the buffer, enum bytes and union ids are
// defined. It returns a ValidationResult and never panics. It is the gate
// to run before decoding bytes from the network; decoders still bounds
// check every read but do not call it themselves.
//
// # Error Handling
//
// Every failure is a *ProtocolError carrying one of the kinds
// InsufficientData, MalformedOffset, LengthLimitExceeded,
// UndefinedEnumValue or ConstraintViolation. Match them with errors.Is
// against the Err* sentinels. Write-side length violations are
// ConstraintViolation errors that also match ErrLengthLimitExceeded.
//
// # Thread Safety
//
// Schemas and enum tables are immutable and safe to share. Buffers,
// writers, readers and decoded values are owned by one goroutine at a
// time; there are no locks because nothing is shared.
//
// # Records
//
// RecordCodec frames an encoded payload with its type name, a timestamp
// and a CRC32 for storage:
//
//	[CRC32(4)][TypeSize(4)][PayloadSize(4)][Timestamp(8)][Type][Payload]
package codec
