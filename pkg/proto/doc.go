// Package proto holds the wire types carried by the protocol, each built on
// the codec package's fixed-block and variable-block layout.
//
// Every struct type T provides:
//
//	func (T) Schema() *codec.Schema
//	func (T) Serialize(buf *codec.Buffer) error
//	func (T) ComputeSize() int
//	func DeserializeT(buf *codec.Buffer, off int) (T, error)
//	func ValidateTStructure(buf *codec.Buffer, off int) codec.ValidationResult
//	func TBytesConsumed(buf *codec.Buffer, off int) (int, error)
//
// and types that own pointers, slices or maps also provide Clone.
//
// Deserialize does not validate. Run ValidateTStructure first on bytes
// that came from a peer.
//
// Values are owned by one goroutine. Pass a Clone to hand one to another.
package proto
