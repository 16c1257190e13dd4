package journal

import (
	"time"

	"github.com/ssargent/wiredto/pkg/codec"
)

// WriterConfig holds configuration for the journal writer
type WriterConfig struct {
	FilePath      string        // Path to the journal file
	FsyncInterval time.Duration // How often to fsync (0 = every append)
	BufferSize    int           // Write buffer size
	MaxPayload    int           // Largest accepted payload (0 = codec default)
	Limits        codec.Limits  // Validation limits for appended payloads
}

// ReaderConfig holds configuration for the journal reader
type ReaderConfig struct {
	FilePath    string // Path to the journal file
	StartOffset int64  // Offset to start reading from
	MaxPayload  int    // Largest payload size accepted from a header
}

// Entry is one record read from the journal with the offset it starts at.
type Entry struct {
	Offset int64
	Record *codec.Record
}

// EntryIterator provides streaming access to journal entries
type EntryIterator interface {
	Next() bool
	Entry() Entry
	Err() error
	Close() error
}

// Errors
var (
	ErrCorruption = &JournalError{"journal corruption detected"}
	ErrTruncated  = &JournalError{"journal ends inside a record"}
	ErrClosed     = &JournalError{"journal is closed"}
)

// JournalError represents a journal error
type JournalError struct {
	Message string
}

func (e *JournalError) Error() string {
	return e.Message
}
