package journal

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/ssargent/wiredto/pkg/codec"
)

// Reader provides sequential access to records in a journal file
type Reader struct {
	file   *os.File
	reader *bufio.Reader
	codec  *codec.RecordCodec
	offset int64
	config ReaderConfig
}

// NewReader opens the journal for reading
func NewReader(config ReaderConfig) (*Reader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &Reader{
		file:   file,
		reader: bufio.NewReader(file),
		codec:  codec.NewRecordCodec(config.MaxPayload),
		offset: config.StartOffset,
		config: config,
	}, nil
}

// Next reads the record at the current offset. It returns io.EOF at a
// clean end, ErrTruncated when the file ends inside a record and
// ErrCorruption when a header or checksum is bad.
func (r *Reader) Next() (*codec.Record, error) {
	record, n, err := readRecord(r.reader, r.codec)
	if err != nil {
		return nil, err
	}
	r.offset += int64(n)
	return record, nil
}

// ReadAt reads the record starting at offset without moving the cursor.
func (r *Reader) ReadAt(offset int64) (*codec.Record, error) {
	record, _, err := readRecord(io.NewSectionReader(r.file, offset, 1<<62), r.codec)
	if err == io.EOF {
		return nil, ErrTruncated
	}
	return record, err
}

func readRecord(src io.Reader, rc *codec.RecordCodec) (*codec.Record, int, error) {
	header := make([]byte, codec.RecordHeaderSize)
	if _, err := io.ReadFull(src, header); err != nil {
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, 0, ErrTruncated
		}
		return nil, 0, err
	}

	typeSize := binary.LittleEndian.Uint32(header[4:8])
	payloadSize := binary.LittleEndian.Uint32(header[8:12])
	if err := rc.CheckSizes(typeSize, payloadSize); err != nil {
		return nil, 0, ErrCorruption
	}

	data := make([]byte, codec.RecordHeaderSize+int(typeSize)+int(payloadSize))
	copy(data, header)
	if _, err := io.ReadFull(src, data[codec.RecordHeaderSize:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, 0, ErrTruncated
		}
		return nil, 0, err
	}

	record, err := rc.Decode(data)
	if err != nil {
		return nil, 0, ErrCorruption
	}
	if err := record.Validate(); err != nil {
		return nil, 0, ErrCorruption
	}
	return record, len(data), nil
}

// Seek sets the read offset
func (r *Reader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.reader.Reset(r.file)
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *Reader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator over the remaining entries
func (r *Reader) Iterator() EntryIterator {
	return &entryIterator{reader: r}
}

// Close closes the journal reader
func (r *Reader) Close() error {
	return r.file.Close()
}

type entryIterator struct {
	reader *Reader
	entry  Entry
	err    error
}

func (it *entryIterator) Next() bool {
	if it.err != nil {
		return false
	}
	offset := it.reader.Offset()
	record, err := it.reader.Next()
	if err != nil {
		if err != io.EOF {
			it.err = err
		}
		return false
	}
	it.entry = Entry{Offset: offset, Record: record}
	return true
}

func (it *entryIterator) Entry() Entry { return it.entry }

// Err returns the error that stopped iteration, nil at a clean end.
func (it *entryIterator) Err() error { return it.err }

// Close leaves the reader open; it belongs to the caller.
func (it *entryIterator) Close() error { return nil }
