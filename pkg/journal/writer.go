package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/logging"
	"github.com/ssargent/wiredto/pkg/proto"
)

// Writer appends validated payloads to the journal file
type Writer struct {
	file       *os.File
	writer     *bufio.Writer
	codec      *codec.RecordCodec
	fsyncTimer *time.Timer
	config     WriterConfig
	logger     zerolog.Logger
	mutex      sync.Mutex
	offset     int64 // Current write offset
	closed     bool
}

// NewWriter opens the journal for appending. A torn record left at the
// end by a crash is cut off before the first append.
func NewWriter(config WriterConfig) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	logger := logging.Component("journal")

	end, err := Repair(config.FilePath, config.MaxPayload)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	if _, err := file.Seek(end, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}

	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}

	w := &Writer{
		file:   file,
		writer: bufio.NewWriterSize(file, config.BufferSize),
		codec:  codec.NewRecordCodec(config.MaxPayload),
		config: config,
		logger: logger,
		offset: end,
	}

	if config.FsyncInterval > 0 {
		w.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			w.mutex.Lock()
			defer w.mutex.Unlock()
			if w.closed {
				return
			}
			if err := w.sync(); err != nil {
				w.logger.Error().Err(err).Msg("periodic fsync failed")
			}
		})
	}

	logger.Debug().Str("path", config.FilePath).Int64("offset", end).Msg("journal opened")
	return w, nil
}

// Append validates payload as one instance of typeName and appends it.
// It returns the offset the record starts at.
func (w *Writer) Append(typeName string, payload []byte) (int64, error) {
	desc, err := proto.Resolve(typeName)
	if err != nil {
		return 0, err
	}
	if err := desc.CheckPayload(payload, w.config.Limits); err != nil {
		return 0, fmt.Errorf("%s payload rejected: %w", typeName, err)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	data, err := w.codec.Encode(typeName, payload)
	if err != nil {
		return 0, err
	}

	n, err := w.writer.Write(data)
	if err != nil {
		return 0, err
	}

	recordOffset := w.offset
	w.offset += int64(n)

	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	w.logger.Debug().Str("type", typeName).Int64("offset", recordOffset).Int("size", n).Msg("appended")
	return recordOffset, nil
}

// AppendMessage serializes m and appends it under its schema name.
func (w *Writer) AppendMessage(m codec.Message) (int64, error) {
	payload, err := codec.Marshal(m)
	if err != nil {
		return 0, err
	}
	return w.Append(m.Schema().Name(), payload)
}

// Sync forces a fsync to disk
func (w *Writer) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.sync()
}

func (w *Writer) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes, syncs and closes the journal
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		w.file.Close()
		return err
	}

	return w.file.Close()
}

// Size returns the current size of the journal
func (w *Writer) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *Writer) Path() string {
	return w.config.FilePath
}

// Repair scans the journal and truncates it after the last complete,
// checksummed record. It returns the resulting size. A missing file is
// not an error.
func Repair(path string, maxPayload int) (int64, error) {
	r, err := NewReader(ReaderConfig{FilePath: path, MaxPayload: maxPayload})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var end int64
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger := logging.Component("journal")
			logger.Warn().Err(err).Str("path", path).Int64("offset", end).Msg("truncating damaged journal tail")
			break
		}
		end = r.Offset()
	}
	r.Close()

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.Size() != end {
		if err := os.Truncate(path, end); err != nil {
			return 0, fmt.Errorf("failed to truncate journal: %w", err)
		}
	}
	return end, nil
}
