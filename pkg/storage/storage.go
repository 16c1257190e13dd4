// Package storage keeps a corpus of validated wire payloads in pebble,
// keyed by ksuid so that iteration follows insertion time.
package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/logging"
	"github.com/ssargent/wiredto/pkg/proto"
)

var (
	ErrNotFound = errors.New("storage: entry not found")
	ErrClosed   = errors.New("storage: corpus is closed")
)

// Entry is one stored payload.
type Entry struct {
	ID      ksuid.KSUID
	Type    string
	Payload []byte
}

// Corpus stores payloads that passed validation for their type. Each
// value is a framed codec.Record so the checksum travels with it.
type Corpus struct {
	db     *pebble.DB
	codec  *codec.RecordCodec
	limits codec.Limits
	logger zerolog.Logger
}

// Open opens or creates the corpus at path.
func Open(path string, maxPayload int, limits codec.Limits) (*Corpus, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Corpus{
		db:     db,
		codec:  codec.NewRecordCodec(maxPayload),
		limits: limits,
		logger: logging.Component("corpus"),
	}, nil
}

// Put validates payload as typeName and stores it under a new id.
func (c *Corpus) Put(typeName string, payload []byte) (ksuid.KSUID, error) {
	if c.db == nil {
		return ksuid.Nil, ErrClosed
	}
	desc, err := proto.Resolve(typeName)
	if err != nil {
		return ksuid.Nil, err
	}
	if err := desc.CheckPayload(payload, c.limits); err != nil {
		return ksuid.Nil, fmt.Errorf("%s payload rejected: %w", typeName, err)
	}

	data, err := c.codec.Encode(typeName, payload)
	if err != nil {
		return ksuid.Nil, err
	}

	id := ksuid.New()
	if err := c.db.Set(id.Bytes(), data, pebble.Sync); err != nil {
		return ksuid.Nil, err
	}

	c.logger.Debug().Str("id", id.String()).Str("type", typeName).Int("size", len(payload)).Msg("stored")
	return id, nil
}

// Get returns the entry stored under id.
func (c *Corpus) Get(id ksuid.KSUID) (Entry, error) {
	if c.db == nil {
		return Entry{}, ErrClosed
	}
	data, closer, err := c.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}
	defer closer.Close()

	return c.decode(id, data)
}

// decode copies out of data, which pebble owns.
func (c *Corpus) decode(id ksuid.KSUID, data []byte) (Entry, error) {
	rec, err := c.codec.Decode(data)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: %w", id, err)
	}
	if err := rec.Validate(); err != nil {
		return Entry{}, fmt.Errorf("entry %s: %w", id, err)
	}
	payload := make([]byte, len(rec.Payload))
	copy(payload, rec.Payload)
	return Entry{ID: id, Type: rec.TypeName(), Payload: payload}, nil
}

// Delete removes the entry stored under id. Deleting a missing id is not
// an error.
func (c *Corpus) Delete(id ksuid.KSUID) error {
	if c.db == nil {
		return ErrClosed
	}
	return c.db.Delete(id.Bytes(), pebble.Sync)
}

// List calls fn for every entry in id order. Returning false stops the
// walk.
func (c *Corpus) List(fn func(Entry) bool) error {
	if c.db == nil {
		return ErrClosed
	}
	iter, err := c.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping key that is not a ksuid")
			continue
		}
		e, err := c.decode(id, iter.Value())
		if err != nil {
			return err
		}
		if !fn(e) {
			break
		}
	}
	return iter.Error()
}

// Count returns the number of entries of typeName, or of every type when
// typeName is empty.
func (c *Corpus) Count(typeName string) (int, error) {
	n := 0
	err := c.List(func(e Entry) bool {
		if typeName == "" || e.Type == typeName {
			n++
		}
		return true
	})
	return n, err
}

// Close closes the corpus
func (c *Corpus) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
