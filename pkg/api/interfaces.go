// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/wiredto/pkg/storage"
)

// Corpus is the part of storage.Corpus the API uses.
type Corpus interface {
	Put(typeName string, payload []byte) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) (storage.Entry, error)
	Count(typeName string) (int, error)
}

// Journal is the part of journal.Writer the API uses.
type Journal interface {
	Append(typeName string, payload []byte) (int64, error)
	Size() int64
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is cancelled
	StartServer(ctx context.Context, corpus Corpus, journal Journal, config ServerConfig) error
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// NewServerStarter creates the default server starter
func NewServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, corpus Corpus, journal Journal, config ServerConfig) error {
	return StartServer(ctx, corpus, journal, config)
}
