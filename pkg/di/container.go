// Package di provides dependency injection container
package di

import (
	"fmt"
	"sync"

	"github.com/ssargent/wiredto/pkg/api" //nolint:depguard
	"github.com/ssargent/wiredto/pkg/config"
	"github.com/ssargent/wiredto/pkg/journal"
	"github.com/ssargent/wiredto/pkg/storage"
)

// Container holds all the dependencies for the application. The corpus
// and journal are opened on first use and released by Close.
type Container struct {
	mu            sync.Mutex
	config        *config.Config
	corpus        *storage.Corpus
	journal       *journal.Writer
	serverStarter api.ServerStarter
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		config:        config.DefaultConfig(),
		serverStarter: api.NewServerStarter(),
	}
}

// Configure replaces the configuration. Components already opened keep
// their old settings.
func (c *Container) Configure(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
}

// Config returns the active configuration
func (c *Container) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// Corpus opens the fixture corpus on first call
func (c *Container) Corpus() (*storage.Corpus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.corpus != nil {
		return c.corpus, nil
	}
	corpus, err := storage.Open(c.config.CorpusPath(), c.config.MaxPayload(), c.config.CodecLimits())
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	c.corpus = corpus
	return corpus, nil
}

// Journal opens the capture journal for appending on first call
func (c *Container) Journal() (*journal.Writer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.journal != nil {
		return c.journal, nil
	}
	w, err := journal.NewWriter(journal.WriterConfig{
		FilePath:      c.config.JournalPath(),
		FsyncInterval: c.config.FsyncInterval(),
		BufferSize:    c.config.Journal.BufferSize,
		MaxPayload:    c.config.MaxPayload(),
		Limits:        c.config.CodecLimits(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	c.journal = w
	return w, nil
}

// ServerConfig builds the API server settings from the configuration
func (c *Container) ServerConfig() api.ServerConfig {
	cfg := c.Config()
	return api.ServerConfig{
		Bind:       cfg.Bind,
		Port:       cfg.Port,
		APIKey:     cfg.Security.APIKey,
		MaxPayload: cfg.MaxPayload(),
		Limits:     cfg.CodecLimits(),
	}
}

// GetServerStarter returns the server starter
func (c *Container) GetServerStarter() api.ServerStarter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverStarter
}

// SetServerStarter allows overriding the server starter (for testing)
func (c *Container) SetServerStarter(starter api.ServerStarter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverStarter = starter
}

// Close releases every component that was opened
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			firstErr = err
		}
		c.journal = nil
	}
	if c.corpus != nil {
		if err := c.corpus.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.corpus = nil
	}
	return firstErr
}
