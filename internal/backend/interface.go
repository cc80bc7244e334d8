// Package backend builds the document store selected by configuration and
// attaches the cross-process change relay.
package backend

import (
	"context"

	"duoledger/internal/amqp"
	"duoledger/internal/store"
)

// HubStore is a store whose change hub can be reached, so a relay can be
// attached and remote changes can be replayed.
type HubStore interface {
	store.Store
	Hub() *store.Hub
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the optional relay and a cleanup function
type BackendResult struct {
	Store HubStore
	// Relay is nil when AMQP is not configured.
	Relay   *amqp.Client
	Cleanup CleanupFunc
}

// RunRelay consumes remote change messages until ctx is done. Without a
// relay it just waits for ctx.
func (r *BackendResult) RunRelay(ctx context.Context) error {
	if r.Relay == nil {
		<-ctx.Done()
		return nil
	}
	err := r.Relay.Run(ctx, r.Store.Hub())
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	SQLiteDBPath string
	BoltDBPath   string

	// AMQP relay, optional
	AMQPURL      string
	AMQPExchange string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	BoltBackend   BackendType = "bolt"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, BoltBackend:
		return true
	default:
		return false
	}
}
