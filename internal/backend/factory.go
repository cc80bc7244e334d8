package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"duoledger/internal/amqp"
	"duoledger/internal/store/bolt"
	"duoledger/internal/store/memory"
	"duoledger/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st  HubStore
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		st, err = sqlite.Open(config.SQLiteDBPath, f.logger.With("component", "store"))
	case BoltBackend:
		st, err = bolt.Open(config.BoltDBPath, f.logger.With("component", "store"))
	case MemoryBackend:
		st = memory.New(f.logger.With("component", "store"))
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", config.Type, err)
	}

	result := &BackendResult{Store: st, Cleanup: st.Close}

	if config.AMQPURL != "" {
		relay := amqp.NewClient(config.AMQPURL, config.AMQPExchange, f.logger.With("component", "amqp"))
		st.Hub().SetRelay(relay)
		result.Relay = relay
		result.Cleanup = func() error {
			return errors.Join(relay.Close(), st.Close())
		}
		f.logger.InfoContext(ctx, "Change relay attached", "exchange", config.AMQPExchange, "origin", relay.Origin())
	}

	f.logger.InfoContext(ctx, "Initialized store backend",
		"type", config.Type,
		"relay_enabled", result.Relay != nil)

	return result, nil
}
