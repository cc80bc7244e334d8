// Package store defines the document store the ledger syncs against.
//
// A store holds named collections of schemaless documents. Clients observe a
// collection through a Subscription that always carries the full current
// document set, and mutate it through single writes or an atomic batch.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrClosed   = errors.New("store closed")
)

type (
	// Fields is the schemaless body of a document.
	Fields map[string]any

	Document struct {
		ID     string
		Fields Fields
	}

	OpKind int

	// Op is a single write inside a batch.
	Op struct {
		Kind       OpKind
		Collection string
		ID         string
		Fields     Fields
	}

	// Change is one notification on a subscription. Docs is the complete
	// document set in store-native order. A non-nil Err means the store
	// could not produce a snapshot; Docs is then empty.
	Change struct {
		Collection string
		Docs       []Document
		Err        error
	}
)

const (
	OpSet OpKind = iota
	OpDelete
)

// Subscriber is the read half of a Store.
type Subscriber interface {
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
}

// Committer applies a list of writes atomically: all of them or none.
// Deleting an id that is already absent is not an error inside a batch.
type Committer interface {
	Commit(ctx context.Context, ops []Op) error
}

type Store interface {
	Subscriber
	Committer

	// Insert stores fields under a new id and returns it.
	Insert(ctx context.Context, collection string, fields Fields) (string, error)
	// SetDoc replaces the whole document at id, creating it if missing.
	SetDoc(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes one document. Missing ids yield ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

// Clone copies f, including nested field maps.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		switch nested := v.(type) {
		case map[string]any:
			out[k] = map[string]any(Fields(nested).Clone())
		case Fields:
			out[k] = nested.Clone()
		default:
			out[k] = v
		}
	}
	return out
}

// Collections returns the distinct collections touched by ops, in first-seen order.
func Collections(ops []Op) []string {
	seen := make(map[string]bool, len(ops))
	var out []string
	for _, op := range ops {
		if !seen[op.Collection] {
			seen[op.Collection] = true
			out = append(out, op.Collection)
		}
	}
	return out
}
