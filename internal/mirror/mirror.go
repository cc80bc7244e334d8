// Package mirror keeps a local, read-only copy of a store collection.
//
// Every store notification replaces the whole snapshot: documents are
// de-duplicated by id, decoded, and ordered by a field descending. Readers
// only ever see immutable, versioned snapshots.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"duoledger/internal/store"
)

// Decoder turns a document into a record. Returning an error drops the
// document from the snapshot.
type Decoder[T any] func(store.Document) (T, error)

// Snapshot is one immutable view of the collection. Version increases by
// one per applied change; the empty snapshot before the first change is 0.
type Snapshot[T any] struct {
	Version uint64
	Records []T
}

func (s Snapshot[T]) Len() int { return len(s.Records) }

type Mirror[T any] struct {
	collection string
	orderField string
	decode     Decoder[T]
	logger     *slog.Logger

	sub     *store.Subscription
	current atomic.Pointer[Snapshot[T]]
	updates chan Snapshot[T]

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// Open subscribes to collection and starts mirroring it. orderField may be
// empty to keep store-native order.
func Open[T any](ctx context.Context, sub store.Subscriber, collection, orderField string, decode Decoder[T], logger *slog.Logger) (*Mirror[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := sub.Subscribe(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	m := &Mirror[T]{
		collection: collection,
		orderField: orderField,
		decode:     decode,
		logger:     logger.With("component", "mirror", "collection", collection),
		sub:        s,
		updates:    make(chan Snapshot[T], 1),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	m.current.Store(&Snapshot[T]{Records: []T{}})

	go m.run()
	return m, nil
}

// Current returns the latest snapshot. It never blocks.
func (m *Mirror[T]) Current() Snapshot[T] {
	return *m.current.Load()
}

// Updates delivers new snapshots. Only the newest unread one is kept, and the
// channel is closed by Close.
func (m *Mirror[T]) Updates() <-chan Snapshot[T] {
	return m.updates
}

// Close releases the store subscription. Snapshots already handed out stay
// valid. Safe to call more than once.
func (m *Mirror[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.sub.Close()
		<-m.stopped
		close(m.updates)
	})
}

func (m *Mirror[T]) run() {
	defer close(m.stopped)
	for {
		select {
		case <-m.done:
			return
		case change, ok := <-m.sub.Changes():
			if !ok {
				return
			}
			if change.Err != nil {
				m.logger.Warn("Store change failed, keeping last snapshot",
					"error", change.Err,
					"version", m.Current().Version)
				continue
			}
			m.apply(change.Docs)
		}
	}
}

func (m *Mirror[T]) apply(docs []store.Document) {
	docs = Order(Dedupe(docs), m.orderField)

	records := make([]T, 0, len(docs))
	for _, d := range docs {
		rec, err := m.decode(d)
		if err != nil {
			m.logger.Debug("Dropping undecodable document", "id", d.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}

	prev := m.current.Load()
	next := &Snapshot[T]{Version: prev.Version + 1, Records: records}
	m.current.Store(next)

	select {
	case <-m.updates:
	default:
	}
	m.updates <- *next
}

// Dedupe drops documents whose id was already seen. The first one wins.
func Dedupe(docs []store.Document) []store.Document {
	seen := make(map[string]bool, len(docs))
	out := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// Order sorts docs by field descending. The sort is stable, so equal or
// missing values keep their relative order; missing values sort last.
// An empty field returns docs unchanged.
func Order(docs []store.Document, field string) []store.Document {
	if field == "" {
		return docs
	}
	out := make([]store.Document, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		return compare(out[i].Fields[field], out[j].Fields[field]) > 0
	})
	return out
}
