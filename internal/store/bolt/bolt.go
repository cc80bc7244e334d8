// Package bolt is an embedded store backend on bbolt. Each collection is a
// bucket keyed by document id; the value carries the insertion sequence so
// native order survives restarts.
//
// bbolt locks the file exclusively, so a bolt store belongs to one process.
// Every write goes through that process's hub; there is no foreign writer
// to watch for.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"duoledger/internal/store"

	bbolt "go.etcd.io/bbolt"
)

type record struct {
	Seq    uint64       `json:"seq"`
	Fields store.Fields `json:"fields"`
}

// OpenTimeout bounds how long Open waits for another holder of the file lock.
var OpenTimeout = 2 * time.Second

type Store struct {
	db     *bbolt.DB
	hub    *store.Hub
	logger *slog.Logger
	closed atomic.Bool
}

var _ store.Store = (*Store)(nil)

func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db, logger: logger}
	s.hub = store.NewHub(s.load, logger)
	logger.Info("Bolt store opened", "path", dbPath)
	return s, nil
}

func (s *Store) Hub() *store.Hub { return s.hub }

func (s *Store) Subscribe(ctx context.Context, col string) (*store.Subscription, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	return s.hub.Subscribe(ctx, col)
}

func (s *Store) Insert(ctx context.Context, col string, fields store.Fields) (string, error) {
	id := store.NewID()
	if err := s.SetDoc(ctx, col, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SetDoc(ctx context.Context, col, id string, fields store.Fields) error {
	return s.update(ctx, []store.Op{{Kind: store.OpSet, Collection: col, ID: id, Fields: fields}}, false)
}

func (s *Store) Delete(ctx context.Context, col, id string) error {
	return s.update(ctx, []store.Op{{Kind: store.OpDelete, Collection: col, ID: id}}, true)
}

// Commit applies ops in one bbolt read-write transaction.
func (s *Store) Commit(ctx context.Context, ops []store.Op) error {
	return s.update(ctx, ops, false)
}

func (s *Store) update(ctx context.Context, ops []store.Op, strictDelete bool) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, op := range ops {
			b, err := tx.CreateBucketIfNotExists([]byte(op.Collection))
			if err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", op.Collection, err)
			}
			key := []byte(op.ID)

			switch op.Kind {
			case store.OpSet:
				rec := record{Fields: op.Fields}
				if rec.Fields == nil {
					rec.Fields = store.Fields{}
				}
				if prev := b.Get(key); prev != nil {
					var old record
					if err := json.Unmarshal(prev, &old); err != nil {
						return fmt.Errorf("decode %s/%s: %w", op.Collection, op.ID, err)
					}
					rec.Seq = old.Seq
				} else {
					seq, err := b.NextSequence()
					if err != nil {
						return err
					}
					rec.Seq = seq
				}
				data, err := json.Marshal(rec)
				if err != nil {
					return fmt.Errorf("failed to marshal value: %w", err)
				}
				if err := b.Put(key, data); err != nil {
					return err
				}
			case store.OpDelete:
				if strictDelete && b.Get(key) == nil {
					return store.ErrNotFound
				}
				if err := b.Delete(key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.hub.Notify(ctx, store.Collections(ops)...)
	return nil
}

func (s *Store) load(_ context.Context, col string) ([]store.Document, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	type seqDoc struct {
		seq uint64
		doc store.Document
	}
	var all []seqDoc

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.UseNumber()
			var rec record
			if err := dec.Decode(&rec); err != nil {
				s.logger.Warn("Skipping undecodable document", "collection", col, "id", string(k), "error", err)
				return nil
			}
			all = append(all, seqDoc{seq: rec.Seq, doc: store.Document{ID: string(k), Fields: rec.Fields}})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	docs := make([]store.Document, len(all))
	for i, sd := range all {
		docs[i] = sd.doc
	}
	return docs, nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.hub.Close()
	return s.db.Close()
}
