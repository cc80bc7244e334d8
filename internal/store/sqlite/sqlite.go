// Package sqlite is a durable store backend on a single SQLite file.
// Several processes may share the file. Each store polls PRAGMA data_version
// and reloads its subscribed collections when another connection wrote, so
// the AMQP relay only shortens propagation delay.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"duoledger/internal/store"

	_ "modernc.org/sqlite"
)

const (
	upsertSQL = `INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET fields = excluded.fields,
updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`
	deleteSQL = `DELETE FROM documents WHERE collection = ? AND id = ?`
	selectSQL = `SELECT id, fields FROM documents WHERE collection = ? ORDER BY seq`
)

// WatchInterval is how often a store checks the file for writes made by
// other connections.
var WatchInterval = 500 * time.Millisecond

type Store struct {
	db     *sql.DB
	hub    *store.Hub
	logger *slog.Logger
	closed atomic.Bool

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

var _ store.Store = (*Store)(nil)

// Open creates the database file if needed and applies migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// data_version is per connection, so the watcher keeps its own.
	watchCtx, stop := context.WithCancel(context.Background())
	conn, err := db.Conn(watchCtx)
	if err != nil {
		stop()
		db.Close()
		return nil, fmt.Errorf("open watch connection: %w", err)
	}
	version, err := dataVersion(watchCtx, conn)
	if err != nil {
		stop()
		conn.Close()
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger, stopWatch: stop, watchDone: make(chan struct{})}
	s.hub = store.NewHub(s.load, logger)
	go s.watch(watchCtx, conn, version)

	logger.Info("SQLite store opened", "path", dbPath)
	return s, nil
}

// watch reloads every subscribed collection whenever the database changed
// through a connection other than conn. Writes made by this store trigger
// it too; the extra reload is harmless.
func (s *Store) watch(ctx context.Context, conn *sql.Conn, last int64) {
	defer close(s.watchDone)
	defer conn.Close()

	ticker := time.NewTicker(WatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v, err := dataVersion(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("Failed to poll database version", "error", err)
			continue
		}
		if v == last {
			continue
		}
		last = v
		s.logger.Debug("Database changed by another connection", "data_version", v)
		// A reload cut short by Close would hand subscribers an error snapshot.
		s.hub.RefreshAll(context.WithoutCancel(ctx))
	}
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return v, nil
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
	if s.closed.Load() {
		return store.ErrClosed
	}
	body, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, col, id, body); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	s.hub.Notify(ctx, col)
	return nil
}

func (s *Store) Delete(ctx context.Context, col, id string) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	res, err := s.db.ExecContext(ctx, deleteSQL, col, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	s.hub.Notify(ctx, col)
	return nil
}

// Commit applies ops inside one SQL transaction.
func (s *Store) Commit(ctx context.Context, ops []store.Op) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		switch op.Kind {
		case store.OpSet:
			body, err := encodeFields(op.Fields)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, upsertSQL, op.Collection, op.ID, body); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", op.Collection, op.ID, err)
			}
		case store.OpDelete:
			if _, err := tx.ExecContext(ctx, deleteSQL, op.Collection, op.ID); err != nil {
				return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Debug("Batch committed", "ops", len(ops))
	s.hub.Notify(ctx, store.Collections(ops)...)
	return nil
}

func (s *Store) load(ctx context.Context, col string) ([]store.Document, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, selectSQL, col)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []store.Document{}
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(body)
		if err != nil {
			s.logger.Warn("Skipping undecodable document", "collection", col, "id", id, "error", err)
			continue
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.stopWatch()
	<-s.watchDone
	s.hub.Close()
	return s.db.Close()
}

func encodeFields(f store.Fields) ([]byte, error) {
	if f == nil {
		f = store.Fields{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return b, nil
}

// decodeFields keeps numbers as json.Number so integers survive exactly.
func decodeFields(b []byte) (store.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var f store.Fields
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("document body is null")
	}
	return f, nil
}
