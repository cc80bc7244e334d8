// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"duoledger/internal/store"
)

// Latest waits for the pending change on sub.
func Latest(t *testing.T, sub *store.Subscription) store.Change {
	t.Helper()
	select {
	case c, ok := <-sub.Changes():
		if !ok {
			t.Fatalf("subscription closed")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change on %s", sub.Collection())
	}
	return store.Change{}
}

func ids(docs []store.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Run exercises the store contract against a fresh store from open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("initial snapshot is empty", func(t *testing.T) {
		s := open(t)
		sub, err := s.Subscribe(context.Background(), "tx")
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Close()
		c := Latest(t, sub)
		if c.Err != nil || len(c.Docs) != 0 {
			t.Fatalf("unexpected initial change: %+v", c)
		}
	})

	t.Run("writes keep native order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		sub, err := s.Subscribe(ctx, "tx")
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Close()
		Latest(t, sub)

		a, err := s.Insert(ctx, "tx", store.Fields{"note": "a", "n": int64(5)})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		Latest(t, sub)
		if err := s.SetDoc(ctx, "tx", "b", store.Fields{"note": "b"}); err != nil {
			t.Fatalf("set: %v", err)
		}
		Latest(t, sub)
		if err := s.SetDoc(ctx, "tx", a, store.Fields{"note": "a2", "n": int64(7)}); err != nil {
			t.Fatalf("replace: %v", err)
		}
		c := Latest(t, sub)
		if got := ids(c.Docs); !equal(got, []string{a, "b"}) {
			t.Fatalf("order = %v", got)
		}
		f := c.Docs[0].Fields
		if f["note"] != "a2" || fmt.Sprint(f["n"]) != "7" {
			t.Fatalf("replace should overwrite fields, got %v", f)
		}
	})

	t.Run("delete of missing id is not found", func(t *testing.T) {
		s := open(t)
		err := s.Delete(context.Background(), "tx", "nope")
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("commit applies all ops and tolerates absent ids", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for _, id := range []string{"a", "b"} {
			if err := s.SetDoc(ctx, "tx", id, store.Fields{"note": id}); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		sub, err := s.Subscribe(ctx, "tx")
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Close()
		Latest(t, sub)

		err = store.NewBatch(s).
			Delete("tx", "a").
			Delete("tx", "gone").
			Set("tx", "c", store.Fields{"note": "c"}).
			Commit(ctx)
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
		c := Latest(t, sub)
		if got := ids(c.Docs); !equal(got, []string{"b", "c"}) {
			t.Fatalf("after commit = %v", got)
		}
	})

	t.Run("collections are independent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, err := s.Insert(ctx, "notes", store.Fields{"text": "hi"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		sub, err := s.Subscribe(ctx, "tx")
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Close()
		if c := Latest(t, sub); len(c.Docs) != 0 {
			t.Fatalf("tx should be empty, got %d docs", len(c.Docs))
		}
	})

	t.Run("closed subscription stops delivery", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		sub, err := s.Subscribe(ctx, "tx")
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		sub.Close()
		sub.Close()
		if _, err := s.Insert(ctx, "tx", store.Fields{"note": "x"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		for range sub.Changes() {
		}
	})

	t.Run("cancelled context closes subscription", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		sub, err := s.Subscribe(ctx, "tx")
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		cancel()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-sub.Changes():
				if !ok {
					return
				}
			case <-deadline:
				t.Fatalf("subscription not closed after cancel")
			}
		}
	})

	t.Run("closed store rejects writes", func(t *testing.T) {
		s := open(t)
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		_, err := s.Insert(context.Background(), "tx", store.Fields{"note": "x"})
		if !errors.Is(err, store.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})
}
