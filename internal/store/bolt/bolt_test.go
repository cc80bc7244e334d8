package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"duoledger/internal/store"
	"duoledger/internal/store/storetest"
)

func TestBoltStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "ledger.bolt"), nil)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestBoltStoreRefusesSecondHolder(t *testing.T) {
	prev := OpenTimeout
	OpenTimeout = 100 * time.Millisecond
	t.Cleanup(func() { OpenTimeout = prev })

	path := filepath.Join(t.TempDir(), "ledger.bolt")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if other, err := Open(path, nil); err == nil {
		other.Close()
		t.Fatalf("second open of a locked file should fail")
	}
}

func TestBoltStoreOrderSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.bolt")
	ctx := context.Background()

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// ids chosen so key order differs from insertion order
	for _, id := range []string{"zz", "aa", "mm"} {
		if err := s.SetDoc(ctx, "notes", id, store.Fields{"text": id}); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}
	s.Close()

	s, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	sub, err := s.Subscribe(ctx, "notes")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	c := storetest.Latest(t, sub)
	want := []string{"zz", "aa", "mm"}
	if len(c.Docs) != len(want) {
		t.Fatalf("got %d docs", len(c.Docs))
	}
	for i, d := range c.Docs {
		if d.ID != want[i] {
			t.Fatalf("doc %d = %s, want %s", i, d.ID, want[i])
		}
	}
}
