package memory

import (
	"context"
	"testing"

	"duoledger/internal/store"
	"duoledger/internal/store/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s := New(nil)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestMemoryStoreIsolatesCallerFields(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	alloc := map[string]any{"Ali": int64(10)}
	f := store.Fields{"allocations": alloc}
	if err := s.SetDoc(ctx, "budgets", "2025-01", f); err != nil {
		t.Fatalf("set: %v", err)
	}
	alloc["Ali"] = int64(99)

	sub, err := s.Subscribe(ctx, "budgets")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	c := storetest.Latest(t, sub)
	got := c.Docs[0].Fields["allocations"].(map[string]any)["Ali"]
	if got != int64(10) {
		t.Fatalf("stored fields mutated through caller map: %v", got)
	}
	if s.Len("budgets") != 1 {
		t.Fatalf("expected 1 budget, got %d", s.Len("budgets"))
	}
}

type recordingRelay struct{ published []string }

func (r *recordingRelay) Publish(_ context.Context, col string) error {
	r.published = append(r.published, col)
	return nil
}

func TestMemoryStoreRelaysWrites(t *testing.T) {
	s := New(nil)
	relay := &recordingRelay{}
	s.Hub().SetRelay(relay)
	ctx := context.Background()

	err := store.NewBatch(s).
		Set("transactions", "a", store.Fields{}).
		Set("transactions", "b", store.Fields{}).
		Set("notes", "n", store.Fields{}).
		Commit(ctx)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(relay.published) != 2 || relay.published[0] != "transactions" || relay.published[1] != "notes" {
		t.Fatalf("unexpected relay calls: %v", relay.published)
	}

	s.Hub().Refresh(ctx, "transactions")
	if len(relay.published) != 2 {
		t.Fatalf("refresh must not relay")
	}
}
