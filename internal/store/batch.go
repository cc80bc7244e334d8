package store

import "context"

// Batch accumulates writes and commits them through a single Commit call.
type Batch struct {
	c   Committer
	ops []Op
}

func NewBatch(c Committer) *Batch {
	return &Batch{c: c}
}

func (b *Batch) Set(collection, id string, fields Fields) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSet, Collection: collection, ID: id, Fields: fields})
	return b
}

func (b *Batch) Delete(collection, id string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

func (b *Batch) Len() int { return len(b.ops) }

// Ops returns a copy of the pending writes.
func (b *Batch) Ops() []Op {
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// Commit applies every pending write. An empty batch is a no-op.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.c.Commit(ctx, b.ops)
}
