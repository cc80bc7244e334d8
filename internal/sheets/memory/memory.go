// Package memory is an in-process spreadsheet used when no real sheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	"duoledger/internal/core"
	"duoledger/internal/sheets"
)

type Sheet struct {
	mu      sync.Mutex
	values  [][]any
	exports int
	fail    error
}

var _ sheets.TransactionExporter = (*Sheet)(nil)

func New() *Sheet {
	return &Sheet{}
}

// ReplaceTransactions overwrites the sheet contents.
func (s *Sheet) ReplaceTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	s.values = sheets.Values(txs)
	s.exports++
	return len(txs), nil
}

// FailWith makes every following export return err. nil clears it.
func (s *Sheet) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Values returns a copy of the current contents, header included.
func (s *Sheet) Values() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.values))
	for i, row := range s.values {
		out[i] = append([]any(nil), row...)
	}
	return out
}

// Exports counts successful exports.
func (s *Sheet) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
