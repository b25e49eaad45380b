package statement

import (
	"context"
	"fmt"
	"sync"
)

// MemoryAppender collects statement rows in memory. Used in tests and when no
// spreadsheet is configured.
type MemoryAppender struct {
	mu   sync.Mutex
	rows []Row
}

var _ RowAppender = (*MemoryAppender)(nil)

func NewMemoryAppender() *MemoryAppender {
	return &MemoryAppender{}
}

func (m *MemoryAppender) Append(_ context.Context, row Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.rows, row)
	return fmt.Sprintf("memory:%d", len(m.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (m *MemoryAppender) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}
