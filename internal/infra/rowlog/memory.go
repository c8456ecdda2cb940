// Package rowlog implements the transaction and catalog stores on top of
// any position-addressed row log, such as a spreadsheet tab.
package rowlog

import (
	"context"
	"sync"

	"github.com/boddenberg/salon-pos-go/internal/domain"
)

// MemoryLog is an in-process RowLog. It backs the memory backend and tests.
type MemoryLog struct {
	mu   sync.RWMutex
	rows [][]string
}

// NewMemoryLog creates a log holding copies of rows.
func NewMemoryLog(rows ...[]string) *MemoryLog {
	l := &MemoryLog{}
	for _, r := range rows {
		l.rows = append(l.rows, cloneRow(r))
	}
	return l
}

// ReadRows returns a copy of every row.
func (l *MemoryLog) ReadRows(_ context.Context) ([][]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([][]string, len(l.rows))
	for i, r := range l.rows {
		out[i] = cloneRow(r)
	}
	return out, nil
}

// AppendRow adds row at the end.
func (l *MemoryLog) AppendRow(_ context.Context, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rows = append(l.rows, cloneRow(row))
	return nil
}

// InsertRow places row at rowNumber, shifting later rows down.
func (l *MemoryLog) InsertRow(_ context.Context, rowNumber int, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rowNumber < 1 || rowNumber > len(l.rows)+1 {
		return &domain.ErrInvalidIndex{Index: rowNumber}
	}
	i := rowNumber - 1
	l.rows = append(l.rows, nil)
	copy(l.rows[i+1:], l.rows[i:])
	l.rows[i] = cloneRow(row)
	return nil
}

// UpdateRow replaces the row at rowNumber.
func (l *MemoryLog) UpdateRow(_ context.Context, rowNumber int, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rowNumber < 1 || rowNumber > len(l.rows) {
		return &domain.ErrInvalidIndex{Index: rowNumber}
	}
	l.rows[rowNumber-1] = cloneRow(row)
	return nil
}

// DeleteRow removes the row at rowNumber, shifting later rows up.
func (l *MemoryLog) DeleteRow(_ context.Context, rowNumber int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rowNumber < 1 || rowNumber > len(l.rows) {
		return &domain.ErrInvalidIndex{Index: rowNumber}
	}
	l.rows = append(l.rows[:rowNumber-1], l.rows[rowNumber:]...)
	return nil
}

func cloneRow(r []string) []string {
	return append([]string(nil), r...)
}
