package ledger_test

import (
	"testing"

	"github.com/boddenberg/salon-pos-go/internal/ledger"

	"github.com/stretchr/testify/assert"
)

func TestIsHeaderRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{"full header", []string{"ID", "Date", "Customer", "Service", "Worker"}, true},
		{"data row", []string{"TXN-1", "01/01/2024", "Ava", "Cut", "Maria"}, false},
		{"date label only", []string{"", "Date", "", "Service"}, true},
		{"service label only", []string{"x", "y", "z", "Service"}, true},
		{"short row", []string{"TXN-1"}, false},
		{"empty row", nil, false},
		{"label in wrong column", []string{"Date", "ID"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.IsHeaderRow(tt.row))
		})
	}
}

func TestDataStartIndex(t *testing.T) {
	assert.Equal(t, 1, ledger.DataStartIndex([][]string{{"", "Date", "", "Service"}, {"TXN-1"}}))
	assert.Equal(t, 0, ledger.DataStartIndex([][]string{{"TXN-1", "01/01/2024"}}))
	assert.Equal(t, 0, ledger.DataStartIndex(nil))
}

func TestRowNumber(t *testing.T) {
	withHeader := [][]string{{"ID", "Date"}, {"TXN-1"}, {"TXN-2"}}
	withoutHeader := [][]string{{"TXN-1"}, {"TXN-2"}}

	n, ok := ledger.RowNumber(withHeader, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = ledger.RowNumber(withHeader, 1)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = ledger.RowNumber(withHeader, 2)
	assert.False(t, ok)

	n, ok = ledger.RowNumber(withoutHeader, 1)
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = ledger.RowNumber(withoutHeader, -1)
	assert.False(t, ok)
}

func TestRowNumber_SkipsBlankRowsLikeListing(t *testing.T) {
	rows := [][]string{{"ID", "Date"}, {"TXN-1"}, {"", " "}, {}, {"TXN-2"}}

	n, ok := ledger.RowNumber(rows, 1)
	assert.True(t, ok)
	assert.Equal(t, 5, n, "index 1 is the second non-blank data row")

	_, ok = ledger.RowNumber(rows, 2)
	assert.False(t, ok)
}
