package ledger

import (
	"context"
	"crypto/rand"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
)

const (
	idPrefix     = "TXN-"
	idSuffixLen  = 9
	base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewID returns a transaction ID of the form TXN-<unix millis>-<base36>.
// The random suffix comes from crypto/rand, so independent clients can mint
// IDs without coordination.
func NewID() string {
	return newIDAt(time.Now())
}

// Random bytes at or above this bound are discarded so every base36 digit
// is equally likely.
const suffixByteBound = 256 - 256%len(base36Digits)

func newIDAt(t time.Time) string {
	var b strings.Builder
	b.Grow(len(idPrefix) + 14 + 1 + idSuffixLen)
	b.WriteString(idPrefix)
	b.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	b.WriteByte('-')
	writeSuffix(&b, rand.Read)
	return b.String()
}

func writeSuffix(b *strings.Builder, read func([]byte) (int, error)) {
	var buf [idSuffixLen * 2]byte
	for n := 0; n < idSuffixLen; {
		_, _ = read(buf[:])
		for _, v := range buf {
			if int(v) >= suffixByteBound {
				continue
			}
			b.WriteByte(base36Digits[int(v)%len(base36Digits)])
			if n++; n == idSuffixLen {
				return
			}
		}
	}
}

// IDWriter persists id into the ID cell of a 1-based storage row. The ID
// cell is the column IDColumn reports for the same rows.
type IDWriter func(ctx context.Context, rowNumber int, id string) error

// BackfillMissingIDs assigns an ID to every data row whose ID cell is blank.
// Each assignment is written through write and, once written, recorded in
// rows as well, so a second pass over the same rows finds nothing to do.
// A failed write is reported in Failed and the scan carries on.
// Entirely blank rows are left alone.
func BackfillMissingIDs(ctx context.Context, rows [][]string, write IDWriter, newID func() string) (domain.BackfillResult, error) {
	if newID == nil {
		newID = NewID
	}

	col := IDColumn(rows)
	if col < 0 {
		return domain.BackfillResult{}, &domain.ErrConflict{Message: "row log header has no ID column"}
	}

	var res domain.BackfillResult
	for i := DataStartIndex(rows); i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++

		row := rows[i]
		if isBlankRow(row) || strings.TrimSpace(cell(row, col)) != "" {
			continue
		}

		id := newID()
		rowNumber := i + 1
		if err := write(ctx, rowNumber, id); err != nil {
			res.Failed = append(res.Failed, rowNumber)
			continue
		}
		for len(row) <= col {
			row = append(row, "")
		}
		row[col] = id
		rows[i] = row
		res.Updated++
	}
	return res, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
