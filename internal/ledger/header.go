package ledger

import "strings"

// Labels that mark a header row, by column.
var headerMarkers = []struct {
	col   int
	label string
}{
	{0, "ID"},
	{1, "Date"},
	{3, "Service"},
}

// IsHeaderRow reports whether row is the sheet's header: column 0 reads
// "ID", column 1 reads "Date" or column 3 reads "Service". Missing cells
// count as empty.
func IsHeaderRow(row []string) bool {
	for _, m := range headerMarkers {
		if strings.TrimSpace(cell(row, m.col)) == m.label {
			return true
		}
	}
	return false
}

// DataStartIndex returns the index of the first data row: 1 when the first
// row is a header, 0 otherwise.
func DataStartIndex(rows [][]string) int {
	if len(rows) > 0 && IsHeaderRow(rows[0]) {
		return 1
	}
	return 0
}

// RowNumber translates a 0-based index among data rows into the 1-based
// storage row number, applying the same header offset as every other
// positional operation. Blank rows are skipped, as they are when listing,
// so index N names the same record a listing shows at position N. It
// reports false when index addresses no data row.
func RowNumber(rows [][]string, index int) (int, bool) {
	if index < 0 {
		return 0, false
	}
	seen := 0
	for i := DataStartIndex(rows); i < len(rows); i++ {
		if isBlankRow(rows[i]) {
			continue
		}
		if seen == index {
			return i + 1, true
		}
		seen++
	}
	return 0, false
}
