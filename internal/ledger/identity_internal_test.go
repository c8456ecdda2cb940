package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteSuffix_DiscardsBiasedBytes(t *testing.T) {
	calls := 0
	read := func(p []byte) (int, error) {
		calls++
		fill := byte(252)
		if calls > 1 {
			fill = 251
		}
		for i := range p {
			p[i] = fill
		}
		return len(p), nil
	}

	var b strings.Builder
	writeSuffix(&b, read)

	assert.Equal(t, "zzzzzzzzz", b.String(), "bytes 252..255 must never map to a digit")
	assert.Equal(t, 2, calls)
}

func TestWriteSuffix_UsesEveryDigit(t *testing.T) {
	calls := 0
	read := func(p []byte) (int, error) {
		for i := range p {
			p[i] = byte((calls*idSuffixLen + i) % len(base36Digits))
		}
		calls++
		return len(p), nil
	}

	seen := make(map[rune]bool)
	for range 4 {
		var b strings.Builder
		writeSuffix(&b, read)
		for _, r := range b.String() {
			seen[r] = true
		}
	}
	assert.Len(t, seen, len(base36Digits))
}
