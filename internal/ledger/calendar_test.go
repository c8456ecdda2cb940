package ledger_test

import (
	"testing"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalendar(t *testing.T) *ledger.Calendar {
	t.Helper()
	cal, err := ledger.NewCalendar("Asia/Dubai")
	require.NoError(t, err)
	return cal
}

func TestNormalizeDateKey(t *testing.T) {
	cal := newCalendar(t)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"canonical key unchanged", "01/06/2024", "01/06/2024"},
		{"unpadded day and month", "1/6/2024", "01/06/2024"},
		{"surrounding spaces", "  01/06/2024 ", "01/06/2024"},
		{"iso date", "2024-06-01", "01/06/2024"},
		{"utc instant before local midnight", "2024-05-31T20:30:00.000Z", "01/06/2024"},
		{"utc instant after local midnight", "2024-06-01T19:59:59Z", "01/06/2024"},
		{"utc instant crossing to next local day", "2024-06-01T20:00:00Z", "02/06/2024"},
		{"offset instant", "2024-06-01T23:30:00+04:00", "01/06/2024"},
		{"javascript date string", "Sat Jun 01 2024 00:00:00 GMT+0400 (Gulf Standard Time)", "01/06/2024"},
		{"javascript date string other zone", "Fri May 31 2024 22:00:00 GMT+0000 (Coordinated Universal Time)", "01/06/2024"},
		{"long en-GB form", "Saturday, 1 June 2024", "01/06/2024"},
		{"short en-GB form", "1 June 2024", "01/06/2024"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"garbage", "not a date", ""},
		{"impossible day kept as written", "31/02/2024", "31/02/2024"},
		{"impossible month kept as written", "01/13/2024", "01/13/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.NormalizeDateKey(tt.raw))
		})
	}
}

func TestValidDateKey(t *testing.T) {
	cal := newCalendar(t)

	key, ok := cal.ValidDateKey("2024-06-01")
	assert.True(t, ok)
	assert.Equal(t, "01/06/2024", key)

	key, ok = cal.ValidDateKey(" 29/02/2024")
	assert.True(t, ok)
	assert.Equal(t, "29/02/2024", key)

	for _, raw := range []string{"31/02/2024", "01/13/2024", "someday", ""} {
		_, ok := cal.ValidDateKey(raw)
		assert.False(t, ok, raw)
	}
}

func TestNormalizeDateKey_TwoGenerationsMatch(t *testing.T) {
	cal := newCalendar(t)

	// Same calendar day written by the sheet front end and the relational
	// backend.
	assert.Equal(t, cal.NormalizeDateKey("01/06/2024"), cal.NormalizeDateKey("2024-06-01"))
}

func TestFormatDisplayTime(t *testing.T) {
	cal := newCalendar(t)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "N/A"},
		{"bare clock time", "10:30", "10:30"},
		{"bare clock time with seconds", "10:30:15", "10:30:15"},
		{"bare clock time with meridiem", "10:30 AM", "10:30 AM"},
		{"utc instant", "2024-06-01T06:05:00Z", "10:05 AM"},
		{"afternoon", "2024-06-01T10:45:00Z", "2:45 PM"},
		{"garbage", "soon", "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.FormatDisplayTime(tt.raw))
		})
	}
}

func TestToday_UsesCalendarZone(t *testing.T) {
	cal := newCalendar(t)

	// 21:00 UTC is already the next day in Dubai.
	now := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	assert.Equal(t, "02/06/2024", cal.Today(now))
}

func TestNewCalendar_UnknownZone(t *testing.T) {
	_, err := ledger.NewCalendar("Mars/Olympus_Mons")
	assert.Error(t, err)
}
