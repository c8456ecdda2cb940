// Package ledger holds the pure rules of the sales ledger: how stored date
// strings map to calendar days, how records get their identity, how header
// rows are told apart from data, and how records aggregate into reports.
//
// Nothing in this package performs I/O or blocks.
package ledger

import (
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultZone is the zone the salon operates in.
const DefaultZone = "Asia/Dubai"

// DateKeyLayout is the canonical DD/MM/YYYY date key.
const DateKeyLayout = "02/01/2006"

const displayTimeLayout = "3:04 PM"

// NotAvailable is rendered for missing or unreadable times.
const NotAvailable = "N/A"

var (
	clockPattern = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?(\s?[AaPp][Mm])?$`)
	jsZoneSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	keyShape     = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
)

// Layouts carrying their own offset. Parsed values are converted into the
// calendar's zone.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 2 2006 15:04:05 GMT-0700",
	time.RFC1123Z,
	time.RFC1123,
}

// Layouts without an offset, read as wall time in the calendar's zone.
// The day-first slash layout covers both padded and unpadded keys.
var wallLayouts = []string{
	"2/1/2006",
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2/1/2006 15:04:05",
	"2/1/2006, 15:04:05",
	"2/1/2006, 3:04:05 pm",
	"Monday, 2 January 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Calendar interprets the date and time strings found in the ledger in one
// fixed zone. All same-day comparisons go through NormalizeDateKey.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the named zone. An empty name selects DefaultZone.
func NewCalendar(zone string) (*Calendar, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &Calendar{loc: loc}, nil
}

// NewCalendarIn builds a calendar over an already loaded location.
func NewCalendarIn(loc *time.Location) *Calendar {
	return &Calendar{loc: loc}
}

// Location returns the calendar's zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// NormalizeDateKey maps any date representation seen in the ledger to the
// canonical DD/MM/YYYY key. Input already shaped like a key is returned
// as is, even when it names no real day. Unreadable input yields "" and
// never panics.
func (c *Calendar) NormalizeDateKey(raw string) string {
	if s := strings.TrimSpace(raw); keyShape.MatchString(s) {
		return s
	}
	t, ok := c.ParseTimestamp(raw)
	if !ok {
		return ""
	}
	return t.Format(DateKeyLayout)
}

// ValidDateKey normalizes raw and reports whether the key names a real
// calendar day. Anything written to the ledger goes through it.
func (c *Calendar) ValidDateKey(raw string) (string, bool) {
	key := c.NormalizeDateKey(raw)
	if _, ok := c.KeyTime(key); !ok {
		return "", false
	}
	return key, true
}

// FormatDisplayTime renders a stored time for humans as "3:04 PM".
// A bare clock time is returned unchanged.
func (c *Calendar) FormatDisplayTime(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return NotAvailable
	}
	if clockPattern.MatchString(s) {
		return s
	}
	t, ok := c.ParseTimestamp(s)
	if !ok {
		return NotAvailable
	}
	return t.Format(displayTimeLayout)
}

// Today returns the date key of now in the calendar's zone.
func (c *Calendar) Today(now time.Time) string {
	return now.In(c.loc).Format(DateKeyLayout)
}

// KeyTime returns midnight of a canonical date key.
func (c *Calendar) KeyTime(key string) (time.Time, bool) {
	t, err := time.ParseInLocation(DateKeyLayout, key, c.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseTimestamp reads raw with every known layout and returns the instant
// expressed in the calendar's zone.
func (c *Calendar) ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = jsZoneSuffix.ReplaceAllString(s, "")

	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(c.loc), true
		}
	}
	for _, layout := range wallLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
