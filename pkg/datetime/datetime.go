// Package datetime normalizes the loosely formatted dates and clock times found in
// uploaded spreadsheets. Nothing in here returns an error: a value either parses or
// it does not.
package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the canonical date form.
const DateLayout = "2006-01-02"

type datePattern struct {
	re        *regexp.Regexp
	yearFirst bool
}

// Checked in order. The first pattern whose shape matches gets one attempt.
var datePatterns = []datePattern{
	{re: regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`), yearFirst: true},
	{re: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)},
	{re: regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)},
	{re: regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`), yearFirst: true},
}

var (
	clock24 = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	clock12 = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
)

// ParseDate returns the calendar date (midnight UTC) described by s.
//
// The shaped patterns YYYY-MM-DD, DD/MM/YYYY, DD-MM-YYYY and YYYY/MM/DD are tried
// first. When none of them matches, or the matching one names a day that does not
// exist, the raw string is handed to a generic parser. Ambiguous slash dates that
// reach the generic parser are read month-first; no attempt is made to guess.
func ParseDate(s string) (time.Time, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, false
	}

	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		var year, month, day int
		if p.yearFirst {
			year, month, day = atoi(m[1]), atoi(m[2]), atoi(m[3])
		} else {
			day, month, year = atoi(m[1]), atoi(m[2]), atoi(m[3])
		}
		if t, ok := calendarDate(year, month, day); ok {
			return t, true
		}
		break
	}

	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseTime accepts H:MM / HH:MM in 24-hour form, or the same followed by an AM/PM
// marker, and returns the zero-padded 24-hour HH:MM form.
func ParseTime(s string) (string, bool) {
	raw := strings.TrimSpace(s)

	if m := clock24.FindStringSubmatch(raw); m != nil {
		hour, minute := atoi(m[1]), atoi(m[2])
		if hour > 23 || minute > 59 {
			return "", false
		}
		return clock(hour, minute), true
	}

	if m := clock12.FindStringSubmatch(raw); m != nil {
		hour, minute := atoi(m[1]), atoi(m[2])
		if hour < 1 || hour > 12 || minute > 59 {
			return "", false
		}
		pm := strings.EqualFold(m[3], "PM")
		switch {
		case pm && hour != 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
		return clock(hour, minute), true
	}

	return "", false
}

// ValidTimeRange reports whether both ends parse and start is strictly before end.
// Canonical HH:MM strings have equal length, so string order is time order.
func ValidTimeRange(start, end string) bool {
	s, ok := ParseTime(start)
	if !ok {
		return false
	}
	e, ok := ParseTime(end)
	if !ok {
		return false
	}
	return s < e
}

// Minutes converts a canonical HH:MM clock to minutes after midnight.
func Minutes(hhmm string) (int, bool) {
	c, ok := ParseTime(hhmm)
	if !ok {
		return 0, false
	}
	return atoi(c[:2])*60 + atoi(c[3:]), true
}

// FromMinutes is the inverse of Minutes. Values outside a day are clamped.
func FromMinutes(m int) string {
	if m < 0 {
		m = 0
	}
	if m > 23*60+59 {
		m = 23*60 + 59
	}
	return clock(m/60, m%60)
}

// At combines a calendar date and an HH:MM clock in loc.
func At(date time.Time, hhmm string, loc *time.Location) (time.Time, bool) {
	m, ok := Minutes(hhmm)
	if !ok {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), m/60, m%60, 0, 0, loc), true
}

func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func clock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
