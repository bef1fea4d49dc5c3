package wiproto

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDate renders t as the wire's DDMMYY date field.
func FormatDate(t time.Time) string {
	return t.UTC().Format("020106")
}

// FormatTime renders t as the wire's HHMMSS.fffffffff time field, with
// nanosecond-resolution fraction preserved.
func FormatTime(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%s.%09d", u.Format("150405"), u.Nanosecond())
}

// ParseDateTime parses a DDMMYY date field and an HHMMSS[.fffffffff] time
// field into a single UTC time.Time. Sub-second precision is preserved to
// at least microsecond resolution.
func ParseDateTime(date, clock string) (time.Time, error) {
	if len(date) != 6 {
		return time.Time{}, fmt.Errorf("wiproto: malformed date %q", date)
	}
	day, err := strconv.Atoi(date[0:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("wiproto: malformed date %q: %w", date, err)
	}
	month, err := strconv.Atoi(date[2:4])
	if err != nil {
		return time.Time{}, fmt.Errorf("wiproto: malformed date %q: %w", date, err)
	}
	year, err := strconv.Atoi(date[4:6])
	if err != nil {
		return time.Time{}, fmt.Errorf("wiproto: malformed date %q: %w", date, err)
	}

	whole := clock
	var fracNanos int
	if idx := strings.IndexByte(clock, '.'); idx >= 0 {
		whole = clock[:idx]
		frac := clock[idx+1:]
		for len(frac) < 9 {
			frac += "0"
		}
		frac = frac[:9]
		fracNanos, err = strconv.Atoi(frac)
		if err != nil {
			return time.Time{}, fmt.Errorf("wiproto: malformed time fraction %q: %w", clock, err)
		}
	}
	if len(whole) != 6 {
		return time.Time{}, fmt.Errorf("wiproto: malformed time %q", clock)
	}
	hour, err := strconv.Atoi(whole[0:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("wiproto: malformed time %q: %w", clock, err)
	}
	minute, err := strconv.Atoi(whole[2:4])
	if err != nil {
		return time.Time{}, fmt.Errorf("wiproto: malformed time %q: %w", clock, err)
	}
	second, err := strconv.Atoi(whole[4:6])
	if err != nil {
		return time.Time{}, fmt.Errorf("wiproto: malformed time %q: %w", clock, err)
	}

	return time.Date(2000+year, time.Month(month), day, hour, minute, second, fracNanos, time.UTC), nil
}
