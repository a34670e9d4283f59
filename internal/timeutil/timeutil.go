// Package timeutil normalizes the calendar datetime strings used as
// UseAfter/ClosestTime selector keys and query values into a single
// canonical form, "YYYY-MM-DD HH:MM:SS", so comparisons are simple
// lexical string comparisons.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Canonical is the normalized layout every timestamp is rendered to.
const Canonical = "2006-01-02 15:04:05"

// layouts lists every input form the mapping corpus and query headers
// are observed to use: a bare date, a date+time separated by a space,
// the same separated by 'T', and the docstring-style single-digit
// month/day form (e.g. "2017-4-24").
var layouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
	"2006-1-2 15:04:05",
}

// Parse normalizes s, in any of the recognized input forms, to a
// time.Time in UTC. Fractional seconds, if present, are discarded by
// trimming everything from a literal '.' onward before matching layouts,
// since none of the UseAfter/ClosestTime keys observed in the corpus
// carry sub-second precision.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timeutil: empty timestamp")
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("timeutil: cannot parse %q: %w", s, lastErr)
}

// Normalize parses s and re-renders it in the Canonical layout. Used
// when installing selector keys at load time and when joining header
// values (e.g. DATE-OBS + " " + TIME-OBS) at query time.
func Normalize(s string) (string, error) {
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	return t.Format(Canonical), nil
}

// Join combines a date-only header value and a time-only header value
// into the single datetime string UseAfter compares against ("joins
// header values... with a single space").
func Join(date, clock string) string {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return date
	}
	return date + " " + clock
}

// Compare returns -1, 0, or 1 as the normalized forms of a and b
// compare; it parses both, so inputs need not already be canonical.
func Compare(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	switch {
	case ta.Before(tb):
		return -1, nil
	case ta.After(tb):
		return 1, nil
	default:
		return 0, nil
	}
}
