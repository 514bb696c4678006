package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// dateFormats are the calendar formats observed across statement layouts,
// tried in order. Day-first formats come first because the engine primarily
// targets European card statements.
var dateFormats = []string{
	"02.01.2006",
	"02.01.06",
	"2.1.2006",
	"2.1.06",
	"02/01/2006",
	"02/01/06",
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseStatementDate parses a calendar date string using the known
// statement formats.
func ParseStatementDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q: %w", s, lastErr)
}

// inlineDateRe matches a calendar date anywhere in a statement line:
// dd.mm.yy, dd.mm.yyyy, dd/mm/yyyy or ISO yyyy-mm-dd.
var inlineDateRe = regexp.MustCompile(`\b(\d{1,2}[./]\d{1,2}[./]\d{2,4}|\d{4}-\d{2}-\d{2})\b`)

// FindInlineDates extracts every parseable calendar date from a line, in
// order of appearance.
func FindInlineDates(line string) []time.Time {
	var dates []time.Time
	for _, m := range inlineDateRe.FindAllString(line, -1) {
		if t, err := ParseStatementDate(m); err == nil {
			dates = append(dates, t)
		}
	}
	return dates
}

// HasInlineDate reports whether the line carries at least one parseable date.
func HasInlineDate(line string) bool {
	return len(FindInlineDates(line)) > 0
}

// filenameDateRes match dates embedded in uploaded statement filenames,
// e.g. "statement_2024-03-31.csv" or "abrechnung-31.03.2024.txt".
var filenameDateRes = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(\d{2}\.\d{2}\.\d{4})`),
	regexp.MustCompile(`(\d{4})[-_](\d{2})(?:[-_.]|$)`),
}

// DateFromFilename extracts a date embedded in a filename. A bare
// year-month pair resolves to the first of that month.
func DateFromFilename(name string) (time.Time, bool) {
	for i, re := range filenameDateRes {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if i == 2 {
			t, err := time.Parse("2006-01", m[1]+"-"+m[2])
			if err == nil {
				return t, true
			}
			continue
		}
		if t, err := ParseStatementDate(m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns the absolute whole-day distance between two dates,
// ignoring the time of day.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
