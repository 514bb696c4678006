package ingest

import (
	"regexp"
	"strings"

	"statement-splitter/internal/models"
	"statement-splitter/internal/parsers"
)

var sliceLetterRe = regexp.MustCompile(`\p{L}`)

// TableSlice cuts unstructured statement text down to its transaction
// table: the range from the first date-bearing line to the balance or
// carry-over marker that follows the last one. Up to two preceding lines
// are kept when they read like the description of the first row. Text
// without any date-bearing line passes through unchanged.
func TableSlice(text string, markers *parsers.MarkerTable) string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}

	first, last := -1, -1
	for i, line := range lines {
		if markers.IsIgnored(line) {
			continue
		}
		if models.HasInlineDate(line) {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return text
	}

	start := first
	for back := 0; back < 2 && start > 0; back++ {
		prev := lines[start-1]
		if !sliceLetterRe.MatchString(prev) || markers.IsIgnored(prev) || models.HasInlineDate(prev) {
			break
		}
		start--
	}

	end := len(lines)
	for i := last + 1; i < len(lines); i++ {
		if markers.IsIgnored(lines[i]) {
			end = i
			break
		}
	}

	return strings.Join(lines[start:end], "\n")
}
