package parsers

import (
	"regexp"
	"strings"
	"time"

	"statement-splitter/internal/models"
)

// currencyAmountRe matches a currency-tagged amount as printed on card
// statements: a currency code or symbol followed by a number in European or
// US notation, with an optional leading or trailing sign.
var currencyAmountRe = regexp.MustCompile(
	`(?:\b[A-Z]{3}|[€$£])\s*([-−+]?\s*\d[\d'’.,]*\d|\d)\s*([-−+])?`)

// taggedAmount is a currency-tagged amount found on a line, with the span
// it occupies so callers can strip it from the description.
type taggedAmount struct {
	Value models.FlexibleAmount
	Start int
	End   int
}

// findCurrencyAmounts extracts every currency-tagged amount from a line in
// order of appearance. Unparseable candidates are skipped.
func findCurrencyAmounts(line string) []taggedAmount {
	var amounts []taggedAmount
	for _, loc := range currencyAmountRe.FindAllStringSubmatchIndex(line, -1) {
		raw := line[loc[0]:loc[1]]
		fa, err := models.ParseFlexibleAmount(raw)
		if err != nil {
			continue
		}
		amounts = append(amounts, taggedAmount{Value: fa, Start: loc[0], End: loc[1]})
	}
	return amounts
}

// anchor is a line carrying a currency-tagged amount followed by one or two
// calendar dates: the billed-amount / transaction-date / processing-date
// pattern that delimits rows in unstructured statement text.
type anchor struct {
	LineIdx  int
	Amount   models.FlexibleAmount
	TxDate   *time.Time // first date: when the purchase happened
	ProcDate *time.Time // second date: when it was processed, if printed
	Residual string     // line text with amount and dates stripped
}

// parseAnchorLine recognizes the anchor pattern on a single line. The dates
// must appear after the amount; one or two are accepted.
func parseAnchorLine(idx int, line string) (*anchor, bool) {
	amounts := findCurrencyAmounts(line)
	if len(amounts) == 0 {
		return nil, false
	}
	amt := amounts[0]

	tail := line[amt.End:]
	dates := models.FindInlineDates(tail)
	if len(dates) == 0 || len(dates) > 2 {
		return nil, false
	}

	a := &anchor{LineIdx: idx, Amount: amt.Value, TxDate: &dates[0]}
	if len(dates) == 2 {
		a.ProcDate = &dates[1]
	}

	residual := line[:amt.Start] + stripDatesAndAmounts(tail)
	a.Residual = collapseSpaces(residual)
	return a, true
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

// stripDatesAndAmounts removes inline dates and currency-tagged amounts
// from a line, leaving only free text.
func stripDatesAndAmounts(s string) string {
	s = currencyAmountRe.ReplaceAllString(s, " ")
	s = inlineDateScrubRe.ReplaceAllString(s, " ")
	return s
}

var inlineDateScrubRe = regexp.MustCompile(`\b(\d{1,2}[./]\d{1,2}[./]\d{2,4}|\d{4}-\d{2}-\d{2})\b`)

var letterRe = regexp.MustCompile(`\p{L}`)

// hasLetters reports whether the string contains at least one letter, the
// minimum for a usable description.
func hasLetters(s string) bool {
	return letterRe.MatchString(s)
}

// looksLikeDescription reports whether a line is usable as the description
// of a statement row: it has letters and is neither noise nor an anchor.
func (mt *MarkerTable) looksLikeDescription(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || !hasLetters(trimmed) {
		return false
	}
	if mt.IsIgnored(trimmed) || mt.IsTotal(trimmed) {
		return false
	}
	if _, isAnchor := parseAnchorLine(0, trimmed); isAnchor {
		return false
	}
	return true
}

// directionFor applies the canonical direction rule: an explicit sign on
// the parsed amount wins; unsigned magnitudes default to outgoing, except
// settlement-payment phrasing, which forces incoming.
func (mt *MarkerTable) directionFor(amount models.FlexibleAmount, signed bool, description string) models.Direction {
	if signed {
		return amount.Direction
	}
	if mt.IsSettlement(description) {
		return models.DirectionIn
	}
	return models.DirectionOut
}

// splitLines normalizes raw statement text into trimmed lines, preserving
// order and dropping blank lines.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}
