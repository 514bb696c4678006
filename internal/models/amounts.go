package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexibleAmount is the result of normalizing an amount string: a
// non-negative magnitude, the direction inferred from its sign, and whether
// the source text carried an explicit sign at all. Signed lets callers
// apply text-based direction heuristics only where the number itself was
// ambiguous.
type FlexibleAmount struct {
	Magnitude decimal.Decimal
	Direction Direction
	Signed    bool
}

var (
	currencyTokenRe = regexp.MustCompile(`(?i)\b(CHF|EUR|USD|GBP|SEK|NOK|DKK|PLN|CZK|HUF|JPY|CAD|AUD)\b`)
	trailingSignRe  = regexp.MustCompile(`^(.*?)([-−+])$`)
)

// ParseFlexibleAmount normalizes an amount string as found in European and
// US statements and CSV exports. It handles:
//
//   - comma decimal separators with dot or space thousands ("1.234,56", "-12,50")
//   - dot decimal separators with comma thousands ("1,234.56")
//   - unicode minus (U+2212) and trailing sign notation ("12.50-")
//   - non-breaking and narrow spaces, currency codes and symbols
//
// The canonical direction rule: an explicit numeric sign is authoritative
// (negative is out, an explicit plus is in); unsigned magnitudes default to
// out, the card-statement convention where unmarked rows are charges.
// Callers may override the unsigned default with text heuristics such as
// settlement-payment phrasing.
func ParseFlexibleAmount(raw string) (FlexibleAmount, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return FlexibleAmount{}, fmt.Errorf("amount string cannot be empty")
	}

	// Normalize exotic whitespace and the unicode minus.
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u202f', '\u2009':
			return ' '
		case '\u2212':
			return '-'
		default:
			return r
		}
	}, s)

	// Strip currency symbols, codes and Swiss apostrophe thousands marks.
	s = strings.NewReplacer("€", "", "$", "", "£", "", "'", "", "’", "").Replace(s)
	s = currencyTokenRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.TrimSpace(s)

	negative := false
	explicit := false
	if strings.HasPrefix(s, "-") {
		negative = true
		explicit = true
		s = strings.TrimSpace(s[1:])
	} else if strings.HasPrefix(s, "+") {
		explicit = true
		s = strings.TrimSpace(s[1:])
	} else if m := trailingSignRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
		negative = m[2] != "+"
		explicit = true
	}

	s = strings.ReplaceAll(s, " ", "")
	s = normalizeSeparators(s)
	if s == "" {
		return FlexibleAmount{}, fmt.Errorf("no digits in amount %q", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return FlexibleAmount{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}

	if d.IsNegative() {
		negative = true
		explicit = true
	}
	dir := DirectionOut
	if explicit && !negative {
		dir = DirectionIn
	}
	return FlexibleAmount{Magnitude: d.Abs(), Direction: dir, Signed: explicit}, nil
}

// normalizeSeparators rewrites European comma-decimal notation into the
// canonical dot-decimal form expected by decimal.NewFromString.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma == -1 && lastDot == -1:
		return s
	case lastComma == -1:
		// Dots only. A single dot followed by 1-2 digits is a decimal
		// point; otherwise dots are thousands separators ("1.234.567").
		if strings.Count(s, ".") == 1 && len(s)-lastDot-1 <= 2 {
			return s
		}
		return strings.ReplaceAll(s, ".", "")
	case lastDot == -1:
		// Commas only: the last comma is the decimal separator when it is
		// followed by 1-2 digits, otherwise commas group thousands.
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma > lastDot:
		// European: dot thousands, comma decimal ("1.234,56").
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	default:
		// US: comma thousands, dot decimal ("1,234.56").
		return strings.ReplaceAll(s, ",", "")
	}
}

// RoundMoney rounds to two decimal places, the precision of every statement
// comparison in the engine.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
