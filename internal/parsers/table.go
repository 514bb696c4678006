package parsers

import (
	"strings"

	"statement-splitter/internal/models"
)

// legacyTableScan is the fallback for older statement layouts where each
// row starts with a leading date and may continue over several lines. It
// groups consecutive lines starting at a date-leading line, aggregates
// continuation lines until the next date-leading line or a non-transaction
// marker, then takes the last currency-tagged amount on the block as the
// billed amount and the remaining text as the description.
func (rp *RowParser) legacyTableScan(lines []string) []models.StatementLineItem {
	var items []models.StatementLineItem

	var block []string
	flush := func() {
		if len(block) > 0 {
			if item, ok := rp.blockToItem(block); ok {
				items = append(items, item)
			}
			block = nil
		}
	}

	for _, line := range lines {
		if rp.markers.IsIgnored(line) || rp.markers.IsTotal(line) {
			flush()
			continue
		}
		if startsWithDate(line) {
			flush()
			block = append(block, line)
			continue
		}
		if len(block) > 0 {
			block = append(block, line)
		}
	}
	flush()

	return items
}

// startsWithDate reports whether the line leads with a calendar date, the
// row delimiter of legacy table layouts.
func startsWithDate(line string) bool {
	loc := inlineDateScrubRe.FindStringIndex(line)
	return loc != nil && loc[0] == 0
}

// blockToItem condenses an aggregated row block into a line item. Blocks
// without a currency-tagged amount are not transactions.
func (rp *RowParser) blockToItem(block []string) (models.StatementLineItem, bool) {
	joined := strings.Join(block, " ")

	amounts := findCurrencyAmounts(joined)
	if len(amounts) == 0 {
		return models.StatementLineItem{}, false
	}
	billed := amounts[len(amounts)-1]
	if billed.Value.Magnitude.IsZero() {
		return models.StatementLineItem{}, false
	}

	dates := models.FindInlineDates(joined)
	desc := collapseSpaces(stripDatesAndAmounts(joined))
	if desc == "" || !hasLetters(desc) {
		return models.StatementLineItem{}, false
	}

	item := models.StatementLineItem{
		Description: desc,
		Amount:      billed.Value.Magnitude,
		Direction:   rp.markers.directionFor(billed.Value, billed.Value.Signed, desc),
	}
	if len(dates) > 0 {
		d := dates[0]
		item.Date = &d
	}
	return item, true
}
