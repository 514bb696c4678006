package parsers

import (
	"statement-splitter/internal/models"
)

// heuristicLineScan is the last-resort strategy: it only accepts lines
// carrying both an inline date and a currency-tagged amount on the same
// physical line. When the residual description holds no letters, the
// nearest adjacent free-text line is stitched in.
func (rp *RowParser) heuristicLineScan(lines []string) []models.StatementLineItem {
	var items []models.StatementLineItem

	for i, line := range lines {
		if rp.markers.IsIgnored(line) || rp.markers.IsTotal(line) {
			continue
		}

		dates := models.FindInlineDates(line)
		if len(dates) == 0 {
			continue
		}
		amounts := findCurrencyAmounts(line)
		if len(amounts) == 0 {
			continue
		}
		billed := amounts[len(amounts)-1]
		if billed.Value.Magnitude.IsZero() {
			continue
		}

		desc := collapseSpaces(stripDatesAndAmounts(line))
		if !hasLetters(desc) {
			desc = rp.nearestFreeText(lines, i)
		}
		if desc == "" {
			continue
		}

		d := dates[0]
		items = append(items, models.StatementLineItem{
			Description: desc,
			Amount:      billed.Value.Magnitude,
			Date:        &d,
			Direction:   rp.markers.directionFor(billed.Value, billed.Value.Signed, desc),
		})
	}
	return items
}

// nearestFreeText finds the closest adjacent line that reads as free text,
// looking one line back, then one line forward.
func (rp *RowParser) nearestFreeText(lines []string, i int) string {
	for _, idx := range []int{i - 1, i + 1} {
		if idx < 0 || idx >= len(lines) {
			continue
		}
		if rp.markers.looksLikeDescription(lines[idx]) {
			return lines[idx]
		}
	}
	return ""
}
