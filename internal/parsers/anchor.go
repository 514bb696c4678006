package parsers

import (
	"github.com/shopspring/decimal"

	"statement-splitter/internal/models"
)

// feeDeferralCeiling is the magnitude under which a neighbouring anchor is
// considered a plausible fee amount. When the nearest description is a fee
// marker and the next anchor is this small, the fee text is left for that
// anchor and the current one takes the next-best description.
var feeDeferralCeiling = decimal.NewFromFloat(5.00)

// anchorScan extracts line items by locating anchor lines (currency-tagged
// amount plus one or two dates) and assigning each a description line.
//
// Description assignment is a small one-to-one matching problem: lines
// strictly between an anchor and the next are preferred (nearest forward
// first), preceding lines are the fallback, and every description line is
// claimed by at most one anchor. The claimed set is local to this call,
// keeping the scan reentrant.
func (rp *RowParser) anchorScan(lines []string) []models.StatementLineItem {
	var anchors []*anchor
	for i, line := range lines {
		if rp.markers.IsIgnored(line) {
			continue
		}
		if a, ok := parseAnchorLine(i, line); ok {
			if a.Amount.Magnitude.IsZero() {
				continue
			}
			anchors = append(anchors, a)
		}
	}
	if len(anchors) == 0 {
		return nil
	}

	claimed := make(map[int]bool)
	items := make([]models.StatementLineItem, 0, len(anchors))

	for ai, a := range anchors {
		desc, descIdx := rp.pickDescription(lines, anchors, ai, claimed)
		if descIdx >= 0 {
			claimed[descIdx] = true
		}
		if desc == "" {
			desc = a.Residual
		}
		if desc == "" || rp.markers.IsIgnored(desc) {
			continue
		}

		item := models.StatementLineItem{
			Description: desc,
			Amount:      a.Amount.Magnitude,
			Date:        a.TxDate,
			Direction:   rp.markers.directionFor(a.Amount, a.Amount.Signed, desc),
		}
		items = append(items, item)
	}
	return items
}

// pickDescription finds the best unclaimed description for anchor ai.
// The anchor's own residual text wins outright; otherwise candidates are
// taken nearest first.
func (rp *RowParser) pickDescription(lines []string, anchors []*anchor, ai int, claimed map[int]bool) (string, int) {
	if a := anchors[ai]; rp.markers.looksLikeDescription(a.Residual) {
		return a.Residual, -1
	}

	candidates := rp.descriptionCandidates(lines, anchors, ai, claimed)
	if len(candidates) == 0 {
		return "", -1
	}
	best := candidates[0]

	// Fee deferral: when the nearest description is a fee marker and the
	// following anchor carries a fee-sized amount, that text belongs to the
	// small amount. Take the next-best non-fee description instead.
	if rp.markers.IsFee(lines[best]) && rp.nextAnchorIsFeeSized(anchors, ai) {
		for _, idx := range candidates[1:] {
			if !rp.markers.IsFee(lines[idx]) {
				return lines[idx], idx
			}
		}
	}

	return lines[best], best
}

// descriptionCandidates lists the unclaimed description lines usable by
// anchor ai: lines strictly between this anchor and the next (nearest
// forward first), then preceding lines back to the previous anchor
// (nearest first). The backward range lets a fee anchor recover its fee
// text after a deferral claimed the line between them.
func (rp *RowParser) descriptionCandidates(lines []string, anchors []*anchor, ai int, claimed map[int]bool) []int {
	a := anchors[ai]
	usable := func(idx int) bool {
		return idx >= 0 && idx < len(lines) && !claimed[idx] && rp.markers.looksLikeDescription(lines[idx])
	}

	var out []int
	limit := len(lines)
	if ai+1 < len(anchors) {
		limit = anchors[ai+1].LineIdx
	}
	for idx := a.LineIdx + 1; idx < limit; idx++ {
		if usable(idx) {
			out = append(out, idx)
		}
	}
	floor := -1
	if ai > 0 {
		floor = anchors[ai-1].LineIdx
	}
	for idx := a.LineIdx - 1; idx > floor; idx-- {
		if usable(idx) {
			out = append(out, idx)
		}
	}
	return out
}

func (rp *RowParser) nextAnchorIsFeeSized(anchors []*anchor, ai int) bool {
	if ai+1 >= len(anchors) {
		return false
	}
	return anchors[ai+1].Amount.Magnitude.LessThanOrEqual(feeDeferralCeiling)
}
