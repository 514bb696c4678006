package parsers

import (
	"fmt"
	"regexp"
)

// MarkerTable holds the localizable pattern sets that classify statement
// lines. New statement layouts and languages are supported by extending the
// table (via configuration), not by changing parser logic.
type MarkerTable struct {
	ignore     []*regexp.Regexp
	settlement []*regexp.Regexp
	fee        []*regexp.Regexp
	total      []*regexp.Regexp
}

// MarkerPatterns is the serializable form of a MarkerTable, as it appears
// in a config file.
type MarkerPatterns struct {
	Ignore     []string `json:"ignore" mapstructure:"ignore"`
	Settlement []string `json:"settlement" mapstructure:"settlement"`
	Fee        []string `json:"fee" mapstructure:"fee"`
	Total      []string `json:"total" mapstructure:"total"`
}

// DefaultMarkerPatterns returns the built-in multilingual marker sets
// (English, German, French) covering the balance, carry-over, subtotal and
// footer lines seen on common card statements.
func DefaultMarkerPatterns() MarkerPatterns {
	return MarkerPatterns{
		Ignore: []string{
			`(?i)previous\s+balance`,
			`(?i)new\s+balance`,
			`(?i)closing\s+balance`,
			`(?i)balance\s+(?:carried|brought)\s+forward`,
			`(?i)sub\s*total`,
			`(?i)total\s+page`,
			`(?i)page\s+\d+\s*(?:of|/|von|sur)\s*\d+`,
			`(?i)\bIBAN\b`,
			`(?i)saldovortrag`,
			`(?i)(?:alter|neuer|letzter)\s+saldo`,
			`(?i)zwischentotal`,
			`(?i)übertrag`,
			`(?i)gesamttotal`,
			`(?i)(?:ancien|nouveau)\s+solde`,
			`(?i)report\s+de\s+solde`,
			`(?i)kartenlimite`,
			`(?i)credit\s+limit`,
		},
		Settlement: []string{
			`(?i)payment\s+of\s+(?:the\s+)?previous\s+statement`,
			`(?i)previous\s+card\s+balance`,
			`(?i)payment\s+received(?:\s*[-–]\s*thank\s+you)?`,
			`(?i)zahlung\s+(?:letzte|vorherige)\s+rechnung`,
			`(?i)ihre\s+zahlung`,
			`(?i)gutschrift\s+zahlung`,
			`(?i)paiement\s+(?:du\s+)?(?:relevé|releve)\s+précédent`,
			`(?i)votre\s+paiement`,
		},
		Fee: []string{
			`(?i)conversion\s+fee`,
			`(?i)processing\s+fee`,
			`(?i)withdrawal\s+fee`,
			`(?i)cash\s+advance\s+fee`,
			`(?i)bearbeitungsgeb(?:ü|ue)hr`,
			`(?i)bargeldbezugsgeb(?:ü|ue)hr`,
			`(?i)commission\s+de\s+(?:change|retrait)`,
		},
		Total: []string{
			`(?i)total(?:betrag)?\s+(?:in\s+)?ihren?\s+gunsten`,
			`(?i)totalbetrag`,
			`(?i)amount\s+due`,
			`(?i)total\s+amount`,
			`(?i)montant\s+total`,
		},
	}
}

// NewMarkerTable compiles a pattern set into a MarkerTable.
func NewMarkerTable(p MarkerPatterns) (*MarkerTable, error) {
	compile := func(kind string, patterns []string) ([]*regexp.Regexp, error) {
		res := make([]*regexp.Regexp, 0, len(patterns))
		for _, pat := range patterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("invalid %s marker pattern %q: %w", kind, pat, err)
			}
			res = append(res, re)
		}
		return res, nil
	}

	var (
		mt  MarkerTable
		err error
	)
	if mt.ignore, err = compile("ignore", p.Ignore); err != nil {
		return nil, err
	}
	if mt.settlement, err = compile("settlement", p.Settlement); err != nil {
		return nil, err
	}
	if mt.fee, err = compile("fee", p.Fee); err != nil {
		return nil, err
	}
	if mt.total, err = compile("total", p.Total); err != nil {
		return nil, err
	}
	return &mt, nil
}

// DefaultMarkerTable compiles the built-in pattern sets. It panics only on
// a programming error in the defaults.
func DefaultMarkerTable() *MarkerTable {
	mt, err := NewMarkerTable(DefaultMarkerPatterns())
	if err != nil {
		panic(err)
	}
	return mt
}

func matchAny(res []*regexp.Regexp, line string) bool {
	for _, re := range res {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsIgnored reports whether a line is balance/carry-over/footer noise that
// must never become a line item.
func (mt *MarkerTable) IsIgnored(line string) bool {
	return matchAny(mt.ignore, line)
}

// IsSettlement reports whether a line describes the payment of a previous
// statement. Settlement lines are kept as items but excluded from the
// reconciliation sum, and their direction is incoming.
func (mt *MarkerTable) IsSettlement(line string) bool {
	return matchAny(mt.settlement, line)
}

// IsFee reports whether a line is a conversion/withdrawal fee marker.
func (mt *MarkerTable) IsFee(line string) bool {
	return matchAny(mt.fee, line)
}

// IsTotal reports whether a line announces the statement's ending balance.
func (mt *MarkerTable) IsTotal(line string) bool {
	return matchAny(mt.total, line)
}
