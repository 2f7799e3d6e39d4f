package reconcile

import "github.com/ginjaninja78/stock-scan/internal/inventory"

// Ledger is an insertion-ordered set of accepted codes keyed by their
// normalized form. The first casing seen is the one kept.
type Ledger struct {
	codes []string
	index map[string]int
}

// NewLedger returns an empty ledger.
func NewLedger() Ledger {
	return Ledger{index: make(map[string]int)}
}

// Add appends code unless its normalized form is present. It reports
// whether the code was added.
func (l *Ledger) Add(code string) bool {
	key := inventory.Normalize(code)
	if key == "" {
		return false
	}
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if _, ok := l.index[key]; ok {
		return false
	}
	l.index[key] = len(l.codes)
	l.codes = append(l.codes, code)
	return true
}

// Contains reports whether a normalized code is present.
func (l *Ledger) Contains(normalized string) bool {
	_, ok := l.index[normalized]
	return ok
}

// Codes returns a copy of the codes in insertion order.
func (l *Ledger) Codes() []string {
	return append([]string(nil), l.codes...)
}

// Len returns the number of codes.
func (l *Ledger) Len() int { return len(l.codes) }

// Reset empties the ledger.
func (l *Ledger) Reset() {
	l.codes = nil
	l.index = make(map[string]int)
}
