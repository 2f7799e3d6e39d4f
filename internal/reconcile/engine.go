// =============================================================================
// Stock Scan - Reconciliation Engine
// =============================================================================
//
// The engine decides what happens to every candidate code, whichever input
// produced it. Submission is a total function of the current state:
//
//   1. Trim. Empty or shorter than the minimum length -> Empty, nothing changes.
//   2. Normalize (trim + case-fold).
//   3. Already scanned                 -> Duplicate, last scan updated.
//   4. Not in the expected set         -> NotExpected, last scan updated.
//   5. Otherwise appended to the ledger -> Accepted, last scan updated.
//
// Outcomes are values, never errors: duplicates and unexpected items are
// routine events the operator needs to see straight away.
//
// CONCURRENCY:
//   An Engine is not safe for concurrent use. The session serializes access.
//
// =============================================================================

package reconcile

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ginjaninja78/stock-scan/internal/inventory"
)

// =============================================================================
// OUTCOMES
// =============================================================================

// Outcome classifies one submission.
type Outcome int

const (
	Empty Outcome = iota
	Accepted
	Duplicate
	NotExpected
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case NotExpected:
		return "not-expected"
	default:
		return "empty"
	}
}

// ChangesState reports whether the outcome touched the session state.
func (o Outcome) ChangesState() bool {
	return o != Empty
}

// Source tags where a candidate code came from.
type Source string

const (
	SourceKeyboard Source = "keyboard"
	SourceCamera   Source = "camera"
	SourceManual   Source = "manual"
)

// Event describes the result of one submission.
type Event struct {
	// Code is the submitted code, trimmed, in its original casing.
	Code string

	Outcome Outcome
	Source  Source
	At      time.Time
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine holds the scanned ledger, the expected index and the last scan.
type Engine struct {
	minLength int
	clock     func() time.Time

	ledger   Ledger
	expected map[string]struct{}
	lastScan string
}

// NewEngine returns an engine rejecting codes shorter than minLength runes.
func NewEngine(minLength int) *Engine {
	if minLength < 1 {
		minLength = 1
	}
	return &Engine{
		minLength: minLength,
		clock:     time.Now,
		ledger:    NewLedger(),
		expected:  make(map[string]struct{}),
	}
}

// SetClock replaces the event timestamp source.
func (e *Engine) SetClock(clock func() time.Time) {
	if clock != nil {
		e.clock = clock
	}
}

// SetExpected replaces the expected index with the given records'
// identifiers. Call it whenever the records or the category filter change.
func (e *Engine) SetExpected(columns inventory.Columns, expected []inventory.Record) {
	index := make(map[string]struct{}, len(expected))
	for _, r := range expected {
		if id := inventory.Normalize(columns.IdentifierOf(r)); id != "" {
			index[id] = struct{}{}
		}
	}
	e.expected = index
}

// Restore reloads a persisted ledger. Codes that collide after
// normalization keep the first occurrence.
func (e *Engine) Restore(scanned []string, lastScan string) {
	e.ledger.Reset()
	for _, code := range scanned {
		e.ledger.Add(code)
	}
	e.lastScan = lastScan
}

// Submit reconciles one candidate code.
func (e *Engine) Submit(code string, source Source) Event {
	code = strings.TrimSpace(code)
	ev := Event{Code: code, Source: source, At: e.clock()}

	if code == "" || utf8.RuneCountInString(code) < e.minLength {
		ev.Outcome = Empty
		return ev
	}

	normalized := inventory.Normalize(code)
	e.lastScan = code

	switch {
	case e.ledger.Contains(normalized):
		ev.Outcome = Duplicate
	case !e.isExpected(normalized):
		ev.Outcome = NotExpected
	default:
		e.ledger.Add(code)
		ev.Outcome = Accepted
	}
	return ev
}

// IsExpected reports whether code is in the expected set.
func (e *Engine) IsExpected(code string) bool {
	return e.isExpected(inventory.Normalize(code))
}

func (e *Engine) isExpected(normalized string) bool {
	_, ok := e.expected[normalized]
	return ok
}

// IsScanned reports whether code has been accepted.
func (e *Engine) IsScanned(code string) bool {
	return e.ledger.Contains(inventory.Normalize(code))
}

// Scanned returns the accepted codes in insertion order.
func (e *Engine) Scanned() []string { return e.ledger.Codes() }

// LastScan returns the most recent non-empty submission.
func (e *Engine) LastScan() string { return e.lastScan }

// ExpectedCount returns the size of the expected set.
func (e *Engine) ExpectedCount() int { return len(e.expected) }

// Remaining counts expected identifiers not yet scanned.
func (e *Engine) Remaining() int {
	remaining := 0
	for id := range e.expected {
		if !e.ledger.Contains(id) {
			remaining++
		}
	}
	return remaining
}

// Reset clears the ledger and the last scan; the expected index is kept.
func (e *Engine) Reset() {
	e.ledger.Reset()
	e.lastScan = ""
}
