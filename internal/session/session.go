// =============================================================================
// Stock Scan - Session
// =============================================================================
//
// A Session is the single owner of the working state: the loaded table, the
// active category filter, the derived expected set and the reconciliation
// engine. Every input source funnels into Submit, which serializes access,
// so the keyboard burst path and the camera loop may submit concurrently.
//
// STATE TRANSITIONS:
//   - LoadTable / LoadFile : parse first, then swap atomically. A failed
//                            parse leaves the previous table and scans intact.
//   - SetCategory          : re-derives the expected set; scans are kept.
//   - Submit               : reconciles one code, persists, notifies.
//   - Reset                : clears scans and the last scan.
//
// Presentation is decoupled: listeners registered with Subscribe receive
// every non-empty outcome after the state change has been committed.
//
// =============================================================================

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/stock-scan/internal/export"
	"github.com/ginjaninja78/stock-scan/internal/inventory"
	"github.com/ginjaninja78/stock-scan/internal/reconcile"
	"github.com/ginjaninja78/stock-scan/internal/tableparser"
)

// ErrUnknownCategory is returned by SetCategory for a value that is not one
// of the loaded table's categories.
var ErrUnknownCategory = errors.New("unknown category")

// Options configures a session.
type Options struct {
	// Labels are used to resolve the reserved columns of snapshots saved
	// without column metadata.
	Labels tableparser.Options

	AcceptedStatus string
	AllLabel       string
	MinCodeLength  int

	Logger *zap.Logger
	Clock  func() time.Time
}

// Progress summarizes the session for display.
type Progress struct {
	Expected  int
	Scanned   int
	Remaining int
	LastScan  string
	Category  string
}

// Session owns the working state.
type Session struct {
	store  Store
	opts   Options
	logger *zap.Logger

	mu         sync.Mutex
	id         string
	table      *inventory.Table
	filter     inventory.Filter
	category   string
	categories []string
	expected   []inventory.Record
	engine     *reconcile.Engine

	listenersMu sync.Mutex
	listeners   map[int]func(reconcile.Event)
	nextID      int
}

// Open restores the session saved in store. A missing or corrupt snapshot
// yields an empty session; the corruption is logged, never returned.
func Open(ctx context.Context, store Store, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.AllLabel == "" {
		opts.AllLabel = "All"
	}

	s := &Session{
		store:     store,
		opts:      opts,
		logger:    opts.Logger,
		listeners: make(map[int]func(reconcile.Event)),
	}
	s.engine = s.newEngine()

	state, err := store.Load(ctx)
	if err != nil {
		s.logger.Warn("discarding unreadable session snapshot", zap.Error(err))
		state = Empty()
	}
	s.restore(state)
	return s
}

func (s *Session) newEngine() *reconcile.Engine {
	e := reconcile.NewEngine(s.opts.MinCodeLength)
	e.SetClock(s.opts.Clock)
	return e
}

// restore installs a decoded snapshot.
func (s *Session) restore(state State) {
	if len(state.Records) == 0 {
		s.id = state.SessionID
		s.engine.Restore(state.ScannedCodes, state.LastScan)
		s.recomputeLocked()
		return
	}

	columns := state.Columns
	if columns.Identifier == "" || columns.Category == "" || columns.Status == "" {
		resolved, ok := resolveColumns(state.Records, s.opts.Labels)
		if !ok {
			s.logger.Warn("snapshot records lack the reserved columns; starting empty")
			s.recomputeLocked()
			return
		}
		columns = resolved
	}

	headers := state.Headers
	if len(headers) == 0 {
		headers = []string{columns.Identifier, columns.Category, columns.Status}
	}

	s.id = state.SessionID
	s.table = &inventory.Table{Headers: headers, Columns: columns, Records: state.Records}
	s.category = state.CategoryFilter
	s.engine.Restore(state.ScannedCodes, state.LastScan)
	s.recomputeLocked()

	s.logger.Info("session restored",
		zap.String("session", s.id),
		zap.Int("records", len(state.Records)),
		zap.Int("scanned", len(state.ScannedCodes)),
		zap.String("category", s.category))
}

// resolveColumns finds the reserved labels among the record keys.
func resolveColumns(records []inventory.Record, labels tableparser.Options) (inventory.Columns, bool) {
	find := func(label string) string {
		for key := range records[0] {
			if strings.EqualFold(strings.TrimSpace(key), strings.TrimSpace(label)) {
				return key
			}
		}
		return ""
	}
	c := inventory.Columns{
		Identifier: find(labels.IdentifierLabel),
		Category:   find(labels.CategoryLabel),
		Status:     find(labels.StatusLabel),
	}
	return c, c.Identifier != "" && c.Category != "" && c.Status != ""
}

// recomputeLocked rebuilds the filter, categories and expected set.
func (s *Session) recomputeLocked() {
	var (
		columns inventory.Columns
		records []inventory.Record
	)
	if s.table != nil {
		columns = s.table.Columns
		records = s.table.Records
	}
	s.filter = inventory.Filter{
		Columns:        columns,
		AcceptedStatus: s.opts.AcceptedStatus,
		AllLabel:       s.opts.AllLabel,
	}
	s.categories = s.filter.DistinctCategories(records)
	s.rederiveLocked()
}

// rederiveLocked recomputes the expected set for the current filter.
func (s *Session) rederiveLocked() {
	var records []inventory.Record
	if s.table != nil {
		records = s.table.Records
	}
	s.expected = s.filter.Derive(records, s.category)
	s.engine.SetExpected(s.filter.Columns, s.expected)
}

// =============================================================================
// TABLE LOADING
// =============================================================================

// HasTable reports whether a table is loaded.
func (s *Session) HasTable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Len() > 0
}

// LoadFile parses path and, on success, replaces the table.
func (s *Session) LoadFile(ctx context.Context, path string, opts tableparser.Options) error {
	table, err := tableparser.ParseFile(path, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return s.LoadTable(ctx, table)
}

// LoadTable replaces the table, clears scans and the filter, and starts a
// new session ID.
func (s *Session) LoadTable(ctx context.Context, table *inventory.Table) error {
	if table == nil {
		return fmt.Errorf("load table: nil table")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = uuid.NewString()
	s.table = table
	s.category = ""
	s.engine = s.newEngine()
	s.recomputeLocked()

	s.logger.Info("table loaded",
		zap.String("session", s.id),
		zap.Int("records", len(table.Records)),
		zap.Int("categories", len(s.categories)))

	return s.persistLocked(ctx)
}

// =============================================================================
// FILTERING
// =============================================================================

// Categories returns the selectable category values, sorted.
func (s *Session) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.categories...)
}

// Category returns the active category filter ("" for all).
func (s *Session) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// SetCategory changes the active filter. "" and the All label select every
// category.
func (s *Session) SetCategory(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.IsAll(category) {
		category = ""
	} else if !contains(s.categories, category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	s.category = category
	s.rederiveLocked()

	s.logger.Debug("category filter changed", zap.String("category", category))
	return s.persistLocked(ctx)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// Expected returns the current expected set.
func (s *Session) Expected() []inventory.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inventory.Record(nil), s.expected...)
}

// =============================================================================
// SCANNING
// =============================================================================

// Submit reconciles one candidate code from any source. Non-empty outcomes
// are persisted and then delivered to subscribers.
func (s *Session) Submit(ctx context.Context, code string, source reconcile.Source) reconcile.Event {
	s.mu.Lock()
	ev := s.engine.Submit(code, source)
	if !ev.Outcome.ChangesState() {
		s.mu.Unlock()
		return ev
	}

	s.logger.Debug("scan reconciled",
		zap.String("code", ev.Code),
		zap.String("outcome", ev.Outcome.String()),
		zap.String("source", string(ev.Source)))

	// Save errors are logged; the outcome stands either way.
	_ = s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(ev)
	return ev
}

// Reset clears the scanned ledger and the last scan.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	s.logger.Info("scans reset", zap.String("session", s.id))
	return s.persistLocked(ctx)
}

// Progress returns the counts shown to the operator.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		Expected:  s.engine.ExpectedCount(),
		Scanned:   len(s.engine.Scanned()),
		Remaining: s.engine.Remaining(),
		LastScan:  s.engine.LastScan(),
		Category:  s.category,
	}
}

// RemainingIdentifiers lists the expected identifiers not yet scanned, in
// table order.
func (s *Session) RemainingIdentifiers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, r := range s.expected {
		id := strings.TrimSpace(s.filter.Columns.IdentifierOf(r))
		key := inventory.Normalize(id)
		if _, dup := seen[key]; dup || key == "" || s.engine.IsScanned(id) {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Subscribe registers fn for every non-empty outcome. The returned function
// removes the subscription.
func (s *Session) Subscribe(fn func(reconcile.Event)) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) notify(ev reconcile.Event) {
	s.listenersMu.Lock()
	fns := make([]func(reconcile.Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// =============================================================================
// SNAPSHOTS AND EXPORT
// =============================================================================

// ID returns the session ID assigned when the table was loaded.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Snapshot returns the persisted form of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	state := Empty()
	state.SessionID = s.id
	if s.table != nil {
		state.Headers = append([]string(nil), s.table.Headers...)
		state.Columns = s.table.Columns
		state.Records = s.table.Records
	}
	state.ScannedCodes = s.engine.Scanned()
	state.CategoryFilter = s.category
	state.LastScan = s.engine.LastScan()
	state.SavedAt = s.opts.Clock().UTC()
	return state
}

// ExportSheet builds the export artifact for the scanned codes.
func (s *Session) ExportSheet() export.Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.Build(s.table, s.engine.Scanned(), s.engine.IsExpected)
}

// persistLocked saves the current state. Holding the lock keeps saves in
// the same order as the transitions they record.
func (s *Session) persistLocked(ctx context.Context) error {
	if err := s.store.Save(ctx, s.snapshotLocked()); err != nil {
		s.logger.Error("failed to save session snapshot", zap.Error(err))
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
