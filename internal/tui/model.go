// internal/tui/model.go
//
// The scan screen. It is a bubbletea model:
//
// 1. Key presses become scanbuffer keys; completed bursts are submitted to
//    the session as keyboard scans.
// 2. A bubbles text input is the manual entry control. While it has focus
//    the scan buffer ignores every key.
// 3. Outcomes of every source (keyboard, camera, manual) come back through a
//    session subscription and are rendered from there, so the screen never
//    mutates session state to display it.

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ginjaninja78/stock-scan/internal/reconcile"
	"github.com/ginjaninja78/stock-scan/internal/scanbuffer"
	"github.com/ginjaninja78/stock-scan/internal/session"
)

const historySize = 8

// outcomeMsg carries a reconciled scan from the session subscription.
type outcomeMsg reconcile.Event

// CameraStoppedMsg reports that the camera path ended. Send it with
// tea.Program.Send; only the first one is shown.
type CameraStoppedMsg struct {
	Err error
}

// Option customizes a Model.
type Option func(*Model)

// WithAllLabel sets the label of the no-filter category entry.
func WithAllLabel(label string) Option {
	return func(m *Model) {
		if label != "" {
			m.allLabel = label
		}
	}
}

// WithBufferOptions passes options to the scan buffer, such as a test clock.
func WithBufferOptions(opts ...scanbuffer.Option) Option {
	return func(m *Model) {
		m.bufferOpts = append(m.bufferOpts, opts...)
	}
}

// WithNow replaces the wall clock used to stamp key events.
func WithNow(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// Model is the scan screen.
type Model struct {
	ctx     context.Context
	session *session.Session

	buffer     *scanbuffer.Buffer
	bufferOpts []scanbuffer.Option
	input      textinput.Model

	events      chan reconcile.Event
	unsubscribe func()

	allLabel string
	now      func() time.Time

	history      []reconcile.Event
	status       string
	cameraNotice string
	width        int
	quitting     bool
}

// New builds the scan screen for sess. Call Close when the program exits.
func New(ctx context.Context, sess *session.Session, settings scanbuffer.Settings, opts ...Option) *Model {
	m := &Model{
		ctx:      ctx,
		session:  sess,
		events:   make(chan reconcile.Event, 64),
		allLabel: "All",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.buffer = scanbuffer.New(settings, func(code string) {
		m.session.Submit(m.ctx, code, reconcile.SourceKeyboard)
	}, m.bufferOpts...)

	m.unsubscribe = sess.Subscribe(func(ev reconcile.Event) {
		select {
		case m.events <- ev:
		default:
			// The screen is behind; the session state is still correct.
		}
	})

	ti := textinput.New()
	ti.Placeholder = "type a code and press enter"
	ti.Prompt = "manual> "
	ti.CharLimit = 64
	m.input = ti

	return m
}

// Close releases the subscription and the scan buffer.
func (m *Model) Close() {
	m.buffer.Close()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// waitForOutcome blocks until the session reports an outcome.
func (m *Model) waitForOutcome() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return outcomeMsg(ev)
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForOutcome()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case outcomeMsg:
		m.record(reconcile.Event(msg))
		return m, m.waitForOutcome()

	case CameraStoppedMsg:
		if m.cameraNotice == "" && msg.Err != nil {
			m.cameraNotice = fmt.Sprintf("Camera off: %v. Keyboard scanning still works.", msg.Err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.quitting = true
		m.Close()
		return m, tea.Quit
	}

	if m.input.Focused() {
		switch key {
		case "esc":
			m.blurInput()
			return m, nil
		case "enter":
			code := m.input.Value()
			m.input.Reset()
			m.blurInput()
			ev := m.session.Submit(m.ctx, code, reconcile.SourceManual)
			if ev.Outcome == reconcile.Empty {
				m.status = "Code too short; nothing recorded."
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key {
	case "tab":
		m.cycleCategory(1)
		return m, nil
	case "shift+tab":
		m.cycleCategory(-1)
		return m, nil
	case "ctrl+e":
		m.buffer.SetTextEntryFocus(true)
		m.status = ""
		return m, m.input.Focus()
	case "ctrl+r":
		if err := m.session.Reset(m.ctx); err != nil {
			m.status = err.Error()
		} else {
			m.history = nil
			m.status = "Scans cleared."
		}
		return m, nil
	}

	m.feed(msg)
	return m, nil
}

// feed hands a key event to the scan buffer. A single terminal read can
// carry a whole scanner burst or a paste as one KeyRunes message, so runes
// are fed one at a time with a shared timestamp.
func (m *Model) feed(msg tea.KeyMsg) {
	at := m.now()
	if msg.Type != tea.KeyRunes {
		m.buffer.Feed(scanbuffer.Key{Name: msg.String(), At: at})
		return
	}
	for _, r := range msg.Runes {
		m.buffer.Feed(scanbuffer.Key{Name: string(r), At: at})
	}
}

func (m *Model) blurInput() {
	m.input.Blur()
	m.buffer.SetTextEntryFocus(false)
}

// cycleCategory moves the filter through All and the table's categories.
func (m *Model) cycleCategory(step int) {
	options := append([]string{""}, m.session.Categories()...)
	current := 0
	for i, c := range options {
		if c == m.session.Category() {
			current = i
			break
		}
	}
	next := (current + step + len(options)) % len(options)
	if err := m.session.SetCategory(m.ctx, options[next]); err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
}

func (m *Model) record(ev reconcile.Event) {
	m.history = append([]reconcile.Event{ev}, m.history...)
	if len(m.history) > historySize {
		m.history = m.history[:historySize]
	}
	m.status = ""
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := titleStyle.Render("Stock Scan")
	if id := m.session.ID(); id != "" {
		header += mutedStyle.Render("  session " + shortID(id))
	}
	b.WriteString(header + "\n\n")

	if !m.session.HasTable() {
		b.WriteString(warningStyle.Render("No inventory loaded. Run `stockscan load <file>` first.") + "\n\n")
	}

	b.WriteString(m.renderCategories() + "\n\n")
	b.WriteString(m.renderProgress() + "\n\n")
	b.WriteString(m.renderHistory() + "\n")

	if pending := m.buffer.Pending(); pending != "" {
		b.WriteString(mutedStyle.Render("reading: "+pending) + "\n")
	}
	if m.input.Focused() {
		b.WriteString(m.input.View() + "\n")
	}
	if m.status != "" {
		b.WriteString(warningStyle.Render(m.status) + "\n")
	}
	if m.cameraNotice != "" {
		b.WriteString(warningStyle.Render(m.cameraNotice) + "\n")
	}

	b.WriteString("\n" + mutedStyle.Render("tab/shift+tab category  ctrl+e manual entry  esc leave entry  ctrl+r clear scans  ctrl+c quit"))
	return b.String()
}

func (m *Model) renderCategories() string {
	active := m.session.Category()
	parts := []string{mutedStyle.Render("Category")}

	label := func(value, text string) string {
		if value == active {
			return activeCategoryStyle.Render(text)
		}
		return categoryStyle.Render(text)
	}
	parts = append(parts, label("", m.allLabel))
	for _, c := range m.session.Categories() {
		parts = append(parts, label(c, c))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderProgress() string {
	p := m.session.Progress()
	line := fmt.Sprintf("Expected %d   Scanned %d   Remaining %d", p.Expected, p.Scanned, p.Remaining)
	if p.Expected > 0 && p.Remaining == 0 {
		line += "   " + acceptedStyle.Render("all accounted for")
	}
	return boxStyle.Render(line)
}

func (m *Model) renderHistory() string {
	if len(m.history) == 0 {
		if last := m.session.Progress().LastScan; last != "" {
			return mutedStyle.Render("Last scan: " + last)
		}
		return mutedStyle.Render("Waiting for a scan...")
	}

	lines := make([]string, 0, len(m.history))
	for _, ev := range m.history {
		lines = append(lines, fmt.Sprintf("%-20s %s %s",
			ev.Code, outcomeLabel(ev.Outcome), mutedStyle.Render(string(ev.Source))))
	}
	return strings.Join(lines, "\n")
}

func outcomeLabel(o reconcile.Outcome) string {
	switch o {
	case reconcile.Accepted:
		return acceptedStyle.Render("OK")
	case reconcile.Duplicate:
		return duplicateStyle.Render("ALREADY SCANNED")
	case reconcile.NotExpected:
		return notExpectedStyle.Render("NOT IN LIST")
	default:
		return o.String()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
