// Package tui is the interactive module selector. It shows the catalog
// grouped into covers and display buckets and drives selection, presets
// and composition from the keyboard.
package tui

import (
	"fmt"
	"os"
	"strconv"

	"betra/internal/catalog"
	"betra/internal/compose"
	"betra/internal/errors"
	"betra/internal/log"
	"betra/internal/preset"
	"betra/internal/selection"
	"betra/internal/tui/common"
	"betra/internal/tui/messages"
	"betra/internal/tui/views"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// listChrome is the number of lines around the module list: title, padding,
// presets, output, status and help.
const listChrome = 10

// RecordFunc is called after every successful composition.
type RecordFunc func(result *compose.Result) error

// Options wires the selector to its collaborators.
type Options struct {
	Dir      string
	Scanner  *catalog.Scanner
	Presets  []preset.Preset // Slot order; zero presets are unused slots
	Composer compose.Composer
	Output   string
	Record   RecordFunc // Optional ledger hook
}

// Model is the selector state.
type Model struct {
	opts  Options
	state *selection.State
	rows  []int // Catalog indexes in display order

	cursor   int
	status   string
	confirm  string
	showHelp bool
	busy     bool

	keys KeyMap
	help help.Model
	list viewport.Model // Scrolls the module list once the window size is known
}

// New scans the module directory and returns the selector.
func New(opts Options) (*Model, error) {
	cat, err := opts.Scanner.Scan(opts.Dir)
	if err != nil {
		return nil, err
	}

	m := &Model{
		opts:  opts,
		state: selection.New(cat),
		keys:  DefaultKeyMap(),
		help:  help.New(),
		list:  viewport.New(0, 0),
	}
	m.layout()
	m.reportWarnings(cat)
	return m, nil
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// View implements tea.Model
func (m *Model) View() string {
	list, cursorLine := views.RenderList(m)
	if m.list.Height <= 0 {
		return views.RenderFrame(m, list)
	}

	m.list.SetContent(list)
	switch {
	case cursorLine < m.list.YOffset:
		m.list.SetYOffset(cursorLine)
	case cursorLine >= m.list.YOffset+m.list.Height:
		m.list.SetYOffset(cursorLine - m.list.Height + 1)
	}
	return views.RenderFrame(m, m.list.View())
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case messages.CatalogMsg:
		m.applyCatalog(msg)
	case messages.ComposeDoneMsg:
		m.applyComposeDone(msg)
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.list.Width = msg.Width
		m.list.Height = max(msg.Height-listChrome, 3)
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key but a second enter drops a pending confirmation
	if m.confirm != "" && !key.Matches(msg, m.keys.Compose) {
		m.confirm = ""
		if key.Matches(msg, m.keys.Cancel) {
			m.status = "Composition cancelled"
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if i, ok := m.current(); ok {
			m.toggle(i)
		}
	case key.Matches(msg, m.keys.Cover):
		if i, ok := m.current(); ok {
			m.chooseCover(i)
		}
	case key.Matches(msg, m.keys.Preset):
		slot, _ := strconv.Atoi(msg.String())
		m.applyPreset(slot)
	case key.Matches(msg, m.keys.Reset):
		m.state.ResetAll()
		m.status = "Selection reset"
	case key.Matches(msg, m.keys.Rescan):
		m.status = "Rescanning…"
		return m, m.rescanCmd()
	case key.Matches(msg, m.keys.Compose):
		return m, m.compose()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}
	return m, nil
}

func (m *Model) current() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return 0, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) toggle(i int) {
	e := m.state.Catalog().Entries[i]
	if e.Cover {
		m.chooseCover(i)
		return
	}
	if !m.state.Toggle(i) && e.Mandatory {
		m.status = e.Filename + " is mandatory"
	}
}

func (m *Model) chooseCover(i int) {
	if !m.state.Catalog().Entries[i].Cover {
		m.status = "Not a cover"
		return
	}
	if !m.state.SelectCover(i) && m.state.CoverLocked() && !m.state.IsSelected(i) {
		m.status = "Cover is locked: " + m.state.Cover().Filename + " is mandatory"
	}
}

func (m *Model) applyPreset(slot int) {
	if slot < 1 || slot > len(m.opts.Presets) || m.opts.Presets[slot-1].IsZero() {
		m.status = fmt.Sprintf("Preset slot %d is empty", slot)
		return
	}
	p := m.opts.Presets[slot-1]
	switch outcome := m.state.ApplyPreset(p.Prefixes); outcome {
	case selection.NoOp:
		m.status = fmt.Sprintf("Preset %s matches no selectable module", p.Name)
	default:
		m.status = fmt.Sprintf("Preset %s %s", p.Name, outcome)
	}
}

// compose starts a composition, asking for confirmation first when the
// output exists or only a cover would be written.
func (m *Model) compose() tea.Cmd {
	if m.busy {
		return nil
	}
	if len(m.state.Order()) == 0 {
		m.status = "Nothing selected"
		return nil
	}

	if m.confirm == "" {
		if reason := m.confirmation(); reason != "" {
			m.confirm = reason + " Press enter again to continue, esc to cancel."
			return nil
		}
	}
	m.confirm = ""
	m.busy = true
	m.status = "Composing…"
	return m.composeCmd()
}

func (m *Model) confirmation() string {
	if m.state.CoverOnly() {
		return "Only the cover is selected."
	}
	if _, err := os.Stat(m.opts.Output); err == nil {
		return m.opts.Output + " exists and will be overwritten."
	}
	return ""
}

func (m *Model) composeCmd() tea.Cmd {
	paths := m.state.Paths()
	composer, output, record := m.opts.Composer, m.opts.Output, m.opts.Record
	return func() tea.Msg {
		result, err := composer.Compose(paths, output)
		if err == nil && record != nil {
			if recErr := record(result); recErr != nil {
				log.LogWithError(recErr).Warn("failed to record composition")
			}
		}
		return messages.ComposeDoneMsg{Result: result, Err: err}
	}
}

func (m *Model) rescanCmd() tea.Cmd {
	scanner, dir := m.opts.Scanner, m.opts.Dir
	return func() tea.Msg {
		cat, err := scanner.Scan(dir)
		return messages.CatalogMsg{Catalog: cat, Err: err}
	}
}

func (m *Model) applyCatalog(msg messages.CatalogMsg) {
	if msg.Err != nil {
		m.status = "Rescan failed: " + msg.Err.Error()
		return
	}
	m.state.Rebuild(msg.Catalog)
	m.layout()
	m.confirm = ""
	m.status = fmt.Sprintf("Rescanned: %d documents", msg.Catalog.Len())
	m.reportWarnings(msg.Catalog)
}

func (m *Model) applyComposeDone(msg messages.ComposeDoneMsg) {
	m.busy = false
	if msg.Err != nil {
		m.status = "Composition failed: " + msg.Err.Error()
		var composeErr *errors.ComposeError
		if errors.As(msg.Err, &composeErr) && composeErr.Hint() != "" {
			m.status += " (" + composeErr.Hint() + ")"
		}
		return
	}
	m.status = fmt.Sprintf("Wrote %s with %d documents", msg.Result.Output, len(msg.Result.Composed))
	if n := len(msg.Result.Notes); n > 0 {
		m.status += fmt.Sprintf(", %d left out", n)
	}
}

func (m *Model) reportWarnings(cat *catalog.Catalog) {
	if len(cat.Warnings) > 0 {
		m.status = cat.Warnings[0]
	}
}

// layout orders rows as covers first, then modules by display bucket.
func (m *Model) layout() {
	cat := m.state.Catalog()
	m.rows = m.rows[:0]
	for i, e := range cat.Entries {
		if e.Cover {
			m.rows = append(m.rows, i)
		}
	}
	for _, col := range cat.Layout() {
		for _, e := range col.Entries {
			m.rows = append(m.rows, cat.Index(e.Filename))
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

// Rows implements common.ModelReader.
func (m *Model) Rows() []common.Row {
	cat := m.state.Catalog()
	rows := make([]common.Row, len(m.rows))
	for r, i := range m.rows {
		e := cat.Entries[i]
		rows[r] = common.Row{
			Index:     i,
			Filename:  e.Filename,
			GroupKey:  e.GroupKey,
			Bucket:    e.Bucket,
			Cover:     e.Cover,
			Mandatory: e.Mandatory,
			Selected:  m.state.IsSelected(i),
		}
	}
	return rows
}

func (m *Model) Cursor() int {
	return m.cursor
}

// Presets returns the labels of the used preset slots.
func (m *Model) Presets() []string {
	var labels []string
	for i, p := range m.opts.Presets {
		if !p.IsZero() {
			labels = append(labels, fmt.Sprintf("%d %s", i+1, p.Name))
		}
	}
	return labels
}

func (m *Model) Dir() string {
	return m.opts.Dir
}

func (m *Model) Output() string {
	return m.opts.Output
}

func (m *Model) Status() string {
	return m.status
}

func (m *Model) Confirm() string {
	return m.confirm
}

func (m *Model) ShowHelp() bool {
	return m.showHelp
}

func (m *Model) HelpView() string {
	return m.help.View(m.keys)
}

// Selection exposes the selection state.
func (m *Model) Selection() *selection.State {
	return m.state
}

var _ common.ModelReader = (*Model)(nil)
