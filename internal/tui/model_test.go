package tui

import (
	"os"
	"path/filepath"
	"testing"

	"betra/internal/catalog"
	"betra/internal/compose"
	"betra/internal/config"
	"betra/internal/errors"
	"betra/internal/preset"
	"betra/internal/tui/messages"
	"betra/pkg/testutils"

	alsrt "github.com/alecthomas/assert"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moduleFiles = []string{
	"0.0.0 - Deckblatt.docx",
	"0.0.1 - Deckblatt kurz.docx",
	"1.0.0 - Lage.docx",
	"2.3.1 - Oberleitung.docx",
	"5.3.1 - Baugleis.docx",
}

type fakeComposer struct {
	paths  []string
	dest   string
	result *compose.Result
	err    error
}

func (f *fakeComposer) SetDryRun(bool)     {}
func (f *fakeComposer) IsDryRun() bool     { return false }
func (f *fakeComposer) SetCreateDirs(bool) {}
func (f *fakeComposer) Compose(paths []string, dest string) (*compose.Result, error) {
	f.paths, f.dest = paths, dest
	if f.err != nil {
		return nil, f.err
	}
	return &compose.Result{Output: dest, Composed: paths}, nil
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, keys ...string) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyMsg(k))
	}
	return cmd
}

func newTestModel(t *testing.T, mandatory ...string) (*Model, *fakeComposer, string) {
	t.Helper()
	dir := t.TempDir()
	testutils.CreateModuleDir(t, dir, moduleFiles...)

	cfg := config.NewTestConfig(dir)
	cfg.Catalog.Mandatory = mandatory
	scanner, err := catalog.NewScanner(cfg.ScannerOptions())
	require.NoError(t, err)

	oberleitung, err := preset.Parse("Oberleitung", "2.3")
	require.NoError(t, err)

	composer := &fakeComposer{}
	m, err := New(Options{
		Dir:      dir,
		Scanner:  scanner,
		Presets:  []preset.Preset{oberleitung, {}},
		Composer: composer,
		Output:   cfg.OutputPath(),
	})
	require.NoError(t, err)
	return m, composer, dir
}

func TestNewModel(t *testing.T) {
	m, _, dir := newTestModel(t, "1.0.0 - Lage.docx")

	rows := m.Rows()
	require.Len(t, rows, len(moduleFiles))
	assert.True(t, rows[0].Cover)
	assert.True(t, rows[0].Selected, "first cover is chosen by default")
	assert.False(t, rows[1].Selected)
	assert.True(t, rows[2].Mandatory)
	assert.True(t, rows[2].Selected)
	assert.False(t, rows[3].Selected)
	assert.Equal(t, []string{"1 Oberleitung"}, m.Presets())
	assert.Equal(t, 0, m.Cursor())

	alsrt.Contains(t, m.View(), "betra · "+dir)
	alsrt.Contains(t, m.View(), "2.3.1 - Oberleitung.docx")
}

func TestNewModelMissingDirectory(t *testing.T) {
	scanner, err := catalog.NewScanner(config.New().ScannerOptions())
	require.NoError(t, err)

	_, err = New(Options{Dir: filepath.Join(t.TempDir(), "missing"), Scanner: scanner})
	assert.True(t, errors.IsNotFound(err))
}

func TestCursorMovement(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(t, m, "k")
	assert.Equal(t, 0, m.Cursor())

	press(t, m, "j", "j", "j")
	assert.Equal(t, 3, m.Cursor())

	press(t, m, "j", "j", "j")
	assert.Equal(t, len(moduleFiles)-1, m.Cursor())
}

func TestToggle(t *testing.T) {
	m, _, _ := newTestModel(t, "1.0.0 - Lage.docx")

	press(t, m, "j", "j", "j", " ")
	assert.True(t, m.Rows()[3].Selected)
	press(t, m, " ")
	assert.False(t, m.Rows()[3].Selected)

	// Mandatory modules stay selected
	press(t, m, "k", " ")
	assert.True(t, m.Rows()[2].Selected)
	assert.Contains(t, m.Status(), "is mandatory")
}

func TestChooseCover(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(t, m, "j", "c")
	rows := m.Rows()
	assert.False(t, rows[0].Selected)
	assert.True(t, rows[1].Selected)

	press(t, m, "j", "c")
	assert.Equal(t, "Not a cover", m.Status())
}

func TestMandatoryCoverIsLocked(t *testing.T) {
	m, _, _ := newTestModel(t, "0.0.0 - Deckblatt.docx")

	press(t, m, "j", "c")
	assert.Equal(t, "Cover is locked: 0.0.0 - Deckblatt.docx is mandatory", m.Status())
	press(t, m, " ")
	assert.Equal(t, "Cover is locked: 0.0.0 - Deckblatt.docx is mandatory", m.Status())

	rows := m.Rows()
	assert.True(t, rows[0].Selected)
	assert.False(t, rows[1].Selected)
}

func TestPresetKeys(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(t, m, "1")
	assert.True(t, m.Rows()[3].Selected)
	assert.Equal(t, "Preset Oberleitung selected", m.Status())

	press(t, m, "1")
	assert.False(t, m.Rows()[3].Selected)
	assert.Equal(t, "Preset Oberleitung deselected", m.Status())

	press(t, m, "2")
	assert.Equal(t, "Preset slot 2 is empty", m.Status())
	press(t, m, "9")
	assert.Equal(t, "Preset slot 9 is empty", m.Status())
}

func TestReset(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(t, m, "1", "j", "c", "r")
	rows := m.Rows()
	assert.True(t, rows[0].Selected)
	assert.False(t, rows[1].Selected)
	assert.False(t, rows[3].Selected)
	assert.Equal(t, "Selection reset", m.Status())
}

func TestComposeSelection(t *testing.T) {
	m, composer, dir := newTestModel(t, "1.0.0 - Lage.docx")
	var recorded *compose.Result
	m.opts.Record = func(r *compose.Result) error {
		recorded = r
		return nil
	}

	cmd := press(t, m, "1", "enter")
	require.NotNil(t, cmd)
	assert.Equal(t, "Composing…", m.Status())

	msg := cmd()
	done, ok := msg.(messages.ComposeDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)

	assert.Equal(t, []string{
		filepath.Join(dir, "0.0.0 - Deckblatt.docx"),
		filepath.Join(dir, "1.0.0 - Lage.docx"),
		filepath.Join(dir, "2.3.1 - Oberleitung.docx"),
	}, composer.paths)
	assert.Equal(t, m.Output(), composer.dest)
	require.NotNil(t, recorded)

	m.Update(done)
	assert.Equal(t, "Wrote "+m.Output()+" with 3 documents", m.Status())
}

func TestComposeNothingSelected(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateModuleDir(t, dir, "2.3.1 - Oberleitung.docx")
	scanner, err := catalog.NewScanner(config.NewTestConfig(dir).ScannerOptions())
	require.NoError(t, err)

	m, err := New(Options{Dir: dir, Scanner: scanner, Composer: &fakeComposer{}})
	require.NoError(t, err)

	assert.Nil(t, press(t, m, "enter"))
	assert.Equal(t, "Nothing selected", m.Status())
}

func TestComposeCoverOnlyNeedsConfirmation(t *testing.T) {
	m, composer, _ := newTestModel(t)

	assert.Nil(t, press(t, m, "enter"))
	alsrt.Contains(t, m.Confirm(), "Only the cover is selected.")
	alsrt.Contains(t, m.View(), "Press enter again")
	assert.Nil(t, composer.paths)

	cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	assert.Empty(t, m.Confirm())
	cmd()
	assert.Len(t, composer.paths, 1)
}

func TestComposeExistingOutputNeedsConfirmation(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(m.Output()), 0755))
	require.NoError(t, os.WriteFile(m.Output(), []byte("old"), 0644))

	press(t, m, "1")
	assert.Nil(t, press(t, m, "enter"))
	alsrt.Contains(t, m.Confirm(), "exists and will be overwritten")

	assert.Nil(t, press(t, m, "esc"))
	assert.Empty(t, m.Confirm())
	assert.Equal(t, "Composition cancelled", m.Status())
}

func TestComposeFailureShowsHint(t *testing.T) {
	m, composer, _ := newTestModel(t)
	composer.err = errors.NewComposeError("failed to write output", m.Output(), errors.PersistenceFailed, os.ErrPermission)

	cmd := press(t, m, "1", "enter")
	require.NotNil(t, cmd)
	m.Update(cmd())

	alsrt.Contains(t, m.Status(), "Composition failed")
	alsrt.Contains(t, m.Status(), errors.PersistenceHint)
}

func TestComposeReportsNotes(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(messages.ComposeDoneMsg{Result: &compose.Result{
		Output:   "out.docx",
		Composed: []string{"a", "b"},
		Notes:    []compose.Note{{Kind: compose.SkippedMissing, Path: "c"}},
	}})
	assert.Equal(t, "Wrote out.docx with 2 documents, 1 left out", m.Status())
}

func TestRescan(t *testing.T) {
	m, _, dir := newTestModel(t)
	press(t, m, "1")

	testutils.CreateModuleDir(t, dir, "6.1.0 - Arbeiten im Gleisbereich.docx")
	cmd := press(t, m, "R")
	require.NotNil(t, cmd)
	m.Update(cmd())

	rows := m.Rows()
	require.Len(t, rows, len(moduleFiles)+1)
	assert.Equal(t, "6.1.0 - Arbeiten im Gleisbereich.docx", rows[len(rows)-1].Filename)
	assert.False(t, rows[3].Selected, "rescan resets the selection")
	assert.Equal(t, "Rescanned: 6 documents", m.Status())
}

func TestRescanFailure(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(messages.CatalogMsg{Err: errors.New("gone")})
	assert.Equal(t, "Rescan failed: gone", m.Status())
	assert.Len(t, m.Rows(), len(moduleFiles))
}

func TestRescanClampsCursor(t *testing.T) {
	m, _, dir := newTestModel(t)
	press(t, m, "j", "j", "j", "j")
	require.Equal(t, 4, m.Cursor())

	require.NoError(t, os.Remove(filepath.Join(dir, "5.3.1 - Baugleis.docx")))
	require.NoError(t, os.Remove(filepath.Join(dir, "2.3.1 - Oberleitung.docx")))
	m.Update(m.rescanCmd()())

	assert.Equal(t, 2, m.Cursor())
}

func TestHelpAndQuit(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(t, m, "?")
	assert.True(t, m.ShowHelp())
	alsrt.Contains(t, m.View(), "rescan")

	cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestListScrollsWithCursor(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 15})

	alsrt.Contains(t, m.View(), "0.0.0 - Deckblatt.docx")

	press(t, m, "j", "j", "j", "j")
	view := m.View()
	alsrt.Contains(t, view, "> [ ] 5.3.1 - Baugleis.docx")
	assert.NotContains(t, view, "0.0.0 - Deckblatt.docx")

	press(t, m, "k", "k", "k", "k")
	alsrt.Contains(t, m.View(), "> (•) 0.0.0 - Deckblatt.docx")
}
