package views

import (
	"strings"
	"testing"

	"betra/internal/tui/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock model for testing
type mockModel struct {
	rows     []common.Row
	cursor   int
	presets  []string
	status   string
	confirm  string
	showHelp bool
}

func (m *mockModel) Rows() []common.Row { return m.rows }
func (m *mockModel) Cursor() int        { return m.cursor }
func (m *mockModel) Presets() []string  { return m.presets }
func (m *mockModel) Dir() string        { return "/modules" }
func (m *mockModel) Output() string     { return "/output/Betra_Zusammenstellung.docx" }
func (m *mockModel) Status() string     { return m.status }
func (m *mockModel) Confirm() string    { return m.confirm }
func (m *mockModel) ShowHelp() bool     { return m.showHelp }
func (m *mockModel) HelpView() string   { return "space toggle • q quit" }

func sampleRows() []common.Row {
	return []common.Row{
		{Index: 0, Filename: "0.0.0 - Deckblatt.docx", GroupKey: "0", Bucket: -1, Cover: true, Selected: true},
		{Index: 1, Filename: "0.0.1 - Deckblatt kurz.docx", GroupKey: "0", Bucket: -1, Cover: true},
		{Index: 2, Filename: "1.0.0 - Lage.docx", GroupKey: "1", Bucket: 0, Mandatory: true, Selected: true},
		{Index: 3, Filename: "2.3.1 - Oberleitung.docx", GroupKey: "2", Bucket: 0},
		{Index: 4, Filename: "5.3.1 - Baugleis.docx", GroupKey: "5.3", Bucket: 4, Selected: true},
	}
}

func TestRenderMainView(t *testing.T) {
	tests := []struct {
		name     string
		model    *mockModel
		contains []string
		excludes []string
	}{
		{
			name:  "empty directory",
			model: &mockModel{},
			contains: []string{
				"betra · /modules",
				"No modules found in /modules",
				"Output: /output/Betra_Zusammenstellung.docx",
			},
			excludes: []string{"Cover", "Presets:"},
		},
		{
			name: "covers and buckets",
			model: &mockModel{
				rows:    sampleRows(),
				cursor:  3,
				presets: []string{"1 Oberleitung", "2 Baugleis"},
				status:  "Rescanned",
			},
			contains: []string{
				"Cover",
				"(•) 0.0.0 - Deckblatt.docx",
				"( ) 0.0.1 - Deckblatt kurz.docx",
				"Chapter 1 · 2",
				"Chapter 5.3",
				"[■] 1.0.0 - Lage.docx",
				"> [ ] 2.3.1 - Oberleitung.docx",
				"[x] 5.3.1 - Baugleis.docx",
				"Presets: 1 Oberleitung  2 Baugleis",
				"Rescanned",
				"space toggle",
			},
			excludes: []string{"No modules found"},
		},
		{
			name: "confirmation replaces status",
			model: &mockModel{
				rows:    sampleRows(),
				status:  "hidden status",
				confirm: "Output exists. Press enter again to overwrite.",
			},
			contains: []string{"Press enter again to overwrite"},
			excludes: []string{"hidden status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderMainView(tt.model)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestRenderRowMarkers(t *testing.T) {
	assert.Contains(t, RenderRow(common.Row{Filename: "a", Mandatory: true, Selected: true}, false), "[■] a")
	assert.Contains(t, RenderRow(common.Row{Filename: "a", Selected: true}, false), "[x] a")
	assert.Contains(t, RenderRow(common.Row{Filename: "a"}, false), "  [ ] a")
	assert.Contains(t, RenderRow(common.Row{Filename: "a", Cover: true}, true), "> ( ) a")
}

func TestRenderListCursorLine(t *testing.T) {
	for cursor, want := range map[int]string{
		0: "> (•) 0.0.0 - Deckblatt.docx",
		3: "> [ ] 2.3.1 - Oberleitung.docx",
		4: "> [x] 5.3.1 - Baugleis.docx",
	} {
		list, line := RenderList(&mockModel{rows: sampleRows(), cursor: cursor})
		lines := strings.Split(list, "\n")
		require.Less(t, line, len(lines))
		assert.Contains(t, lines[line], want)
	}
}
