package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"betra/internal/compose"
	"betra/internal/config"
	"betra/internal/docx"
	"betra/internal/errors"
	"betra/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moduleFiles = []string{
	"0.0.0 - Deckblatt.docx",
	"0.0.1 - Deckblatt kurz.docx",
	"1.0.0 - Lage.docx",
	"2.3.1 - Oberleitung.docx",
	"5.3.14 - Baugleis.docx",
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// setupWorkspace writes the module documents and a configuration file
// pointing at them.
func setupWorkspace(t *testing.T, edit func(*config.Config), files ...string) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()
	modules := filepath.Join(root, "modules")
	testutils.CreateModuleDir(t, modules, files...)

	c := config.NewTestConfig(modules)
	c.Catalog.Mandatory = []string{"1.0.0 - Lage.docx"}
	if edit != nil {
		edit(c)
	}
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, config.SaveConfig(c, path))
	return c, path
}

func TestHelpListsCommands(t *testing.T) {
	output, err := runCLI(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"scan", "compose", "presets", "ledger", "watch", "tui", "config"} {
		assert.Contains(t, output, name)
	}
}

func TestScanCommand(t *testing.T) {
	_, cfgPath := setupWorkspace(t, nil, moduleFiles...)

	output, err := runCLI(t, "--config", cfgPath, "scan")
	require.NoError(t, err)

	assert.Contains(t, output, "Cover")
	assert.Contains(t, output, "0.0.1 - Deckblatt kurz.docx")
	assert.Contains(t, output, "Chapter 1 · 2")
	assert.Contains(t, output, "Chapter 5.3")
	assert.Contains(t, output, "■ 1.0.0 - Lage.docx")
	assert.Contains(t, output, "5 documents, 2 covers, 1 mandatory")
}

func TestScanJSON(t *testing.T) {
	c, cfgPath := setupWorkspace(t, nil, moduleFiles...)

	output, err := runCLI(t, "--config", cfgPath, "scan", "--json")
	require.NoError(t, err)

	var entries []scanEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	require.Len(t, entries, len(moduleFiles))
	for i, e := range entries {
		assert.Equal(t, moduleFiles[i], e.Filename)
	}
	assert.True(t, entries[0].Cover)
	assert.Equal(t, -1, entries[0].Bucket)
	assert.True(t, entries[2].Mandatory)
	assert.Equal(t, "5.3", entries[4].GroupKey)
	assert.Equal(t, filepath.Join(c.Directories.Modules, moduleFiles[4]), entries[4].Path)
}

func TestScanMissingDirectory(t *testing.T) {
	_, cfgPath := setupWorkspace(t, nil, moduleFiles...)

	_, err := runCLI(t, "--config", cfgPath, "scan", filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.IsNotFound(err))
}

func TestComposeCommand(t *testing.T) {
	c, cfgPath := setupWorkspace(t, nil, moduleFiles...)

	output, err := runCLI(t, "--config", cfgPath, "compose", "--select", "2.3", "--cover", "0.0.1")
	require.NoError(t, err)
	assert.Contains(t, output, "Composition plan (3 documents)")
	assert.Contains(t, output, "Wrote "+c.OutputPath())

	doc, err := docx.Open(c.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0.0.1 - Deckblatt kurz.docx",
		"1.0.0 - Lage.docx",
		"2.3.1 - Oberleitung.docx",
	}, doc.Paragraphs())

	// Existing output is kept unless forced
	_, err = runCLI(t, "--config", cfgPath, "compose", "--select", "2.3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = runCLI(t, "--config", cfgPath, "compose", "--select", "5.3", "--force")
	require.NoError(t, err)
	doc, err = docx.Open(c.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0.0.0 - Deckblatt.docx",
		"1.0.0 - Lage.docx",
		"5.3.14 - Baugleis.docx",
	}, doc.Paragraphs())
}

func TestComposeKeepsMandatoryCover(t *testing.T) {
	c, cfgPath := setupWorkspace(t, func(c *config.Config) {
		c.Catalog.Mandatory = []string{"0.0.0 - Deckblatt.docx", "1.0.0 - Lage.docx"}
	}, moduleFiles...)

	output, err := runCLI(t, "--config", cfgPath, "compose", "--cover", "0.0.1")
	require.NoError(t, err)
	assert.Contains(t, output, "Cover is locked: 0.0.0 - Deckblatt.docx is mandatory")

	doc, err := docx.Open(c.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0.0.0 - Deckblatt.docx",
		"1.0.0 - Lage.docx",
	}, doc.Paragraphs())
}

func TestComposeWithPreset(t *testing.T) {
	c, cfgPath := setupWorkspace(t, nil, moduleFiles...)
	output := filepath.Join(c.Directories.Modules, "out", "nested", "Baustelle.docx")

	_, err := runCLI(t, "--config", cfgPath, "compose", "--preset", "Oberleitung", "--preset", "2", "--output", output)
	require.NoError(t, err)

	doc, err := docx.Open(output)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0.0.0 - Deckblatt.docx",
		"1.0.0 - Lage.docx",
		"2.3.1 - Oberleitung.docx",
		"5.3.14 - Baugleis.docx",
	}, doc.Paragraphs())
}

func TestComposeDryRun(t *testing.T) {
	c, cfgPath := setupWorkspace(t, nil, moduleFiles...)

	output, err := runCLI(t, "--config", cfgPath, "compose", "--all", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, output, "Composition plan (4 documents)")
	assert.Contains(t, output, "Dry run complete")
	assert.NoFileExists(t, c.OutputPath())
}

func TestComposeCoverOnly(t *testing.T) {
	c, cfgPath := setupWorkspace(t, func(c *config.Config) {
		c.Catalog.Mandatory = nil
	}, moduleFiles...)

	output, err := runCLI(t, "--config", cfgPath, "compose")
	require.NoError(t, err)
	assert.Contains(t, output, "Only the cover is selected")
	assert.FileExists(t, c.OutputPath())
}

func TestComposeErrors(t *testing.T) {
	_, cfgPath := setupWorkspace(t, nil, moduleFiles...)

	t.Run("unknown preset", func(t *testing.T) {
		_, err := runCLI(t, "--config", cfgPath, "compose", "--preset", "Nope")
		assert.True(t, errors.IsPresetNotFound(err))
	})

	t.Run("unknown cover", func(t *testing.T) {
		_, err := runCLI(t, "--config", cfgPath, "compose", "--cover", "0.9")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("nothing selected", func(t *testing.T) {
		_, noCovers := setupWorkspace(t, func(c *config.Config) {
			c.Catalog.Mandatory = nil
		}, "2.3.1 - Oberleitung.docx")
		_, err := runCLI(t, "--config", noCovers, "compose")
		assert.True(t, errors.IsEmptyInput(err))
	})
}

type recordingComposer struct {
	paths  []string
	dest   string
	dryRun bool
	dirs   bool
}

func (r *recordingComposer) SetDryRun(dryRun bool)         { r.dryRun = dryRun }
func (r *recordingComposer) IsDryRun() bool                { return r.dryRun }
func (r *recordingComposer) SetCreateDirs(createDirs bool) { r.dirs = createDirs }
func (r *recordingComposer) Compose(paths []string, dest string) (*compose.Result, error) {
	r.paths, r.dest = paths, dest
	return &compose.Result{Output: dest, Composed: paths, DryRun: r.dryRun}, nil
}

func TestComposeUsesComposerFactory(t *testing.T) {
	c, cfgPath := setupWorkspace(t, nil, moduleFiles...)
	rec := &recordingComposer{}
	compose.SetComposerFactory(func() compose.Composer { return rec })
	defer compose.ResetComposerFactory()

	_, err := runCLI(t, "--config", cfgPath, "compose", "--select", "5.3.14")
	require.NoError(t, err)

	assert.True(t, rec.dirs)
	assert.False(t, rec.dryRun)
	assert.Equal(t, c.OutputPath(), rec.dest)
	assert.Equal(t, []string{
		filepath.Join(c.Directories.Modules, "0.0.0 - Deckblatt.docx"),
		filepath.Join(c.Directories.Modules, "1.0.0 - Lage.docx"),
		filepath.Join(c.Directories.Modules, "5.3.14 - Baugleis.docx"),
	}, rec.paths)
}

func TestComposeRecordsLedger(t *testing.T) {
	_, cfgPath := setupWorkspace(t, func(c *config.Config) {
		c.Ledger.Enabled = true
	}, moduleFiles...)

	_, err := runCLI(t, "--config", cfgPath, "compose", "--select", "2.3", "--identifier", "Baustelle Nord")
	require.NoError(t, err)
	_, err = runCLI(t, "--config", cfgPath, "compose", "--select", "5.3", "--force")
	require.NoError(t, err)

	output, err := runCLI(t, "--config", cfgPath, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "Baustelle Nord")
	assert.Contains(t, output, "Betra_Zusammenstellung.docx")

	output, err = runCLI(t, "--config", cfgPath, "ledger", "list", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, output, "Betra_Zusammenstellung  ")
	assert.NotContains(t, output, "Baustelle Nord")
}

func TestLedgerListEmpty(t *testing.T) {
	_, cfgPath := setupWorkspace(t, nil, moduleFiles...)

	output, err := runCLI(t, "--config", cfgPath, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "The ledger is disabled")
	assert.Contains(t, output, "No compositions recorded")
}

func TestPresetsCommands(t *testing.T) {
	c, cfgPath := setupWorkspace(t, nil, moduleFiles...)

	output, err := runCLI(t, "--config", cfgPath, "presets", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "Oberleitung")
	assert.Contains(t, output, "UntArb")

	_, err = runCLI(t, "--config", cfgPath, "presets", "set", "2", "Weichen", "2.3, 5.3")
	require.NoError(t, err)
	assert.FileExists(t, c.Presets.Path)

	_, err = runCLI(t, "--config", cfgPath, "presets", "clear", "3")
	require.NoError(t, err)

	output, err = runCLI(t, "--config", cfgPath, "presets", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "Weichen  2.3, 5.3")
	assert.Contains(t, output, "3  (empty)")
	assert.NotContains(t, output, "Baugleis")

	_, err = runCLI(t, "--config", cfgPath, "presets", "set", "0", "Null", "1.")
	assert.True(t, errors.IsInvalidPreset(err))

	_, err = runCLI(t, "--config", cfgPath, "presets", "set", "x", "Null", "1.")
	assert.True(t, errors.IsInvalidPreset(err))
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "betra", "config.yaml")

	output, err := runCLI(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration written to "+path)
	assert.FileExists(t, path)

	_, err = runCLI(t, "--config", path, "config", "init")
	assert.True(t, errors.IsInvalidConfig(err))

	_, err = runCLI(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	output, err = runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "default_name: Betra_Zusammenstellung.docx")
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("presets:\n  slots: 12\n"), 0644))

	_, err := runCLI(t, "--config", path, "scan")
	assert.True(t, errors.IsInvalidConfig(err))
}
