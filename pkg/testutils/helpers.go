package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates test files with specific content
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
		require.NoError(t, err)
	}
}

// CreateModuleDir writes one single-paragraph docx per filename into dir.
// Each paragraph holds the filename so composed output can be checked.
func CreateModuleDir(t *testing.T, dir string, filenames ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range filenames {
		WriteDocx(t, filepath.Join(dir, name), Docx{Paragraphs: []string{name}})
	}
}
