package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"betra/internal/docx"
	"betra/internal/errors"
	"betra/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDoc records appends instead of merging.
type fakeDoc struct {
	appended []string
	failOn   map[string]bool
	saveErr  error
	saved    []string
}

func (f *fakeDoc) AppendFile(path string) error {
	if f.failOn[path] {
		return fmt.Errorf("corrupt fragment")
	}
	f.appended = append(f.appended, path)
	return nil
}

func (f *fakeDoc) Save(path string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, path)
	return os.WriteFile(path, []byte("composed"), 0644)
}

func fakeOpener(doc *fakeDoc) Opener {
	return func(path string) (Accumulator, error) {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		return doc, nil
	}
}

func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], []byte(name), 0644))
	}
	return paths
}

func TestComposeEmptyInput(t *testing.T) {
	e := NewWithOpener(fakeOpener(&fakeDoc{}))
	_, err := e.Compose(nil, filepath.Join(t.TempDir(), "out.docx"))
	require.Error(t, err)
	assert.True(t, errors.IsEmptyInput(err))
}

func TestComposeAppendsInOrder(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "A.docx", "B.docx", "C.docx")
	doc := &fakeDoc{}
	dest := filepath.Join(dir, "out.docx")

	result, err := NewWithOpener(fakeOpener(doc)).Compose(paths, dest)
	require.NoError(t, err)

	assert.Equal(t, paths[1:], doc.appended)
	assert.Equal(t, []string{dest}, doc.saved)
	assert.Equal(t, paths, result.Composed)
	assert.True(t, result.Complete())
	assert.False(t, result.DryRun)
}

func TestComposeSkipsMissingMiddleEntry(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "A.docx", "B.docx", "C.docx")
	require.NoError(t, os.Remove(paths[1]))
	doc := &fakeDoc{}

	result, err := NewWithOpener(fakeOpener(doc)).Compose(paths, filepath.Join(dir, "out.docx"))
	require.NoError(t, err)

	assert.Equal(t, []string{paths[2]}, doc.appended)
	assert.Equal(t, []string{paths[0], paths[2]}, result.Composed)
	require.Len(t, result.Notes, 1)
	assert.Equal(t, SkippedMissing, result.Notes[0].Kind)
	assert.Equal(t, paths[1], result.Notes[0].Path)
	assert.False(t, result.Complete())
}

func TestComposeReportsAppendFailures(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "A.docx", "B.docx", "C.docx")
	doc := &fakeDoc{failOn: map[string]bool{paths[1]: true}}

	result, err := NewWithOpener(fakeOpener(doc)).Compose(paths, filepath.Join(dir, "out.docx"))
	require.NoError(t, err)

	assert.Equal(t, []string{paths[2]}, doc.appended)
	require.Len(t, result.Notes, 1)
	assert.Equal(t, AppendFailed, result.Notes[0].Kind)
	assert.Contains(t, result.Notes[0].String(), "B.docx: append failed: fragment rejected: corrupt fragment")
	assert.Equal(t, errors.AppendFailed, errors.KindOf(result.Notes[0].Err))
}

func TestComposeBaseMissingWritesNothing(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "B.docx")
	paths = append([]string{filepath.Join(dir, "A.docx")}, paths...)
	dest := filepath.Join(dir, "out.docx")
	doc := &fakeDoc{}

	_, err := NewWithOpener(fakeOpener(doc)).Compose(paths, dest)
	require.Error(t, err)
	assert.True(t, errors.IsBaseNotFound(err))
	assert.Empty(t, doc.appended)
	assert.NoFileExists(t, dest)
}

func TestComposePersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "A.docx")
	doc := &fakeDoc{saveErr: fmt.Errorf("permission denied")}

	_, err := NewWithOpener(fakeOpener(doc)).Compose(paths, filepath.Join(dir, "out.docx"))
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))

	var composeErr *errors.ComposeError
	require.True(t, errors.As(err, &composeErr))
	assert.Equal(t, errors.PersistenceHint, composeErr.Hint())
}

func TestComposeDryRun(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "A.docx", "B.docx")
	dest := filepath.Join(dir, "out.docx")
	doc := &fakeDoc{}

	e := NewWithOpener(fakeOpener(doc))
	e.SetDryRun(true)
	assert.True(t, e.IsDryRun())

	result, err := e.Compose(paths, dest)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, paths, result.Composed)
	assert.Empty(t, doc.saved)
	assert.NoFileExists(t, dest)
}

func TestComposeCreatesOutputDirectory(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "A.docx")
	dest := filepath.Join(dir, "output", "nested", "out.docx")

	e := NewWithOpener(fakeOpener(&fakeDoc{}))
	_, err := e.Compose(paths, dest)
	require.Error(t, err, "the destination directory is not created by default")
	assert.True(t, errors.IsPersistence(err))

	e.SetCreateDirs(true)
	_, err = e.Compose(paths, dest)
	require.NoError(t, err)
	assert.FileExists(t, dest)
}

func TestComposeWordDocuments(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateModuleDir(t, dir, "0.0.0 - Deckblatt.docx", "1.0.0 - Lage.docx", "5.3.1 - Baugleis.docx")
	paths := []string{
		filepath.Join(dir, "0.0.0 - Deckblatt.docx"),
		filepath.Join(dir, "1.0.0 - Lage.docx"),
		filepath.Join(dir, "2.0.0 - Fehlt.docx"),
		filepath.Join(dir, "5.3.1 - Baugleis.docx"),
	}
	dest := filepath.Join(dir, "Betra_Zusammenstellung.docx")

	result, err := New().Compose(paths, dest)
	require.NoError(t, err)
	require.Len(t, result.Notes, 1)
	assert.Equal(t, SkippedMissing, result.Notes[0].Kind)

	out, err := docx.Open(dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.0.0 - Deckblatt.docx", "1.0.0 - Lage.docx", "5.3.1 - Baugleis.docx"}, out.Paragraphs())
}

func TestComposeOverwritesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateModuleDir(t, dir, "A.docx")
	dest := filepath.Join(dir, "out.docx")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	_, err := New().Compose([]string{filepath.Join(dir, "A.docx")}, dest)
	require.NoError(t, err)

	out, err := docx.Open(dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.docx"}, out.Paragraphs())
}

func TestComposeUnreadableBaseDocument(t *testing.T) {
	dir := t.TempDir()
	paths := touch(t, dir, "A.docx")

	_, err := New().Compose(paths, filepath.Join(dir, "out.docx"))
	require.Error(t, err)
	assert.True(t, errors.IsBaseNotFound(err))
}

func TestComposerFactory(t *testing.T) {
	t.Cleanup(ResetComposerFactory)

	fake := NewWithOpener(fakeOpener(&fakeDoc{}))
	SetComposerFactory(func() Composer { return fake })
	assert.Same(t, fake, CurrentComposerFactory())

	ResetComposerFactory()
	assert.NotSame(t, fake, CurrentComposerFactory())
}
