// Package compose merges an ordered list of documents into one output
// document. The first document is the base every later one is appended
// to; later documents that are missing or cannot be appended are reported
// as notes and never abort the run.
package compose

import (
	"fmt"
	"os"
	"path/filepath"

	"betra/internal/docx"
	"betra/internal/errors"
	"betra/internal/log"
)

// Accumulator is a base document that fragments are appended to.
type Accumulator interface {
	AppendFile(path string) error
	Save(path string) error
}

// Opener loads the base document of a composition.
type Opener func(path string) (Accumulator, error)

// OpenDocx opens a Word document as the composition base.
func OpenDocx(path string) (Accumulator, error) {
	d, err := docx.Open(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NoteKind classifies a non-fatal composition problem.
type NoteKind int

const (
	// SkippedMissing marks a document that no longer exists.
	SkippedMissing NoteKind = iota
	// AppendFailed marks a document that exists but could not be appended.
	AppendFailed
)

func (k NoteKind) String() string {
	if k == SkippedMissing {
		return "skipped (missing)"
	}
	return "append failed"
}

// Note reports a document that was left out of the output.
type Note struct {
	Kind NoteKind
	Path string
	Err  error
}

func (n Note) String() string {
	if n.Err == nil {
		return fmt.Sprintf("%s: %s", filepath.Base(n.Path), n.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", filepath.Base(n.Path), n.Kind, n.Err)
}

// Result describes a finished composition.
type Result struct {
	Output   string   // Destination path
	Composed []string // Documents contained in the output, in order
	Notes    []Note   // Documents left out
	DryRun   bool     // Nothing was written
}

// Complete reports whether every requested document made it into the output.
func (r *Result) Complete() bool {
	return len(r.Notes) == 0
}

// Engine runs compositions.
type Engine struct {
	open       Opener
	dryRun     bool
	createDirs bool
}

// New creates an engine composing Word documents.
func New() *Engine {
	return NewWithOpener(OpenDocx)
}

// NewWithOpener creates an engine loading base documents with open.
func NewWithOpener(open Opener) *Engine {
	return &Engine{open: open}
}

// SetDryRun sets whether compositions skip the final write.
func (e *Engine) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// IsDryRun returns whether the engine is in dry run mode
func (e *Engine) IsDryRun() bool {
	return e.dryRun
}

// SetCreateDirs sets whether the destination directory is created before
// writing.
func (e *Engine) SetCreateDirs(createDirs bool) {
	e.createDirs = createDirs
}

// Compose merges paths in order and writes the result to dest, replacing
// any existing file. Documents are processed one at a time.
func (e *Engine) Compose(paths []string, dest string) (*Result, error) {
	if len(paths) == 0 {
		return nil, errors.ErrEmptyInput
	}

	logger := log.LogWithFields(log.F("output", dest), log.F("documents", len(paths)))
	base := paths[0]

	acc, err := e.open(base)
	if err != nil {
		return nil, errors.NewComposeError("base document could not be opened", base, errors.BaseNotFound, err)
	}
	logger.Debugf("Opened base %s", base)

	result := &Result{
		Output:   dest,
		Composed: []string{base},
		DryRun:   e.dryRun,
	}

	for _, path := range paths[1:] {
		if _, err := os.Stat(path); err != nil {
			result.Notes = append(result.Notes, e.note(path, err))
			continue
		}
		if err := acc.AppendFile(path); err != nil {
			result.Notes = append(result.Notes, e.note(path, err))
			continue
		}
		logger.Debugf("Appended %s", path)
		result.Composed = append(result.Composed, path)
	}

	if e.dryRun {
		logger.Infof("Would write %d documents to %s", len(result.Composed), dest)
		return result, nil
	}

	if e.createDirs {
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, errors.NewComposeError("failed to create output directory", dest, errors.PersistenceFailed, err)
		}
	}
	if err := acc.Save(dest); err != nil {
		return nil, errors.NewComposeError("failed to write output document", dest, errors.PersistenceFailed, err)
	}

	logger.With(log.F("composed", len(result.Composed)), log.F("notes", len(result.Notes))).Info("Composition written")
	return result, nil
}

func (e *Engine) note(path string, err error) Note {
	kind := AppendFailed
	if os.IsNotExist(err) || errors.IsNotFound(err) {
		kind = SkippedMissing
	} else {
		err = errors.NewComposeError("fragment rejected", "", errors.AppendFailed, err)
	}
	n := Note{Kind: kind, Path: path, Err: err}
	log.LogWithError(err).With(log.F("path", path)).Warn(n.Kind.String())
	return n
}
