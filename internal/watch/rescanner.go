// Package watch rebuilds the module catalog when the module directory
// changes. Bursts of file events are coalesced into one rescan.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"betra/internal/catalog"
	"betra/internal/log"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the result of every rescan.
type ChangeFunc func(cat *catalog.Catalog, err error)

// Rescanner rescans one module directory after it changes.
type Rescanner struct {
	dir      string
	scanner  *catalog.Scanner
	debounce time.Duration
	onChange ChangeFunc
}

// NewRescanner creates a rescanner for dir. A non-positive debounce falls
// back to DefaultDebounce.
func NewRescanner(dir string, scanner *catalog.Scanner, debounce time.Duration, onChange ChangeFunc) *Rescanner {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Rescanner{
		dir:      dir,
		scanner:  scanner,
		debounce: debounce,
		onChange: onChange,
	}
}

// Relevant reports whether an event can change the catalog.
func (r *Rescanner) Relevant(mod FileModification) bool {
	if filepath.Clean(filepath.Dir(mod.Path)) != filepath.Clean(r.dir) {
		return false
	}
	return r.scanner.Eligible(filepath.Base(mod.Path))
}

// Run watches the directory until ctx is done. Every quiet period after a
// relevant event triggers one rescan, delivered to the change callback.
func (r *Rescanner) Run(ctx context.Context) error {
	w, err := New()
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.AddDirectory(r.dir); err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	logger := log.LogWithFields(log.F("dir", r.dir), log.F("debounce", r.debounce.String()))
	logger.Debug("rescanner running")

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case mod, ok := <-w.FileChannel():
			if !ok {
				return nil
			}
			if !r.Relevant(mod) {
				continue
			}
			pending++
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			logger.With(log.F("events", pending)).Debug("rescanning")
			pending = 0
			cat, err := r.scanner.Scan(r.dir)
			if r.onChange != nil {
				r.onChange(cat, err)
			}
		}
	}
}
