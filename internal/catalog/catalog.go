// Package catalog discovers module documents in a directory and orders,
// classifies and flags them. A catalog is built fresh on every scan and is
// never updated in place.
package catalog

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"betra/internal/classify"
	"betra/internal/errors"
	"betra/internal/log"
	"betra/internal/natsort"

	"github.com/gobwas/glob"
	"golang.org/x/text/unicode/norm"
)

// Entry is one discovered module document.
type Entry struct {
	Path      string // Location of the document, read-only after discovery
	Filename  string // Display and classification identifier
	GroupKey  string // Classification key such as "5.3" or "Unsorted"
	Mandatory bool   // Always selected; fixed for the entry's lifetime
	Cover     bool   // Member of the single-choice cover subset
	Bucket    int    // Display bucket; -1 for covers
}

// Catalog is an ordered list of entries in natural filename order.
type Catalog struct {
	Dir      string
	Entries  []*Entry
	Warnings []string

	partitioned bool
}

// Column is one display bucket of the module subset.
type Column struct {
	Bucket  int
	Keys    []string // Group keys present in the bucket, in catalog order
	Entries []*Entry
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.Entries)
}

// Empty reports whether the scan found no eligible documents.
func (c *Catalog) Empty() bool {
	return len(c.Entries) == 0
}

// Partitioned reports whether entries are split into covers and modules.
func (c *Catalog) Partitioned() bool {
	return c.partitioned
}

// Index returns the position of filename, or -1.
func (c *Catalog) Index(filename string) int {
	return slices.IndexFunc(c.Entries, func(e *Entry) bool { return e.Filename == filename })
}

// Covers returns the cover subset in catalog order.
func (c *Catalog) Covers() []*Entry {
	var covers []*Entry
	for _, e := range c.Entries {
		if e.Cover {
			covers = append(covers, e)
		}
	}
	return covers
}

// Modules returns every entry that is not a cover, in catalog order.
func (c *Catalog) Modules() []*Entry {
	var modules []*Entry
	for _, e := range c.Entries {
		if !e.Cover {
			modules = append(modules, e)
		}
	}
	return modules
}

// Layout groups the module subset into display columns ordered by bucket.
func (c *Catalog) Layout() []Column {
	byBucket := make(map[int]*Column)
	for _, e := range c.Modules() {
		col, ok := byBucket[e.Bucket]
		if !ok {
			col = &Column{Bucket: e.Bucket}
			byBucket[e.Bucket] = col
		}
		if !slices.Contains(col.Keys, e.GroupKey) {
			col.Keys = append(col.Keys, e.GroupKey)
		}
		col.Entries = append(col.Entries, e)
	}

	columns := make([]Column, 0, len(byBucket))
	for _, col := range byBucket {
		columns = append(columns, *col)
	}
	slices.SortFunc(columns, func(a, b Column) int { return a.Bucket - b.Bucket })
	return columns
}

// Options configures a Scanner.
type Options struct {
	Extension   string             // Document extension, e.g. ".docx"
	Exclude     []string           // Glob patterns of filenames to skip
	CoverPrefix string             // Cover filename prefix; empty disables the partition
	Mandatory   []string           // Exact filenames that are always selected
	Resolver    *classify.Resolver // Group key resolver
	Buckets     classify.Buckets   // Group key to display bucket table
}

// Scanner builds catalogs from module directories.
type Scanner struct {
	opts      Options
	match     glob.Glob
	exclude   []glob.Glob
	mandatory map[string]struct{}
}

// NewScanner compiles the scanner patterns.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.Extension == "" {
		return nil, errors.NewConfigError("extension is required", "catalog.extension", errors.InvalidConfig, nil)
	}
	if opts.Resolver == nil {
		opts.Resolver = classify.NewResolver("", nil)
	}

	match, err := glob.Compile("*" + strings.ToLower(opts.Extension))
	if err != nil {
		return nil, errors.NewConfigError("invalid extension", "catalog.extension", errors.InvalidConfig, err)
	}

	s := &Scanner{
		opts:      opts,
		match:     match,
		mandatory: make(map[string]struct{}, len(opts.Mandatory)),
	}
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.NewConfigError("invalid exclude pattern", pattern, errors.InvalidConfig, err)
		}
		s.exclude = append(s.exclude, g)
	}
	for _, name := range opts.Mandatory {
		s.mandatory[norm.NFC.String(name)] = struct{}{}
	}
	return s, nil
}

// Eligible reports whether a filename is picked up by a scan.
func (s *Scanner) Eligible(name string) bool {
	if !s.match.Match(strings.ToLower(name)) {
		return false
	}
	for _, g := range s.exclude {
		if g.Match(name) {
			return false
		}
	}
	return true
}

// IsMandatory reports whether filename is in the mandatory list. Both sides
// are compared in NFC so decomposed filenames still match.
func (s *Scanner) IsMandatory(filename string) bool {
	_, ok := s.mandatory[norm.NFC.String(filename)]
	return ok
}

// Scan lists the eligible documents directly under dir. A missing or
// unreadable dir is a not-found error; a dir without documents yields an
// empty catalog with a warning.
func (s *Scanner) Scan(dir string) (*Catalog, error) {
	logger := log.LogWithFields(log.F("dir", dir))

	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.NewFileError("module directory not found", dir, errors.FileNotFound, err)
	}
	if !info.IsDir() {
		return nil, errors.NewFileError("module path is not a directory", dir, errors.FileNotFound, nil)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewFileError("module directory is not readable", dir, errors.FileNotFound, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if s.Eligible(de.Name()) {
			names = append(names, de.Name())
		}
	}
	natsort.Sort(names)

	cat := &Catalog{
		Dir:         dir,
		Entries:     make([]*Entry, 0, len(names)),
		partitioned: s.opts.CoverPrefix != "",
	}
	for _, name := range names {
		e := &Entry{
			Path:      filepath.Join(dir, name),
			Filename:  name,
			GroupKey:  s.opts.Resolver.Resolve(name),
			Mandatory: s.IsMandatory(name),
			Bucket:    -1,
		}
		if cat.partitioned && strings.HasPrefix(name, s.opts.CoverPrefix) {
			e.Cover = true
		} else {
			e.Bucket = s.opts.Buckets.Index(e.GroupKey)
		}
		cat.Entries = append(cat.Entries, e)
	}

	if cat.Empty() {
		msg := "no " + s.opts.Extension + " documents found in " + dir
		cat.Warnings = append(cat.Warnings, msg)
		logger.Warn(msg)
		return cat, nil
	}

	logger.With(log.F("entries", cat.Len()), log.F("covers", len(cat.Covers()))).Debug("catalog built")
	return cat, nil
}
