// Package selection holds which catalog entries are chosen for composition.
//
// Mandatory entries are selected at all times. Covers, when the catalog is
// partitioned, form a single-choice subset tracked apart from the
// multi-select flags; a mandatory cover locks that choice.
package selection

import (
	"strings"

	"betra/internal/catalog"
)

// Outcome reports what ApplyPreset did.
type Outcome int

const (
	// NoOp means no selectable entry matched the preset.
	NoOp Outcome = iota
	// Selected means every matching entry is now selected.
	Selected
	// Deselected means every matching entry is now deselected.
	Deselected
)

func (o Outcome) String() string {
	switch o {
	case Selected:
		return "selected"
	case Deselected:
		return "deselected"
	default:
		return "no-op"
	}
}

// State is the selection over one catalog. Flags are kept parallel to the
// catalog order; the catalog itself is never modified.
type State struct {
	cat      *catalog.Catalog
	selected []bool
	cover    int
}

// New returns a state initialized from the mandatory flags of cat.
func New(cat *catalog.Catalog) *State {
	s := &State{}
	s.Rebuild(cat)
	return s
}

// Rebuild discards the current selection and re-initializes it over cat.
func (s *State) Rebuild(cat *catalog.Catalog) {
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	s.cat = cat
	s.selected = make([]bool, cat.Len())
	s.ResetAll()
}

// Catalog returns the catalog the state was built over.
func (s *State) Catalog() *catalog.Catalog {
	return s.cat
}

// ResetAll selects exactly the mandatory entries and restores the default
// cover.
func (s *State) ResetAll() {
	for i, e := range s.cat.Entries {
		s.selected[i] = e.Mandatory && !e.Cover
	}
	s.cover = s.defaultCover()
}

// defaultCover is the first mandatory cover, else the first cover, else -1.
func (s *State) defaultCover() int {
	first := -1
	for i, e := range s.cat.Entries {
		if !e.Cover {
			continue
		}
		if e.Mandatory {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// Toggle flips the entry at i. Mandatory entries stay selected. Toggling a
// cover makes it the chosen cover. It reports whether anything changed.
func (s *State) Toggle(i int) bool {
	if i < 0 || i >= s.cat.Len() {
		return false
	}
	e := s.cat.Entries[i]
	if e.Cover {
		return s.SelectCover(i)
	}
	if e.Mandatory {
		return false
	}
	s.selected[i] = !s.selected[i]
	return true
}

// SelectCover makes the cover at i the chosen one. A mandatory cover, once
// chosen, stays chosen.
func (s *State) SelectCover(i int) bool {
	if i < 0 || i >= s.cat.Len() || !s.cat.Entries[i].Cover || s.cover == i {
		return false
	}
	if s.CoverLocked() {
		return false
	}
	s.cover = i
	return true
}

// CoverLocked reports whether the chosen cover is mandatory.
func (s *State) CoverLocked() bool {
	return s.cover >= 0 && s.cat.Entries[s.cover].Mandatory
}

// Cover returns the chosen cover, or nil.
func (s *State) Cover() *catalog.Entry {
	if s.cover < 0 {
		return nil
	}
	return s.cat.Entries[s.cover]
}

// IsSelected reports whether the entry at i is selected.
func (s *State) IsSelected(i int) bool {
	if i < 0 || i >= s.cat.Len() {
		return false
	}
	if s.cat.Entries[i].Cover {
		return i == s.cover
	}
	return s.selected[i]
}

// ApplyPreset toggles the group of selectable entries whose filename starts
// with any of prefixes. Mandatory entries and covers never take part. If any
// member of the group is unselected the whole group is selected, otherwise
// the whole group is deselected.
func (s *State) ApplyPreset(prefixes []string) Outcome {
	group := s.matching(prefixes)
	if len(group) == 0 {
		return NoOp
	}

	allSelected := true
	for _, i := range group {
		if !s.selected[i] {
			allSelected = false
			break
		}
	}
	for _, i := range group {
		s.selected[i] = !allSelected
	}
	if allSelected {
		return Deselected
	}
	return Selected
}

// SelectMatching selects every selectable entry matching prefixes and
// returns how many matched.
func (s *State) SelectMatching(prefixes []string) int {
	group := s.matching(prefixes)
	for _, i := range group {
		s.selected[i] = true
	}
	return len(group)
}

// SelectAll selects the whole module subset.
func (s *State) SelectAll() {
	for i, e := range s.cat.Entries {
		if !e.Cover {
			s.selected[i] = true
		}
	}
}

func (s *State) matching(prefixes []string) []int {
	var group []int
	for i, e := range s.cat.Entries {
		if e.Mandatory || e.Cover {
			continue
		}
		if hasAnyPrefix(e.Filename, prefixes) {
			group = append(group, i)
		}
	}
	return group
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Selected returns the selected entries of the module subset in catalog
// order.
func (s *State) Selected() []*catalog.Entry {
	var out []*catalog.Entry
	for i, e := range s.cat.Entries {
		if !e.Cover && s.selected[i] {
			out = append(out, e)
		}
	}
	return out
}

// Order returns the composition order: the chosen cover, if any, followed
// by the selected modules.
func (s *State) Order() []*catalog.Entry {
	var out []*catalog.Entry
	if c := s.Cover(); c != nil {
		out = append(out, c)
	}
	return append(out, s.Selected()...)
}

// Paths returns the document paths of Order.
func (s *State) Paths() []string {
	order := s.Order()
	paths := make([]string, len(order))
	for i, e := range order {
		paths[i] = e.Path
	}
	return paths
}

// CoverOnly reports whether a cover is chosen but no module is selected.
func (s *State) CoverOnly() bool {
	return s.Cover() != nil && len(s.Selected()) == 0
}
