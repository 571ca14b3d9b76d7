// Package classify maps module filenames to group keys and group keys to
// display buckets. Neither mapping influences merge order.
package classify

import "strings"

// Unsorted is the group key of filenames no rule recognizes.
const Unsorted = "Unsorted"

// Resolver derives the group key of a filename from its dotted chapter
// prefix. One chapter (the rich chapter) may fan out into sub-groups keyed
// by its first two segments.
type Resolver struct {
	richChapter string
	groups      map[string]struct{}
}

// NewResolver creates a resolver recognizing groups. An empty richChapter
// classifies every chapter by its first segment only.
func NewResolver(richChapter string, groups []string) *Resolver {
	r := &Resolver{
		richChapter: richChapter,
		groups:      make(map[string]struct{}, len(groups)),
	}
	for _, g := range groups {
		r.groups[g] = struct{}{}
	}
	return r
}

// Resolve returns the group key of filename, or Unsorted.
func (r *Resolver) Resolve(filename string) string {
	segments := strings.Split(filename, ".")
	main := segments[0]

	if r.richChapter != "" && main == r.richChapter && len(segments) > 1 {
		sub := main + "." + segments[1]
		if r.recognized(sub) {
			return sub
		}
	}
	if r.recognized(main) {
		return main
	}
	return Unsorted
}

func (r *Resolver) recognized(key string) bool {
	_, ok := r.groups[key]
	return ok
}

// Buckets is the static group key to display bucket table.
type Buckets struct {
	index    map[string]int
	catchAll int
}

// NewBuckets copies table; unknown keys land in catchAll.
func NewBuckets(table map[string]int, catchAll int) Buckets {
	b := Buckets{index: make(map[string]int, len(table)), catchAll: catchAll}
	for k, v := range table {
		b.index[k] = v
	}
	return b
}

// Index returns the display bucket of groupKey.
func (b Buckets) Index(groupKey string) int {
	if i, ok := b.index[groupKey]; ok {
		return i
	}
	return b.catchAll
}

// Count returns the number of buckets, catch-all included.
func (b Buckets) Count() int {
	n := b.catchAll + 1
	for _, i := range b.index {
		if i+1 > n {
			n = i + 1
		}
	}
	return n
}
