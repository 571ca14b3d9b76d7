// Package natsort orders filenames so that numeric runs compare by value:
// "2.1.0 - x" sorts before "10.0.0 - y" and "5.3.1" before "5.3.10".
package natsort

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Token is one run of a split filename. Numeric tokens keep their digits
// without leading zeros so values of any length compare without overflow.
type Token struct {
	Num  bool
	Text string
}

// Key is the comparable form of a filename.
type Key []Token

// NewKey splits s into alternating numeric and text runs. Text runs are
// NFC-normalized and case-folded.
func NewKey(s string) Key {
	folder := cases.Fold()
	var key Key

	start := 0
	for start < len(s) {
		end := start
		digit := isDigit(s[start])
		for end < len(s) && isDigit(s[end]) == digit {
			end++
		}
		run := s[start:end]
		if digit {
			trimmed := strings.TrimLeft(run, "0")
			if trimmed == "" {
				trimmed = "0"
			}
			key = append(key, Token{Num: true, Text: trimmed})
		} else {
			key = append(key, Token{Text: folder.String(norm.NFC.String(run))})
		}
		start = end
	}
	return key
}

// Compare orders two keys token by token. ok is false when the keys hold
// tokens of different kinds at the same position before a difference.
func (k Key) Compare(other Key) (result int, ok bool) {
	for i := 0; i < len(k) && i < len(other); i++ {
		a, b := k[i], other[i]
		if a.Num != b.Num {
			return 0, false
		}
		if c := compareToken(a, b); c != 0 {
			return c, true
		}
	}
	switch {
	case len(k) < len(other):
		return -1, true
	case len(k) > len(other):
		return 1, true
	}
	return 0, true
}

func compareToken(a, b Token) int {
	if a.Num {
		if len(a.Text) != len(b.Text) {
			if len(a.Text) < len(b.Text) {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a.Text, b.Text)
}

// Compare returns -1, 0 or 1 for the natural order of a and b. Keys that
// are equal or not comparable fall back to plain byte order, so the
// result is total and deterministic.
func Compare(a, b string) int {
	if c, ok := NewKey(a).Compare(NewKey(b)); ok && c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Sort sorts names in natural order.
func Sort(names []string) {
	slices.SortStableFunc(names, Compare)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
