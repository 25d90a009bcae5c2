// internal/textnorm/textnorm.go
//
// Canonical word-form normalization shared by the sanitizer and the
// guess engine. A guess and a document token compare equal iff their
// normalized forms are byte-equal.
//
// Steps, in order:
//  1. Drop all whitespace (so "New York" can match a single token).
//  2. Lowercase.
//  3. Canonical decomposition (NFD).
//  4. Strip combining marks ("état" and "etat" compare equal).
//  5. Drop apostrophes (possessives match their base word).
//
// The result of Normalize is a fixed point: Normalize(Normalize(x)) ==
// Normalize(x).

package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize reduces raw input to its canonical comparison form.
// Total function: it never fails, and empty input stays empty.
func Normalize(raw string) string {
	s := strings.Map(dropSpace, raw)
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Map(dropApostrophe, s)
}

func dropSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return -1
	}
	return r
}

func dropApostrophe(r rune) rune {
	if r == '\'' || r == '’' {
		return -1
	}
	return r
}
