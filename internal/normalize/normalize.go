// Package normalize holds the pure field normalizers used by the import
// engine. Every function here is total: unparsable input yields the zero
// value plus ok=false (or an empty string), never an error or a panic.
// Error handling for bad data belongs to the resolvers, not here.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics removes combining marks (JOSÉ -> JOSE) without changing case.
func StripDiacritics(s string) string {
	out, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		return s
	}
	return out
}

// ID normalizes a raw identifier (DNI, NSS, CIF, employer number): strips
// everything but letters and digits and uppercases the rest. Empty and
// all-zero values mean "absent" in the source exports and come back as "".
func ID(raw string) string {
	var b strings.Builder
	allZero := true
	for _, r := range strings.ToUpper(StripDiacritics(raw)) {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			if r != '0' {
				allZero = false
			}
		}
	}
	if allZero {
		return ""
	}
	return b.String()
}

// Name folds a human or entity name for matching: accents stripped,
// lowercased, inner whitespace collapsed to single spaces.
func Name(raw string) string {
	s := strings.ToLower(StripDiacritics(raw))
	return strings.Join(strings.Fields(s), " ")
}

// FullName builds the normalized identity key for a person from the name and
// surname columns. Empty parts are dropped so "name surname1" and
// "name surname1 surname2" stay distinguishable only when surname2 exists.
func FullName(name, surname1, surname2 string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{name, surname1, surname2} {
		if n := Name(p); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	pseudoTagRe = regexp.MustCompile(`\[/?[a-zA-Z][^\]]*\]`)
	entityRepl  = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// Description strips HTML markup and BBCode-style pseudo-tags from a course
// description, decodes the common entities, and collapses whitespace.
func Description(raw string) string {
	s := htmlTagRe.ReplaceAllString(raw, " ")
	s = pseudoTagRe.ReplaceAllString(s, " ")
	s = entityRepl.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// HasLetters reports whether the string contains at least one letter, which
// is the minimum we accept for a name or surname to count as identifying.
func HasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
