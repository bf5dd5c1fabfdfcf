// Package fingerprint canonicalizes book identity strings so that
// semantically equal books converge on the same cache key regardless of
// casing, punctuation, accents or ISBN formatting.
package fingerprint

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	isbnJunk    = regexp.MustCompile(`[^0-9Xx]`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// stripMarks decomposes characters and drops the combining marks,
// turning e.g. "Café" into "Cafe".
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText lowercases, strips diacritics, collapses punctuation to
// spaces and squeezes whitespace runs. It is idempotent.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = punctuation.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeISBN strips everything that is not a decimal digit or the
// letter X (a valid ISBN-10 check digit). The result may be empty.
func NormalizeISBN(isbn string) string {
	return isbnJunk.ReplaceAllString(isbn, "")
}

// Make derives the canonical fingerprint for a book. A usable ISBN wins;
// otherwise the key is normalized title plus author, with the author
// segment omitted when empty.
func Make(title, author, isbn string) string {
	if n := NormalizeISBN(isbn); n != "" {
		return n
	}
	t := NormalizeText(title)
	a := NormalizeText(author)
	if a == "" {
		return t
	}
	return t + "|" + a
}
