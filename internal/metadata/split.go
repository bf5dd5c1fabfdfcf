package metadata

import (
	"strings"

	"github.com/osamaafana/BookScaner/internal/models"
)

// SplitSpineText turns one spine's raw OCR text into a title/author
// guess. Spine text is usually the title on the first line and the
// author below it; single-line spines sometimes read "Title by Author".
// The guess is deliberately naive: the resolver's fuzzy catalog search
// tolerates a wrong split.
func SplitSpineText(spine models.Spine) models.PartialBook {
	lines := []string{}
	for _, l := range strings.Split(spine.Text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	p := models.PartialBook{ISBN: spine.CandidateISBN}

	switch len(lines) {
	case 0:
		return p
	case 1:
		if title, author, ok := splitOnBy(lines[0]); ok {
			p.Title, p.Author = title, author
			return p
		}
		p.Title = lines[0]
		return p
	default:
		p.Title = lines[0]
		p.Author = strings.Join(lines[1:], " ")
		return p
	}
}

func splitOnBy(s string) (title, author string, ok bool) {
	i := strings.LastIndex(lowerASCII(s), " by ")
	if i <= 0 {
		return "", "", false
	}
	title = strings.TrimSpace(s[:i])
	author = strings.TrimSpace(s[i+len(" by "):])
	if title == "" || author == "" {
		return "", "", false
	}
	return title, author, true
}

// lowerASCII lowercases ASCII letters only. Unlike strings.ToLower it
// never changes byte length, so indexes into the result stay valid for
// the original string. The separator we search for is pure ASCII.
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
