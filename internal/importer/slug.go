package importer

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify builds a URL path segment: accents stripped, lower-case ASCII
// letters and digits joined by single hyphens.
func Slugify(parts ...string) string {
	joined := strings.Join(parts, " ")
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), joined)
	if err != nil {
		folded = joined
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

func slugWithYear(year int, parts ...string) string {
	if year > 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	return Slugify(parts...)
}
