package internal

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	umlauts = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")
	// separators become dashes before invalid characters are dropped
	slugSeparators = strings.NewReplacer("/", "-", "_", "-", ",", "-", ":", "-", ";", "-", ".", "-")
	slugInvalid    = regexp.MustCompile(`[^a-z0-9 -]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugDashes     = regexp.MustCompile(`-+`)
)

// Slugify turns free text into a lower-case, dash separated identifier.
// German umlauts are transliterated, other diacritics are stripped.
func Slugify(s string) string {
	s = umlauts.Replace(strings.ToLower(strings.TrimSpace(s)))
	if stripped, _, err := transform.String(stripMarks(), s); err == nil {
		s = stripped
	}
	s = slugSeparators.Replace(s)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
