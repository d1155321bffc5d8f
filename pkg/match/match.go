// Package match provides title normalization and fuzzy comparison for
// correlating backend queue records with tracked media.
package match

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// similarThreshold is the minimum Jaro-Winkler score considered a match.
// Queue record names carry release decoration, so the bar stays modest.
const similarThreshold = 0.85

// CleanTitle normalizes a title for comparison: lowercase, accents removed,
// punctuation flattened, articles stripped (leading or sort-order trailing,
// as in "Expanse, The"), whitespace collapsed.
func CleanTitle(title string) string {
	s := strings.ToLower(title)
	s = removeAccents(s)
	s = stripTrailingArticle(strings.TrimSpace(s))

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, ".", " ")

	parts := strings.Split(s, ":")
	for i, part := range parts {
		parts[i] = stripLeadingArticle(strings.TrimSpace(part))
	}
	s = strings.Join(parts, " ")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity returns the Jaro-Winkler similarity of two titles after
// normalization, in [0, 1].
func Similarity(a, b string) float64 {
	return float64(edlib.JaroWinklerSimilarity(CleanTitle(a), CleanTitle(b)))
}

// Similar reports whether two titles are close enough to be treated as the
// same work.
func Similar(a, b string) bool {
	return Similarity(a, b) >= similarThreshold
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

func stripLeadingArticle(s string) string {
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, article) {
			return s[len(article):]
		}
	}
	return s
}

func stripTrailingArticle(s string) string {
	for _, article := range []string{", the", ", a", ", an"} {
		if strings.HasSuffix(s, article) {
			return s[:len(s)-len(article)]
		}
	}
	return s
}
