package slug

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// đ/Đ are distinct letters, not d plus a combining mark, so NFD leaves them alone.
var letterReplacer = strings.NewReplacer("đ", "d", "Đ", "D")

// Generate lowercases name, folds Vietnamese diacritics to ASCII and joins
// the remaining words with single hyphens: "Đồ Thể Thao" becomes
// "do-the-thao".
func Generate(name string) string {
	folded := strings.ToLower(stripMarks(name))
	return strings.Trim(slugRegexp.ReplaceAllString(folded, "-"), "-")
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// MaxCodeLength is the longest promotion code the backend accepts.
const MaxCodeLength = 50

// Code derives an uppercase promotion code such as "SUMMER-SALE-7K3Q" from a
// display name: the slug, truncated so the result fits MaxCodeLength, plus a
// random suffix of suffixLen characters. An empty name yields just the suffix.
func Code(name string, suffixLen int) string {
	if suffixLen < 3 {
		suffixLen = 3
	}
	suffix := make([]byte, suffixLen)
	for i := range suffix {
		suffix[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}

	base := strings.ToUpper(Generate(name))
	if limit := MaxCodeLength - suffixLen - 1; len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	if base == "" {
		return string(suffix)
	}
	return base + "-" + string(suffix)
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, letterReplacer.Replace(s))
	if err != nil {
		return s
	}
	return out
}
