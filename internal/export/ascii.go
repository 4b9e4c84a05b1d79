package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters with no combining-mark decomposition get explicit spellings
// before the NFD pass.
var asciiReplacer = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"ø", "o", "Ø", "O",
	"å", "a", "Å", "A",
	"ł", "l", "Ł", "L",
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ToASCII transliterates accented names for systems that reject non-ASCII
// input. Characters it cannot map are passed through unchanged.
func ToASCII(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks, asciiReplacer.Replace(s))
	if err != nil {
		return s
	}
	return out
}
