package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// AnonymousName replaces empty names in public views.
const AnonymousName = "Anonymous"

// CensorName masks a display name for the public feed. Each word keeps its
// first and last rune with the inner runes replaced by '*'. Words of one or
// two runes keep only the first rune.
//
//	CensorName("Ahmad Fauzi") == "A***d F***i"
func CensorName(name string) string {
	fields := strings.FieldsFunc(norm.NFC.String(name), unicode.IsSpace)
	if len(fields) == 0 {
		return AnonymousName
	}

	out := make([]string, len(fields))
	for i, word := range fields {
		out[i] = censorWord([]rune(word))
	}
	return strings.Join(out, " ")
}

func censorWord(r []rune) string {
	if len(r) <= 2 {
		return string(r[0]) + "*"
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
}
