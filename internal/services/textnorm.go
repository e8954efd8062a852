package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes s and drops the combining marks (é → e, ç → c).
func stripMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NameKey is the group key of a class name: no accents, lower case, single
// spaces. "  Salsa  Başlangıç " and "salsa baslangıc" share a key.
func NameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(stripMarks(name))), " ")
}

// FoldName is the forgiving form used to compare and search student names:
// NameKey plus dotless ı → i and with every space removed.
func FoldName(s string) string {
	s = strings.ReplaceAll(NameKey(s), "ı", "i")
	return strings.ReplaceAll(s, " ", "")
}
