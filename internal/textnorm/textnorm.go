// Package textnorm folds user text into one canonical form so that keyword
// tables match regardless of how a keyboard composed the characters.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold returns the NFC-composed, lower-cased, space-trimmed form of s.
// "Xoá" typed with a combining acute and with a precomposed "á" fold equally.
func Fold(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}

// Fields folds s and splits it on whitespace
func Fields(s string) []string {
	return strings.Fields(Fold(s))
}

// TrimPunct strips leading and trailing punctuation from a word
func TrimPunct(w string) string {
	return strings.TrimFunc(w, unicode.IsPunct)
}

// ContainsWord reports whether phrase occurs in text on word boundaries.
// Both arguments are expected to be folded already; phrase may span several words.
func ContainsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	words := strings.Fields(text)
	for i := range words {
		words[i] = TrimPunct(words[i])
	}
	padded := " " + strings.Join(words, " ") + " "
	return strings.Contains(padded, " "+phrase+" ")
}
