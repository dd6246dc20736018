package main

import (
	"strings"
	"unicode"
)

const Version = "1.0.0"

// LetterTokenizer splits on every rune that is not a letter, so it keeps
// non-ASCII words whole and drops digits and apostrophes.
type LetterTokenizer struct{}

var Plugin LetterTokenizer

func (w *LetterTokenizer) Version() string {
	return Version
}

func (w *LetterTokenizer) Split(line string) []string {
	words := strings.FieldsFunc(line, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return words
}

// main is never run, the package is built with -buildmode=plugin.
func main() {}
