package centrality

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Tokenizer splits titles into the word nodes of the title-word graph.
// Tokens are maximal runs of CJK characters or ASCII letters; full-width
// ASCII is folded to narrow form first so "ＡＢＣ" and "abc" collapse.
type Tokenizer struct {
	stopWords map[string]struct{}
}

// NewTokenizer builds a tokenizer with the given stop-word list.
func NewTokenizer(stopWords []string) *Tokenizer {
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(width.Fold.String(w))] = struct{}{}
	}
	return &Tokenizer{stopWords: set}
}

// Tokenize extracts the usable tokens of one title: runs of at least two
// CJK or ASCII-letter characters, lowercased, with stop words removed.
func (t *Tokenizer) Tokenize(title string) []string {
	folded := width.Fold.String(title)

	var tokens []string
	var run []rune
	var runCJK bool
	flush := func() {
		if len(run) >= 2 {
			token := strings.ToLower(string(run))
			if _, stop := t.stopWords[token]; !stop {
				tokens = append(tokens, token)
			}
		}
		run = run[:0]
	}
	for _, r := range folded {
		switch {
		case isCJK(r):
			if len(run) > 0 && !runCJK {
				flush()
			}
			runCJK = true
			run = append(run, r)
		case r < 128 && unicode.IsLetter(r):
			if len(run) > 0 && runCJK {
				flush()
			}
			runCJK = false
			run = append(run, r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
