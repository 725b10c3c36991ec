package merge

import (
	"strings"
	"unicode"
)

type punctClass int

const (
	punctOther punctClass = iota
	punctDecimal
	punctAbbreviation
	punctTerminal
)

const closingQuotes = "\"'”’」』)）》"

// fragment is a half-open rune range of the flattened text. terminal reports whether
// it ended on sentence-ending punctuation.
type fragment struct {
	start, end int
	terminal   bool
}

// tokenizer classifies punctuation in one pass and cuts text into sentence fragments.
type tokenizer struct {
	sentenceEnd   string
	abbreviations map[string]bool
}

func newTokenizer(sentenceEnd string, abbreviations []string) *tokenizer {
	abbr := make(map[string]bool, len(abbreviations))
	for _, a := range abbreviations {
		abbr[strings.ToLower(strings.TrimSuffix(a, "."))] = true
	}
	return &tokenizer{sentenceEnd: sentenceEnd, abbreviations: abbr}
}

func (t *tokenizer) isTerminal(r rune) bool {
	return strings.ContainsRune(t.sentenceEnd, r)
}

// classify decides what the punctuation rune at i means in context
func (t *tokenizer) classify(text []rune, i int) punctClass {
	r := text[i]
	if !t.isTerminal(r) {
		return punctOther
	}
	if r != '.' {
		return punctTerminal
	}
	if i > 0 && i+1 < len(text) && unicode.IsDigit(text[i-1]) && unicode.IsDigit(text[i+1]) {
		return punctDecimal
	}
	if i+1 < len(text) && text[i+1] == '.' {
		return punctTerminal
	}

	j := i
	for j > 0 && (unicode.IsLetter(text[j-1]) || text[j-1] == '.') {
		j--
	}
	if j < i && t.abbreviations[strings.ToLower(string(text[j:i]))] {
		return punctAbbreviation
	}
	return punctTerminal
}

// split returns fragments covering every non-space rune of text exactly once
func (t *tokenizer) split(text []rune) []fragment {
	var frags []fragment
	n := len(text)
	start := skipSpace(text, 0)

	for i := start; i < n; i++ {
		if t.classify(text, i) != punctTerminal {
			continue
		}

		// a run like "!?" or "..." or "。。" counts as one terminal
		j := i
		for j+1 < n && t.isTerminal(text[j+1]) {
			j++
		}
		k := j
		for k+1 < n && strings.ContainsRune(closingQuotes, text[k+1]) {
			k++
		}

		if k+1 == n || unicode.IsSpace(text[k+1]) || isWide(text[j]) {
			frags = append(frags, fragment{start: start, end: k + 1, terminal: true})
			start = skipSpace(text, k+1)
			i = start - 1
			continue
		}
		i = j
	}

	if start < n {
		end := n
		for end > start && unicode.IsSpace(text[end-1]) {
			end--
		}
		frags = append(frags, fragment{start: start, end: end})
	}
	return frags
}

func skipSpace(text []rune, i int) int {
	for i < len(text) && unicode.IsSpace(text[i]) {
		i++
	}
	return i
}

// isWide reports full-width punctuation, which ends a sentence without a following space
func isWide(r rune) bool {
	return r >= 0x3000
}
