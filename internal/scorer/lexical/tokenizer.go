package lexical

import (
	"strings"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"of": true, "at": true, "by": true, "for": true, "with": true,
	"about": true, "against": true, "between": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"to": true, "from": true, "in": true, "on": true, "and": true,
	"or": true, "it": true, "its": true, "this": true, "that": true,
}

type tokenSet map[string]bool

// tokenize lowercases s, strips punctuation and drops stop words and
// single character words.
func tokenize(s string) tokenSet {
	s = strings.ToLower(s)
	s = removePunctuation(s)

	tokens := tokenSet{}
	for word := range strings.FieldsSeq(s) {
		if !stopWords[word] && len(word) > 1 {
			tokens[word] = true
		}
	}
	return tokens
}

func removePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(".,!?;:()[]{}\"'`", r) {
			return -1
		}
		return r
	}, s)
}

// coverage is the share of tokens in want that also appear in have.
// It is 0 when want is empty.
func coverage(want, have tokenSet) float64 {
	if len(want) == 0 {
		return 0
	}
	count := 0
	for token := range want {
		if have[token] {
			count++
		}
	}
	return float64(count) / float64(len(want))
}

func union(sets ...tokenSet) tokenSet {
	out := tokenSet{}
	for _, s := range sets {
		for token := range s {
			out[token] = true
		}
	}
	return out
}
