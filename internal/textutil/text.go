// Package textutil holds the tokenising and sentence splitting shared by the
// lexical components.
package textutil

import (
	"math"
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "how", "why", "when", "where", "do", "does", "did", "me", "tell",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokens returns the lower-cased words of s.
func Tokens(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// IsStopword reports whether tok carries no retrieval signal.
func IsStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

// ContentSet returns the distinct non-stopword tokens of s.
func ContentSet(s string) map[string]struct{} {
	toks := Tokens(s)
	m := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		if IsStopword(t) {
			continue
		}
		m[t] = struct{}{}
	}
	return m
}

// Sentences splits text into trimmed sentences. Trailing text without a
// terminator counts as a final sentence.
func Sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if s := strings.Join(strings.Fields(text[loc[0]:loc[1]]), " "); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if tail := strings.Join(strings.Fields(text[last:]), " "); tail != "" {
		out = append(out, tail)
	}
	return out
}

// Overlap counts the distinct tokens of text that appear in query.
func Overlap(query map[string]struct{}, text string) int {
	score := 0
	for t := range ContentSet(text) {
		if _, ok := query[t]; ok {
			score++
		}
	}
	return score
}

// Ochiai is |A∩B| / sqrt(|A||B|) over the distinct content tokens.
func Ochiai(query map[string]struct{}, text string) float64 {
	set := ContentSet(text)
	if len(query) == 0 || len(set) == 0 {
		return 0
	}
	inter := 0
	for t := range set {
		if _, ok := query[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(query))*float64(len(set)))
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return s[:n]
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
