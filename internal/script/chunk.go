package script

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace to single spaces and trims
// the ends.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ChunkText splits text into pieces of at most maxChars characters, breaking
// only at sentence boundaries (. ? !). Sentences are packed greedily into each
// chunk. A single sentence longer than maxChars is emitted intact as its own
// oversized chunk: the synthesis service copes better with a long sentence
// than with one cut mid-clause.
func ChunkText(text string, maxChars int) []string {
	text = NormalizeWhitespace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current string
	for _, sentence := range splitSentences(text) {
		candidate := sentence
		if current != "" {
			candidate = current + " " + sentence
		}
		if utf8.RuneCountInString(candidate) > maxChars && current != "" {
			chunks = append(chunks, current)
			current = sentence
		} else {
			current = candidate
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitSentences cuts on terminal punctuation, keeping the terminator with
// its sentence. Trailing text without a terminator becomes a final sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '?', '!':
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
