package script

import (
	"regexp"
	"sort"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x{0000}-\x{001f}\x{007f}-\x{009f}\x{feff}]`)
	disallowed   = regexp.MustCompile(`[^가-힣a-zA-Z0-9.,?! ]`)
)

// Sanitizer strips text down to what the synthesis service pronounces
// reliably: Hangul, ASCII letters and digits, basic punctuation and spaces.
// Placeholder tokens (e.g. "OOO" standing in for the host's name) are
// replaced with configured display names before stripping.
type Sanitizer struct {
	replacements map[string]string
	tokens       []string
}

func NewSanitizer(placeholders map[string]string) *Sanitizer {
	tokens := make([]string, 0, len(placeholders))
	for token := range placeholders {
		tokens = append(tokens, token)
	}
	// Longest token first, so "OOO" is never half-consumed by "OO".
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return &Sanitizer{replacements: placeholders, tokens: tokens}
}

// Clean normalizes whitespace, substitutes placeholders, removes control and
// invisible characters, and deletes everything outside the allow-list. The
// result may be empty; callers skip such chunks rather than synthesizing
// silence.
func (s *Sanitizer) Clean(text string) string {
	text = NormalizeWhitespace(text)
	for _, token := range s.tokens {
		text = strings.ReplaceAll(text, token, s.replacements[token])
	}
	text = controlChars.ReplaceAllString(text, "")
	text = disallowed.ReplaceAllString(text, "")
	// Deleting characters can leave doubled spaces behind; collapse them so
	// cleaning is idempotent.
	return NormalizeWhitespace(text)
}
