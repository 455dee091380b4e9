package utils

import "strings"

// Prompt sizes are estimated at four runes per token, rounded up. It is
// only used to keep completion prompts inside a model's context window.
const runesPerToken = 4

// CountTokens estimates the number of tokens in text.
func CountTokens(text string) int {
	n := len([]rune(text))
	return (n + runesPerToken - 1) / runesPerToken
}

// TruncateToTokenLimit cuts text to about limit tokens. The cut moves back
// to the last line break when one lies in the second half of the kept
// text, so table rows are not split.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	keep := limit * runesPerToken
	if keep >= len(runes) {
		return text
	}
	out := string(runes[:keep])
	if i := strings.LastIndexByte(out, '\n'); i >= len(out)/2 {
		out = out[:i+1]
	}
	return out
}
