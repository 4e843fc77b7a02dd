package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// emphasis markers the editor may keep or drop when markdown is pasted into a
// rich text field
var emphasisReplacer = strings.NewReplacer("**", "", "__", "")

// NormalizeEcho makes text that was injected into an input comparable with what
// the page renders back: emphasis markers are removed and whitespace runs are
// collapsed to a single space.
func NormalizeEcho(text string) string {
	text = emphasisReplacer.Replace(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// EchoMatches reports whether the rendered text is the same as the sent text
// once both are normalized.
func EchoMatches(sent, rendered string) bool {
	return NormalizeEcho(sent) == NormalizeEcho(rendered)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
