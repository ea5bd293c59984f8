package reply

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MentionPlaceholder replaces @handle mentions in generated text.
const MentionPlaceholder = "[user]"

var (
	// \B keeps email addresses such as a@b.com intact.
	mentionPattern = regexp.MustCompile(`\B@[A-Za-z0-9_]+`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
)

// Sanitize neutralises mentions, keeps only the first URL and truncates the
// result to maxChars runes. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string, maxChars int) string {
	text = mentionPattern.ReplaceAllString(text, MentionPlaceholder)

	seen := false
	text = urlPattern.ReplaceAllStringFunc(text, func(u string) string {
		if seen {
			return ""
		}
		seen = true
		return u
	})

	text = strings.Join(strings.Fields(text), " ")
	return truncate(text, maxChars)
}

func truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxChars]))
}
