package reply

import (
	"fmt"
	"slices"
	"strings"
)

const defaultLanguage = "en"

// replyLanguage applies the language policy: the post's language when it is
// allow-listed, English otherwise.
func replyLanguage(postLang string, allowed []string) string {
	lang := strings.ToLower(strings.TrimSpace(postLang))
	if lang != "" && slices.Contains(allowed, lang) {
		return lang
	}
	return defaultLanguage
}

func (p *Pipeline) systemPrompt(lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You reply to social media posts as %s.\n", p.opts.Persona)
	fmt.Fprintf(&b, "Keep the reply under %d characters.\n", p.opts.MaxChars)
	fmt.Fprintf(&b, "Write the reply in the language with ISO code %q.\n", lang)
	b.WriteString("Do not mention or tag anyone, do not use hashtags, and do not add links.\n")
	b.WriteString("Return only the reply text, with no quotes, preamble or explanation.")
	return b.String()
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Post by @%s", req.Author)
	if req.Permalink != "" {
		fmt.Fprintf(&b, " (%s)", req.Permalink)
	}
	if req.Lang != "" {
		fmt.Fprintf(&b, " [lang: %s]", req.Lang)
	}
	fmt.Fprintf(&b, ":\n\n%s", req.Text)
	return b.String()
}
