package telegram

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage cuts text into chunks of at most maxLen runes. It prefers to
// break after a blank line, then after a newline, then after a space, as
// long as the break keeps at least half of the chunk.
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > maxLen {
		chunk := string(runes[:maxLen])
		cut := maxLen
		for _, sep := range []string{"\n\n", "\n", " "} {
			if i := strings.LastIndex(chunk, sep); i >= 0 {
				at := utf8.RuneCountInString(chunk[:i]) + utf8.RuneCountInString(sep)
				if at > maxLen/2 {
					cut = at
					break
				}
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// FixMarkdown closes dangling code fences and inline code spans so that a
// reply cut by the model still renders as Markdown.
func FixMarkdown(text string) string {
	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}

	var b strings.Builder
	b.Grow(len(text) + 1)
	fenced, inline := false, false
	for i := 0; i < len(text); i++ {
		if strings.HasPrefix(text[i:], "```") {
			if inline {
				b.WriteByte('`')
				inline = false
			}
			fenced = !fenced
			b.WriteString("```")
			i += 2
			continue
		}
		if !fenced && text[i] == '`' {
			inline = !inline
		}
		b.WriteByte(text[i])
	}
	if inline {
		b.WriteByte('`')
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown makes user supplied text safe inside a legacy Markdown message.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
