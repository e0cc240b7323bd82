package telegram

import (
	"regexp"
	"strings"
)

// markdownV2Special lists every character the MarkdownV2 dialect requires to
// be escaped outside of entities.
const markdownV2Special = "\\_*[]()~`>#+-=|{}.!"

var linkPattern = regexp.MustCompile(`\[[^\[\]\n]+\]\([^()\s]+\)`)

// EscapeMarkdownV2 escapes text for the Bot API's MarkdownV2 parse mode while
// keeping deliberate [text](url) spans working as links.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range linkPattern.FindAllStringIndex(text, -1) {
		b.WriteString(escapePlain(text[last:loc[0]]))
		b.WriteString(escapeLink(text[loc[0]:loc[1]]))
		last = loc[1]
	}
	b.WriteString(escapePlain(text[last:]))
	return b.String()
}

func escapePlain(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeLink escapes the label of a [label](url) span and leaves the URL
// intact apart from the two characters MarkdownV2 requires escaping inside
// parentheses.
func escapeLink(link string) string {
	sep := strings.Index(link, "](")
	label := link[1:sep]
	url := link[sep+2 : len(link)-1]
	url = strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(url)
	return "[" + escapePlain(label) + "](" + url + ")"
}
