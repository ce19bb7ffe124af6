package services

import "strings"

const (
	maxTitleLength = 30
	ellipsis       = "..."
)

// PlaceholderTitle is the title given to a conversation from its first
// message: the first 30 characters, with "..." appended when cut.
func PlaceholderTitle(content string) string {
	r := []rune(content)
	if len(r) <= maxTitleLength {
		return content
	}
	return string(r[:maxTitleLength]) + ellipsis
}

// CleanGeneratedTitle strips whitespace and surrounding quotes from a model
// proposed title and caps it at 30 characters including the ellipsis.
func CleanGeneratedTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"`)
	title = strings.Trim(title, `'`)
	title = strings.TrimSpace(title)

	r := []rune(title)
	if len(r) > maxTitleLength {
		return string(r[:maxTitleLength-len(ellipsis)]) + ellipsis
	}
	return title
}

func titlePrompt(content string) string {
	return "Generate a short, concise title (maximum 5 words) for this conversation. The first message is: " + content
}
