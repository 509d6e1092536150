package session

import (
	"strings"
	"unicode/utf8"

	"notes-rag-be/internal/constant"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const fallbackTitleWords = 4

// CleanTitle normalizes model output into a session title. It returns ""
// when nothing usable is left.
func CleanTitle(raw string) string {
	title := ""
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = line
			break
		}
	}

	if len(title) >= 6 && strings.EqualFold(title[:6], "title:") {
		title = strings.TrimSpace(title[6:])
	}
	title = strings.Trim(title, "\"'`*# ")
	return capTitle(strings.Join(strings.Fields(title), " "))
}

// FallbackTitle builds a title from the first words of the question.
func FallbackTitle(question string) string {
	words := strings.Fields(question)
	if len(words) == 0 {
		return constant.FallbackChatTitle
	}
	if len(words) > fallbackTitleWords {
		words = words[:fallbackTitleWords]
	}
	caser := cases.Title(language.English)
	return capTitle(caser.String(strings.Join(words, " ")) + "...")
}

func capTitle(title string) string {
	if utf8.RuneCountInString(title) <= constant.MaxChatTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:constant.MaxChatTitleLength-3]) + "..."
}
